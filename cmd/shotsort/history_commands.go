package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shotsort/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled moves, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Moves)
				}
				out := cmd.OutOrStdout()
				if len(resp.Moves) == 0 {
					fmt.Fprintln(out, "No moves recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Moves))
				for _, move := range resp.Moves {
					state := "applied"
					if move.UndoneAt != nil {
						state = "undone " + formatTime(*move.UndoneAt)
					}
					rows = append(rows, []string{
						strconv.FormatInt(move.ID, 10),
						formatTime(move.AppliedAt),
						move.Source,
						move.Destination,
						state,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Applied", "From", "To", "State"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of moves to show")
	return cmd
}

func newUndoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Move the most recently applied file back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Undo()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Move)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s -> %s\n", resp.Move.Destination, resp.Move.Source)
				return nil
			})
		},
	}
}
