package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotsort/internal/ipc"
	"shotsort/internal/proposals"
)

func newProposalCommands(ctx *commandContext) []*cobra.Command {
	var merge bool
	listCmd := &cobra.Command{
		Use:     "proposals",
		Aliases: []string{"pending"},
		Short:   "List outstanding proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Proposals(merge)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Proposals)
				}
				out := cmd.OutOrStdout()
				if len(resp.Proposals) == 0 {
					fmt.Fprintln(out, "No pending proposals")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Category", "New Name", "Reasoning"},
					proposalRows(resp.Proposals),
					nil,
				))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&merge, "merge", false, "Fold small categories and subfolders before listing")

	var approveBase string
	var approveAll bool
	approveCmd := &cobra.Command{
		Use:   "approve [id...]",
		Short: "Move files as proposed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !approveAll {
				return fmt.Errorf("specify proposal ids or --all")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				ids := args
				if approveAll {
					resp, err := client.Proposals(false)
					if err != nil {
						return err
					}
					ids = ids[:0:0]
					for _, entry := range resp.Proposals {
						ids = append(ids, entry.ID)
					}
				}
				out := cmd.OutOrStdout()
				var failed []string
				for _, id := range ids {
					resp, err := client.Approve(id, approveBase)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
						failed = append(failed, id)
						continue
					}
					fmt.Fprintf(out, "Moved %s -> %s\n", id, resp.Move.Destination)
				}
				if len(failed) > 0 {
					return fmt.Errorf("%d proposal(s) not applied: %s", len(failed), strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
	approveCmd.Flags().StringVar(&approveBase, "base-dir", "", "Folder that receives category subfolders (defaults to the file's folder)")
	approveCmd.Flags().BoolVar(&approveAll, "all", false, "Approve every outstanding proposal")

	rejectCmd := &cobra.Command{
		Use:   "reject <id...>",
		Short: "Drop proposals without moving anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				for _, id := range args {
					if _, err := client.Reject(id); err != nil {
						return fmt.Errorf("reject %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s\n", id)
				}
				return nil
			})
		},
	}

	applyCmd := &cobra.Command{
		Use:   "apply <original> <destination>",
		Short: "Move one file to an explicit destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := resolveDir(args[0])
			if err != nil {
				return err
			}
			destination, err := resolveDir(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Apply(original, destination)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Move)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s -> %s\n", resp.Move.Source, resp.Move.Destination)
				return nil
			})
		},
	}

	var refineCredential string
	refineCmd := &cobra.Command{
		Use:   "refine <file> <parent-category>",
		Short: "Ask for a subcategory within a parent category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDir(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Refine(path, args[1], credentialValue(refineCredential))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s/%s\n", resp.ID, args[1], resp.Subcategory)
				return nil
			})
		},
	}
	refineCmd.Flags().StringVar(&refineCredential, "credential", "", "API key for this request (defaults to the run or configured key)")

	var conflictBase string
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Report proposals that would collide at their destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Conflicts(conflictBase)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Conflicts)
				}
				out := cmd.OutOrStdout()
				if len(resp.Conflicts) == 0 {
					fmt.Fprintln(out, "No conflicts")
					return nil
				}
				rows := make([][]string, 0, len(resp.Conflicts))
				for _, conflict := range resp.Conflicts {
					rows = append(rows, []string{
						conflict.Destination,
						strings.Join(conflict.Sources, "\n"),
						yesNo(conflict.Exists),
					})
				}
				fmt.Fprint(out, renderTable([]string{"Destination", "Sources", "Exists"}, rows, nil))
				return nil
			})
		},
	}
	conflictsCmd.Flags().StringVar(&conflictBase, "base-dir", "", "Folder that receives category subfolders")

	return []*cobra.Command{listCmd, approveCmd, rejectCmd, applyCmd, refineCmd, conflictsCmd}
}

func proposalRows(entries []proposals.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ID,
			entry.ProposedCategory,
			entry.ProposedName,
			entry.Reasoning,
		})
	}
	return rows
}
