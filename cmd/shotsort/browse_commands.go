package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shotsort/internal/ipc"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <folder>",
		Short: "List screenshots in a folder without classifying them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListCandidates(dir)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Files)
				}
				out := cmd.OutOrStdout()
				if len(resp.Files) == 0 {
					fmt.Fprintln(out, "No screenshots found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Files))
				for _, file := range resp.Files {
					valid := "yes"
					if !file.Valid {
						valid = "too large"
					}
					rows = append(rows, []string{file.Name, formatBytes(file.Size), valid})
				}
				fmt.Fprint(out, renderTable([]string{"Name", "Size", "Eligible"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
}

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "folders <folder>",
		Short: "List existing category folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListFolders(dir)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp.Folders)
				}
				out := cmd.OutOrStdout()
				if len(resp.Folders) == 0 {
					fmt.Fprintln(out, "No folders found")
					return nil
				}
				for _, folder := range resp.Folders {
					fmt.Fprintln(out, folder.Name)
				}
				return nil
			})
		},
	}
}
