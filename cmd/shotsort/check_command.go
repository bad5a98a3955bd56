package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shotsort/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var folder string
	var probe bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks against the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := preflight.Options{Probe: probe}
			if folder != "" {
				if opts.Folder, err = resolveDir(folder); err != nil {
					return err
				}
			}
			results := preflight.RunAll(commandCtx(cmd), cfg, opts)
			failed := preflight.Failed(results)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "Also check this screenshot folder")
	cmd.Flags().BoolVar(&probe, "probe", false, "Also check that the provider endpoint is reachable")
	return cmd
}
