package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shotsort/internal/ipc"
)

const followWaitMillis = 5000

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var since uint64
	var limit int
	var follow bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print daemon lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(commandCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				enc := json.NewEncoder(out)
				cursor := since
				for {
					req := ipc.EventsRequest{Since: cursor, Limit: limit}
					if follow {
						req.Follow = true
						req.WaitMillis = followWaitMillis
					}
					resp, err := client.Events(req)
					if err != nil {
						return err
					}
					for _, evt := range resp.Events {
						if ctx.jsonOutput() {
							if err := enc.Encode(evt); err != nil {
								return err
							}
							continue
						}
						fmt.Fprintf(out, "%6d %s %s\n", evt.Seq, evt.Time.Local().Format("15:04:05"), formatEvent(evt))
					}
					cursor = resp.Next
					if !follow {
						return nil
					}
					if err := runCtx.Err(); err != nil {
						return nil
					}
				}
			})
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Only show events after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum events per request (0 for the server default)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep waiting for new events")
	return cmd
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
