package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shotsort/internal/config"
	"shotsort/internal/events"
	"shotsort/internal/ipc"
	"shotsort/internal/logging"
	"shotsort/internal/pipeline"
	"shotsort/internal/services/anthropic"
)

func newRunCommands(ctx *commandContext) []*cobra.Command {
	var credential string
	var noLaunch bool
	startCmd := &cobra.Command{
		Use:   "start <folder>",
		Short: "Scan a folder and classify its screenshots in the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args[0])
			if err != nil {
				return err
			}
			if !noLaunch {
				if _, err := ensureDaemon(ctx, ""); err != nil {
					return err
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartRun(dir, credentialValue(credential))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s started; follow progress with `shotsort events --follow`\n", resp.RunID)
				return nil
			})
		},
	}
	startCmd.Flags().StringVar(&credential, "credential", "", "API key for this run (defaults to the configured key)")
	startCmd.Flags().BoolVar(&noLaunch, "no-launch", false, "Fail instead of launching the daemon when it is not running")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop watching the current run folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StopRun()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Classify a folder in-process and print proposals without moving anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := resolveDir(args[0])
			if err != nil {
				return err
			}
			key := credentialValue(credential)
			if key == "" {
				key = cfg.Anthropic.APIKey
			}
			if key == "" {
				return fmt.Errorf("no API key: pass --credential or set anthropic.api_key")
			}
			return runScan(cmd, cfg, dir, key, ctx.jsonOutput(), nil)
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "API key for this scan (defaults to the configured key)")
	return cmd
}

// runScan drives a one-shot pipeline run and prints every event. classifier
// overrides the provider client when non-nil.
func runScan(cmd *cobra.Command, cfg *config.Config, dir, credential string, asJSON bool, classifier pipeline.Classifier) error {
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if classifier == nil {
		classifier = anthropic.NewClient(anthropic.Config{
			BaseURL:         cfg.Anthropic.BaseURL,
			Model:           cfg.Anthropic.Model,
			MaxTokens:       cfg.Anthropic.MaxTokens,
			RefineMaxTokens: cfg.Anthropic.RefineMaxTokens,
			TimeoutSeconds:  cfg.Anthropic.TimeoutSeconds,
		}, anthropic.WithLogger(logger))
	}

	out := cmd.OutOrStdout()
	printer := &eventPrinter{out: out, json: asJSON}
	dispatcher := pipeline.New(classifier, printer, pipeline.Options{
		Concurrency:       cfg.Pipeline.Concurrency,
		Debounce:          cfg.Debounce(),
		CallTimeout:       cfg.CallTimeout(),
		MaxFileBytes:      cfg.Pipeline.MaxFileBytes,
		RequestsPerMinute: cfg.Pipeline.RequestsPerMinute,
	}, pipeline.WithLogger(logger))

	if _, err := dispatcher.Run(cmd.Context(), dir, credential); err != nil {
		return err
	}
	dispatcher.Wait()
	return printer.err
}

// eventPrinter is an events.Sink that writes one line per event.
type eventPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
	err  error
}

func (p *eventPrinter) Emit(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	if p.json {
		p.err = json.NewEncoder(p.out).Encode(evt)
		return
	}
	_, p.err = fmt.Fprintln(p.out, formatEvent(evt))
}

func formatEvent(evt events.Event) string {
	prefix := fmt.Sprintf("%-16s", evt.Type)
	switch evt.Type {
	case events.TypeScanSummary:
		if evt.Summary == nil {
			break
		}
		line := fmt.Sprintf("%s %d candidate(s)", prefix, evt.Summary.Count)
		if evt.Summary.Unreadable > 0 {
			line += fmt.Sprintf(", %d unreadable", evt.Summary.Unreadable)
		}
		return line
	case events.TypeFileProcessing:
		if evt.File != nil {
			return fmt.Sprintf("%s %s", prefix, evt.File.Name)
		}
	case events.TypeFileFailed:
		if evt.File != nil {
			return fmt.Sprintf("%s %s: %s", prefix, evt.File.Name, evt.File.Error)
		}
	case events.TypeFileSkipped:
		if evt.Skip != nil {
			return fmt.Sprintf("%s %s (%s, %s)", prefix, evt.Skip.Name, formatBytes(evt.Skip.Size), evt.Skip.Reason)
		}
	case events.TypeFileProposed:
		if evt.Proposal != nil {
			return fmt.Sprintf("%s %s -> %s/%s", prefix, evt.Proposal.OriginalName, evt.Proposal.ProposedCategory, evt.Proposal.ProposedName)
		}
	case events.TypeRunComplete:
		if evt.Complete != nil {
			return fmt.Sprintf("%s %d proposed, %d failed", prefix, evt.Complete.Proposed, evt.Complete.Failed)
		}
	}
	return strings.TrimSpace(prefix)
}

func resolveDir(arg string) (string, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	return abs, nil
}

// credentialValue prefers the flag, then SHOTSORT_API_KEY. An empty result
// lets the daemon fall back to its configured key.
func credentialValue(flag string) string {
	if value := strings.TrimSpace(flag); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("SHOTSORT_API_KEY"))
}
