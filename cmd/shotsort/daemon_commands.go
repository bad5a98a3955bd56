package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotsort/internal/daemonctl"
	"shotsort/internal/daemonrun"
	"shotsort/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the shotsort background daemon",
	}

	var logLevel string
	var development bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
				cfg.Paths.SocketPath = socket
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	runCmd.Flags().BoolVar(&development, "development", false, "Enable development logging")

	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := ensureDaemon(ctx, startLogLevel)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon already running")
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override the configured log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, ""),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintf(stdout, "Daemon restarted (pid %d)\n", result.Start.PID)
			return nil
		},
	}

	daemonCmd.AddCommand(runCmd, startCmd, stopCmd, restartCmd)
	return daemonCmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			running, _, err := daemonctl.ProcessInfo(ctx.socketPath())
			if err != nil {
				return err
			}
			if !running {
				if ctx.jsonOutput() {
					return writeJSON(cmd, ipc.StatusResponse{})
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", shouldColorize(stdout)))
				return nil
			}
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				renderStatus(stdout, status, shouldColorize(stdout))
				return nil
			})
		},
	}
}

func renderStatus(out io.Writer, status *ipc.StatusResponse, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d) since %s", status.PID, formatTime(status.StartedAt)), colorize))
	fmt.Fprintln(out, renderStatusLine("History", statusInfo, status.HistoryDBPath, colorize))
	if status.EventLogPath != "" {
		fmt.Fprintln(out, renderStatusLine("Event log", statusInfo, status.EventLogPath, colorize))
	}
	notify := statusInfo
	if status.Notifications {
		notify = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Notifications", notify, yesNo(status.Notifications), colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Run", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.RunID == "" {
		fmt.Fprintln(out, renderStatusLine("Run", statusInfo, "no run started", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, status.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Folder", statusInfo, status.RunDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTime(status.RunStartedAt), colorize))
	fmt.Fprintln(out, renderStatusLine("Watching", statusInfo, yesNo(status.Watching), colorize))
	fmt.Fprintln(out, renderStatusLine("Credential", statusInfo, status.Credential, colorize))
	fmt.Fprintln(out, renderStatusLine("Active", statusInfo, fmt.Sprintf("%d units, %d/%d in flight", status.ActiveUnits, status.InFlight, status.Concurrency), colorize))
	fmt.Fprintln(out, renderStatusLine("Proposals", statusInfo, fmt.Sprintf("%d pending", status.Proposals), colorize))
}

func ensureDaemon(ctx *commandContext, logLevel string) (daemonctl.StartResult, error) {
	exe, err := daemonExecutable()
	if err != nil {
		return daemonctl.StartResult{}, err
	}
	return daemonctl.EnsureRunning(ctx.socketPath(), exe, daemonLaunchOptions(ctx, logLevel), 10*time.Second)
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: logLevel}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	opts.ConfigPath = ctx.configPath()
	return opts
}
