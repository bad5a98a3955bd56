package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shotsort/internal/config"
	"shotsort/internal/daemon"
	"shotsort/internal/events"
	"shotsort/internal/history"
	"shotsort/internal/ipc"
	"shotsort/internal/logging"
	"shotsort/internal/preflight"
	"shotsort/internal/services/anthropic"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the shotsort daemon and blocks until a signal or a Shutdown RPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, stopSignals := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	runCtx, shutdown := context.WithCancel(signalCtx)
	defer shutdown()

	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shotsort-%s.log", stamp))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shotsort-%s.events", stamp))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, sessionID))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shotsort.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "shotsort-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "shotsort-*.events", Exclude: []string{eventsPath}},
	)
	logPreflight(runCtx, logger, cfg)

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}

	archive, archiveErr := events.NewArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize event archive: %v\n", archiveErr)
		archive = nil
	}

	client := anthropic.NewClient(anthropic.Config{
		BaseURL:         cfg.Anthropic.BaseURL,
		Model:           cfg.Anthropic.Model,
		MaxTokens:       cfg.Anthropic.MaxTokens,
		RefineMaxTokens: cfg.Anthropic.RefineMaxTokens,
		TimeoutSeconds:  cfg.Anthropic.TimeoutSeconds,
	}, anthropic.WithLogger(logger))

	d, err := daemon.New(cfg, store, client, logger, daemon.WithArchive(archive))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(runCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "stop the other shotsort daemon or remove a stale lock file"),
		)
		return err
	}

	ipcServer, err := ipc.NewServer(runCtx, cfg.Paths.SocketPath, d, logger, ipc.WithShutdown(shutdown))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("shotsort daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.Paths.SocketPath),
		logging.String("log_path", logPath),
		logging.String("events_path", archive.Path()),
	)

	<-runCtx.Done()
	logger.Info("shotsort daemon shutting down")
	return nil
}

// PIDPath is where the running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "shotsort.pid")
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg, preflight.Options{})) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "runs may fail until this is fixed"),
			logging.String(logging.FieldErrorHint, "run shotsort check for details"),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shotsort.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
