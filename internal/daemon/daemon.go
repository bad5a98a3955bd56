package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shotsort/internal/config"
	"shotsort/internal/events"
	"shotsort/internal/history"
	"shotsort/internal/logging"
	"shotsort/internal/notifications"
	"shotsort/internal/pipeline"
	"shotsort/internal/proposals"
	"shotsort/internal/refiner"
)

// ErrNotRunning reports a boundary call made before Start or after Stop.
var ErrNotRunning = errors.New("daemon not running")

// Classifier is the provider surface the daemon needs: whole-image
// classification for runs and subcategory requests for refinement.
type Classifier interface {
	pipeline.Classifier
	refiner.Subcategorizer
}

// Daemon owns the run state, the event hub, and the single-instance lock.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	history    *history.Store
	hub        *events.Hub
	archive    *events.Archive
	proposals  *proposals.Store
	dispatcher *pipeline.Dispatcher
	refiner    *refiner.Refiner
	notifier   notifications.Service
	forwarder  *notifications.Forwarder

	lockPath string
	lock     *flock.Flock

	run      runState
	settling sync.WaitGroup

	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

// Option customizes a Daemon.
type Option func(*options)

type options struct {
	notifier        notifications.Service
	archive         *events.Archive
	pipelineOptions []pipeline.Option
	hubCapacity     int
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(svc notifications.Service) Option {
	return func(o *options) { o.notifier = svc }
}

// WithArchive mirrors every event to a JSONL archive owned by the daemon.
func WithArchive(archive *events.Archive) Option {
	return func(o *options) { o.archive = archive }
}

// WithPipelineOptions passes options through to the dispatcher.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(o *options) { o.pipelineOptions = append(o.pipelineOptions, opts...) }
}

// WithHubCapacity bounds the in-memory event buffer.
func WithHubCapacity(capacity int) Option {
	return func(o *options) { o.hubCapacity = capacity }
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	LockFilePath  string
	HistoryDBPath string
	EventLogPath  string
	Run           RunStatus
	ActiveUnits   int
	InFlight      int
	Concurrency   int
	Proposals     int
	LastSequence  uint64
	Notifications bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, client Classifier, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || client == nil {
		return nil, errors.New("daemon requires config, history store, and classifier")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	hub := events.NewHub(o.hubCapacity)
	pending := proposals.NewStore()
	hub.AddSink(pending)
	if o.archive != nil {
		hub.AddSink(o.archive)
	}
	forwarder := notifications.NewForwarder(o.notifier, cfg.Notifications, logger)
	hub.AddSink(forwarder)

	pipelineOpts := append([]pipeline.Option{pipeline.WithLogger(logger)}, o.pipelineOptions...)
	dispatcher := pipeline.New(client, hub, pipeline.Options{
		Concurrency:       cfg.Pipeline.Concurrency,
		Debounce:          cfg.Debounce(),
		CallTimeout:       cfg.CallTimeout(),
		MaxFileBytes:      cfg.Pipeline.MaxFileBytes,
		RequestsPerMinute: cfg.Pipeline.RequestsPerMinute,
	}, pipelineOpts...)

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		history:    store,
		hub:        hub,
		archive:    o.archive,
		proposals:  pending,
		dispatcher: dispatcher,
		refiner:    refiner.New(client, cfg.CallTimeout(), cfg.Pipeline.MaxFileBytes, logger),
		notifier:   o.notifier,
		forwarder:  forwarder,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins accepting runs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shotsort daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("shotsort daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("concurrency", d.dispatcher.Concurrency()),
		logging.Bool("watch_enabled", d.cfg.Watch.Enabled))
	return nil
}

// Stop ends the live watcher, cancels in-flight units, and releases the lock.
// Units cancelled here still report file-failed before Stop returns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.StopRun()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.settling.Wait()
	d.dispatcher.Wait()
	d.forwarder.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"))
	}
	d.running.Store(false)
	d.logger.Info("shotsort daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.archive != nil {
		errs = append(errs, d.archive.Close())
	}
	if d.history != nil {
		errs = append(errs, d.history.Close())
	}
	return errors.Join(errs...)
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	_, lastSeq := d.hub.Tail(1)
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     d.startedAt,
		LockFilePath:  d.lockPath,
		HistoryDBPath: d.history.Path(),
		EventLogPath:  d.archive.Path(),
		Run:           d.run.status(),
		ActiveUnits:   d.dispatcher.Active(),
		InFlight:      d.dispatcher.InFlight(),
		Concurrency:   d.dispatcher.Concurrency(),
		Proposals:     d.proposals.Len(),
		LastSequence:  lastSeq,
		Notifications: notifications.Enabled(d.notifier),
	}
}

// TestNotification sends a test notification using the configured service.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !notifications.Enabled(d.notifier) {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
