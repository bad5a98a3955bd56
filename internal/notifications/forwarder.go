package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shotsort/internal/config"
	"shotsort/internal/events"
	"shotsort/internal/logging"
)

// Forwarder is an events.Sink that turns run lifecycle events into
// notifications. Delivery happens off the emitting goroutine so a slow ntfy
// server never stalls the pipeline.
type Forwarder struct {
	svc    Service
	flags  config.Notifications
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	started map[string]time.Time
	// errored outlives run-complete because watched files keep failing
	// under the same run ID; erroredOrder caps how many runs are kept.
	errored      map[string]bool
	erroredOrder []string
	wg           sync.WaitGroup
}

const maxAlertedRuns = 32

// NewForwarder wires svc to the toggles in flags.
func NewForwarder(svc Service, flags config.Notifications, logger *slog.Logger) *Forwarder {
	if svc == nil {
		svc = noopService{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Forwarder{
		svc:     svc,
		flags:   flags,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		now:     time.Now,
		started: make(map[string]time.Time),
		errored: make(map[string]bool),
	}
}

// Emit reacts to scan-summary, file-failed, and run-complete events.
func (f *Forwarder) Emit(evt events.Event) {
	switch evt.Type {
	case events.TypeScanSummary:
		f.mu.Lock()
		f.started[evt.RunID] = f.now()
		f.mu.Unlock()
		if f.flags.RunStarted && evt.Summary != nil {
			count := evt.Summary.Count
			f.deliver("run_started", func(ctx context.Context) error {
				return f.svc.NotifyRunStarted(ctx, count)
			})
		}
	case events.TypeFileFailed:
		if !f.flags.Errors || evt.File == nil {
			return
		}
		// One alert per run; the completion message carries the total.
		if !f.markErrored(evt.RunID) {
			return
		}
		cause := errors.New(evt.File.Error)
		label := evt.File.Name
		f.deliver("error", func(ctx context.Context) error {
			return f.svc.NotifyError(ctx, cause, label)
		})
	case events.TypeRunComplete:
		f.mu.Lock()
		start, ok := f.started[evt.RunID]
		delete(f.started, evt.RunID)
		f.mu.Unlock()
		if !f.flags.RunCompleted || evt.Complete == nil {
			return
		}
		var elapsed time.Duration
		if ok {
			elapsed = f.now().Sub(start)
		}
		proposed, failed := evt.Complete.Proposed, evt.Complete.Failed
		f.deliver("run_completed", func(ctx context.Context) error {
			return f.svc.NotifyRunCompleted(ctx, proposed, failed, elapsed)
		})
	}
}

// markErrored records runID and reports whether it had not alerted yet.
func (f *Forwarder) markErrored(runID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errored[runID] {
		return false
	}
	f.errored[runID] = true
	f.erroredOrder = append(f.erroredOrder, runID)
	if len(f.erroredOrder) > maxAlertedRuns {
		delete(f.errored, f.erroredOrder[0])
		f.erroredOrder = f.erroredOrder[1:]
	}
	return true
}

// Wait blocks until queued deliveries finish.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}

func (f *Forwarder) deliver(kind string, send func(context.Context) error) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := send(context.Background()); err != nil {
			logging.WarnWithContext(f.logger, "notification failed", "notification_failed",
				logging.String("notification", kind),
				logging.Error(err),
				logging.String(logging.FieldImpact, "push notification was not delivered"),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			)
		}
	}()
}
