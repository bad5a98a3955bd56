package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shotsort/internal/events"
	"shotsort/internal/logging"
	"shotsort/internal/pipeline"
	"shotsort/internal/screenshot"
	"shotsort/internal/watch"
)

const stopAck = "Stopped watching"

// runState is the only mutable state shared across runs. The mutex is held
// for reads and writes of the fields, never across a scan or provider call.
type runState struct {
	mu        sync.Mutex
	cfg       pipeline.RunConfig
	dir       string
	startedAt time.Time
	watcher   *watch.Watcher
}

// RunStatus describes the most recent run.
type RunStatus struct {
	RunID      string
	Dir        string
	StartedAt  time.Time
	Watching   bool
	Credential string
}

func (r *runState) status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := RunStatus{
		RunID:     r.cfg.RunID,
		Dir:       r.dir,
		StartedAt: r.startedAt,
		Watching:  r.watcher != nil,
	}
	if r.cfg.Credential != "" {
		st.Credential = logging.MaskSecret(r.cfg.Credential)
	}
	return st
}

func (r *runState) current() pipeline.RunConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// begin records cfg as the current run and detaches the previous run's
// watcher, which the caller must stop.
func (r *runState) begin(cfg pipeline.RunConfig, dir string) *watch.Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.dir = dir
	r.startedAt = time.Now().UTC()
	previous := r.watcher
	r.watcher = nil
	return previous
}

// installWatcher attaches w to the run identified by runID. It refuses when a
// newer run has begun in the meantime; the caller then stops w.
func (r *runState) installWatcher(runID string, w *watch.Watcher) (*watch.Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.RunID != runID {
		return nil, false
	}
	previous := r.watcher
	r.watcher = w
	return previous, true
}

// detachWatcher clears the watcher and returns it.
func (r *runState) detachWatcher() *watch.Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.watcher
	r.watcher = nil
	return previous
}

// RunStarted acknowledges a dispatched run.
type RunStarted struct {
	RunID   string
	Message string
}

// StartRun scans dir and dispatches classification for every candidate. The
// credential replaces the one stored by any earlier run; units already in
// flight keep the credential they were dispatched with. A blank credential
// falls back to the configured API key. Only a folder that cannot be read
// fails the call.
func (d *Daemon) StartRun(dir, credential string) (RunStarted, error) {
	if !d.running.Load() {
		return RunStarted{}, ErrNotRunning
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return RunStarted{}, errors.New("folder path is required")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return RunStarted{}, fmt.Errorf("resolve folder: %w", err)
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		credential = d.cfg.Anthropic.APIKey
	}
	if credential == "" {
		return RunStarted{}, errors.New("credential is required (pass one or set anthropic.api_key)")
	}

	runCfg := d.dispatcher.NewRunConfig(credential)
	if previous := d.run.begin(runCfg, absDir); previous != nil {
		previous.Stop()
	}

	logger := d.logger.With(logging.String(logging.FieldRunID, runCfg.RunID))
	logger.Info("run requested",
		logging.String("dir", absDir),
		logging.Secret("credential", credential))

	summary, err := d.dispatcher.RunWithConfig(d.ctx, absDir, runCfg)
	if err != nil {
		logging.WarnWithContext(logger, "run aborted", "run_aborted",
			logging.String("dir", absDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the folder exists and is readable"))
		return RunStarted{}, err
	}

	if d.cfg.Watch.Enabled {
		d.startWatcher(logger, runCfg, absDir)
	}

	logger.Info("run dispatched",
		logging.Int("candidates", summary.Candidates),
		logging.Int("skipped", summary.Skipped))
	return RunStarted{RunID: runCfg.RunID, Message: fmt.Sprintf("Scanned %s", absDir)}, nil
}

func (d *Daemon) startWatcher(logger *slog.Logger, runCfg pipeline.RunConfig, dir string) {
	w, err := watch.Start(dir, func(path string) { d.handleCreated(runCfg, path) }, d.logger)
	if err != nil {
		logging.WarnWithContext(logger, "live watch unavailable", "watch_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new screenshots are not picked up until the next run"))
		return
	}
	previous, ok := d.run.installWatcher(runCfg.RunID, w)
	if !ok {
		logger.Debug("run superseded before watch started", logging.String("dir", dir))
		w.Stop()
		return
	}
	if previous != nil {
		previous.Stop()
	}
}

// StopRun stops the live watcher, if any. Dispatched units run to completion.
func (d *Daemon) StopRun() string {
	if w := d.run.detachWatcher(); w != nil {
		w.Stop()
		d.logger.Info("live watch stopped", logging.String("dir", w.Dir()))
	}
	return stopAck
}

// handleCreated waits out the debounce for a watcher-reported file, then
// checks its size and dispatches it under the run that owns the watcher. A
// file still being copied when the event fires is measured once it settles.
func (d *Daemon) handleCreated(runCfg pipeline.RunConfig, path string) {
	d.settling.Add(1)
	go func() {
		defer d.settling.Done()
		if !settle(d.ctx, runCfg.Debounce) {
			return
		}
		candidate, skip, ok, err := screenshot.Inspect(path, runCfg.MaxFileBytes)
		if err != nil {
			d.logger.Debug("watched file vanished", logging.String(logging.FieldFile, path), logging.Error(err))
			return
		}
		if !ok {
			return
		}
		if skip != nil {
			d.logger.Info("screenshot skipped",
				logging.String(logging.FieldRunID, runCfg.RunID),
				logging.String(logging.FieldFile, skip.Name),
				logging.Int64("size", skip.Size),
				logging.String("reason", skip.Reason))
			d.hub.Emit(events.NewFileSkipped(runCfg.RunID, events.SkipRecord{
				Name:   skip.Name,
				Size:   skip.Size,
				Reason: skip.Reason,
			}))
			return
		}
		settled := runCfg
		settled.Debounce = 0
		d.dispatcher.Dispatch(d.ctx, settled, []screenshot.Candidate{candidate})
	}()
}

// settle sleeps for delay and reports false when ctx ends first.
func settle(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
