package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"shotsort/internal/events"
	"shotsort/internal/logging"
	"shotsort/internal/screenshot"
	"shotsort/internal/services"
	"shotsort/internal/services/anthropic"
)

const (
	DefaultConcurrency = 4
	DefaultDebounce    = 2 * time.Second
	DefaultCallTimeout = 30 * time.Second
)

// Classifier produces a filename and category proposal for an image.
type Classifier interface {
	Classify(ctx context.Context, image []byte, credential string) (anthropic.Classification, error)
}

// Options tunes a Dispatcher.
type Options struct {
	Concurrency       int
	Debounce          time.Duration
	CallTimeout       time.Duration
	MaxFileBytes      int64
	RequestsPerMinute int
}

// RunConfig is the immutable per-run state copied into every unit.
type RunConfig struct {
	RunID        string
	Credential   string
	Debounce     time.Duration
	CallTimeout  time.Duration
	MaxFileBytes int64
}

// Summary describes the synchronous part of a run.
type Summary struct {
	RunID      string `json:"run_id"`
	Candidates int    `json:"candidates"`
	Skipped    int    `json:"skipped"`
	Unreadable int    `json:"unreadable,omitempty"`
}

// Dispatcher owns the shared concurrency limit for classification calls.
type Dispatcher struct {
	classifier Classifier
	sink       events.Sink
	logger     *slog.Logger
	opts       Options
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
	sleep      func(context.Context, time.Duration) error
	readFile   func(string) ([]byte, error)
	newRunID   func() string

	wg       sync.WaitGroup
	active   atomic.Int64
	inFlight atomic.Int64
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSleeper overrides how debounce waits are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithReadFile overrides how candidate files are read.
func WithReadFile(read func(string) ([]byte, error)) Option {
	return func(d *Dispatcher) {
		if read != nil {
			d.readFile = read
		}
	}
}

// WithRunIDGenerator overrides run identifier generation.
func WithRunIDGenerator(gen func() string) Option {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newRunID = gen
		}
	}
}

// New constructs a Dispatcher publishing to sink.
func New(classifier Classifier, sink events.Sink, opts Options, options ...Option) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = screenshot.MaxFileSize
	}
	if sink == nil {
		sink = events.Discard
	}
	d := &Dispatcher{
		classifier: classifier,
		sink:       sink,
		logger:     logging.NewNop(),
		opts:       opts,
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		sleep:      sleepContext,
		readFile:   os.ReadFile,
		newRunID:   uuid.NewString,
	}
	if opts.RequestsPerMinute > 0 {
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	for _, option := range options {
		option(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "pipeline")
	return d
}

// NewRunConfig captures the settings for a new run using credential.
func (d *Dispatcher) NewRunConfig(credential string) RunConfig {
	return RunConfig{
		RunID:        d.newRunID(),
		Credential:   credential,
		Debounce:     d.opts.Debounce,
		CallTimeout:  d.opts.CallTimeout,
		MaxFileBytes: d.opts.MaxFileBytes,
	}
}

// Run scans dir, reports skips and the candidate count, and dispatches every
// candidate. It returns once dispatch has started; a run-complete event
// follows when every unit has finished. Only a directory that cannot be read
// fails the call, in which case nothing is emitted.
func (d *Dispatcher) Run(ctx context.Context, dir, credential string) (Summary, error) {
	cfg := d.NewRunConfig(credential)
	return d.RunWithConfig(ctx, dir, cfg)
}

// RunWithConfig is Run with a caller-supplied RunConfig.
func (d *Dispatcher) RunWithConfig(ctx context.Context, dir string, cfg RunConfig) (Summary, error) {
	result, err := screenshot.Scan(dir, cfg.MaxFileBytes)
	if err != nil {
		return Summary{}, fmt.Errorf("scan: %w", err)
	}
	logger := d.logger.With(logging.String(logging.FieldRunID, cfg.RunID))
	if result.Unreadable > 0 {
		logging.WarnWithContext(logger, "unreadable entries ignored", "scan_unreadable",
			logging.String("dir", dir),
			logging.Int("count", result.Unreadable),
			logging.String(logging.FieldImpact, "entries are not classified"),
			logging.String(logging.FieldErrorHint, "check file permissions in the folder"),
		)
	}

	for _, skip := range result.Skipped {
		logger.Info("screenshot skipped",
			logging.String(logging.FieldFile, skip.Name),
			logging.Int64("size", skip.Size),
			logging.String("reason", skip.Reason),
		)
		d.sink.Emit(events.NewFileSkipped(cfg.RunID, events.SkipRecord{
			Name:   skip.Name,
			Size:   skip.Size,
			Reason: skip.Reason,
		}))
	}
	d.sink.Emit(events.NewScanSummary(cfg.RunID, len(result.Candidates), result.Unreadable))
	logger.Info("scan complete",
		logging.String("dir", dir),
		logging.Int("candidates", len(result.Candidates)),
		logging.Int("skipped", len(result.Skipped)),
	)

	batch := d.Dispatch(ctx, cfg, result.Candidates)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		res := batch.Wait()
		d.sink.Emit(events.NewRunComplete(cfg.RunID, res.Proposed, res.Failed))
		logger.Info("run complete",
			logging.Int("proposed", res.Proposed),
			logging.Int("failed", res.Failed),
		)
	}()

	return Summary{
		RunID:      cfg.RunID,
		Candidates: len(result.Candidates),
		Skipped:    len(result.Skipped),
		Unreadable: result.Unreadable,
	}, nil
}

// Dispatch starts one unit per candidate and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg RunConfig, candidates []screenshot.Candidate) *Batch {
	batch := &Batch{done: make(chan struct{})}
	batch.pending.Add(len(candidates))
	for _, candidate := range candidates {
		d.wg.Add(1)
		d.active.Add(1)
		go func(c screenshot.Candidate) {
			defer d.wg.Done()
			defer d.active.Add(-1)
			defer batch.pending.Done()
			if d.process(ctx, cfg, c) {
				batch.proposed.Add(1)
			} else {
				batch.failed.Add(1)
			}
		}(candidate)
	}
	go func() {
		batch.pending.Wait()
		close(batch.done)
	}()
	return batch
}

// Wait blocks until every unit and run-complete notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Active reports units that have started but not yet emitted a terminal event.
func (d *Dispatcher) Active() int {
	return int(d.active.Load())
}

// InFlight reports classification calls currently holding a slot.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Concurrency returns the configured slot count.
func (d *Dispatcher) Concurrency() int {
	return d.opts.Concurrency
}

func (d *Dispatcher) process(ctx context.Context, cfg RunConfig, c screenshot.Candidate) bool {
	logger := d.logger.With(
		logging.String(logging.FieldRunID, cfg.RunID),
		logging.String(logging.FieldFile, c.Name),
	)
	d.sink.Emit(events.NewFileProcessing(cfg.RunID, c.Name))

	proposal, err := d.classifyUnit(ctx, cfg, c)
	if err != nil {
		kind := services.FailureKind(err)
		logging.WarnWithContext(logger, "classification failed", "file_failed",
			logging.String("kind", kind),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file left in place"),
		)
		d.sink.Emit(events.NewFileFailed(cfg.RunID, c.Name, kind, err))
		return false
	}
	logger.Info("proposal ready",
		logging.String("proposed_name", proposal.ProposedName),
		logging.String("category", proposal.ProposedCategory),
	)
	d.sink.Emit(events.NewFileProposed(cfg.RunID, proposal))
	return true
}

func (d *Dispatcher) classifyUnit(ctx context.Context, cfg RunConfig, c screenshot.Candidate) (events.Proposal, error) {
	if err := d.sleep(ctx, cfg.Debounce); err != nil {
		return events.Proposal{}, fmt.Errorf("debounce: %w", err)
	}
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return events.Proposal{}, fmt.Errorf("acquire slot: %w", err)
	}
	d.inFlight.Add(1)
	defer func() {
		d.inFlight.Add(-1)
		d.sem.Release(1)
	}()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return events.Proposal{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	data, err := d.readFile(c.Path)
	if err != nil {
		return events.Proposal{}, services.Wrap(services.ErrRead, "pipeline", "read", c.Name, err)
	}
	if int64(len(data)) > cfg.MaxFileBytes {
		return events.Proposal{}, services.Wrap(services.ErrRead, "pipeline", "read", fmt.Sprintf("%s grew beyond %d bytes", c.Name, cfg.MaxFileBytes), nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
	defer cancel()
	result, err := d.classifier.Classify(callCtx, data, cfg.Credential)
	if err != nil {
		return events.Proposal{}, err
	}
	return events.Proposal{
		ID:               c.Name,
		OriginalPath:     c.Path,
		OriginalName:     filepath.Base(c.Path),
		ProposedName:     result.NewFilename,
		ProposedCategory: result.Category,
		Reasoning:        result.Reasoning,
	}, nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
