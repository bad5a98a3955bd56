package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shotsort/internal/events"
	"shotsort/internal/screenshot"
	"shotsort/internal/services"
	"shotsort/internal/services/anthropic"
)

type fakeClassifier struct {
	delay     time.Duration
	inFlight  atomic.Int64
	maxFlight atomic.Int64
	calls     atomic.Int64

	mu          sync.Mutex
	credentials []string
	respond     func(image []byte) (anthropic.Classification, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, image []byte, credential string) (anthropic.Classification, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxFlight.Load()
		if current <= prev || f.maxFlight.CompareAndSwap(prev, current) {
			break
		}
	}
	f.mu.Lock()
	f.credentials = append(f.credentials, credential)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return anthropic.Classification{}, ctx.Err()
		}
	}
	if f.respond != nil {
		return f.respond(image)
	}
	return anthropic.Classification{NewFilename: "stripe_invoice.png", Category: "Finance", Reasoning: "payment receipt"}, nil
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func writeScreenshots(t *testing.T, dir string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		name := filepath.Join(dir, fmt.Sprintf("Screenshot %02d.png", i))
		if err := os.WriteFile(name, []byte(fmt.Sprintf("png-%d", i)), 0o644); err != nil {
			t.Fatalf("write screenshot: %v", err)
		}
	}
}

func waitForRunComplete(t *testing.T, rec *events.Recorder) events.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		for _, evt := range rec.Events() {
			if evt.Type == events.TypeRunComplete {
				return evt
			}
		}
		select {
		case <-rec.Updated():
		case <-deadline:
			t.Fatal("timed out waiting for run-complete")
		}
	}
}

func TestRunEmitsSummaryAndPerFileSequence(t *testing.T) {
	dir := t.TempDir()
	writeScreenshots(t, dir, 3)
	if err := os.WriteFile(filepath.Join(dir, "vacation.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := events.NewRecorder()
	classifier := &fakeClassifier{}
	d := New(classifier, rec, Options{Concurrency: 2}, WithSleeper(noSleep), WithRunIDGenerator(func() string { return "run-1" }))

	summary, err := d.Run(context.Background(), dir, "sk-test")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Candidates != 3 || summary.Skipped != 0 || summary.RunID != "run-1" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	complete := waitForRunComplete(t, rec)
	d.Wait()
	if complete.Complete.Proposed != 3 || complete.Complete.Failed != 0 {
		t.Fatalf("unexpected run-complete payload: %+v", complete.Complete)
	}

	all := rec.Events()
	if all[0].Type != events.TypeScanSummary || all[0].Summary.Count != 3 {
		t.Fatalf("expected scan-summary first, got %+v", all[0])
	}
	for name, seq := range rec.ByFile() {
		if len(seq) != 2 || seq[0] != events.TypeFileProcessing || seq[1] != events.TypeFileProposed {
			t.Fatalf("unexpected sequence for %s: %v", name, seq)
		}
	}
	for _, evt := range all {
		if evt.RunID != "run-1" {
			t.Fatalf("event missing run id: %+v", evt)
		}
		if evt.Type == events.TypeFileProposed {
			p := evt.Proposal
			if p.ID != p.OriginalName || p.ProposedName != "stripe_invoice.png" || p.ProposedCategory != "Finance" {
				t.Fatalf("unexpected proposal: %+v", p)
			}
			if !filepath.IsAbs(p.OriginalPath) {
				t.Fatalf("expected absolute original path: %q", p.OriginalPath)
			}
		}
	}
	for _, cred := range classifier.credentials {
		if cred != "sk-test" {
			t.Fatalf("unexpected credential %q", cred)
		}
	}
}

func TestRunReportsSkipsAndNeverDispatchesThem(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "Screenshot Big.png")
	f, err := os.Create(big)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(6 * 1024 * 1024); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	rec := events.NewRecorder()
	classifier := &fakeClassifier{}
	d := New(classifier, rec, Options{}, WithSleeper(noSleep))
	summary, err := d.Run(context.Background(), dir, "k")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	waitForRunComplete(t, rec)
	d.Wait()

	if summary.Candidates != 0 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if classifier.calls.Load() != 0 {
		t.Fatal("oversized file must not be classified")
	}
	all := rec.Events()
	if all[0].Type != events.TypeFileSkipped {
		t.Fatalf("expected skip event first, got %s", all[0].Type)
	}
	skip := all[0].Skip
	if skip.Name != "Screenshot Big.png" || skip.Size != 6291456 || skip.Reason != "exceeds 5MB limit" {
		t.Fatalf("unexpected skip payload: %+v", skip)
	}
	if all[1].Type != events.TypeScanSummary || all[1].Summary.Count != 0 {
		t.Fatalf("expected empty scan-summary, got %+v", all[1])
	}
}

func TestRunMissingDirectoryEmitsNothing(t *testing.T) {
	rec := events.NewRecorder()
	d := New(&fakeClassifier{}, rec, Options{}, WithSleeper(noSleep))
	if _, err := d.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), "k"); err == nil {
		t.Fatal("expected error for missing directory")
	}
	d.Wait()
	if got := rec.Events(); len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
}

func TestConcurrencyBound(t *testing.T) {
	const n, k = 12, 3
	dir := t.TempDir()
	writeScreenshots(t, dir, n)

	rec := events.NewRecorder()
	classifier := &fakeClassifier{delay: 20 * time.Millisecond}
	d := New(classifier, rec, Options{Concurrency: k}, WithSleeper(noSleep))
	if _, err := d.Run(context.Background(), dir, "k"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	waitForRunComplete(t, rec)
	d.Wait()

	if got := classifier.calls.Load(); got != n {
		t.Fatalf("expected %d calls, got %d", n, got)
	}
	if got := classifier.maxFlight.Load(); got > k {
		t.Fatalf("observed %d concurrent calls, limit is %d", got, k)
	}
	if got := classifier.maxFlight.Load(); got < 2 {
		t.Fatalf("expected calls to overlap, max in flight %d", got)
	}
}

func TestFailuresAreIsolated(t *testing.T) {
	dir := t.TempDir()
	writeScreenshots(t, dir, 4)

	rec := events.NewRecorder()
	classifier := &fakeClassifier{respond: func(image []byte) (anthropic.Classification, error) {
		if string(image) == "png-1" {
			return anthropic.Classification{}, fmt.Errorf("%w: not json", anthropic.ErrContract)
		}
		return anthropic.Classification{NewFilename: "ok.png", Category: "Code"}, nil
	}}
	d := New(classifier, rec, Options{}, WithSleeper(noSleep))
	if _, err := d.Run(context.Background(), dir, "k"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	complete := waitForRunComplete(t, rec)
	d.Wait()

	if complete.Complete.Proposed != 3 || complete.Complete.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", complete.Complete)
	}
	seqs := rec.ByFile()
	failed := seqs["Screenshot 01.png"]
	if len(failed) != 2 || failed[0] != events.TypeFileProcessing || failed[1] != events.TypeFileFailed {
		t.Fatalf("unexpected failed sequence: %v", failed)
	}
	for _, evt := range rec.Events() {
		if evt.Type == events.TypeFileFailed && evt.File.Kind != services.KindContract {
			t.Fatalf("expected contract kind, got %q", evt.File.Kind)
		}
		if evt.Type == events.TypeFileProposed && evt.Proposal.OriginalName == "Screenshot 01.png" {
			t.Fatal("failed file must not be proposed")
		}
	}
}

func TestReadFailureReportsFailed(t *testing.T) {
	rec := events.NewRecorder()
	classifier := &fakeClassifier{}
	d := New(classifier, rec, Options{}, WithSleeper(noSleep), WithReadFile(func(string) ([]byte, error) {
		return nil, os.ErrPermission
	}))
	cfg := d.NewRunConfig("k")
	batch := d.Dispatch(context.Background(), cfg, []screenshot.Candidate{{Path: "/tmp/Screenshot x.png", Name: "Screenshot x.png"}})
	res := batch.Wait()
	if res.Failed != 1 || classifier.calls.Load() != 0 {
		t.Fatalf("expected read failure without classification: %+v calls=%d", res, classifier.calls.Load())
	}
	evts := rec.Events()
	if evts[len(evts)-1].File.Kind != services.KindRead {
		t.Fatalf("expected read kind, got %+v", evts[len(evts)-1].File)
	}
}

func TestCallDeadlineBecomesFailure(t *testing.T) {
	dir := t.TempDir()
	writeScreenshots(t, dir, 1)

	rec := events.NewRecorder()
	classifier := &fakeClassifier{delay: time.Second}
	d := New(classifier, rec, Options{CallTimeout: 20 * time.Millisecond}, WithSleeper(noSleep))
	if _, err := d.Run(context.Background(), dir, "k"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	complete := waitForRunComplete(t, rec)
	d.Wait()
	if complete.Complete.Failed != 1 {
		t.Fatalf("expected timeout to fail the file: %+v", complete.Complete)
	}
	for _, evt := range rec.Events() {
		if evt.Type == events.TypeFileFailed && evt.File.Kind != services.KindTimeout {
			t.Fatalf("expected timeout kind, got %q", evt.File.Kind)
		}
	}
}

func TestDebounceAppliedBeforeRead(t *testing.T) {
	var slept []time.Duration
	var mu sync.Mutex
	reads := atomic.Int64{}
	sleeper := func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		if reads.Load() != 0 {
			return errors.New("read happened before debounce")
		}
		return nil
	}
	d := New(&fakeClassifier{}, events.Discard, Options{Debounce: 2 * time.Second}, WithSleeper(sleeper), WithReadFile(func(string) ([]byte, error) {
		reads.Add(1)
		return []byte("png"), nil
	}))
	res := d.Dispatch(context.Background(), d.NewRunConfig("k"), []screenshot.Candidate{{Path: "/x/Screenshot.png", Name: "Screenshot.png"}}).Wait()
	if res.Proposed != 1 {
		t.Fatalf("expected proposal, got %+v", res)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("unexpected debounce waits: %v", slept)
	}
}

func TestCancelledUnitStillReportsFailed(t *testing.T) {
	rec := events.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(&fakeClassifier{}, rec, Options{}, WithSleeper(noSleep))
	res := d.Dispatch(ctx, d.NewRunConfig("k"), []screenshot.Candidate{{Path: "/x/Screenshot.png", Name: "Screenshot.png"}}).Wait()
	if res.Failed != 1 {
		t.Fatalf("expected cancelled unit to fail, got %+v", res)
	}
	seq := rec.ByFile()["Screenshot.png"]
	if len(seq) != 2 || seq[1] != events.TypeFileFailed {
		t.Fatalf("unexpected sequence: %v", seq)
	}
}
