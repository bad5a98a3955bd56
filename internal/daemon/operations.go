package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"shotsort/internal/events"
	"shotsort/internal/history"
	"shotsort/internal/logging"
	"shotsort/internal/organizer"
	"shotsort/internal/proposals"
	"shotsort/internal/refiner"
	"shotsort/internal/screenshot"
)

// ListCandidates returns the screenshots in dir with their size verdict.
// Nothing is dispatched.
func (d *Daemon) ListCandidates(dir string) ([]screenshot.FileInfo, error) {
	return screenshot.List(dir)
}

// ListFolders returns the visible subfolders of dir.
func (d *Daemon) ListFolders(dir string) ([]screenshot.Folder, error) {
	return screenshot.ListFolders(dir)
}

// ApplyProposal moves original to destination and journals the move. A
// matching outstanding proposal is retired.
func (d *Daemon) ApplyProposal(ctx context.Context, original, destination string) (history.Entry, error) {
	original = strings.TrimSpace(original)
	destination = strings.TrimSpace(destination)
	if original == "" || destination == "" {
		return history.Entry{}, errors.New("original and destination paths are required")
	}

	entry := history.Entry{Source: original, Destination: destination}
	id := filepath.Base(original)
	if pending, err := d.proposals.Get(id); err == nil && samePath(pending.OriginalPath, original) {
		entry.RunID = pending.RunID
		entry.ProposalID = pending.ID
		entry.Category = pending.ProposedCategory
	}
	return d.applyMove(ctx, entry)
}

// Approve applies the proposal id to baseDir/<category>/<proposed name>.
// An empty baseDir selects the folder the screenshot currently lives in.
func (d *Daemon) Approve(ctx context.Context, id, baseDir string) (history.Entry, error) {
	pending, err := d.proposals.Get(id)
	if err != nil {
		return history.Entry{}, err
	}
	if strings.TrimSpace(baseDir) == "" {
		baseDir = filepath.Dir(pending.OriginalPath)
	}
	destination, err := organizer.Destination(baseDir, pending.ProposedCategory, pending.ProposedName)
	if err != nil {
		return history.Entry{}, err
	}
	return d.applyMove(ctx, history.Entry{
		RunID:       pending.RunID,
		ProposalID:  pending.ID,
		Source:      pending.OriginalPath,
		Destination: destination,
		Category:    pending.ProposedCategory,
	})
}

// Reject drops the proposal id without touching the file.
func (d *Daemon) Reject(id string) (proposals.Entry, error) {
	entry, err := d.proposals.Remove(id)
	if err != nil {
		return proposals.Entry{}, err
	}
	d.logger.Info("proposal rejected", logging.String(logging.FieldFile, id))
	return entry, nil
}

// Proposals lists outstanding proposals. With merge set, small subfolders
// collapse into their parent and small top-level categories into "Other".
func (d *Daemon) Proposals(merge bool) []proposals.Entry {
	entries := d.proposals.List()
	if !merge || len(entries) == 0 {
		return entries
	}
	plain := make([]events.Proposal, len(entries))
	for i, e := range entries {
		plain[i] = e.Proposal
	}
	merged := organizer.MergeSmallCategories(organizer.CollapseSmallSubfolders(plain))
	for i := range entries {
		entries[i].ProposedCategory = merged[i].ProposedCategory
	}
	return entries
}

// Conflicts reports proposals whose destinations collide under baseDir.
func (d *Daemon) Conflicts(baseDir string) ([]organizer.Conflict, error) {
	entries := d.proposals.List()
	moves := make([]organizer.Move, 0, len(entries))
	for _, e := range entries {
		base := baseDir
		if strings.TrimSpace(base) == "" {
			base = filepath.Dir(e.OriginalPath)
		}
		dest, err := organizer.Destination(base, e.ProposedCategory, e.ProposedName)
		if err != nil {
			return nil, fmt.Errorf("proposal %s: %w", e.ID, err)
		}
		moves = append(moves, organizer.Move{Source: e.OriginalPath, Destination: dest})
	}
	return organizer.FindConflicts(moves), nil
}

// RefineSubcategory asks for a subcategory of parent for the file at path.
// A blank credential falls back to the current run's, then the configured
// key. When the file has an outstanding proposal, its category becomes
// parent/subcategory.
func (d *Daemon) RefineSubcategory(ctx context.Context, path, parent, credential string) (refiner.Result, error) {
	parent = strings.TrimSpace(parent)
	if parent == "" {
		return refiner.Result{}, errors.New("parent category is required")
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		credential = d.run.current().Credential
	}
	if credential == "" {
		credential = d.cfg.Anthropic.APIKey
	}
	result, err := d.refiner.Refine(ctx, path, parent, credential)
	if err != nil {
		return refiner.Result{}, err
	}
	if err := d.proposals.SetCategory(result.ID, parent+"/"+result.Subcategory); err != nil && !errors.Is(err, proposals.ErrNotFound) {
		return result, err
	}
	return result, nil
}

// Events returns events after since. Sequences that have rolled out of the
// in-memory buffer are served from the archive when one is configured.
func (d *Daemon) Events(ctx context.Context, since uint64, limit int, wait bool) ([]events.Event, uint64, error) {
	if d.archive != nil && since+1 < d.hub.FirstSequence() {
		archived, next, err := d.archive.ReadSince(since, limit)
		if err != nil {
			d.logger.Warn("event archive read failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "event_archive_read_failed"))
		} else if len(archived) > 0 {
			return archived, next, nil
		}
	}
	return d.hub.Fetch(ctx, since, limit, wait)
}

// History returns the newest journaled moves first.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Entry, error) {
	return d.history.List(ctx, limit)
}

// Undo moves the most recent applied file back to where it came from.
func (d *Daemon) Undo(ctx context.Context) (history.Entry, error) {
	entry, err := d.history.LatestActive(ctx)
	if err != nil {
		return history.Entry{}, err
	}
	if err := organizer.Apply(entry.Destination, entry.Source); err != nil {
		return history.Entry{}, fmt.Errorf("undo move %d: %w", entry.ID, err)
	}
	if err := d.history.MarkUndone(ctx, entry.ID); err != nil {
		return history.Entry{}, err
	}
	d.logger.Info("move undone",
		logging.Int64("history_id", entry.ID),
		logging.String("source", entry.Source),
		logging.String("destination", entry.Destination))
	return d.history.Get(ctx, entry.ID)
}

func (d *Daemon) applyMove(ctx context.Context, entry history.Entry) (history.Entry, error) {
	if err := organizer.Apply(entry.Source, entry.Destination); err != nil {
		logging.WarnWithContext(d.logger, "apply failed", "apply_failed",
			logging.String("source", entry.Source),
			logging.String("destination", entry.Destination),
			logging.Error(err))
		return history.Entry{}, err
	}
	if entry.ProposalID != "" {
		_, _ = d.proposals.Remove(entry.ProposalID)
	}
	recorded, err := d.history.Record(ctx, entry)
	if err != nil {
		// The move already happened; only undo support is lost.
		logging.WarnWithContext(d.logger, "move not journaled", "history_record_failed",
			logging.String("source", entry.Source),
			logging.String("destination", entry.Destination),
			logging.Error(err),
			logging.String(logging.FieldImpact, "undo is unavailable for this move"))
		return entry, nil
	}
	d.logger.Info("proposal applied",
		logging.Int64("history_id", recorded.ID),
		logging.String("source", entry.Source),
		logging.String("destination", entry.Destination))
	return recorded, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
