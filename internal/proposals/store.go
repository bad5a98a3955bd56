// Package proposals tracks outstanding proposals for the daemon boundary.
//
// The Store is an events.Sink: file-proposed events add entries, a
// file-failed event for the same name drops any stale entry, and approve or
// reject calls remove them. Nothing is persisted across restarts.
package proposals

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"shotsort/internal/events"
)

// ErrNotFound reports an unknown proposal identifier.
var ErrNotFound = errors.New("proposal not found")

// Entry is an outstanding proposal with the run that produced it.
type Entry struct {
	events.Proposal
	RunID      string    `json:"run_id"`
	ProposedAt time.Time `json:"proposed_at"`
}

// Store holds outstanding proposals keyed by identifier.
type Store struct {
	mu    sync.Mutex
	items map[string]Entry
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]Entry)}
}

// Emit records proposals and clears entries superseded by a failure.
func (s *Store) Emit(evt events.Event) {
	switch evt.Type {
	case events.TypeFileProposed:
		if evt.Proposal == nil {
			return
		}
		s.mu.Lock()
		s.items[evt.Proposal.ID] = Entry{Proposal: *evt.Proposal, RunID: evt.RunID, ProposedAt: evt.Time}
		s.mu.Unlock()
	case events.TypeFileFailed:
		if evt.File == nil {
			return
		}
		s.mu.Lock()
		delete(s.items, evt.File.Name)
		s.mu.Unlock()
	}
}

// List returns outstanding proposals ordered by identifier.
func (s *Store) List() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.items))
	for _, entry := range s.items {
		out = append(out, entry)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the proposal with id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

// Remove deletes the proposal with id and returns it.
func (s *Store) Remove(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.items, id)
	return entry, nil
}

// SetCategory replaces the proposed category of id, e.g. after refinement.
func (s *Store) SetCategory(id, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	entry.ProposedCategory = category
	s.items[id] = entry
	return nil
}

// Len reports the number of outstanding proposals.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
