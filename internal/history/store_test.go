package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordListAndUndo(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.Record(ctx, Entry{RunID: "run", ProposalID: "a.png", Source: "/s/a.png", Destination: "/s/Finance/x.png", Category: "Finance"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	second, err := store.Record(ctx, Entry{Source: "/s/b.png", Destination: "/s/Code/y.png"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != second.ID || entries[1].Category != "Finance" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].AppliedAt.IsZero() {
		t.Fatal("expected applied timestamp")
	}

	latest, err := store.LatestActive(ctx)
	if err != nil || latest.ID != second.ID {
		t.Fatalf("unexpected latest: %+v %v", latest, err)
	}
	if err := store.MarkUndone(ctx, latest.ID); err != nil {
		t.Fatalf("MarkUndone: %v", err)
	}
	if err := store.MarkUndone(ctx, latest.ID); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected second undo to fail, got %v", err)
	}
	latest, err = store.LatestActive(ctx)
	if err != nil || latest.ID != first.ID {
		t.Fatalf("expected first entry to be next, got %+v %v", latest, err)
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].UndoneAt == nil {
		t.Fatalf("unexpected limited list: %+v %v", limited, err)
	}
}

func TestLatestActiveEmpty(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.LatestActive(context.Background()); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestReopenKeepsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), Entry{Source: "/a", Destination: "/b"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(context.Background(), 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %+v %v", entries, err)
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	recorded, err := store.Record(ctx, Entry{Source: "/s/a.png", Destination: "/s/Misc/a.png"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.Get(ctx, recorded.ID)
	if err != nil || got.Destination != "/s/Misc/a.png" {
		t.Fatalf("unexpected entry: %+v %v", got, err)
	}
	if _, err := store.Get(ctx, recorded.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
