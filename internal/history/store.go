package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNothingToUndo reports an empty or fully undone journal.
	ErrNothingToUndo = errors.New("no applied move to undo")
	// ErrNotFound reports an unknown journal entry.
	ErrNotFound = errors.New("move not found")
)

// Entry is one journaled move.
type Entry struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id,omitempty"`
	ProposalID  string     `json:"proposal_id,omitempty"`
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Category    string     `json:"category,omitempty"`
	AppliedAt   time.Time  `json:"applied_at"`
	UndoneAt    *time.Time `json:"undone_at,omitempty"`
}

// Store manages the move journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record appends an applied move and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.AppliedAt.IsZero() {
		entry.AppliedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO moves (run_id, proposal_id, source_path, dest_path, category, applied_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		nullableString(entry.RunID),
		nullableString(entry.ProposalID),
		entry.Source,
		entry.Destination,
		nullableString(entry.Category),
		entry.AppliedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert move: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM moves ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LatestActive returns the newest move that has not been undone.
func (s *Store) LatestActive(ctx context.Context) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM moves WHERE undone_at IS NULL ORDER BY id DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNothingToUndo
	}
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM moves WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("move %d: %w", id, ErrNotFound)
	}
	return entry, err
}

// MarkUndone stamps entry id as reverted.
func (s *Store) MarkUndone(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE moves SET undone_at = ? WHERE id = ? AND undone_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark undone %d: %w", id, ErrNothingToUndo)
	}
	return nil
}

const entryColumns = `id, run_id, proposal_id, source_path, dest_path, category, applied_at, undone_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry                       Entry
		runID, proposalID, category sql.NullString
		appliedAt                   string
		undoneAt                    sql.NullString
	)
	if err := row.Scan(&entry.ID, &runID, &proposalID, &entry.Source, &entry.Destination, &category, &appliedAt, &undoneAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan move: %w", err)
	}
	entry.RunID = runID.String
	entry.ProposalID = proposalID.String
	entry.Category = category.String
	if ts, err := time.Parse(time.RFC3339Nano, appliedAt); err == nil {
		entry.AppliedAt = ts
	}
	if undoneAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, undoneAt.String); err == nil {
			entry.UndoneAt = &ts
		}
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
