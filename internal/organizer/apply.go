package organizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"shotsort/internal/fileutil"
)

// ErrSourceMissing reports that the file to move is gone.
var ErrSourceMissing = errors.New("source file no longer exists")

// Apply moves originalPath to newPath, creating intermediate directories.
// The source is untouched unless the rename itself succeeds. Moves across
// filesystems fall back to a verified copy and refuse an existing destination.
func Apply(originalPath, newPath string) error {
	if originalPath == "" || newPath == "" {
		return errors.New("apply: source and destination are required")
	}
	info, err := os.Stat(originalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, originalPath)
		}
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrSourceMissing, originalPath)
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := fileutil.Move(originalPath, newPath); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(originalPath), err)
	}
	return nil
}
