package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
)

// Candidate is a screenshot eligible for classification.
type Candidate struct {
	Path string
	Name string
	Size int64
}

// SkipRecord describes a screenshot excluded from classification.
type SkipRecord struct {
	Name   string
	Size   int64
	Reason string
}

// Result is the outcome of scanning one directory.
type Result struct {
	Candidates []Candidate
	Skipped    []SkipRecord
	// Unreadable counts entries whose metadata could not be read.
	Unreadable int
}

// Scan lists the direct children of dir and partitions screenshots into
// candidates and size skips. A non-positive maxBytes selects MaxFileSize.
// Scan fails only when dir itself cannot be read.
func Scan(dir string, maxBytes int64) (Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", dir, err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return Result{}, fmt.Errorf("read directory %q: %w", dir, err)
	}

	var result Result
	for _, entry := range entries {
		name := entry.Name()
		if !IsCandidate(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Unreadable++
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if !WithinLimit(info.Size(), maxBytes) {
			result.Skipped = append(result.Skipped, SkipRecord{
				Name:   name,
				Size:   info.Size(),
				Reason: SkipReasonTooLarge,
			})
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			Path: filepath.Join(absDir, name),
			Name: name,
			Size: info.Size(),
		})
	}
	return result, nil
}

// Inspect builds a Candidate for a single path, used by the live watcher.
// ok is false when the file is not a screenshot or is not a regular file.
func Inspect(path string, maxBytes int64) (candidate Candidate, skip *SkipRecord, ok bool, err error) {
	name := filepath.Base(path)
	if !IsCandidate(name) {
		return Candidate{}, nil, false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, nil, false, err
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, nil, false, nil
	}
	if !WithinLimit(info.Size(), maxBytes) {
		return Candidate{}, &SkipRecord{Name: name, Size: info.Size(), Reason: SkipReasonTooLarge}, true, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Candidate{}, nil, false, err
	}
	return Candidate{Path: absPath, Name: name, Size: info.Size()}, nil, true, nil
}
