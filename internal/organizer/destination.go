package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shotsort/internal/textutil"
)

// FallbackCategory receives files without a usable category.
const FallbackCategory = "Other"

// Move is one planned rename.
type Move struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Conflict describes a destination that cannot be used as-is.
type Conflict struct {
	Destination string   `json:"destination"`
	Sources     []string `json:"sources"`
	// Exists is true when a file is already present at Destination.
	Exists bool `json:"exists"`
}

// Destination builds baseDir/<category>/<proposedName>. Category may contain
// "/" separated subcategories. Segments are sanitized and traversal segments
// are rejected.
func Destination(baseDir, category, proposedName string) (string, error) {
	if strings.TrimSpace(baseDir) == "" {
		return "", errors.New("destination: base directory required")
	}
	name := textutil.SanitizeFileName(proposedName)
	if name == "" || textutil.IsTraversal(name) {
		return "", fmt.Errorf("destination: invalid file name %q", proposedName)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}

	segments := []string{baseDir}
	for _, raw := range strings.Split(category, "/") {
		if textutil.IsTraversal(strings.TrimSpace(raw)) {
			return "", fmt.Errorf("destination: invalid category %q", category)
		}
		segment := textutil.SanitizeFileName(raw)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	if len(segments) == 1 {
		segments = append(segments, FallbackCategory)
	}
	segments = append(segments, name)
	return filepath.Join(segments...), nil
}

// FindConflicts reports destinations that already exist on disk or are the
// target of more than one move. It never touches the filesystem beyond Lstat.
func FindConflicts(moves []Move) []Conflict {
	byDest := make(map[string][]string)
	order := make([]string, 0, len(moves))
	for _, move := range moves {
		dest := filepath.Clean(move.Destination)
		if _, seen := byDest[dest]; !seen {
			order = append(order, dest)
		}
		byDest[dest] = append(byDest[dest], move.Source)
	}

	var conflicts []Conflict
	for _, dest := range order {
		sources := byDest[dest]
		_, err := os.Lstat(dest)
		exists := err == nil
		if !exists && len(sources) < 2 {
			continue
		}
		sorted := append([]string(nil), sources...)
		sort.Strings(sorted)
		conflicts = append(conflicts, Conflict{Destination: dest, Sources: sorted, Exists: exists})
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Destination < conflicts[j].Destination })
	return conflicts
}
