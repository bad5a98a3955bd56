package organizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shotsort/internal/events"
)

const (
	// MinFilesForFolder is the smallest top-level category kept as its own folder.
	MinFilesForFolder = 3
	// MinSubfolderSize is the smallest subcategory kept as its own folder.
	MinSubfolderSize = 3
)

// FormatCategory normalizes a category path: each "/" segment is split on
// spaces, underscores and dashes, title-cased word by word, and re-joined
// with underscores. "bank statements/credit-card" becomes
// "Bank_Statements/Credit_Card".
func FormatCategory(category string) string {
	caser := cases.Title(language.Und)
	var segments []string
	for _, segment := range strings.Split(category, "/") {
		words := strings.FieldsFunc(segment, func(r rune) bool {
			return r == '_' || r == '-' || r == ' '
		})
		if len(words) == 0 {
			continue
		}
		for i, word := range words {
			words[i] = caser.String(word)
		}
		segments = append(segments, strings.Join(words, "_"))
	}
	return strings.Join(segments, "/")
}

// TopLevel returns the first segment of a category path.
func TopLevel(category string) string {
	top, _, _ := strings.Cut(category, "/")
	return top
}

// MergeSmallCategories moves proposals whose top-level category has fewer
// than MinFilesForFolder members into FallbackCategory. The input is not
// modified.
func MergeSmallCategories(proposals []events.Proposal) []events.Proposal {
	counts := make(map[string]int)
	for _, p := range proposals {
		counts[TopLevel(p.ProposedCategory)]++
	}
	out := make([]events.Proposal, len(proposals))
	for i, p := range proposals {
		if counts[TopLevel(p.ProposedCategory)] < MinFilesForFolder {
			p.ProposedCategory = FallbackCategory
		}
		out[i] = p
	}
	return out
}

// CollapseSmallSubfolders folds subcategories with fewer than
// MinSubfolderSize members back into their parent. The input is not modified.
func CollapseSmallSubfolders(proposals []events.Proposal) []events.Proposal {
	counts := make(map[string]int)
	for _, p := range proposals {
		if strings.Contains(p.ProposedCategory, "/") {
			counts[p.ProposedCategory]++
		}
	}
	out := make([]events.Proposal, len(proposals))
	for i, p := range proposals {
		if n, ok := counts[p.ProposedCategory]; ok && n < MinSubfolderSize {
			p.ProposedCategory = TopLevel(p.ProposedCategory)
		}
		out[i] = p
	}
	return out
}
