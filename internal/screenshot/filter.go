package screenshot

import "strings"

// MaxFileSize is the largest screenshot, in bytes, sent for classification.
const MaxFileSize int64 = 5 * 1024 * 1024

// SkipReasonTooLarge is the only skip reason currently reported.
const SkipReasonTooLarge = "exceeds 5MB limit"

var nameMarkers = []string{"Screenshot", "Screen Shot"}

// IsCandidate reports whether name looks like a screenshot: a .png extension
// in any case plus one of the literal markers "Screenshot" or "Screen Shot".
func IsCandidate(name string) bool {
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		return false
	}
	for _, marker := range nameMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// WithinLimit reports whether size is acceptable for classification.
func WithinLimit(size, maxBytes int64) bool {
	if maxBytes <= 0 {
		maxBytes = MaxFileSize
	}
	return size <= maxBytes
}
