package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxNameBytes is the common filesystem limit for a single path element.
const maxNameBytes = 255

// unsafeReplacer maps path separators and shell-hostile characters.
var unsafeReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName turns a model-proposed name or category segment into a
// single safe path element. The result is NFC-normalized, exotic spaces
// (such as the narrow no-break space in macOS screenshot names) become plain
// spaces, control characters and leading dots are dropped, and the result is
// capped at 255 bytes. An empty result means nothing usable remained.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = unsafeReplacer.Replace(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(strings.TrimSpace(b.String()), ".")
	return truncateBytes(strings.TrimSpace(out), maxNameBytes)
}

// IsTraversal reports whether segment would escape or alias its parent.
func IsTraversal(segment string) bool {
	return segment == "." || segment == ".."
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
