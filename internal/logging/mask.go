package logging

import (
	"log/slog"
	"strings"
)

const maskedPrefixLen = 4

// sensitiveKeys are attribute names whose string values are always masked,
// whichever handler renders them.
var sensitiveKeys = map[string]struct{}{
	"credential":    {},
	"api_key":       {},
	"x-api-key":     {},
	"authorization": {},
	"token":         {},
}

// MaskSecret returns a loggable stand-in for a credential: at most the first
// four characters followed by an ellipsis. Empty input yields "<empty>".
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "<empty>"
	}
	runes := []rune(secret)
	if len(runes) <= maskedPrefixLen*2 {
		return "…"
	}
	return string(runes[:maskedPrefixLen]) + "…"
}

// Secret builds a masked credential attribute.
func Secret(key, value string) Attr {
	return String(key, MaskSecret(value))
}

// redactValue masks v when key names a credential and v is not masked yet.
func redactValue(key string, v slog.Value) slog.Value {
	if v.Kind() != slog.KindString {
		return v
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	if _, ok := sensitiveKeys[strings.ToLower(key)]; !ok {
		return v
	}
	s := v.String()
	if s == "<empty>" || strings.HasSuffix(s, "…") {
		return v
	}
	return slog.StringValue(MaskSecret(s))
}
