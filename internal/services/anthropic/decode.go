package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shotsort/internal/services"
)

var (
	// ErrNoText reports a reply without a usable content[0].text block.
	ErrNoText = services.Wrap(services.ErrContract, "anthropic", "", "reply has no text block", nil)
	// ErrContract marks replies whose text does not match the expected shape.
	ErrContract = services.ErrContract
)

// Classification is the validated answer to the primary prompt.
type Classification struct {
	NewFilename string `json:"new_filename"`
	Category    string `json:"category"`
	Reasoning   string `json:"reasoning"`
}

type subcategoryReply struct {
	Subcategory string `json:"subcategory"`
}

// ParseClassification decodes a reply text into a Classification.
// new_filename and category are required; reasoning defaults to empty.
func ParseClassification(text string) (Classification, error) {
	var parsed Classification
	if err := decodeReplyJSON(text, &parsed); err != nil {
		return Classification{}, err
	}
	parsed.NewFilename = strings.TrimSpace(parsed.NewFilename)
	parsed.Category = strings.TrimSpace(parsed.Category)
	parsed.Reasoning = strings.TrimSpace(parsed.Reasoning)
	switch {
	case parsed.NewFilename == "":
		return Classification{}, contractError("missing new_filename", text)
	case parsed.Category == "":
		return Classification{}, contractError("missing category", text)
	}
	return parsed, nil
}

// ParseSubcategory decodes a reply text into a non-empty subcategory.
func ParseSubcategory(text string) (string, error) {
	var parsed subcategoryReply
	if err := decodeReplyJSON(text, &parsed); err != nil {
		return "", err
	}
	sub := strings.TrimSpace(parsed.Subcategory)
	if sub == "" {
		return "", contractError("missing subcategory", text)
	}
	return sub, nil
}

func decodeReplyJSON(text string, target any) error {
	body := stripCodeFenceBlock(text)
	if body == "" {
		return contractError("empty payload", text)
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return fmt.Errorf("%w: decode reply: %w (payload snippet: %s)", ErrContract, err, summarizePayloadSnippet(body))
	}
	return nil
}

func contractError(reason, text string) error {
	return fmt.Errorf("%w: %s (payload snippet: %s)", ErrContract, reason, summarizePayloadSnippet(text))
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 120
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

// IsContractViolation reports whether err came from reply validation.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContract)
}
