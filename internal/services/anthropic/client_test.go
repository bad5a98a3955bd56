package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func replyWithText(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	payload := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": text},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClassifyParsesFencedReply(t *testing.T) {
	var captured messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-test" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("unexpected version header %q", got)
		}
		if got := r.Header.Get("content-type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		replyWithText(t, w, "```json\n{\"new_filename\":\"stripe_invoice.png\",\"category\":\"Finance\",\"reasoning\":\"payment receipt\"}\n```")
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Classify(context.Background(), pngHeader, "sk-test")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	want := Classification{NewFilename: "stripe_invoice.png", Category: "Finance", Reasoning: "payment receipt"}
	if got != want {
		t.Fatalf("unexpected classification: %+v", got)
	}

	if captured.Model != "demo-model" || captured.MaxTokens != 1024 {
		t.Fatalf("unexpected request envelope: model=%q max_tokens=%d", captured.Model, captured.MaxTokens)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	parts := captured.Messages[0].Content
	if len(parts) != 2 || parts[0].Type != "image" || parts[1].Type != "text" {
		t.Fatalf("unexpected content parts: %+v", parts)
	}
	if parts[0].Source == nil || parts[0].Source.Type != "base64" || parts[0].Source.MediaType != "image/png" {
		t.Fatalf("unexpected image source: %+v", parts[0].Source)
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[0].Source.Data)
	if err != nil || string(decoded) != string(pngHeader) {
		t.Fatalf("image payload did not round trip: %v", err)
	}
	if !strings.Contains(parts[1].Text, "new_filename") {
		t.Fatalf("expected classification prompt, got %q", parts[1].Text)
	}
}

func TestClassifyReasoningOptional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replyWithText(t, w, `{"new_filename":"terminal_error.png","category":"Code"}`)
	}))
	defer server.Close()

	got, err := NewClient(Config{BaseURL: server.URL}).Classify(context.Background(), pngHeader, "k")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Reasoning != "" || got.Category != "Code" {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestClassifyContractViolations(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "```json\nthis is not json\n```"},
		{"missing category", `{"new_filename":"a.png","reasoning":"x"}`},
		{"missing filename", `{"category":"Finance"}`},
		{"wrong shape", `["Finance"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				replyWithText(t, w, tt.text)
			}))
			defer server.Close()

			_, err := NewClient(Config{BaseURL: server.URL}).Classify(context.Background(), pngHeader, "k")
			if !errors.Is(err, ErrContract) {
				t.Fatalf("expected contract violation, got %v", err)
			}
		})
	}
}

func TestClassifyMissingTextBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Classify(context.Background(), pngHeader, "k")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestClassifyUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Classify(context.Background(), pngHeader, "k")
	if !errors.Is(err, ErrContract) {
		t.Fatalf("expected contract violation, got %v", err)
	}
}

func TestClassifyStatusErrorNoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Classify(context.Background(), pngHeader, "k")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestClassifyHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(Config{BaseURL: server.URL}).Classify(ctx, pngHeader, "k")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestClassifyRequiresCredential(t *testing.T) {
	if _, err := NewClient(Config{}).Classify(context.Background(), pngHeader, " "); err == nil {
		t.Fatal("expected error for empty credential")
	}
}

func TestSubcategory(t *testing.T) {
	var captured messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		replyWithText(t, w, "```\n{\"subcategory\": \"Bank_Statements\"}\n```")
	}))
	defer server.Close()

	got, err := NewClient(Config{BaseURL: server.URL}).Subcategory(context.Background(), pngHeader, "Finance", "k")
	if err != nil {
		t.Fatalf("Subcategory returned error: %v", err)
	}
	if got != "Bank_Statements" {
		t.Fatalf("unexpected subcategory %q", got)
	}
	if captured.MaxTokens != 256 {
		t.Fatalf("expected refine token budget, got %d", captured.MaxTokens)
	}
	if !strings.Contains(captured.Messages[0].Content[1].Text, "'Finance'") {
		t.Fatalf("expected parent category in prompt: %q", captured.Messages[0].Content[1].Text)
	}
}

func TestSubcategoryRejectsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replyWithText(t, w, `{"subcategory":"  "}`)
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Subcategory(context.Background(), pngHeader, "Finance", "k")
	if !errors.Is(err, ErrContract) {
		t.Fatalf("expected contract violation, got %v", err)
	}
}

func TestMediaTypeFallsBackToPNG(t *testing.T) {
	if got := MediaType([]byte("not an image")); got != "image/png" {
		t.Fatalf("unexpected fallback media type %q", got)
	}
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
	if got := MediaType(jpeg); got != "image/jpeg" {
		t.Fatalf("expected jpeg sniff, got %q", got)
	}
}

func TestStripCodeFenceBlock(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```JSON {\"a\":1}```":    `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for input, want := range tests {
		if got := stripCodeFenceBlock(input); got != want {
			t.Errorf("stripCodeFenceBlock(%q) = %q, want %q", input, got, want)
		}
	}
}
