package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shotsort/internal/logging"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithFile(logging.WithRunID(context.Background(), "0123456789abcdef"), "Screenshot 1.png")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")).
		Info("file proposed", logging.String("category", "Finance"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO [pipeline]", "Run 01234567 · Screenshot 1.png", "file proposed", "- category: Finance"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("slow provider", logging.Duration("elapsed", 2*time.Second))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lower-case level, got %v", payload["level"])
	}
	if payload["msg"] != "slow provider" {
		t.Fatalf("unexpected msg %v", payload["msg"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "entry unreadable", "scan_entry_unreadable")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if !strings.Contains(string(content), key) {
			t.Fatalf("expected %s in %s", key, content)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "<empty>"},
		{"short", "…"},
		{"sk-ant-api03-abcdef", "sk-a…"},
	}
	for _, tt := range tests {
		if got := logging.MaskSecret(tt.in); got != tt.want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoggersRedactCredentialAttributes(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logPath := filepath.Join(t.TempDir(), "redact-"+format+".log")
		logger, err := logging.New(logging.Options{Format: format, Level: "info", OutputPaths: []string{logPath}})
		if err != nil {
			t.Fatalf("New(%s) returned error: %v", format, err)
		}
		logger.Info("run started",
			logging.String("credential", "sk-ant-very-secret-key"),
			logging.Secret("api_key", "sk-ant-other-secret"),
		)
		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		text := string(content)
		if strings.Contains(text, "very-secret") || strings.Contains(text, "other-secret") {
			t.Fatalf("%s log leaked a credential: %q", format, text)
		}
		if !strings.Contains(text, "sk-a…") {
			t.Fatalf("%s log missing masked prefix: %q", format, text)
		}
	}
}
