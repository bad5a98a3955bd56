package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shotsort/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "shotsort")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.SocketPath != filepath.Join(wantState, "shotsort.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.Anthropic.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Pipeline.MaxFileBytes != 5*1024*1024 {
		t.Fatalf("unexpected max file bytes: %d", cfg.Pipeline.MaxFileBytes)
	}
	if cfg.Debounce() != 2*time.Second {
		t.Fatalf("unexpected debounce: %s", cfg.Debounce())
	}
	if cfg.CallTimeout() != 30*time.Second {
		t.Fatalf("unexpected call timeout: %s", cfg.CallTimeout())
	}
	if cfg.Pipeline.Concurrency != config.Default().Pipeline.Concurrency {
		t.Fatalf("unexpected concurrency: %d", cfg.Pipeline.Concurrency)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "shotsort.toml")

	type payload struct {
		Anthropic struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"anthropic"`
		Pipeline struct {
			Concurrency    int `toml:"concurrency"`
			DebounceMillis int `toml:"debounce_ms"`
		} `toml:"pipeline"`
		Paths struct {
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Anthropic.APIKey = "file-key"
	custom.Anthropic.Model = "claude-test"
	custom.Pipeline.Concurrency = 8
	custom.Pipeline.DebounceMillis = 250
	custom.Paths.StateDir = filepath.Join(tempDir, "state")

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to exist, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Anthropic.APIKey != "file-key" || cfg.Anthropic.Model != "claude-test" {
		t.Fatalf("unexpected anthropic section: %+v", cfg.Anthropic)
	}
	if cfg.Pipeline.Concurrency != 8 {
		t.Fatalf("unexpected concurrency: %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Debounce() != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.Debounce())
	}
	if cfg.HistoryDBPath() != filepath.Join(tempDir, "state", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryDBPath())
	}
}

func TestLoadRejectsExcessiveConcurrency(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "shotsort.toml")
	if err := os.WriteFile(configPath, []byte("[pipeline]\nconcurrency = 500\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "pipeline.concurrency") {
		t.Fatalf("expected concurrency validation error, got %v", err)
	}
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "shotsort.toml")
	if err := os.WriteFile(configPath, []byte("[anthropic]\nbase_url = \"ftp://example.com\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected base_url validation error")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
