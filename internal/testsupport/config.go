package testsupport

import (
	"path/filepath"
	"testing"

	"shotsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Debounce is zeroed so runs start classifying immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Anthropic.APIKey = "sk-test-key"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "state", "shotsort.sock")
	cfgVal.Pipeline.DebounceMillis = 0
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithAPIKey sets the configured credential.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Anthropic.APIKey = key
	}
}

// WithWatch toggles the live watcher.
func WithWatch(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Enabled = enabled
	}
}

// WithConcurrency overrides the dispatcher slot count.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Concurrency = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
