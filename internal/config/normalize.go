package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnthropic()
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.StateDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnthropic() {
	c.Anthropic.APIKey = strings.TrimSpace(c.Anthropic.APIKey)
	if c.Anthropic.APIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.Anthropic.APIKey = strings.TrimSpace(value)
		}
	}
	c.Anthropic.BaseURL = strings.TrimSpace(c.Anthropic.BaseURL)
	if c.Anthropic.BaseURL == "" {
		c.Anthropic.BaseURL = defaultAnthropicBaseURL
	}
	c.Anthropic.Model = strings.TrimSpace(c.Anthropic.Model)
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = defaultAnthropicModel
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = defaultAnthropicMaxTokens
	}
	if c.Anthropic.RefineMaxTokens <= 0 {
		c.Anthropic.RefineMaxTokens = defaultRefineMaxTokens
	}
	if c.Anthropic.TimeoutSeconds <= 0 {
		c.Anthropic.TimeoutSeconds = defaultAnthropicTimeout
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = defaultPipelineConcurrency
	}
	if c.Pipeline.DebounceMillis < 0 {
		c.Pipeline.DebounceMillis = 0
	}
	if c.Pipeline.CallTimeoutSeconds <= 0 {
		c.Pipeline.CallTimeoutSeconds = defaultPipelineCallTimeout
	}
	if c.Pipeline.MaxFileBytes <= 0 {
		c.Pipeline.MaxFileBytes = defaultPipelineMaxFileBytes
	}
	if c.Pipeline.RequestsPerMinute < 0 {
		c.Pipeline.RequestsPerMinute = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
