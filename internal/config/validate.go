package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// maxConcurrency is a sanity ceiling; the provider rate-limits well below it.
const maxConcurrency = 64

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnthropic(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAnthropic() error {
	parsed, err := url.Parse(c.Anthropic.BaseURL)
	if err != nil {
		return fmt.Errorf("anthropic.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("anthropic.base_url: unsupported scheme %q", parsed.Scheme)
	}
	if strings.TrimSpace(c.Anthropic.Model) == "" {
		return errors.New("anthropic.model must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Concurrency > maxConcurrency {
		return fmt.Errorf("pipeline.concurrency must be <= %d (got %d)", maxConcurrency, c.Pipeline.Concurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
