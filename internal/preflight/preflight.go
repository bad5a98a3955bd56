package preflight

import (
	"context"
	"strings"

	"shotsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options selects the optional checks.
type Options struct {
	// Folder, when set, is checked for access and scanned for candidates.
	Folder string
	// Probe sends an unauthenticated request to the provider endpoint.
	Probe bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCredential(cfg.Anthropic.APIKey),
		CheckNotifications(cfg.Notifications),
	}
	if folder := strings.TrimSpace(opts.Folder); folder != "" {
		results = append(results, CheckScreenshotFolder(folder, cfg.Pipeline.MaxFileBytes))
	}
	if opts.Probe {
		results = append(results, CheckProvider(ctx, cfg.Anthropic.BaseURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
