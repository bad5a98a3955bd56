package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shotsort/internal/config"
	"shotsort/internal/logging"
	"shotsort/internal/screenshot"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckScreenshotFolder verifies folder access and counts candidates in it.
func CheckScreenshotFolder(path string, maxBytes int64) Result {
	const name = "Screenshot folder"
	access := CheckDirectoryAccess(name, path)
	if !access.Passed {
		return access
	}
	scan, err := screenshot.Scan(path, maxBytes)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%d candidates, %d over size limit)", path, len(scan.Candidates), len(scan.Skipped)),
	}
}

// CheckCredential reports whether a provider credential is configured. The
// detail never contains more than the masked prefix.
func CheckCredential(apiKey string) Result {
	const name = "Anthropic API key"
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return Result{Name: name, Detail: "missing (set anthropic.api_key or ANTHROPIC_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("configured (%s)", logging.MaskSecret(apiKey))}
}

// CheckProvider verifies that the provider endpoint answers HTTP at all. No
// credential is sent and no classification is billed; any HTTP status counts
// as reachable.
func CheckProvider(ctx context.Context, baseURL string) Result {
	const name = "Anthropic API"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	defer resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (HTTP %d)", resp.StatusCode)}
}

// CheckNotifications reports the ntfy configuration without sending anything.
func CheckNotifications(cfg config.Notifications) Result {
	const name = "Notifications"
	if strings.TrimSpace(cfg.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if !strings.HasPrefix(cfg.NtfyTopic, "http://") && !strings.HasPrefix(cfg.NtfyTopic, "https://") {
		return Result{Name: name, Detail: fmt.Sprintf("ntfy_topic %q must be a full URL", cfg.NtfyTopic)}
	}
	return Result{Name: name, Passed: true, Detail: cfg.NtfyTopic}
}

func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "reachability check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "reachability check timed out (API unreachable)"
	}
	return err.Error()
}
