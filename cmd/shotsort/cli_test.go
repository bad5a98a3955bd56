package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"shotsort/internal/events"
	"shotsort/internal/preflight"
	"shotsort/internal/testsupport"
)

func runComplete(env *cliTestEnv) func() bool {
	return func() bool {
		evts, _, err := env.daemon.Events(context.Background(), 0, 0, false)
		if err != nil {
			return false
		}
		for _, evt := range evts {
			if evt.Type == events.TypeRunComplete {
				return true
			}
		}
		return false
	}
}

func TestStatusWithRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running (pid")
	requireContains(t, out, "no run started")
}

func TestStatusWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, cfg.Paths.SocketPath, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
}

func TestRunApproveUndoFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	original := testsupport.WriteScreenshot(t, dir, "Screenshot 1.png", 32)

	out, _, err := runCLI(t, []string{"start", "--no-launch", dir}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Scanned "+dir)

	waitFor(t, 5*time.Second, runComplete(env))

	out, _, err = runCLI(t, []string{"proposals"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("proposals: %v", err)
	}
	requireContains(t, out, "classified.png")

	out, _, err = runCLI(t, []string{"events"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	requireContains(t, out, "scan-summary")
	requireContains(t, out, "run-complete")

	out, _, err = runCLI(t, []string{"approve", "Screenshot 1.png"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	moved := filepath.Join(dir, "Other", "classified.png")
	requireContains(t, out, moved)
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("expected moved file: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "applied")

	out, _, err = runCLI(t, []string{"undo"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	requireContains(t, out, "Restored")
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("expected original restored: %v", err)
	}

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Stopped watching")
}

func TestRejectAndJSONProposals(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	testsupport.WriteScreenshot(t, dir, "Screenshot 2.png", 16)

	if _, _, err := runCLI(t, []string{"start", "--no-launch", dir}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 5*time.Second, runComplete(env))

	out, _, err := runCLI(t, []string{"--json", "proposals"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("proposals --json: %v", err)
	}
	var listed []map[string]any
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode proposals: %v (%s)", err, out)
	}
	if len(listed) != 1 || listed[0]["id"] != "Screenshot 2.png" {
		t.Fatalf("unexpected proposals: %v", listed)
	}

	out, _, err = runCLI(t, []string{"reject", "Screenshot 2.png"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	requireContains(t, out, "Rejected")

	out, _, err = runCLI(t, []string{"proposals"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("proposals: %v", err)
	}
	requireContains(t, out, "No pending proposals")
}

func TestListAndFolders(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	testsupport.WriteScreenshot(t, dir, "Screenshot small.png", 10)
	testsupport.WriteScreenshot(t, dir, "Screenshot big.png", 6*1024*1024)
	if err := os.MkdirAll(filepath.Join(dir, "Work"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"list", dir}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Screenshot small.png")
	requireContains(t, out, "too large")

	out, _, err = runCLI(t, []string{"folders", dir}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("folders: %v", err)
	}
	requireContains(t, out, "Work")
}

func TestScanPrintsEventsWithoutMoving(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	original := testsupport.WriteScreenshot(t, dir, "Screenshot 3.png", 20)

	cmd := &cobra.Command{}
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	if err := runScan(cmd, cfg, dir, "sk-scan", false, &testsupport.FakeClassifier{}); err != nil {
		t.Fatalf("runScan: %v", err)
	}
	text := out.String()
	requireContains(t, text, "scan-summary     1 candidate(s)")
	requireContains(t, text, "Screenshot 3.png -> Other/classified.png")
	requireContains(t, text, "1 proposed, 0 failed")
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("scan must not move files: %v", err)
	}
}

func TestCheckJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "check"}, "", env.configPath)
	if err != nil {
		t.Fatalf("check: %v (%s)", err, out)
	}
	var results []preflight.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(results))
	}
}

func TestConfigInitAndShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-secret-value")
	target := filepath.Join(home, "shotsort.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, "", target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-ant-secret-value") {
		t.Fatalf("config show leaked the API key: %s", out)
	}
	requireContains(t, out, "sk-a")
}

func TestCommandsRequireDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"proposals"}, cfg.Paths.SocketPath, configPath)
	if err == nil {
		t.Fatal("expected error without daemon")
	}
	requireContains(t, err.Error(), "shotsort daemon start")
}

func TestLogsCommandPrintsTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "shotsort.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, "", configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
