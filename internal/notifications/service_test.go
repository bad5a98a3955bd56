package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"shotsort/internal/config"
	"shotsort/internal/events"
	"shotsort/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		mu.Lock()
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service")
	}
	if err := svc.NotifyRunCompleted(context.Background(), 3, 0, time.Second); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			send: func(s notifications.Service) error {
				return s.NotifyRunStarted(context.Background(), 12)
			},
			expectTitle:   "shotsort - Run Started",
			expectMessage: "🔍 Classifying 12 screenshots",
			expectTags:    "shotsort,run,started",
		},
		{
			name: "run completed",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), 5, 0, 61*time.Second)
			},
			expectTitle:   "shotsort - Run Complete",
			expectMessage: "✅ 5 proposals ready in 1m1s",
			expectTags:    "shotsort,run,completed",
		},
		{
			name: "run completed with failures",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), 4, 2, 0)
			},
			expectTitle:   "shotsort - Run Complete (with errors)",
			expectMessage: "⚠️ 4 proposals ready, 2 failed in 0s",
			expectTags:    "shotsort,run,completed",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("status 529"), "Screenshot 1.png")
			},
			expectTitle:    "shotsort - Error",
			expectMessage:  "❌ Error with Screenshot 1.png: status 529",
			expectTags:     "shotsort,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, captured := captureServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			got := captured()
			if len(got) != 1 {
				t.Fatalf("expected 1 request, got %d", len(got))
			}
			if got[0].title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got[0].title)
			}
			if got[0].body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got[0].body)
			}
			if got[0].tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got[0].tags)
			}
			if got[0].priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got[0].priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestForwarderFollowsToggles(t *testing.T) {
	server, captured := captureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStarted = false
	cfg.Notifications.RunCompleted = true
	cfg.Notifications.Errors = true

	fwd := notifications.NewForwarder(notifications.NewService(&cfg), cfg.Notifications, nil)
	fwd.Emit(events.NewScanSummary("run-1", 3, 0))
	fwd.Emit(events.NewFileProcessing("run-1", "a.png"))
	fwd.Emit(events.NewFileFailed("run-1", "a.png", "transport", errors.New("boom")))
	fwd.Emit(events.NewFileFailed("run-1", "b.png", "transport", errors.New("boom again")))
	fwd.Emit(events.NewRunComplete("run-1", 1, 2))
	fwd.Wait()

	got := captured()
	if len(got) != 2 {
		t.Fatalf("expected one error and one completion notification, got %d: %+v", len(got), got)
	}
	titles := map[string]bool{}
	for _, req := range got {
		titles[req.title] = true
	}
	if !titles["shotsort - Error"] || !titles["shotsort - Run Complete (with errors)"] {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}

func TestForwarderAlertsOncePerRunAfterCompletion(t *testing.T) {
	server, captured := captureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStarted = false
	cfg.Notifications.RunCompleted = false
	cfg.Notifications.Errors = true

	fwd := notifications.NewForwarder(notifications.NewService(&cfg), cfg.Notifications, nil)
	fwd.Emit(events.NewScanSummary("run-1", 1, 0))
	fwd.Emit(events.NewFileFailed("run-1", "a.png", "transport", errors.New("boom")))
	fwd.Emit(events.NewRunComplete("run-1", 0, 1))
	// A watched file of the same run failing after completion.
	fwd.Emit(events.NewFileFailed("run-1", "b.png", "transport", errors.New("boom again")))
	fwd.Emit(events.NewFileFailed("run-2", "c.png", "read", errors.New("gone")))
	fwd.Wait()

	got := captured()
	if len(got) != 2 {
		t.Fatalf("expected one error alert per run, got %d: %+v", len(got), got)
	}
	for _, req := range got {
		if req.title != "shotsort - Error" {
			t.Fatalf("unexpected notification: %+v", req)
		}
	}
}
