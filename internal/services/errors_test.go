package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shotsort/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "anthropic", "classify", "send request", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"anthropic", "classify", "send request"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrRead, "pipeline", "read", "", errors.New("io")), services.KindRead},
		{services.Wrap(services.ErrContract, "anthropic", "parse", "", nil), services.KindContract},
		{services.Wrap(services.ErrTransport, "anthropic", "send", "", nil), services.KindTransport},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), services.KindTimeout},
		{fmt.Errorf("call: %w", context.Canceled), services.KindCanceled},
		{errors.New("mystery"), services.KindUnknown},
		{nil, services.KindUnknown},
	}
	for _, tt := range tests {
		if got := services.FailureKind(tt.err); got != tt.want {
			t.Errorf("FailureKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
