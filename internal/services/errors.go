package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRead       = errors.New("read failure")
	ErrTransport  = errors.New("transport failure")
	ErrTimeout    = errors.New("timeout")
	ErrContract   = errors.New("contract violation")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// Failure kinds reported on file-failed events.
const (
	KindRead      = "read"
	KindTransport = "transport"
	KindTimeout   = "timeout"
	KindContract  = "contract"
	KindCanceled  = "canceled"
	KindUnknown   = "unknown"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind maps a per-file pipeline error to the kind reported to clients.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrRead):
		return KindRead
	case errors.Is(err, ErrContract):
		return KindContract
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
