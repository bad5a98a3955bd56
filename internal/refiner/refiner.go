// Package refiner asks the classifier for a more specific subcategory of a
// single, already categorized screenshot.
package refiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shotsort/internal/logging"
	"shotsort/internal/screenshot"
	"shotsort/internal/services"
)

var (
	// ErrTooLarge reports a file above the classification size limit.
	ErrTooLarge = errors.New("file exceeds 5MB limit")
	// ErrParse reports a reply that did not yield a subcategory.
	ErrParse = errors.New("failed to parse subcategory")
)

const defaultCallTimeout = 30 * time.Second

// Subcategorizer is the classifier call used for refinement.
type Subcategorizer interface {
	Subcategory(ctx context.Context, image []byte, parentCategory, credential string) (string, error)
}

// Result pairs a file identifier with its refined subcategory. Callers match
// it to a proposal by ID.
type Result struct {
	ID          string `json:"id"`
	Subcategory string `json:"subcategory"`
}

// Refiner is stateless apart from its configuration.
type Refiner struct {
	client      Subcategorizer
	callTimeout time.Duration
	maxBytes    int64
	logger      *slog.Logger
}

// New constructs a Refiner. Non-positive limits select defaults.
func New(client Subcategorizer, callTimeout time.Duration, maxBytes int64, logger *slog.Logger) *Refiner {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if maxBytes <= 0 {
		maxBytes = screenshot.MaxFileSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Refiner{
		client:      client,
		callTimeout: callTimeout,
		maxBytes:    maxBytes,
		logger:      logging.NewComponentLogger(logger, "refiner"),
	}
}

// Refine re-reads path from disk and requests a subcategory of parentCategory.
// It never returns an empty subcategory.
func (r *Refiner) Refine(ctx context.Context, path, parentCategory, credential string) (Result, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.Size() > r.maxBytes {
		return Result{}, ErrTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrRead, "refiner", "read", name, err)
	}
	if int64(len(data)) > r.maxBytes {
		return Result{}, ErrTooLarge
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	sub, err := r.client.Subcategory(callCtx, data, parentCategory, credential)
	if err != nil {
		if errors.Is(err, services.ErrContract) {
			r.logger.Warn("subcategory reply rejected",
				logging.String(logging.FieldFile, name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "refine_parse_failed"),
			)
			return Result{}, ErrParse
		}
		return Result{}, fmt.Errorf("refine %s: %w", name, err)
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return Result{}, ErrParse
	}
	r.logger.Info("subcategory refined",
		logging.String(logging.FieldFile, name),
		logging.String("parent", parentCategory),
		logging.String("subcategory", sub),
	)
	return Result{ID: name, Subcategory: sub}, nil
}
