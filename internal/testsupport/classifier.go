package testsupport

import (
	"context"
	"strings"
	"sync"

	"shotsort/internal/services/anthropic"
)

// FakeClassifier answers classification and refinement calls without a
// provider. The zero value proposes "Other" for every image.
type FakeClassifier struct {
	// ClassifyFunc overrides Classify when set.
	ClassifyFunc func(ctx context.Context, image []byte, credential string) (anthropic.Classification, error)
	// SubcategoryFunc overrides Subcategory when set.
	SubcategoryFunc func(ctx context.Context, image []byte, parent, credential string) (string, error)

	mu          sync.Mutex
	credentials []string
}

// Classify records the credential and returns a canned proposal.
func (f *FakeClassifier) Classify(ctx context.Context, image []byte, credential string) (anthropic.Classification, error) {
	f.record(credential)
	if f.ClassifyFunc != nil {
		return f.ClassifyFunc(ctx, image, credential)
	}
	return anthropic.Classification{
		NewFilename: "classified.png",
		Category:    "Other",
		Reasoning:   "test double",
	}, nil
}

// Subcategory records the credential and returns a canned subcategory.
func (f *FakeClassifier) Subcategory(ctx context.Context, image []byte, parent, credential string) (string, error) {
	f.record(credential)
	if f.SubcategoryFunc != nil {
		return f.SubcategoryFunc(ctx, image, parent, credential)
	}
	return strings.ToLower(parent) + "_detail", nil
}

// Credentials returns every credential seen, in call order.
func (f *FakeClassifier) Credentials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.credentials...)
}

func (f *FakeClassifier) record(credential string) {
	f.mu.Lock()
	f.credentials = append(f.credentials, credential)
	f.mu.Unlock()
}
