package analyzer

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/summary"
)

// Cache stores at most one summary per document id.
// Get returns domain.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, documentID string) (summary.Summary, error)
	Put(ctx context.Context, s summary.Summary) error
	Delete(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
}

// Completer runs one completion (already rate limited and retried).
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}
