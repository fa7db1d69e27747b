package retrieval

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/index"
)

// DocumentSource resolves document references by id.
type DocumentSource interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

// Index serves similarity queries.
type Index interface {
	Query(ctx context.Context, text string, opts index.Options) ([]chunk.Match, error)
}

// Completer runs one completion (already rate limited and retried).
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}
