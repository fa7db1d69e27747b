package generation

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/summary"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/index"
)

// DocumentSource lists stored documents by category.
type DocumentSource interface {
	List(ctx context.Context, category domdoc.Category) ([]domdoc.Document, error)
}

// Analyzer returns a per-document summary and whether it was cached. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, doc domdoc.Document, isRequirements bool) (summary.Summary, bool)
}

// Retriever finds passages similar to a query.
type Retriever interface {
	Query(ctx context.Context, text string, opts index.Options) ([]chunk.Match, error)
}

// Completer runs one completion (already rate limited and retried).
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Planner decides the section outline of a run.
type Planner interface {
	Plan(ctx context.Context, req Request, analyses Analyses) ([]string, error)
}

// Sink receives the run's output. Implementations must not block:
// Progress is fire-and-forget and may be called many times.
type Sink interface {
	Progress(message string)
	Block(markdown string)
}
