package chi

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/session"
	documentuc "github.com/kailas-cloud/tenderdraft/internal/usecase/document"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tenderdraft/internal/usecase/health"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/retrieval"
)

// DocumentService manages uploads and the index built from them.
type DocumentService interface {
	Ingest(ctx context.Context, data []byte, name, mime string, category domdoc.Category) (documentuc.IngestResult, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context, category domdoc.Category) ([]domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	Reindex(ctx context.Context) (documentuc.ReindexResult, error)
	ClearIndex(ctx context.Context) error
	MaxUploadBytes() int64
}

// Generator runs one tender generation.
type Generator interface {
	Run(ctx context.Context, req generation.Request, sink generation.Sink) (*session.Session, error)
}

// RetrievalService serves the retrieval operations.
type RetrievalService interface {
	Search(ctx context.Context, query string, opts retrieval.Options) ([]chunk.Match, error)
	Summarize(ctx context.Context, refs []retrieval.DocumentRef, opts retrieval.Options) (string, error)
	ExtractRequirements(ctx context.Context, refs []retrieval.DocumentRef) ([]string, error)
	GenerateSection(ctx context.Context, refs []retrieval.DocumentRef, title, instruction string) (retrieval.Section, error)
}

// ChatStreamer streams chat completions.
type ChatStreamer interface {
	Stream(ctx context.Context, req domain.CompletionRequest, onToken func(string) error) (domain.Completion, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
