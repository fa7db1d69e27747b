package document

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

// Store persists documents. Get and Delete return domain.ErrDocumentNotFound when absent;
// List with an empty category returns every document, oldest first.
type Store interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, doc domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, category domdoc.Category) ([]domdoc.Document, error)
	Clear(ctx context.Context) error
}

// Indexer embeds and stores chunks.
type Indexer interface {
	Upsert(ctx context.Context, chunks []chunk.Chunk) (chunk.Report, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
}

// Chunker splits a document into chunks.
type Chunker interface {
	Chunk(doc domdoc.Document) []chunk.Chunk
}

// SummaryInvalidator drops cached analyses.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, documentID string) error
	InvalidateAll(ctx context.Context) error
}
