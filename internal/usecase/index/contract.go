package index

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
)

// VectorStore persists embedded chunks and answers nearest-neighbour queries.
type VectorStore interface {
	EnsureIndex(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunks []chunk.Chunk) error
	Search(ctx context.Context, vector []float32, q chunk.Query) ([]chunk.Match, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
