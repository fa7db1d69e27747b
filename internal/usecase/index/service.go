package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
)

// Defaults for batching and retrieval.
const (
	DefaultBatchSize = 5
	DefaultTopK      = 5
)

// Options narrow a retrieval query. Zero values do not filter.
type Options struct {
	TopK       int
	Category   string
	DocumentID string
}

// Service embeds chunks and serves similarity queries over them.
type Service struct {
	store         VectorStore
	docEmbedder   Embedder
	queryEmbedder Embedder
	dim           int
	batchSize     int
	logger        *zap.Logger
}

// New creates an index service. Every stored vector must have exactly dim components.
func New(store VectorStore, docEmbedder, queryEmbedder Embedder, dim int, logger *zap.Logger) *Service {
	return &Service{
		store:         store,
		docEmbedder:   docEmbedder,
		queryEmbedder: queryEmbedder,
		dim:           dim,
		batchSize:     DefaultBatchSize,
		logger:        logger,
	}
}

// WithBatchSize sets how many embedded chunks are written per store call.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Dimensions returns the configured vector dimension.
func (s *Service) Dimensions() int { return s.dim }

// EnsureIndex creates the vector index if it does not exist. Idempotent.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if err := s.store.EnsureIndex(ctx, s.dim); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Upsert embeds and stores chunks. A chunk that cannot be embedded, or whose vector
// has the wrong dimension, is recorded in the report and skipped; the rest are written.
// Only context cancellation aborts the call.
func (s *Service) Upsert(ctx context.Context, chunks []chunk.Chunk) (chunk.Report, error) {
	var report chunk.Report
	batch := make([]chunk.Chunk, 0, s.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.store.Upsert(ctx, batch); err != nil {
			s.logger.Error("Failed to write chunk batch",
				zap.Int("batch_size", len(batch)), zap.Error(err))
			for _, c := range batch {
				report.Failed = append(report.Failed, chunk.Failure{ChunkID: c.ID(), Err: err})
			}
		} else {
			report.Indexed += len(batch)
		}
		batch = batch[:0]
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		vec, err := s.embed(ctx, s.docEmbedder, c.Text)
		if err != nil {
			cerr := &domain.ChunkError{DocumentID: c.DocumentID, Index: c.Index, Err: err}
			s.logger.Warn("Skipping chunk", zap.String("chunk_id", c.ID()), zap.Error(cerr))
			report.Failed = append(report.Failed, chunk.Failure{ChunkID: c.ID(), Err: cerr})
			continue
		}

		c.Vector = vec
		batch = append(batch, c)
		if len(batch) == s.batchSize {
			flush()
		}
	}
	flush()

	metrics.IngestChunksTotal.WithLabelValues("indexed").Add(float64(report.Indexed))
	metrics.IngestChunksTotal.WithLabelValues("failed").Add(float64(len(report.Failed)))
	return report, nil
}

// Query embeds text and returns the closest chunks, best first.
func (s *Service) Query(ctx context.Context, text string, opts Options) ([]chunk.Match, error) {
	if text == "" {
		return nil, fmt.Errorf("query text is required: %w", domain.ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	vec, err := s.embed(ctx, s.queryEmbedder, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	matches, err := s.store.Search(ctx, vec, chunk.Query{
		TopK:   opts.TopK,
		Filter: chunk.Filter{Category: opts.Category, DocumentID: opts.DocumentID},
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return matches, nil
}

// DeleteDocument removes every chunk of a document.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// Clear drops every chunk and recreates the empty index.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return s.EnsureIndex(ctx)
}

func (s *Service) embed(ctx context.Context, e Embedder, text string) ([]float32, error) {
	res, err := e.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}
	if len(res.Embedding) != s.dim {
		return nil, fmt.Errorf("got %d, want %d: %w", len(res.Embedding), s.dim, domain.ErrVectorDimMismatch)
	}
	return res.Embedding, nil
}
