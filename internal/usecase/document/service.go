package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/extract"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
)

// DefaultMaxUploadBytes is the upload ceiling (10 MiB).
const DefaultMaxUploadBytes = 10 << 20

// IngestResult describes one accepted upload.
type IngestResult struct {
	Document domdoc.Document
	Chunks   int
	Report   chunk.Report
}

// ReindexResult summarizes a full index rebuild.
type ReindexResult struct {
	Documents int
	Indexed   int
	Failed    int
}

// Service handles document ingestion, lookup and cascade deletion.
type Service struct {
	store     Store
	indexer   Indexer
	chunker   Chunker
	summaries SummaryInvalidator
	maxBytes  int64
	newID     func() string
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a document service.
func New(store Store, indexer Indexer, chunker Chunker, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		indexer:  indexer,
		chunker:  chunker,
		maxBytes: DefaultMaxUploadBytes,
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   logger,
	}
}

// WithSummaries cascades deletions to the summary cache.
func (s *Service) WithSummaries(inv SummaryInvalidator) *Service {
	s.summaries = inv
	return s
}

// WithMaxUploadBytes sets the upload ceiling.
func (s *Service) WithMaxUploadBytes(n int64) *Service {
	if n > 0 {
		s.maxBytes = n
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides document id generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.newID = gen
	return s
}

// MaxUploadBytes returns the configured ceiling.
func (s *Service) MaxUploadBytes() int64 { return s.maxBytes }

// Init prepares the underlying store.
func (s *Service) Init(ctx context.Context) error {
	if err := s.store.Init(ctx); err != nil {
		return fmt.Errorf("init document store: %w", err)
	}
	return nil
}

// Ingest validates, extracts, persists, chunks and indexes an upload.
// Unsupported or oversized uploads are rejected before anything is stored.
// Chunks that fail to index are reported, not returned as an error.
func (s *Service) Ingest(
	ctx context.Context, data []byte, name, declaredMIME string, category domdoc.Category,
) (IngestResult, error) {
	if !category.Valid() {
		return IngestResult{}, fmt.Errorf("category %q: %w", category, domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		s.reject(category)
		return IngestResult{}, fmt.Errorf("empty upload: %w", domain.ErrInvalidInput)
	}
	if int64(len(data)) > s.maxBytes {
		s.reject(category)
		return IngestResult{}, fmt.Errorf("upload of %d bytes exceeds %d: %w",
			len(data), s.maxBytes, domain.ErrPayloadTooLarge)
	}

	format, mime, err := extract.Classify(name, declaredMIME)
	if err != nil {
		s.reject(category)
		return IngestResult{}, fmt.Errorf("classify %q: %w", name, err)
	}
	body, err := extract.Body(format, mime, data)
	if err != nil {
		s.reject(category)
		return IngestResult{}, fmt.Errorf("extract %q: %w", name, err)
	}

	doc, err := domdoc.New(s.newID(), extract.Title(name), category, body,
		mime, name, s.now().UnixMilli(), int64(len(data)))
	if err != nil {
		s.reject(category)
		return IngestResult{}, fmt.Errorf("build document: %w", err)
	}

	if err := s.store.Put(ctx, doc); err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues(string(category), "error").Inc()
		return IngestResult{}, fmt.Errorf("store document: %w", err)
	}

	chunks := s.chunker.Chunk(doc)
	report, err := s.indexer.Upsert(ctx, chunks)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues(string(category), "error").Inc()
		return IngestResult{Document: doc, Chunks: len(chunks), Report: report},
			fmt.Errorf("index document %s: %w", doc.ID(), err)
	}
	if len(report.Failed) > 0 {
		s.logger.Warn("Some chunks were not indexed",
			zap.String("document_id", doc.ID()),
			zap.Int("failed", len(report.Failed)),
			zap.Int("total", len(chunks)),
		)
	}

	metrics.IngestDocumentsTotal.WithLabelValues(string(category), "ok").Inc()
	s.logger.Info("Document ingested",
		zap.String("document_id", doc.ID()),
		zap.String("file_name", name),
		zap.String("category", string(category)),
		zap.String("mime", mime),
		zap.Bool("binary", doc.IsBinary()),
		zap.Int("chunks", len(chunks)),
	)
	return IngestResult{Document: doc, Chunks: len(chunks), Report: report}, nil
}

// Get retrieves a document by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns documents of one category, or all when category is empty.
func (s *Service) List(ctx context.Context, category domdoc.Category) ([]domdoc.Document, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("category %q: %w", category, domain.ErrInvalidInput)
	}
	docs, err := s.store.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document together with its chunks and cached summary.
// It returns domain.ErrDocumentNotFound when the document does not exist.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if err := s.indexer.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if s.summaries != nil {
		if err := s.summaries.Invalidate(ctx, id); err != nil {
			return fmt.Errorf("delete summary: %w", err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.Info("Document deleted", zap.String("document_id", id))
	return nil
}

// Reindex drops every chunk and cached summary, then re-chunks and re-indexes
// every stored document.
func (s *Service) Reindex(ctx context.Context) (ReindexResult, error) {
	if err := s.indexer.Clear(ctx); err != nil {
		return ReindexResult{}, fmt.Errorf("clear index: %w", err)
	}
	if s.summaries != nil {
		if err := s.summaries.InvalidateAll(ctx); err != nil {
			return ReindexResult{}, fmt.Errorf("clear summaries: %w", err)
		}
	}

	docs, err := s.store.List(ctx, "")
	if err != nil {
		return ReindexResult{}, fmt.Errorf("list documents: %w", err)
	}

	var res ReindexResult
	for _, doc := range docs {
		report, err := s.indexer.Upsert(ctx, s.chunker.Chunk(doc))
		if err != nil {
			return res, fmt.Errorf("index document %s: %w", doc.ID(), err)
		}
		res.Documents++
		res.Indexed += report.Indexed
		res.Failed += len(report.Failed)
	}

	s.logger.Info("Index rebuilt",
		zap.Int("documents", res.Documents),
		zap.Int("indexed", res.Indexed),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// ClearIndex removes every chunk; documents stay in the store.
func (s *Service) ClearIndex(ctx context.Context) error {
	if err := s.indexer.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

func (s *Service) reject(category domdoc.Category) {
	metrics.IngestDocumentsTotal.WithLabelValues(string(category), "rejected").Inc()
}
