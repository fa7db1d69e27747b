package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tenderdraft/internal/db"
	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domchunk "github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
)

var (
	// IndexName is the FT index over chunk hashes.
	IndexName = domain.KeyPrefix + "chunks"
	keyPrefix = domain.KeyPrefix + "chunk:"
	dimKey    = IndexName + ":dim"
)

const (
	fieldDocumentID = "document_id"
	fieldIndex      = "index"
	fieldTotal      = "total"
	fieldText       = "text"
	fieldOverlap    = "overlap"
	fieldCategory   = "category"
	fieldTitle      = "title"
	fieldVector     = "vector"

	hnswM           = 16
	hnswEFConstruct = 200
)

var returnFields = []string{
	fieldDocumentID, fieldIndex, fieldTotal, fieldText, fieldOverlap, fieldCategory, fieldTitle,
}

// store is the consumer interface for the chunk index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/index.VectorStore on a Redis/Valkey FT index.
type Repo struct {
	store store
}

// New creates a chunk repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the HNSW cosine index unless it already exists.
// An existing index built for another dimension yields ErrVectorDimMismatch.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return r.checkDimension(ctx, dim)
	}

	def, err := db.NewIndex(IndexName).
		Prefix(keyPrefix).
		Tag(fieldDocumentID).
		Tag(fieldCategory).
		Numeric(fieldIndex).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, hnswM, hnswEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return r.checkDimension(ctx, dim)
		}
		return fmt.Errorf("create index: %w", err)
	}
	if err := r.store.Set(ctx, dimKey, []byte(strconv.Itoa(dim))); err != nil {
		return fmt.Errorf("record index dimension: %w", err)
	}
	return nil
}

// checkDimension compares the recorded index dimension with dim.
// An index without a record adopts dim.
func (r *Repo) checkDimension(ctx context.Context, dim int) error {
	raw, err := r.store.Get(ctx, dimKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		if err := r.store.Set(ctx, dimKey, []byte(strconv.Itoa(dim))); err != nil {
			return fmt.Errorf("record index dimension: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index dimension: %w", err)
	}
	got, err := strconv.Atoi(string(raw))
	if err != nil {
		return fmt.Errorf("parse index dimension %q: %w", raw, err)
	}
	if got != dim {
		return fmt.Errorf("index %s has dim %d, configured %d: %w", IndexName, got, dim, domain.ErrVectorDimMismatch)
	}
	return nil
}

// Upsert writes a batch of embedded chunks in one round-trip.
func (r *Repo) Upsert(ctx context.Context, chunks []domchunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		items[i] = db.HashSetItem{Key: chunkKey(chunks[i].ID()), Fields: buildHashFields(&chunks[i])}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset chunks: %w", err)
	}
	return nil
}

// Search runs a filtered KNN query.
func (r *Repo) Search(ctx context.Context, vector []float32, q domchunk.Query) ([]domchunk.Match, error) {
	var tags []db.TagFilter
	if q.Filter.Category != "" {
		tags = append(tags, db.TagFilter{Field: fieldCategory, Value: q.Filter.Category})
	}
	if q.Filter.DocumentID != "" {
		tags = append(tags, db.TagFilter{Field: fieldDocumentID, Value: q.Filter.DocumentID})
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		Tags:         tags,
		Vector:       vector,
		K:            q.TopK,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	matches := make([]domchunk.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		matches = append(matches, domchunk.Match{Chunk: parseHashFields(e.Fields), Score: e.Score})
	}
	return matches, nil
}

// DeleteDocument removes every chunk hash of a document.
func (r *Repo) DeleteDocument(ctx context.Context, documentID string) error {
	keys, err := r.store.Scan(ctx, keyPrefix+escapeGlob(documentID)+":*")
	if err != nil {
		return fmt.Errorf("scan chunks of %s: %w", documentID, err)
	}
	if _, err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// Clear drops the index with its documents and removes any stray chunk keys.
// The caller re-creates the index with EnsureIndex.
func (r *Repo) Clear(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, IndexName, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}
	if _, err := r.store.Del(ctx, append(keys, dimKey)...); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func chunkKey(id string) string {
	return keyPrefix + id
}

func buildHashFields(c *domchunk.Chunk) map[string]string {
	return map[string]string{
		fieldDocumentID: c.DocumentID,
		fieldIndex:      strconv.Itoa(c.Index),
		fieldTotal:      strconv.Itoa(c.Total),
		fieldText:       c.Text,
		fieldOverlap:    strconv.Itoa(c.Overlap),
		fieldCategory:   c.Category,
		fieldTitle:      c.Title,
		fieldVector:     db.EncodeVector(c.Vector),
	}
}

func parseHashFields(m map[string]string) domchunk.Chunk {
	index, _ := strconv.Atoi(m[fieldIndex])
	total, _ := strconv.Atoi(m[fieldTotal])
	overlap, _ := strconv.Atoi(m[fieldOverlap])
	c := domchunk.Chunk{
		DocumentID: m[fieldDocumentID],
		Index:      index,
		Total:      total,
		Text:       m[fieldText],
		Overlap:    overlap,
		Category:   m[fieldCategory],
		Title:      m[fieldTitle],
	}
	if v, ok := m[fieldVector]; ok {
		c.Vector = db.DecodeVector(v)
	}
	return c
}

var globEscaper = strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `\`, `\\`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
