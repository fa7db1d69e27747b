package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
)

// Vectors is a brute-force cosine vector store.
type Vectors struct {
	mu     sync.RWMutex
	dim    int
	chunks map[string]chunk.Chunk
}

// NewVectors creates an empty vector store.
func NewVectors() *Vectors {
	return &Vectors{chunks: make(map[string]chunk.Chunk)}
}

// EnsureIndex fixes the dimension; calling it again with the same dimension is a no-op.
func (s *Vectors) EnsureIndex(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim != 0 && s.dim != dim {
		return fmt.Errorf("index has dim %d, requested %d: %w", s.dim, dim, domain.ErrVectorDimMismatch)
	}
	s.dim = dim
	return nil
}

// Upsert stores chunks by ID.
func (s *Vectors) Upsert(_ context.Context, chunks []chunk.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if s.dim != 0 && len(c.Vector) != s.dim {
			return fmt.Errorf("chunk %s: %w", c.ID(), domain.ErrVectorDimMismatch)
		}
	}
	for _, c := range chunks {
		s.chunks[c.ID()] = c
	}
	return nil
}

// Search ranks stored chunks by cosine similarity.
func (s *Vectors) Search(_ context.Context, vector []float32, q chunk.Query) ([]chunk.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]chunk.Match, 0, len(s.chunks))
	for _, c := range s.chunks {
		if q.Filter.Category != "" && c.Category != q.Filter.Category {
			continue
		}
		if q.Filter.DocumentID != "" && c.DocumentID != q.Filter.DocumentID {
			continue
		}
		matches = append(matches, chunk.Match{Chunk: c, Score: Cosine(vector, c.Vector)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID() < matches[j].Chunk.ID()
	})
	if q.TopK > 0 && len(matches) > q.TopK {
		matches = matches[:q.TopK]
	}
	return matches, nil
}

// DeleteDocument removes every chunk of a document.
func (s *Vectors) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Clear removes every chunk.
func (s *Vectors) Clear(context.Context) error {
	s.mu.Lock()
	s.chunks = make(map[string]chunk.Chunk)
	s.mu.Unlock()
	return nil
}

// Count returns the number of stored chunks.
func (s *Vectors) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Cosine returns the cosine similarity of a and b clamped to [0,1].
// Mismatched lengths or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return min(1, max(0, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}
