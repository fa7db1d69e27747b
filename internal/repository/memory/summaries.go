package memory

import (
	"context"
	"sync"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/summary"
)

// Summaries is an in-memory analysis cache. Writes are last-writer-wins.
type Summaries struct {
	mu    sync.RWMutex
	items map[string]summary.Summary
}

// NewSummaries creates an empty cache.
func NewSummaries() *Summaries {
	return &Summaries{items: make(map[string]summary.Summary)}
}

// Get returns the cached summary or domain.ErrNotFound.
func (s *Summaries) Get(_ context.Context, documentID string) (summary.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[documentID]
	if !ok {
		return summary.Summary{}, domain.ErrNotFound
	}
	return v, nil
}

// Put stores a summary.
func (s *Summaries) Put(_ context.Context, v summary.Summary) error {
	s.mu.Lock()
	s.items[v.DocumentID] = v
	s.mu.Unlock()
	return nil
}

// Delete invalidates one document's summary.
func (s *Summaries) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	delete(s.items, documentID)
	s.mu.Unlock()
	return nil
}

// Clear invalidates every summary.
func (s *Summaries) Clear(context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]summary.Summary)
	s.mu.Unlock()
	return nil
}
