// Package memory holds process-local implementations of the storage ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

// Documents is an in-memory document store.
type Documents struct {
	mu   sync.RWMutex
	docs map[string]domdoc.Document
}

// NewDocuments creates an empty document store.
func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]domdoc.Document)}
}

// Init is a no-op.
func (s *Documents) Init(context.Context) error { return nil }

// Put stores or replaces a document.
func (s *Documents) Put(_ context.Context, doc domdoc.Document) error {
	s.mu.Lock()
	s.docs[doc.ID()] = doc
	s.mu.Unlock()
	return nil
}

// Get returns a document by ID.
func (s *Documents) Get(_ context.Context, id string) (domdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes a document.
func (s *Documents) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

// List returns documents of a category (all when empty), oldest first.
func (s *Documents) List(_ context.Context, category domdoc.Category) ([]domdoc.Document, error) {
	s.mu.RLock()
	out := make([]domdoc.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if category == "" || d.Category() == category {
			out = append(out, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt() != out[j].UploadedAt() {
			return out[i].UploadedAt() < out[j].UploadedAt()
		}
		return out[i].ID() < out[j].ID()
	})
	return out, nil
}

// Clear removes every document.
func (s *Documents) Clear(context.Context) error {
	s.mu.Lock()
	s.docs = make(map[string]domdoc.Document)
	s.mu.Unlock()
	return nil
}
