package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/summary"
)

func TestDocuments_Lifecycle(t *testing.T) {
	s := NewDocuments()
	ctx := context.Background()
	doc, err := domdoc.New("d1", "rfp", domdoc.CategoryRequirements, domain.TextPart{Text: "x"}, "text/plain", "rfp.txt", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	caps, _ := s.List(ctx, domdoc.CategoryCapabilities)
	if len(caps) != 0 {
		t.Errorf("expected no capabilities, got %d", len(caps))
	}
	if err := s.Delete(ctx, "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, "d1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestVectors_SearchRanksAndFilters(t *testing.T) {
	s := NewVectors()
	ctx := context.Background()
	if err := s.EnsureIndex(ctx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Upsert(ctx, []chunk.Chunk{
		{DocumentID: "a", Index: 0, Vector: []float32{1, 0}, Category: "capabilities"},
		{DocumentID: "b", Index: 0, Vector: []float32{0.7, 0.7}, Category: "capabilities"},
		{DocumentID: "c", Index: 0, Vector: []float32{1, 0}, Category: "requirements"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := s.Search(ctx, []float32{1, 0}, chunk.Query{TopK: 5, Filter: chunk.Filter{Category: "capabilities"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Chunk.DocumentID != "a" || math.Abs(matches[0].Score-1) > 1e-9 {
		t.Errorf("unexpected top match %+v", matches[0])
	}
	if matches[1].Score >= matches[0].Score {
		t.Error("matches not ranked by score")
	}
}

func TestVectors_DimensionMismatch(t *testing.T) {
	s := NewVectors()
	ctx := context.Background()
	_ = s.EnsureIndex(ctx, 3)
	err := s.Upsert(ctx, []chunk.Chunk{{DocumentID: "a", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
	if s.Count() != 0 {
		t.Error("no chunk should be stored after a rejected batch")
	}
	if err := s.EnsureIndex(ctx, 4); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestVectors_DeleteDocument(t *testing.T) {
	s := NewVectors()
	ctx := context.Background()
	_ = s.Upsert(ctx, []chunk.Chunk{
		{DocumentID: "a", Index: 0, Vector: []float32{1}},
		{DocumentID: "a", Index: 1, Vector: []float32{1}},
		{DocumentID: "b", Index: 0, Vector: []float32{1}},
	})
	_ = s.DeleteDocument(ctx, "a")
	if s.Count() != 1 {
		t.Errorf("expected 1 chunk left, got %d", s.Count())
	}
}

func TestCosine(t *testing.T) {
	if c := Cosine([]float32{1, 0}, []float32{-1, 0}); c != 0 {
		t.Errorf("opposite vectors should clamp to 0, got %f", c)
	}
	if c := Cosine([]float32{0, 0}, []float32{1, 0}); c != 0 {
		t.Errorf("zero vector should score 0, got %f", c)
	}
	if c := Cosine([]float32{1}, []float32{1, 0}); c != 0 {
		t.Errorf("length mismatch should score 0, got %f", c)
	}
}

func TestSummaries(t *testing.T) {
	s := NewSummaries()
	ctx := context.Background()
	if _, err := s.Get(ctx, "d1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = s.Put(ctx, summary.Summary{DocumentID: "d1", Text: "- 99.9% uptime", CreatedAt: time.Now()})
	got, err := s.Get(ctx, "d1")
	if err != nil || got.Text != "- 99.9% uptime" {
		t.Fatalf("unexpected %+v %v", got, err)
	}
	_ = s.Delete(ctx, "d1")
	if _, err := s.Get(ctx, "d1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
