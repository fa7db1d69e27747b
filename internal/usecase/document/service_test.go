package document

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/chunker"
	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/repository/memory"
)

// --- Mocks ---

type mockIndexer struct {
	chunks    map[string][]chunk.Chunk
	upsertErr error
	deleteErr error
	clears    int
}

func newMockIndexer() *mockIndexer {
	return &mockIndexer{chunks: make(map[string][]chunk.Chunk)}
}

func (m *mockIndexer) Upsert(_ context.Context, chunks []chunk.Chunk) (chunk.Report, error) {
	if m.upsertErr != nil {
		return chunk.Report{}, m.upsertErr
	}
	for _, c := range chunks {
		m.chunks[c.DocumentID] = append(m.chunks[c.DocumentID], c)
	}
	return chunk.Report{Indexed: len(chunks)}, nil
}

func (m *mockIndexer) DeleteDocument(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.chunks, id)
	return nil
}

func (m *mockIndexer) Clear(context.Context) error {
	m.clears++
	m.chunks = make(map[string][]chunk.Chunk)
	return nil
}

func (m *mockIndexer) total() int {
	n := 0
	for _, cs := range m.chunks {
		n += len(cs)
	}
	return n
}

type mockInvalidator struct {
	invalidated []string
	cleared     int
}

func (m *mockInvalidator) Invalidate(_ context.Context, id string) error {
	m.invalidated = append(m.invalidated, id)
	return nil
}

func (m *mockInvalidator) InvalidateAll(context.Context) error {
	m.cleared++
	return nil
}

type fixture struct {
	svc     *Service
	store   *memory.Documents
	indexer *mockIndexer
	inv     *mockInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewDocuments(),
		indexer: newMockIndexer(),
		inv:     &mockInvalidator{},
	}
	seq := 0
	f.svc = New(f.store, f.indexer, chunker.New(chunker.WithChunkSize(100), chunker.WithOverlap(20)), zap.NewNop()).
		WithSummaries(f.inv).
		WithMaxUploadBytes(1024).
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }).
		WithIDGenerator(func() string {
			seq++
			return "doc-" + strconv.Itoa(seq)
		})
	return f
}

// --- Tests ---

func TestIngest_TextDocument(t *testing.T) {
	f := newFixture(t)
	text := strings.Repeat("Must support 99.9% uptime. ", 10)

	res, err := f.svc.Ingest(context.Background(), []byte(text), "rfp.txt", "text/plain", domdoc.CategoryRequirements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := res.Document
	if doc.ID() != "doc-1" || doc.Title() != "rfp" || doc.Category() != domdoc.CategoryRequirements {
		t.Errorf("unexpected document: id=%s title=%s category=%s", doc.ID(), doc.Title(), doc.Category())
	}
	if doc.UploadedAt() != 1700000000000 || doc.Size() != int64(len(text)) {
		t.Errorf("unexpected metadata: uploaded=%d size=%d", doc.UploadedAt(), doc.Size())
	}
	if res.Chunks < 3 || f.indexer.total() != res.Chunks {
		t.Errorf("expected chunks indexed, got %d (indexer has %d)", res.Chunks, f.indexer.total())
	}
	if _, err := f.store.Get(context.Background(), "doc-1"); err != nil {
		t.Errorf("document not stored: %v", err)
	}
}

func TestIngest_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		file    string
		mime    string
		wantErr error
	}{
		{"executable", []byte("MZ..."), "setup.exe", "application/octet-stream", domain.ErrUnsupportedFormat},
		{"unknown mime without extension", []byte("x"), "blob", "application/zip", domain.ErrUnsupportedFormat},
		{"too large", make([]byte, 2048), "big.txt", "text/plain", domain.ErrPayloadTooLarge},
		{"empty", nil, "empty.txt", "text/plain", domain.ErrInvalidInput},
		{"broken docx", []byte("not a zip"), "a.docx", "", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Ingest(context.Background(), tt.data, tt.file, tt.mime, domdoc.CategoryRequirements)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			docs, _ := f.store.List(context.Background(), "")
			if len(docs) != 0 || f.indexer.total() != 0 {
				t.Errorf("nothing must be stored, got %d docs and %d chunks", len(docs), f.indexer.total())
			}
		})
	}
}

func TestIngest_InvalidCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ingest(context.Background(), []byte("x"), "a.txt", "", domdoc.Category("other"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngest_ImageStoredWithoutChunks(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "scan.png", "", domdoc.CategoryCapabilities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Document.IsBinary() || res.Chunks != 0 {
		t.Errorf("expected binary document with no chunks, got binary=%v chunks=%d", res.Document.IsBinary(), res.Chunks)
	}
	if res.Document.Content() != domdoc.BinaryMarker("image/png") {
		t.Errorf("unexpected content %q", res.Document.Content())
	}
}

func TestIngest_IndexErrorSurfaces(t *testing.T) {
	f := newFixture(t)
	f.indexer.upsertErr = context.Canceled

	_, err := f.svc.Ingest(context.Background(), []byte("hello"), "a.txt", "", domdoc.CategoryRequirements)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDelete_Cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Ingest(ctx, []byte("We provide 24/7 SRE coverage."), "cap.txt", "", domdoc.CategoryCapabilities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := res.Document.ID()

	if err := f.svc.Delete(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.store.Get(ctx, id); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("document must be gone, got %v", err)
	}
	if f.indexer.total() != 0 {
		t.Errorf("chunks must be gone, %d left", f.indexer.total())
	}
	if len(f.inv.invalidated) != 1 || f.inv.invalidated[0] != id {
		t.Errorf("summary must be invalidated, got %v", f.inv.invalidated)
	}

	if err := f.svc.Delete(ctx, id); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("second delete: expected ErrDocumentNotFound, got %v", err)
	}
	if len(f.inv.invalidated) != 1 {
		t.Errorf("second delete must have no side effects, got %v", f.inv.invalidated)
	}
}

func TestDelete_ChunkFailureKeepsDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, _ := f.svc.Ingest(ctx, []byte("text"), "a.txt", "", domdoc.CategoryRequirements)
	f.indexer.deleteErr = errors.New("redis down")

	if err := f.svc.Delete(ctx, res.Document.ID()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := f.store.Get(ctx, res.Document.ID()); err != nil {
		t.Errorf("document must survive a failed cascade: %v", err)
	}
}

func TestList_FilterAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Ingest(ctx, []byte("req"), "r.txt", "", domdoc.CategoryRequirements)
	_, _ = f.svc.Ingest(ctx, []byte("cap"), "c.txt", "", domdoc.CategoryCapabilities)

	all, err := f.svc.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 documents, got %d (%v)", len(all), err)
	}
	reqs, _ := f.svc.List(ctx, domdoc.CategoryRequirements)
	if len(reqs) != 1 || reqs[0].Title() != "r" {
		t.Errorf("unexpected filtered list: %d", len(reqs))
	}
	if _, err := f.svc.List(ctx, "bogus"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReindex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Ingest(ctx, []byte("req"), "r.txt", "", domdoc.CategoryRequirements)
	_, _ = f.svc.Ingest(ctx, []byte("cap"), "c.txt", "", domdoc.CategoryCapabilities)

	res, err := f.svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Documents != 2 || res.Indexed != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
	if f.indexer.clears != 1 || f.inv.cleared != 1 {
		t.Errorf("expected index and summaries cleared once, got %d/%d", f.indexer.clears, f.inv.cleared)
	}
	if f.indexer.total() != 2 {
		t.Errorf("expected 2 chunks after reindex, got %d", f.indexer.total())
	}
}

func TestClearIndex_KeepsDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Ingest(ctx, []byte("req"), "r.txt", "", domdoc.CategoryRequirements)

	if err := f.svc.ClearIndex(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.indexer.total() != 0 {
		t.Error("expected empty index")
	}
	if docs, _ := f.svc.List(ctx, ""); len(docs) != 1 {
		t.Errorf("documents must remain, got %d", len(docs))
	}
}
