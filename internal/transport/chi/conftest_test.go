package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/session"
	documentuc "github.com/kailas-cloud/tenderdraft/internal/usecase/document"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tenderdraft/internal/usecase/health"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/retrieval"
)

// --- Mocks ---

type mockDocuments struct {
	maxBytes  int64
	ingestFn  func(ctx context.Context, data []byte, name, mime string, c domdoc.Category) (documentuc.IngestResult, error)
	getFn     func(ctx context.Context, id string) (domdoc.Document, error)
	listFn    func(ctx context.Context, c domdoc.Category) ([]domdoc.Document, error)
	deleteFn  func(ctx context.Context, id string) error
	reindexFn func(ctx context.Context) (documentuc.ReindexResult, error)
	clearFn   func(ctx context.Context) error
}

func (m *mockDocuments) Ingest(ctx context.Context, data []byte, name, mime string, c domdoc.Category) (documentuc.IngestResult, error) {
	return m.ingestFn(ctx, data, name, mime, c)
}

func (m *mockDocuments) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocuments) List(ctx context.Context, c domdoc.Category) ([]domdoc.Document, error) {
	return m.listFn(ctx, c)
}

func (m *mockDocuments) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

func (m *mockDocuments) Reindex(ctx context.Context) (documentuc.ReindexResult, error) {
	return m.reindexFn(ctx)
}

func (m *mockDocuments) ClearIndex(ctx context.Context) error { return m.clearFn(ctx) }

func (m *mockDocuments) MaxUploadBytes() int64 { return m.maxBytes }

type mockGenerator struct {
	runFn func(ctx context.Context, req generation.Request, sink generation.Sink) (*session.Session, error)
}

func (m *mockGenerator) Run(ctx context.Context, req generation.Request, sink generation.Sink) (*session.Session, error) {
	return m.runFn(ctx, req, sink)
}

type mockRetrieval struct {
	searchFn    func(ctx context.Context, query string, opts retrieval.Options) ([]chunk.Match, error)
	summarizeFn func(ctx context.Context, refs []retrieval.DocumentRef, opts retrieval.Options) (string, error)
	extractFn   func(ctx context.Context, refs []retrieval.DocumentRef) ([]string, error)
	sectionFn   func(ctx context.Context, refs []retrieval.DocumentRef, title, instruction string) (retrieval.Section, error)
}

func (m *mockRetrieval) Search(ctx context.Context, query string, opts retrieval.Options) ([]chunk.Match, error) {
	return m.searchFn(ctx, query, opts)
}

func (m *mockRetrieval) Summarize(ctx context.Context, refs []retrieval.DocumentRef, opts retrieval.Options) (string, error) {
	return m.summarizeFn(ctx, refs, opts)
}

func (m *mockRetrieval) ExtractRequirements(ctx context.Context, refs []retrieval.DocumentRef) ([]string, error) {
	return m.extractFn(ctx, refs)
}

func (m *mockRetrieval) GenerateSection(
	ctx context.Context, refs []retrieval.DocumentRef, title, instruction string,
) (retrieval.Section, error) {
	return m.sectionFn(ctx, refs, title, instruction)
}

type mockChat struct {
	streamFn func(ctx context.Context, req domain.CompletionRequest, onToken func(string) error) (domain.Completion, error)
}

func (m *mockChat) Stream(ctx context.Context, req domain.CompletionRequest, onToken func(string) error) (domain.Completion, error) {
	return m.streamFn(ctx, req, onToken)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testAPI struct {
	docs      *mockDocuments
	generator *mockGenerator
	retrieval *mockRetrieval
	chat      *mockChat
	health    *mockHealth
	handler   http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	a := &testAPI{
		docs:      &mockDocuments{maxBytes: documentuc.DefaultMaxUploadBytes},
		generator: &mockGenerator{},
		retrieval: &mockRetrieval{},
		chat:      &mockChat{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	srv := NewServer(a.docs, a.generator, a.retrieval, a.chat, a.health, zap.NewNop())
	a.handler = HandlerWithOptions(srv, RouterOptions{})
	return a
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func testDocument(t *testing.T, id string, c domdoc.Category) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, "rfp", c, domain.TextPart{Text: "text"}, "text/plain", "rfp.txt", 1700000000000, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}
