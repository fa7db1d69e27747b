package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/session"
	"github.com/kailas-cloud/tenderdraft/internal/transport/stream"
	documentuc "github.com/kailas-cloud/tenderdraft/internal/usecase/document"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/tenderdraft/internal/usecase/health"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/retrieval"
)

func uploadRequest(t *testing.T, docType, name, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if docType != "" {
		if err := mw.WriteField("docType", docType); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if name != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, _ = part.Write(data)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

// --- Documents ---

func TestUploadDocument_OK(t *testing.T) {
	a := newTestAPI(t)
	a.docs.ingestFn = func(_ context.Context, data []byte, name, mime string, c domdoc.Category) (documentuc.IngestResult, error) {
		if string(data) != "Must support 99.9% uptime" || name != "rfp.txt" || mime != "text/plain" {
			t.Errorf("unexpected upload %q %q %q", data, name, mime)
		}
		if c != domdoc.CategoryRequirements {
			t.Errorf("expected requirements category, got %q", c)
		}
		return documentuc.IngestResult{
			Document: testDocument(t, "d1", c),
			Chunks:   2,
			Report:   chunk.Report{Indexed: 2},
		}, nil
	}

	rr := a.do(uploadRequest(t, "source", "rfp.txt", "text/plain", []byte("Must support 99.9% uptime")))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp UploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.DocumentID != "d1" || resp.DocumentName != "rfp" || resp.ChunkCount != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestUploadDocument_Rejections(t *testing.T) {
	a := newTestAPI(t)
	a.docs.ingestFn = func(_ context.Context, _ []byte, name, _ string, _ domdoc.Category) (documentuc.IngestResult, error) {
		return documentuc.IngestResult{}, fmt.Errorf("classify %q: %w", name, domain.ErrUnsupportedFormat)
	}

	tests := []struct {
		name string
		req  *http.Request
		code ErrorResponseCode
	}{
		{"unsupported", uploadRequest(t, "source", "setup.exe", "application/octet-stream", []byte("MZ")), CodeUnsupportedFormat},
		{"missing docType", uploadRequest(t, "", "rfp.txt", "text/plain", []byte("x")), CodeValidationFailed},
		{"bad docType", uploadRequest(t, "tender", "rfp.txt", "text/plain", []byte("x")), CodeValidationFailed},
		{"missing file", uploadRequest(t, "company", "", "", nil), CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := a.do(tt.req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			if e := decodeError(t, rr); e.Code != tt.code || e.Success {
				t.Errorf("unexpected error %+v", e)
			}
		})
	}
}

func TestUploadDocument_TooLarge(t *testing.T) {
	a := newTestAPI(t)
	a.docs.maxBytes = 10
	a.docs.ingestFn = func(_ context.Context, data []byte, _, _ string, _ domdoc.Category) (documentuc.IngestResult, error) {
		if len(data) != 11 {
			t.Errorf("expected the read to stop one byte past the limit, got %d", len(data))
		}
		return documentuc.IngestResult{}, domain.ErrPayloadTooLarge
	}

	rr := a.do(uploadRequest(t, "source", "big.txt", "text/plain", bytes.Repeat([]byte("a"), 100)))
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != CodePayloadTooLarge {
		t.Errorf("expected payload_too_large, got %d", rr.Code)
	}

	called := false
	a.docs.ingestFn = func(context.Context, []byte, string, string, domdoc.Category) (documentuc.IngestResult, error) {
		called = true
		return documentuc.IngestResult{}, nil
	}
	rr = a.do(uploadRequest(t, "source", "huge.txt", "text/plain", bytes.Repeat([]byte("a"), 2<<20)))
	if rr.Code != http.StatusBadRequest || called {
		t.Errorf("body beyond the limit must be rejected before ingest, got %d called=%v", rr.Code, called)
	}
}

func TestListDocuments(t *testing.T) {
	a := newTestAPI(t)
	var got domdoc.Category
	a.docs.listFn = func(_ context.Context, c domdoc.Category) ([]domdoc.Document, error) {
		got = c
		return []domdoc.Document{testDocument(t, "d1", domdoc.CategoryCapabilities)}, nil
	}

	rr := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents?docType=company", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp DocumentListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != domdoc.CategoryCapabilities || resp.Count != 1 || resp.Items[0].DocType != "company" {
		t.Errorf("unexpected list %+v for category %q", resp, got)
	}

	rr = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if rr.Code != http.StatusOK || got != "" {
		t.Errorf("expected unfiltered list, got %d category %q", rr.Code, got)
	}

	rr = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents?docType=bogus", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown docType, got %d", rr.Code)
	}
}

func TestGetDocument(t *testing.T) {
	a := newTestAPI(t)
	a.docs.getFn = func(_ context.Context, id string) (domdoc.Document, error) {
		if id == "d1" {
			return testDocument(t, "d1", domdoc.CategoryRequirements), nil
		}
		return domdoc.Document{}, fmt.Errorf("redis 10.0.0.7: key %s: %w", id, domain.ErrDocumentNotFound)
	}

	rr := a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil))
	var doc DocumentResponse
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("got %d, err %v", rr.Code, err)
	}
	if doc.ID != "d1" || doc.DocType != "source" || doc.Binary {
		t.Errorf("unexpected document %+v", doc)
	}

	rr = a.do(httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	e := decodeError(t, rr)
	if e.Code != CodeDocumentNotFound || e.Message != "document not found" {
		t.Errorf("internal details must not leak: %+v", e)
	}
}

func TestDeleteDocument(t *testing.T) {
	a := newTestAPI(t)
	var deleted string
	a.docs.deleteFn = func(_ context.Context, id string) error {
		if id == "missing" {
			return domain.ErrDocumentNotFound
		}
		deleted = id
		return nil
	}

	if rr := a.do(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/d1", nil)); rr.Code != http.StatusNoContent {
		t.Errorf("got %d, want 204", rr.Code)
	}
	if deleted != "d1" {
		t.Errorf("expected d1 deleted, got %q", deleted)
	}
	if rr := a.do(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/missing", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}

func TestReindexAndClear(t *testing.T) {
	a := newTestAPI(t)
	a.docs.reindexFn = func(context.Context) (documentuc.ReindexResult, error) {
		return documentuc.ReindexResult{Documents: 2, Indexed: 7, Failed: 1}, nil
	}
	a.docs.clearFn = func(context.Context) error { return errors.New("FT.DROPINDEX failed") }

	rr := a.do(httptest.NewRequest(http.MethodPost, "/api/v1/documents/reindex", nil))
	var resp ReindexResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("got %d, err %v", rr.Code, err)
	}
	if resp != (ReindexResponse{Documents: 2, Indexed: 7, Failed: 1}) {
		t.Errorf("unexpected response %+v", resp)
	}

	rr = a.do(httptest.NewRequest(http.MethodDelete, "/api/v1/index", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	if e := decodeError(t, rr); e.Message != "internal error" {
		t.Errorf("internal details must not leak: %+v", e)
	}
}

// --- Generate ---

func TestGenerate_Streams(t *testing.T) {
	a := newTestAPI(t)
	a.generator.runFn = func(_ context.Context, req generation.Request, sink generation.Sink) (*session.Session, error) {
		if req.Prompt != "Write it" || len(req.Sections) != 1 {
			t.Errorf("unexpected request %+v", req)
		}
		sink.Progress("Preparing documents")
		sink.Block("## Scope\n\nText\n\n")
		sink.Progress("Done")
		return nil, nil
	}

	rr := a.do(jsonRequest(t, http.MethodPost, "/api/v1/generate", GenerateRequest{Prompt: "Write it", Sections: []string{"Scope"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	want := stream.FormatProgress("Preparing documents") + "## Scope\n\nText\n\n" + stream.FormatProgress("Done")
	if rr.Body.String() != want {
		t.Errorf("body = %q, want %q", rr.Body.String(), want)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/markdown") {
		t.Errorf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
}

func TestGenerate_EmptyBodyAllowed(t *testing.T) {
	a := newTestAPI(t)
	a.generator.runFn = func(context.Context, generation.Request, generation.Sink) (*session.Session, error) {
		return nil, nil
	}
	rr := a.do(httptest.NewRequest(http.MethodPost, "/api/v1/generate", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want 200", rr.Code)
	}
}

func TestGenerate_Errors(t *testing.T) {
	a := newTestAPI(t)
	a.generator.runFn = func(_ context.Context, _ generation.Request, sink generation.Sink) (*session.Session, error) {
		sink.Block("partial")
		return nil, fmt.Errorf("%w: %w", domain.ErrAssemblyFailed, domain.ErrRateLimited)
	}
	rr := a.do(httptest.NewRequest(http.MethodPost, "/api/v1/generate", http.NoBody))
	if strings.Contains(rr.Body.String(), "> **Error**") {
		t.Errorf("assembly failures already carry their fallback: %q", rr.Body.String())
	}

	a.generator.runFn = func(_ context.Context, _ generation.Request, sink generation.Sink) (*session.Session, error) {
		sink.Block("partial")
		return nil, domain.ErrRateLimited
	}
	rr = a.do(httptest.NewRequest(http.MethodPost, "/api/v1/generate", http.NoBody))
	body := rr.Body.String()
	if !strings.HasPrefix(body, "partial") || !strings.Contains(body, generation.UserMessage(domain.ErrRateLimited)) {
		t.Errorf("expected partial output then a readable error, got %q", body)
	}

	rr = a.do(httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader("{")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400 for malformed JSON", rr.Code)
	}
}

// --- Retrieval ---

func TestRetrieval_Search(t *testing.T) {
	a := newTestAPI(t)
	a.retrieval.searchFn = func(_ context.Context, q string, opts retrieval.Options) ([]chunk.Match, error) {
		if q != "uptime" || opts.Category != "capabilities" || opts.TopK != 2 {
			t.Errorf("unexpected search %q %+v", q, opts)
		}
		return []chunk.Match{{
			Chunk: chunk.Chunk{DocumentID: "d1", Index: 3, Text: "24/7 SRE", Category: "capabilities", Title: "Profile"},
			Score: 0.91,
		}}, nil
	}

	rr := a.do(jsonRequest(t, http.MethodPost, "/api/v1/retrieval", RetrievalRequest{
		Query: "uptime", Operation: OperationSearch, Options: RetrievalOptions{TopK: 2, DocType: "company"},
	}))
	var resp RetrievalResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("got %d, err %v", rr.Code, err)
	}
	want := SearchResult{DocumentID: "d1", Title: "Profile", DocType: "company", ChunkIndex: 3, Text: "24/7 SRE", Score: 0.91}
	if len(resp.Results) != 1 || resp.Results[0] != want {
		t.Errorf("unexpected results %+v", resp.Results)
	}
}

func TestRetrieval_DocumentOperations(t *testing.T) {
	a := newTestAPI(t)
	a.retrieval.summarizeFn = func(_ context.Context, refs []retrieval.DocumentRef, opts retrieval.Options) (string, error) {
		if len(refs) != 2 || refs[0].ID != "d1" || refs[1].Content != "inline" || opts.Focus != "staffing" {
			t.Errorf("unexpected summarize call %+v %+v", refs, opts)
		}
		return "summary", nil
	}
	a.retrieval.extractFn = func(context.Context, []retrieval.DocumentRef) ([]string, error) {
		return []string{"99.9% uptime"}, nil
	}
	a.retrieval.sectionFn = func(_ context.Context, _ []retrieval.DocumentRef, title, instruction string) (retrieval.Section, error) {
		return retrieval.Section{Title: title, Content: "body " + instruction}, nil
	}
	docs := []DocumentRefInput{{ID: "d1"}, {Title: "Notes", Content: "inline"}}

	var resp RetrievalResponse
	rr := a.do(jsonRequest(t, http.MethodPost, "/api/v1/retrieval", RetrievalRequest{Query: "staffing", Operation: OperationSummarize, Documents: docs}))
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Summary != "summary" {
		t.Errorf("unexpected summarize response %+v", resp)
	}

	resp = RetrievalResponse{}
	rr = a.do(jsonRequest(t, http.MethodPost, "/api/v1/retrieval", RetrievalRequest{Operation: OperationExtractRequirements, Documents: docs}))
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Requirements) != 1 || resp.Requirements[0] != "99.9% uptime" {
		t.Errorf("unexpected requirements response %+v", resp)
	}

	resp = RetrievalResponse{}
	rr = a.do(jsonRequest(t, http.MethodPost, "/api/v1/retrieval", RetrievalRequest{
		Query: "ignored", Operation: OperationGenerateSection, Documents: docs,
		Options: RetrievalOptions{Title: "Support", Instruction: "short"},
	}))
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Title != "Support" || resp.Content != "body short" {
		t.Errorf("unexpected section response %+v", resp)
	}
}

func TestRetrieval_WireOperationNames(t *testing.T) {
	a := newTestAPI(t)
	a.retrieval.extractFn = func(context.Context, []retrieval.DocumentRef) ([]string, error) {
		return []string{"ISO 27001"}, nil
	}
	a.retrieval.sectionFn = func(_ context.Context, _ []retrieval.DocumentRef, title, _ string) (retrieval.Section, error) {
		return retrieval.Section{Title: title, Content: "text"}, nil
	}

	tests := []struct {
		body string
		want string
	}{
		{`{"operation":"extract-requirements","documents":[{"id":"d1"}]}`, `"requirements":["ISO 27001"]`},
		{`{"operation":"extract_requirements","documents":[{"id":"d1"}]}`, `"operation":"extract-requirements"`},
		{`{"operation":"generate-section","query":"Pricing","documents":[{"id":"d1"}]}`, `"title":"Pricing","content":"text"`},
		{`{"operation":"generate_section","query":"Pricing","documents":[{"id":"d1"}]}`, `"operation":"generate-section"`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieval", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		rr := a.do(req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: got %d: %s", tt.body, rr.Code, rr.Body.String())
			continue
		}
		if !strings.Contains(rr.Body.String(), tt.want) {
			t.Errorf("%s: body %q missing %q", tt.body, rr.Body.String(), tt.want)
		}
	}
}

func TestRetrieval_Errors(t *testing.T) {
	a := newTestAPI(t)
	a.retrieval.summarizeFn = func(context.Context, []retrieval.DocumentRef, retrieval.Options) (string, error) {
		return "", fmt.Errorf("at least one document is required: %w", domain.ErrInvalidInput)
	}

	rr := a.do(jsonRequest(t, http.MethodPost, "/api/v1/retrieval", RetrievalRequest{Operation: OperationSummarize}))
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != CodeValidationFailed {
		t.Errorf("expected validation error, got %d", rr.Code)
	}

	rr = a.do(jsonRequest(t, http.MethodPost, "/api/v1/retrieval", RetrievalRequest{Operation: "translate"}))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown operation, got %d", rr.Code)
	}
}

// --- Chat ---

func TestChat_StreamsTokens(t *testing.T) {
	a := newTestAPI(t)
	a.chat.streamFn = func(_ context.Context, req domain.CompletionRequest, onToken func(string) error) (domain.Completion, error) {
		if len(req.Messages) != 1 || req.Messages[0].Role != domain.RoleUser {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_ = onToken("Hel")
		_ = onToken("lo")
		return domain.Completion{Text: "Hello"}, nil
	}

	rr := a.do(jsonRequest(t, http.MethodPost, "/api/v1/chat", ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "Hi"}}}))
	want := "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\n" + stream.DoneFrame
	if rr.Body.String() != want {
		t.Errorf("body = %q, want %q", rr.Body.String(), want)
	}
}

func TestChat_UsesDocuments(t *testing.T) {
	a := newTestAPI(t)
	a.retrieval.searchFn = func(_ context.Context, q string, _ retrieval.Options) ([]chunk.Match, error) {
		if q != "What SLA?" {
			t.Errorf("expected the last user message as query, got %q", q)
		}
		return []chunk.Match{{Chunk: chunk.Chunk{Title: "RFP", Category: "requirements", Text: "99.9% uptime"}}}, nil
	}
	var system string
	a.chat.streamFn = func(_ context.Context, req domain.CompletionRequest, _ func(string) error) (domain.Completion, error) {
		if req.Messages[0].Role == domain.RoleSystem {
			system = req.Messages[0].Parts[0].(domain.TextPart).Text
		}
		return domain.Completion{}, nil
	}

	a.do(jsonRequest(t, http.MethodPost, "/api/v1/chat", ChatRequest{
		UseDocuments: true,
		Messages: []ChatMessage{
			{Role: "user", Content: "Hi"},
			{Role: "assistant", Content: "Hello"},
			{Role: "user", Content: "What SLA?"},
		},
	}))
	if !strings.Contains(system, "99.9% uptime") {
		t.Errorf("expected retrieved excerpt in the system message, got %q", system)
	}
}

func TestChat_Errors(t *testing.T) {
	a := newTestAPI(t)
	a.chat.streamFn = func(context.Context, domain.CompletionRequest, func(string) error) (domain.Completion, error) {
		return domain.Completion{}, domain.ErrAuthenticationFailed
	}

	rr := a.do(jsonRequest(t, http.MethodPost, "/api/v1/chat", ChatRequest{}))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without messages, got %d", rr.Code)
	}
	rr = a.do(jsonRequest(t, http.MethodPost, "/api/v1/chat", ChatRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}}))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", rr.Code)
	}

	rr = a.do(jsonRequest(t, http.MethodPost, "/api/v1/chat", ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "Hi"}}}))
	body := rr.Body.String()
	if !strings.Contains(body, `"error"`) || !strings.HasSuffix(body, stream.DoneFrame) {
		t.Errorf("expected an error frame then [DONE], got %q", body)
	}
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	a := newTestAPI(t)
	tests := []struct {
		status healthuc.Status
		code   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		a.health.report = healthuc.Report{
			Status: tt.status,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentDatabase: healthuc.CheckOK},
		}
		rr := a.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Code != tt.code {
			t.Errorf("%s: got %d, want %d", tt.status, rr.Code, tt.code)
		}
		var resp HealthResponse
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Status != string(tt.status) || resp.Checks["database"] != "ok" {
			t.Errorf("unexpected health response %+v", resp)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	if rr := a.do(httptest.NewRequest(http.MethodGet, "/metrics", nil)); rr.Code != http.StatusOK {
		t.Errorf("got %d, want 200", rr.Code)
	}
}
