package generation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/summary"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/index"
)

type mockDocs struct {
	byCategory map[domdoc.Category][]domdoc.Document
	err        error
}

func (m *mockDocs) List(_ context.Context, c domdoc.Category) ([]domdoc.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byCategory[c], nil
}

type mockAnalyzer struct {
	mu     sync.Mutex
	cached map[string]bool
	fail   map[string]bool
	calls  []string
}

func (m *mockAnalyzer) Analyze(_ context.Context, doc domdoc.Document, isReq bool) (summary.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, doc.ID())
	kind := summary.KindCapabilities
	if isReq {
		kind = summary.KindRequirements
	}
	if m.fail[doc.ID()] {
		return summary.Summary{DocumentID: doc.ID(), Kind: kind, Text: summary.ErrorPrefix + " (" + doc.Title() + "): boom", Error: "boom"}, false
	}
	return summary.Summary{DocumentID: doc.ID(), Kind: kind, Text: "analysis of " + doc.Content()}, m.cached[doc.ID()]
}

type mockRetriever struct {
	matches []chunk.Match
	err     error
	queries []index.Options
}

func (m *mockRetriever) Query(_ context.Context, _ string, opts index.Options) ([]chunk.Match, error) {
	m.queries = append(m.queries, opts)
	return m.matches, m.err
}

// scriptedCompleter dispatches on the system prompt; unset handlers echo the user prompt.
type scriptedCompleter struct {
	section func(ctx context.Context, prompt string) (string, error)
	review  func(ctx context.Context, prompt string) (string, error)
	planner func(ctx context.Context, prompt string) (string, error)
	calls   atomic.Int32
}

func (s *scriptedCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	s.calls.Add(1)
	system := textOf(req.Messages[0])
	user := textOf(req.Messages[len(req.Messages)-1])

	var fn func(context.Context, string) (string, error)
	switch system {
	case writerSystem:
		fn = s.section
	case reviewerSystem:
		fn = s.review
	case plannerSystem:
		fn = s.planner
	}
	if fn == nil {
		return domain.Completion{Text: user}, nil
	}
	text, err := fn(ctx, user)
	return domain.Completion{Text: text}, err
}

func textOf(m domain.Message) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(domain.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

type recordingSink struct {
	mu       sync.Mutex
	progress []string
	blocks   []string
}

func (s *recordingSink) Progress(msg string) {
	s.mu.Lock()
	s.progress = append(s.progress, msg)
	s.mu.Unlock()
}

func (s *recordingSink) Block(md string) {
	s.mu.Lock()
	s.blocks = append(s.blocks, md)
	s.mu.Unlock()
}

func (s *recordingSink) body() string { return strings.Join(s.blocks, "") }

func (s *recordingSink) hasProgress(substr string) bool {
	for _, p := range s.progress {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}

func makeDoc(t *testing.T, id, title, text string, c domdoc.Category) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, title, c, domain.TextPart{Text: text}, "text/plain", title+".txt", 1, int64(len(text)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}
