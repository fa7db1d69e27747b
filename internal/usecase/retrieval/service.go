// Package retrieval serves ad-hoc search and document Q&A operations.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/index"
)

// DefaultMaxInputChars bounds the document text sent in one request.
const DefaultMaxInputChars = 60000

// DocumentRef names a stored document by ID or carries an inline one.
type DocumentRef struct {
	ID      string
	Title   string
	Content string
}

// Options tune an operation. Zero values use defaults.
type Options struct {
	TopK       int
	Category   string
	DocumentID string
	// Focus steers a summary toward one topic.
	Focus     string
	MaxTokens int
}

// Section is a generated section.
type Section struct {
	Title   string
	Content string
}

// Service implements the retrieval operations.
type Service struct {
	docs      DocumentSource
	index     Index
	completer Completer
	maxInput  int
	logger    *zap.Logger
}

// New creates a retrieval service. index may be nil, which disables passage lookup.
func New(docs DocumentSource, idx Index, completer Completer, logger *zap.Logger) *Service {
	return &Service{
		docs:      docs,
		index:     idx,
		completer: completer,
		maxInput:  DefaultMaxInputChars,
		logger:    logger,
	}
}

// WithMaxInput bounds the runes of document text sent per request.
func (s *Service) WithMaxInput(runes int) *Service {
	if runes > 0 {
		s.maxInput = runes
	}
	return s
}

// Search returns the indexed chunks closest to query.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]chunk.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if s.index == nil {
		return nil, nil
	}
	matches, err := s.index.Query(ctx, query, index.Options{
		TopK:       opts.TopK,
		Category:   opts.Category,
		DocumentID: opts.DocumentID,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return matches, nil
}

// Summarize condenses the referenced documents into one summary.
func (s *Service) Summarize(ctx context.Context, refs []DocumentRef, opts Options) (string, error) {
	parts, err := s.resolve(ctx, refs)
	if err != nil {
		return "", err
	}
	instruction := "Summarize the following documents."
	if f := strings.TrimSpace(opts.Focus); f != "" {
		instruction += " Focus on: " + f + "."
	}

	out, err := s.complete(ctx, summarizeSystem, instruction, parts, opts.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// ExtractRequirements lists the requirements stated in the referenced documents.
func (s *Service) ExtractRequirements(ctx context.Context, refs []DocumentRef) ([]string, error) {
	parts, err := s.resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	out, err := s.complete(ctx, requirementsSystem, "List every requirement in the following documents.", parts, 0)
	if err != nil {
		return nil, fmt.Errorf("extract requirements: %w", err)
	}
	return parseList(out), nil
}

// GenerateSection writes one section from the referenced documents and, when an
// index is configured, the capability passages closest to the title.
func (s *Service) GenerateSection(ctx context.Context, refs []DocumentRef, title, instruction string) (Section, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Section{}, fmt.Errorf("section title is required: %w", domain.ErrInvalidInput)
	}
	parts, err := s.resolve(ctx, refs)
	if err != nil {
		return Section{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write the section %q.", title)
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		b.WriteString("\n\n" + instruction)
	}
	if passages := s.passages(ctx, title); passages != "" {
		b.WriteString("\n\nRelevant company passages:\n" + passages)
	}

	out, err := s.complete(ctx, sectionSystem, b.String(), parts, 0)
	if err != nil {
		return Section{}, fmt.Errorf("generate section: %w", err)
	}
	return Section{Title: title, Content: out}, nil
}

func (s *Service) passages(ctx context.Context, title string) string {
	if s.index == nil {
		return ""
	}
	matches, err := s.index.Query(ctx, title, index.Options{Category: string(domdoc.CategoryCapabilities)})
	if err != nil {
		s.logger.Warn("Passage lookup failed", zap.String("title", title), zap.Error(err))
		return ""
	}
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, m.Chunk.Title, strings.TrimSpace(m.Chunk.Text))
	}
	return b.String()
}

// resolve turns references into message parts: text documents become text
// parts sharing the input budget, binary documents are attached as files.
func (s *Service) resolve(ctx context.Context, refs []DocumentRef) ([]domain.Part, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("at least one document is required: %w", domain.ErrInvalidInput)
	}

	budget := s.maxInput
	parts := make([]domain.Part, 0, len(refs))
	for i, ref := range refs {
		var (
			title string
			body  domain.Part
		)
		switch {
		case ref.ID != "":
			doc, err := s.docs.Get(ctx, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("document %s: %w", ref.ID, err)
			}
			title, body = doc.Title(), doc.Body()
		case strings.TrimSpace(ref.Content) != "":
			title, body = ref.Title, domain.TextPart{Text: ref.Content}
		default:
			return nil, fmt.Errorf("document %d has neither id nor content: %w", i, domain.ErrInvalidInput)
		}
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}

		switch b := body.(type) {
		case domain.FilePart:
			parts = append(parts, domain.TextPart{Text: "## " + title}, b)
		case domain.TextPart:
			text := truncate(b.Text, budget)
			budget -= utf8.RuneCountInString(text)
			parts = append(parts, domain.TextPart{Text: "## " + title + "\n\n" + text})
		}
	}
	return parts, nil
}

func (s *Service) complete(ctx context.Context, system, instruction string, docs []domain.Part, maxTokens int) (string, error) {
	parts := append([]domain.Part{domain.TextPart{Text: instruction}}, docs...)
	out, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			domain.SystemText(system),
			{Role: domain.RoleUser, Parts: parts},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err //nolint:wrapcheck // callers wrap with the operation name
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}

var listItem = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+(.+)$`)

// parseList reads bullet or numbered lines, skipping everything else.
func parseList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := listItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*_"))
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		out = append(out, item)
	}
	return out
}

func truncate(text string, limit int) string {
	if limit <= 0 {
		return "[truncated]"
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "\n\n[truncated]"
}
