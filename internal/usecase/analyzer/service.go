// Package analyzer produces cached per-document analyses with a completion model.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/summary"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
)

// DefaultMaxInputChars bounds the document text sent for analysis.
const DefaultMaxInputChars = 60000

// Service analyzes documents and caches the result by document id.
type Service struct {
	cache     Cache
	completer Completer
	group     singleflight.Group
	maxInput  int
	maxTokens int
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an analyzer.
func New(cache Cache, completer Completer, logger *zap.Logger) *Service {
	return &Service{
		cache:     cache,
		completer: completer,
		maxInput:  DefaultMaxInputChars,
		now:       time.Now,
		logger:    logger,
	}
}

// WithMaxInput bounds the number of runes of document text sent to the model.
func (s *Service) WithMaxInput(runes int) *Service {
	if runes > 0 {
		s.maxInput = runes
	}
	return s
}

// WithMaxTokens caps the length of each analysis.
func (s *Service) WithMaxTokens(n int) *Service {
	s.maxTokens = n
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Analyze returns the document's summary and whether it came from the cache.
// It never fails: a provider error yields a cached error summary.
// Concurrent calls for the same document share one completion call. A caller
// whose shared call was cancelled by another caller runs it again under its own context.
func (s *Service) Analyze(ctx context.Context, doc domdoc.Document, isRequirements bool) (summary.Summary, bool) {
	if cached, ok := s.lookup(ctx, doc.ID()); ok {
		metrics.AnalysisTotal.WithLabelValues("hit").Inc()
		return cached, true
	}

	for {
		ch := s.group.DoChan(doc.ID(), func() (any, error) {
			if cached, ok := s.lookup(ctx, doc.ID()); ok {
				return cached, nil
			}
			result, err := s.analyze(ctx, doc, isRequirements)
			return result, err
		})

		select {
		case <-ctx.Done():
			return s.cancelled(doc, isRequirements, ctx.Err()), false
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(summary.Summary), false
			}
			if ctx.Err() != nil {
				return s.cancelled(doc, isRequirements, ctx.Err()), false
			}
		}
	}
}

// Invalidate drops the cached summary of one document.
func (s *Service) Invalidate(ctx context.Context, documentID string) error {
	if err := s.cache.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("invalidate summary %s: %w", documentID, err)
	}
	return nil
}

// InvalidateAll drops every cached summary.
func (s *Service) InvalidateAll(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, id string) (summary.Summary, bool) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, true
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("Summary cache read failed", zap.String("document_id", id), zap.Error(err))
	}
	return summary.Summary{}, false
}

func kindOf(isRequirements bool) summary.Kind {
	if isRequirements {
		return summary.KindRequirements
	}
	return summary.KindCapabilities
}

func (s *Service) cancelled(doc domdoc.Document, isRequirements bool, err error) summary.Summary {
	return summary.FromError(doc.ID(), kindOf(isRequirements), doc.Title(), err, s.now())
}

// analyze fails only when ctx is cancelled; the partial result is not cached.
func (s *Service) analyze(ctx context.Context, doc domdoc.Document, isRequirements bool) (summary.Summary, error) {
	kind := kindOf(isRequirements)
	log := s.logger.With(zap.String("document_id", doc.ID()), zap.String("kind", string(kind)))

	start := s.now()
	out, err := s.completer.Complete(ctx, s.request(doc, kind))
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = errors.New("empty analysis")
	}

	var result summary.Summary
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Analysis cancelled", zap.Error(err))
			return summary.Summary{}, fmt.Errorf("analyze %s: %w", doc.ID(), ctx.Err())
		}
		log.Warn("Analysis failed", zap.Error(err))
		metrics.AnalysisTotal.WithLabelValues("error").Inc()
		result = summary.FromError(doc.ID(), kind, doc.Title(), fmt.Errorf("%w: %w", domain.ErrAnalysisFailed, err), s.now())
	} else {
		metrics.AnalysisTotal.WithLabelValues("miss").Inc()
		result = summary.Summary{
			DocumentID: doc.ID(),
			Kind:       kind,
			Text:       strings.TrimSpace(out.Text),
			CreatedAt:  s.now(),
		}
		log.Debug("Analysis completed",
			zap.Duration("duration", s.now().Sub(start)),
			zap.Int("completion_tokens", out.CompletionTokens))
	}

	if err := s.cache.Put(ctx, result); err != nil {
		log.Warn("Summary cache write failed", zap.Error(err))
	}
	return result, nil
}

func (s *Service) request(doc domdoc.Document, kind summary.Kind) domain.CompletionRequest {
	system := capabilitiesPrompt
	if kind == summary.KindRequirements {
		system = requirementsPrompt
	}

	header := "Document: " + doc.Title()
	var parts []domain.Part
	switch body := doc.Body().(type) {
	case domain.FilePart:
		parts = []domain.Part{domain.TextPart{Text: header}, body}
	default:
		parts = []domain.Part{domain.TextPart{Text: header + "\n\n" + truncate(doc.Content(), s.maxInput)}}
	}

	return domain.CompletionRequest{
		Messages: []domain.Message{
			domain.SystemText(system),
			{Role: domain.RoleUser, Parts: parts},
		},
		MaxTokens: s.maxTokens,
	}
}

func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	r := []rune(text)
	return string(r[:limit]) + "\n\n[truncated]"
}
