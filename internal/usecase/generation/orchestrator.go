// Package generation drives a tender generation run from stored documents to an
// assembled markdown document, degrading per document and per section.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/domain/session"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/index"
)

// Defaults for retrieval and analysis.
const (
	DefaultTopK                = 5
	DefaultAnalysisConcurrency = 1
	defaultSectionTokens       = 1500
	defaultReviewTokens        = 1200
)

// Request is one generation call.
type Request struct {
	Prompt            string
	AdditionalContext string
	CompanyContext    string
	// Sections overrides the planned outline when non-empty.
	Sections []string
}

// Analyses aggregates per-document summaries, each headed by the document title.
type Analyses struct {
	Requirements string
	Capabilities string
}

// Orchestrator runs the staged pipeline.
type Orchestrator struct {
	docs        DocumentSource
	analyzer    Analyzer
	retriever   Retriever
	completer   Completer
	planner     Planner
	topK        int
	concurrency int
	newID       func() string
	now         func() time.Time
	logger      *zap.Logger
}

// New creates an orchestrator with the static outline planner.
func New(docs DocumentSource, analyzer Analyzer, retriever Retriever, completer Completer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		docs:        docs,
		analyzer:    analyzer,
		retriever:   retriever,
		completer:   completer,
		planner:     StaticPlanner{},
		topK:        DefaultTopK,
		concurrency: DefaultAnalysisConcurrency,
		newID:       uuid.NewString,
		now:         time.Now,
		logger:      logger,
	}
}

// WithPlanner replaces the outline strategy.
func (o *Orchestrator) WithPlanner(p Planner) *Orchestrator {
	o.planner = p
	return o
}

// WithTopK sets how many passages are retrieved per section.
func (o *Orchestrator) WithTopK(k int) *Orchestrator {
	if k > 0 {
		o.topK = k
	}
	return o
}

// WithAnalysisConcurrency bounds parallel document analyses within a stage.
func (o *Orchestrator) WithAnalysisConcurrency(n int) *Orchestrator {
	if n > 0 {
		o.concurrency = n
	}
	return o
}

// WithClock overrides the time source.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// run carries the state of one invocation.
type run struct {
	*Orchestrator
	sess        *session.Session
	sink        Sink
	log         *zap.Logger
	instruction string
}

// Run executes one generation. Output goes to sink; the returned session holds
// sections and statistics. It fails only when the review call fails
// (domain.ErrAssemblyFailed, after a fallback body was emitted) or ctx is done.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) (*session.Session, error) {
	sess := session.New(o.newID(), req.Prompt, o.now())
	sess.AdditionalContext = req.AdditionalContext
	sess.CompanyContext = req.CompanyContext

	r := &run{
		Orchestrator: o,
		sess:         sess,
		sink:         sink,
		log:          o.logger.With(zap.String("session_id", sess.ID)),
	}
	metrics.GenerationStagesTotal.WithLabelValues(session.StagePreparing.String()).Inc()

	err := r.execute(ctx, req)

	sess.Finish(o.now())
	outcome := "complete"
	if err != nil {
		sess.Fail()
		outcome = "error"
		metrics.GenerationStagesTotal.WithLabelValues(session.StageError.String()).Inc()
	}
	metrics.GenerationSessionDuration.WithLabelValues(outcome).Observe(sess.Stats.Elapsed.Seconds())
	r.log.Info("Generation finished",
		zap.String("outcome", outcome),
		zap.Duration("elapsed", sess.Stats.Elapsed),
		zap.Int("sections", len(sess.Sections)),
		zap.Int("failures", sess.Stats.Failures),
		zap.Error(err),
	)
	return sess, err
}

func (r *run) execute(ctx context.Context, req Request) error {
	r.sink.Progress("Preparing documents")
	reqDocs := r.load(ctx, domdoc.CategoryRequirements)
	capDocs := r.load(ctx, domdoc.CategoryCapabilities)
	for _, d := range append(append([]domdoc.Document(nil), reqDocs...), capDocs...) {
		r.sess.DocumentIDs = append(r.sess.DocumentIDs, d.ID())
	}

	r.instruction = strings.TrimSpace(req.Prompt)
	if r.instruction == "" {
		r.instruction = DefaultInstruction
	}
	if len(reqDocs) == 0 {
		r.sess.Fallback = true
		r.instruction = GenericInstruction
		if p := strings.TrimSpace(req.Prompt); p != "" {
			r.instruction += "\n\n" + p
		}
		r.sink.Progress(UserMessage(ErrNoDocuments))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var analyses Analyses
	r.advance(session.StageAnalyzingSource)
	analyses.Requirements = r.analyzeAll(ctx, reqDocs, true)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.advance(session.StageAnalyzingCompany)
	analyses.Capabilities = r.analyzeAll(ctx, capDocs, false)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.advance(session.StagePlanning)
	titles := r.plan(ctx, req, analyses)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.advance(session.StageWriting)
	for i, title := range titles {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.sink.Progress(fmt.Sprintf("Writing section %d/%d: %s", i+1, len(titles), title))
		r.writeSection(ctx, req, analyses, title)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.advance(session.StageReviewing)
	r.sink.Progress("Reviewing the draft for compliance")
	if err := r.review(ctx, analyses); err != nil {
		return err
	}

	r.advance(session.StageFinalizing)
	r.sink.Progress("Finalizing document")
	r.finalize()

	r.advance(session.StageComplete)
	r.sink.Progress("Done")
	return nil
}

func (r *run) advance(stage session.Stage) {
	if err := r.sess.Advance(stage); err != nil {
		r.log.Error("Invalid stage transition", zap.Error(err))
		return
	}
	metrics.GenerationStagesTotal.WithLabelValues(stage.String()).Inc()
	r.log.Debug("Stage entered", zap.String("stage", stage.String()))
}

// load lists one category; a store failure degrades to no documents.
func (r *run) load(ctx context.Context, c domdoc.Category) []domdoc.Document {
	docs, err := r.docs.List(ctx, c)
	if err != nil {
		r.log.Warn("Failed to load documents", zap.String("category", string(c)), zap.Error(err))
		return nil
	}
	return docs
}

// analyzeAll analyzes documents in order, at most r.concurrency at a time,
// and joins the summaries under their titles.
func (r *run) analyzeAll(ctx context.Context, docs []domdoc.Document, isRequirements bool) string {
	if len(docs) == 0 {
		return ""
	}
	label := "company"
	if isRequirements {
		label = "requirements"
	}

	type result struct {
		text   string
		cached bool
		failed bool
	}
	results := make([]result, len(docs))
	analyze := func(ctx context.Context, i int) {
		if ctx.Err() != nil {
			return
		}
		sum, cached := r.analyzer.Analyze(ctx, docs[i], isRequirements)
		results[i] = result{text: sum.Text, cached: cached, failed: sum.Failed()}
	}
	progress := func(i int) {
		r.sink.Progress(fmt.Sprintf("Analyzing %s document %d/%d: %s", label, i+1, len(docs), docs[i].Title()))
	}

	if r.concurrency <= 1 {
		for i := range docs {
			progress(i)
			analyze(ctx, i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i := range docs {
			progress(i)
			i := i
			g.Go(func() error {
				analyze(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var b strings.Builder
	for i, res := range results {
		switch {
		case res.text == "":
			continue
		case res.cached:
			r.sess.Stats.CacheHits++
		default:
			r.sess.CountCall()
		}
		if res.failed {
			r.sess.Stats.Failures++
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", docs[i].Title(), res.text)
	}
	return strings.TrimSpace(b.String())
}

func (r *run) plan(ctx context.Context, req Request, analyses Analyses) []string {
	r.sink.Progress("Planning document outline")
	if mp, ok := r.planner.(modelPlanner); ok && mp.UsesModel(req) {
		r.sess.CountCall()
	}
	titles, err := r.planner.Plan(ctx, req, analyses)
	if err != nil || len(titles) == 0 {
		r.log.Warn("Planner failed, using default outline", zap.Error(err))
		titles, _ = StaticPlanner{}.Plan(ctx, req, analyses)
	}
	r.sink.Progress(fmt.Sprintf("Planned %d sections", len(titles)))
	return titles
}

func (r *run) writeSection(ctx context.Context, req Request, analyses Analyses, title string) {
	passages := r.retrieve(ctx, title)

	r.sess.CountCall()
	out, err := r.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			domain.SystemText(writerSystem),
			domain.UserText(sectionPrompt(r.instruction, req, analyses, passages, title)),
		},
		MaxTokens: defaultSectionTokens,
	})

	sec := session.Section{Title: title, Status: session.StatusDraft}
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = errors.New("empty section")
	}
	if err != nil {
		r.log.Warn("Section failed",
			zap.String("section", title),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrSectionGenerationFailed, err)))
		r.sess.Stats.Failures++
		sec.Failed = true
		sec.Body = errorBlock("Section generation failed", err)
	} else {
		sec.Body = strings.TrimSpace(out.Text)
		sec.Requirements = ParseRequirements(sec.Body)
	}

	r.sess.Sections = append(r.sess.Sections, sec)
	r.emit("## " + title + "\n\n" + sec.Body + "\n\n")
}

// retrieve finds capability passages for a section; failures degrade to none.
func (r *run) retrieve(ctx context.Context, title string) []chunk.Match {
	if r.retriever == nil {
		return nil
	}
	r.sess.Stats.Retrievals++
	matches, err := r.retriever.Query(ctx, title+"\n"+r.instruction, index.Options{
		TopK:     r.topK,
		Category: string(domdoc.CategoryCapabilities),
	})
	if err != nil {
		r.log.Warn("Retrieval failed", zap.String("section", title), zap.Error(err))
		return nil
	}
	return matches
}

// review runs the compliance review. Its failure ends the run with a fallback body.
func (r *run) review(ctx context.Context, analyses Analyses) error {
	r.sess.CountCall()
	out, err := r.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			domain.SystemText(reviewerSystem),
			domain.UserText(reviewPrompt(analyses, r.sess.Body())),
		},
		MaxTokens: defaultReviewTokens,
	})
	if err == nil {
		r.emit("## Compliance Review\n\n" + strings.TrimSpace(out.Text) + "\n\n")
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	r.sess.Stats.Failures++
	r.log.Error("Review failed", zap.Error(err))
	var b strings.Builder
	b.WriteString(errorBlock("Document assembly failed", err))
	b.WriteString("\n\n## Document Analyses\n\n")
	b.WriteString("### Requirements\n\n")
	b.WriteString(orNone(analyses.Requirements))
	b.WriteString("\n\n### Company\n\n")
	b.WriteString(orNone(analyses.Capabilities))
	b.WriteString("\n\n")
	r.emit(b.String())
	return fmt.Errorf("%w: %w", domain.ErrAssemblyFailed, err)
}

func (r *run) finalize() {
	var b strings.Builder
	b.WriteString("## Requirements Checklist\n\n")
	n := 0
	for i := range r.sess.Sections {
		sec := &r.sess.Sections[i]
		sec.Status = session.StatusFinal
		for _, req := range sec.Requirements {
			if strings.EqualFold(req, "none") {
				continue
			}
			fmt.Fprintf(&b, "- [x] %s (%s)\n", req, sec.Title)
			n++
		}
		if sec.Failed {
			fmt.Fprintf(&b, "- [ ] %s: section could not be generated\n", sec.Title)
		}
	}
	if n == 0 {
		b.WriteString("_No requirements were marked as addressed._\n")
	}

	st := r.sess.Stats
	b.WriteString("\n## Generation Statistics\n\n")
	fmt.Fprintf(&b, "- Elapsed: %s\n", r.now().Sub(st.Started).Round(time.Millisecond))
	fmt.Fprintf(&b, "- Documents: %d\n", len(r.sess.DocumentIDs))
	fmt.Fprintf(&b, "- Sections: %d\n", len(r.sess.Sections))
	for _, stage := range []session.Stage{
		session.StageAnalyzingSource, session.StageAnalyzingCompany,
		session.StagePlanning, session.StageWriting, session.StageReviewing,
	} {
		fmt.Fprintf(&b, "- Calls (%s): %d\n", stage, st.Calls[stage])
	}
	fmt.Fprintf(&b, "- Cached analyses: %d\n", st.CacheHits)
	fmt.Fprintf(&b, "- Failures: %d\n", st.Failures)
	if r.sess.Fallback {
		b.WriteString("- Mode: generic (no requirements documents)\n")
	}
	r.emit(b.String())
}

func (r *run) emit(block string) {
	r.sess.Append(block)
	r.sink.Block(block)
}

func errorBlock(heading string, err error) string {
	return "> **" + heading + "**: " + UserMessage(err)
}
