package chi

import (
	"net/http"
	"strings"

	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/retrieval"
)

// Retrieval handles POST /api/v1/retrieval.
func (s *Server) Retrieval(w http.ResponseWriter, r *http.Request) {
	var req RetrievalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	opts := retrieval.Options{
		TopK:       req.Options.TopK,
		DocumentID: req.Options.DocumentID,
		Focus:      req.Options.Focus,
		MaxTokens:  req.Options.MaxTokens,
	}
	if req.Options.DocType != "" {
		c, err := domdoc.ParseDocType(req.Options.DocType)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		opts.Category = string(c)
	}
	refs := make([]retrieval.DocumentRef, len(req.Documents))
	for i, d := range req.Documents {
		refs[i] = retrieval.DocumentRef{ID: d.ID, Title: d.Title, Content: d.Content}
	}

	op := req.Operation
	if alias, ok := operationAliases[op]; ok {
		op = alias
	}
	resp := RetrievalResponse{Operation: op}
	ctx := r.Context()
	switch op {
	case OperationSearch:
		matches, err := s.retrieval.Search(ctx, req.Query, opts)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Results = make([]SearchResult, len(matches))
		for i, m := range matches {
			resp.Results[i] = matchToResult(m)
		}

	case OperationSummarize:
		if opts.Focus == "" {
			opts.Focus = req.Query
		}
		summary, err := s.retrieval.Summarize(ctx, refs, opts)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Summary = summary

	case OperationExtractRequirements:
		reqs, err := s.retrieval.ExtractRequirements(ctx, refs)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Requirements = reqs

	case OperationGenerateSection:
		title := strings.TrimSpace(req.Options.Title)
		if title == "" {
			title = req.Query
		}
		sec, err := s.retrieval.GenerateSection(ctx, refs, title, req.Options.Instruction)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Title, resp.Content = sec.Title, sec.Content

	default:
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"operation must be one of search, summarize, extract-requirements, generate-section")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
