package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	logpkg "github.com/kailas-cloud/tenderdraft/internal/logger"
	"github.com/kailas-cloud/tenderdraft/internal/transport/stream"
	"github.com/kailas-cloud/tenderdraft/internal/usecase/generation"
)

// Generate handles POST /api/v1/generate. The response is a chunked markdown
// stream interleaving progress frames with content blocks.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	md := stream.NewMarkdown(w, logpkg.FromContext(r.Context(), s.logger)).
		WithErrorMessage(generation.UserMessage)

	_, err := s.generator.Run(r.Context(), generation.Request{
		Prompt:            req.Prompt,
		AdditionalContext: req.AdditionalContext,
		CompanyContext:    req.CompanyContext,
		Sections:          req.Sections,
	}, md)
	if errors.Is(err, domain.ErrAssemblyFailed) {
		// The fallback body is already in the stream.
		err = nil
	}
	md.Close(err)
}
