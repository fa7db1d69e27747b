package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidInput signals a malformed request or payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat signals an upload whose type is not accepted.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrPayloadTooLarge signals an upload above the configured size ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals that a provider rejected the call with HTTP 429. Retryable.
	ErrRateLimited = errors.New("rate limited")
	// ErrAuthenticationFailed signals rejected provider credentials. Never retried.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")

	// ErrEmbeddingFailed marks a single chunk that could not be embedded.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrAnalysisFailed marks a document whose analysis produced an error summary.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrSectionGenerationFailed marks a section rendered with an inline error block.
	ErrSectionGenerationFailed = errors.New("section generation failed")
	// ErrAssemblyFailed aborts a generation session; the caller gets a fallback body.
	ErrAssemblyFailed = errors.New("assembly failed")
)

// ChunkError records which chunk of a document failed and why.
type ChunkError struct {
	DocumentID string
	Index      int
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s:%d: %v", e.DocumentID, e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
