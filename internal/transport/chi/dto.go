package chi

import (
	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes.
const (
	CodeBadRequest        ErrorResponseCode = "bad_request"
	CodeValidationFailed  ErrorResponseCode = "validation_failed"
	CodeUnsupportedFormat ErrorResponseCode = "unsupported_format"
	CodePayloadTooLarge   ErrorResponseCode = "payload_too_large"
	CodeDocumentNotFound  ErrorResponseCode = "document_not_found"
	CodeNotFound          ErrorResponseCode = "not_found"
	CodeVectorDimMismatch ErrorResponseCode = "vector_dim_mismatch"
	CodeRateLimited       ErrorResponseCode = "rate_limited"
	CodeProviderAuth      ErrorResponseCode = "provider_authentication_failed"
	CodeProviderError     ErrorResponseCode = "provider_error"
	CodeUnauthorized      ErrorResponseCode = "unauthorized"
	CodeInternalError     ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// UploadResponse is returned for an accepted upload.
type UploadResponse struct {
	Success       bool   `json:"success"`
	DocumentID    string `json:"documentId"`
	DocumentName  string `json:"documentName"`
	ChunkCount    int    `json:"chunkCount"`
	IndexedChunks int    `json:"indexedChunks"`
	FailedChunks  int    `json:"failedChunks"`
}

// DocumentResponse is document metadata.
type DocumentResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	DocType    string `json:"docType"`
	FileName   string `json:"fileName"`
	MIMEType   string `json:"mimeType"`
	Size       int64  `json:"size"`
	UploadedAt int64  `json:"uploadedAt"`
	Binary     bool   `json:"binary"`
}

// DocumentListResponse wraps a document list.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Count int                `json:"count"`
}

// ReindexResponse summarizes a rebuild.
type ReindexResponse struct {
	Documents int `json:"documents"`
	Indexed   int `json:"indexed"`
	Failed    int `json:"failed"`
}

// GenerateRequest starts a generation. Every field is optional.
type GenerateRequest struct {
	Prompt            string   `json:"prompt,omitempty"`
	AdditionalContext string   `json:"additionalContext,omitempty"`
	CompanyContext    string   `json:"companyContext,omitempty"`
	Sections          []string `json:"sections,omitempty"`
}

// Retrieval operations.
const (
	OperationSearch              = "search"
	OperationSummarize           = "summarize"
	OperationExtractRequirements = "extract-requirements"
	OperationGenerateSection     = "generate-section"
)

// operationAliases maps legacy underscore spellings to their wire names.
var operationAliases = map[string]string{
	"extract_requirements": OperationExtractRequirements,
	"generate_section":     OperationGenerateSection,
}

// RetrievalRequest is a retrieval call.
type RetrievalRequest struct {
	Query     string             `json:"query"`
	Operation string             `json:"operation"`
	Options   RetrievalOptions   `json:"options"`
	Documents []DocumentRefInput `json:"documents,omitempty"`
}

// RetrievalOptions tune a retrieval operation.
type RetrievalOptions struct {
	TopK        int    `json:"topK,omitempty"`
	DocType     string `json:"docType,omitempty"`
	DocumentID  string `json:"documentId,omitempty"`
	Focus       string `json:"focus,omitempty"`
	MaxTokens   int    `json:"maxTokens,omitempty"`
	Title       string `json:"title,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

// DocumentRefInput references a stored document or carries an inline one.
type DocumentRefInput struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// SearchResult is one retrieved chunk.
type SearchResult struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	DocType    string  `json:"docType"`
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// RetrievalResponse carries the result of one operation; only its fields are set.
// generate-section fills Title and Content at the top level.
type RetrievalResponse struct {
	Operation    string         `json:"operation"`
	Results      []SearchResult `json:"results,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Requirements []string       `json:"requirements,omitempty"`
	Title        string         `json:"title,omitempty"`
	Content      string         `json:"content,omitempty"`
}

// ChatMessage is one chat turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat call.
type ChatRequest struct {
	Messages     []ChatMessage `json:"messages"`
	UseDocuments bool          `json:"useDocuments,omitempty"`
}

// HealthResponse is the health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func documentToResponse(d domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID(),
		Title:      d.Title(),
		DocType:    d.Category().DocType(),
		FileName:   d.FileName(),
		MIMEType:   d.MIMEType(),
		Size:       d.Size(),
		UploadedAt: d.UploadedAt(),
		Binary:     d.IsBinary(),
	}
}

func matchToResult(m chunk.Match) SearchResult {
	return SearchResult{
		DocumentID: m.Chunk.DocumentID,
		Title:      m.Chunk.Title,
		DocType:    domdoc.Category(m.Chunk.Category).DocType(),
		ChunkIndex: m.Chunk.Index,
		Text:       m.Chunk.Text,
		Score:      m.Score,
	}
}
