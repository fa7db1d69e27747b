package chi

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
	logpkg "github.com/kailas-cloud/tenderdraft/internal/logger"
)

const (
	// multipartSlack covers multipart framing around the file part.
	multipartSlack   = 1 << 20
	multipartMemory  = 32 << 20
	formFieldFile    = "file"
	formFieldDocType = "docType"
)

// UploadDocument handles POST /api/v1/documents.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.documents.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusBadRequest, CodePayloadTooLarge, domain.ErrPayloadTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	category, err := domdoc.ParseDocType(r.FormValue(formFieldDocType))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "docType must be \"source\" or \"company\"")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.documents.Ingest(r.Context(), data, header.Filename, header.Header.Get("Content-Type"), category)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if len(res.Report.Failed) > 0 {
		logpkg.FromContext(r.Context(), s.logger).Warn("Upload partially indexed",
			zap.String("document_id", res.Document.ID()),
			zap.Int("failed_chunks", len(res.Report.Failed)),
		)
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Success:       true,
		DocumentID:    res.Document.ID(),
		DocumentName:  res.Document.Title(),
		ChunkCount:    res.Chunks,
		IndexedChunks: res.Report.Indexed,
		FailedChunks:  len(res.Report.Failed),
	})
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request, params ListDocumentsParams) {
	var category domdoc.Category
	if params.DocType != nil && *params.DocType != "" {
		c, err := domdoc.ParseDocType(*params.DocType)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		category = c
	}

	docs, err := s.documents.List(r.Context(), category)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: items, Count: len(items)})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.documents.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReindexDocuments handles POST /api/v1/documents/reindex.
func (s *Server) ReindexDocuments(w http.ResponseWriter, r *http.Request) {
	res, err := s.documents.Reindex(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReindexResponse{Documents: res.Documents, Indexed: res.Indexed, Failed: res.Failed})
}

// ClearIndex handles DELETE /api/v1/index.
func (s *Server) ClearIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.ClearIndex(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
