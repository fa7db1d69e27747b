package document

import (
	"strconv"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	domdoc "github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

const (
	fieldTitle      = "title"
	fieldCategory   = "category"
	fieldMIME       = "mime_type"
	fieldFileName   = "file_name"
	fieldUploadedAt = "uploaded_at"
	fieldSize       = "size"
	fieldBodyKind   = "body"
	fieldBodyMIME   = "body_mime"

	bodyText = "text"
	bodyFile = "file"
)

// buildHashFields flattens document metadata for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := map[string]string{
		fieldTitle:      doc.Title(),
		fieldCategory:   string(doc.Category()),
		fieldMIME:       doc.MIMEType(),
		fieldFileName:   doc.FileName(),
		fieldUploadedAt: strconv.FormatInt(doc.UploadedAt(), 10),
		fieldSize:       strconv.FormatInt(doc.Size(), 10),
		fieldBodyKind:   bodyText,
	}
	if fp, ok := doc.Body().(domain.FilePart); ok {
		m[fieldBodyKind] = bodyFile
		m[fieldBodyMIME] = fp.MIMEType
	}
	return m
}

func contentBytes(body domain.Part) []byte {
	switch b := body.(type) {
	case domain.TextPart:
		return []byte(b.Text)
	case domain.FilePart:
		return b.Data
	}
	return nil
}

// parseHashFields rebuilds a Document from its metadata hash and content blob.
func parseHashFields(id string, m map[string]string, content []byte) domdoc.Document {
	var body domain.Part = domain.TextPart{Text: string(content)}
	if m[fieldBodyKind] == bodyFile {
		body = domain.FilePart{MIMEType: m[fieldBodyMIME], Data: content}
	}
	uploadedAt, _ := strconv.ParseInt(m[fieldUploadedAt], 10, 64)
	size, _ := strconv.ParseInt(m[fieldSize], 10, 64)
	return domdoc.Reconstruct(
		id, m[fieldTitle], domdoc.Category(m[fieldCategory]), body,
		m[fieldMIME], m[fieldFileName], uploadedAt, size,
	)
}
