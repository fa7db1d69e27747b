package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
)

// Category is the origin of an uploaded document.
type Category string

// Document categories.
const (
	CategoryRequirements Category = "requirements"
	CategoryCapabilities Category = "capabilities"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryRequirements || c == CategoryCapabilities
}

// ParseDocType maps the public docType vocabulary (source, company) onto a category.
// The category names themselves are accepted as aliases.
func ParseDocType(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source", string(CategoryRequirements):
		return CategoryRequirements, nil
	case "company", string(CategoryCapabilities):
		return CategoryCapabilities, nil
	}
	return "", fmt.Errorf("docType %q: %w", s, domain.ErrInvalidInput)
}

// DocType is the inverse of ParseDocType.
func (c Category) DocType() string {
	if c == CategoryCapabilities {
		return "company"
	}
	return "source"
}

// Document is an uploaded artifact (immutable value object).
type Document struct {
	id         string
	title      string
	category   Category
	body       domain.Part
	mimeType   string
	fileName   string
	uploadedAt int64
	size       int64
}

// New validates and creates a Document.
func New(
	id, title string, category Category, body domain.Part,
	mimeType, fileName string, uploadedAt, size int64,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidInput)
	}
	if !category.Valid() {
		return Document{}, fmt.Errorf("category %q: %w", category, domain.ErrInvalidInput)
	}
	switch b := body.(type) {
	case domain.TextPart:
		if !utf8.ValidString(b.Text) {
			return Document{}, fmt.Errorf("text body is not valid UTF-8: %w", domain.ErrInvalidInput)
		}
	case domain.FilePart:
		if b.MIMEType == "" {
			return Document{}, fmt.Errorf("binary body without MIME type: %w", domain.ErrInvalidInput)
		}
	default:
		return Document{}, fmt.Errorf("document body is required: %w", domain.ErrInvalidInput)
	}
	if title == "" {
		title = fileName
	}
	return Document{
		id: id, title: title, category: category, body: body,
		mimeType: mimeType, fileName: fileName, uploadedAt: uploadedAt, size: size,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title string, category Category, body domain.Part,
	mimeType, fileName string, uploadedAt, size int64,
) Document {
	return Document{
		id: id, title: title, category: category, body: body,
		mimeType: mimeType, fileName: fileName, uploadedAt: uploadedAt, size: size,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the display title.
func (d *Document) Title() string { return d.title }

// Category returns the origin category.
func (d *Document) Category() Category { return d.category }

// Body returns the text or binary payload.
func (d *Document) Body() domain.Part { return d.body }

// MIMEType returns the declared MIME type.
func (d *Document) MIMEType() string { return d.mimeType }

// FileName returns the uploaded file name.
func (d *Document) FileName() string { return d.fileName }

// UploadedAt returns the upload time in unix milliseconds.
func (d *Document) UploadedAt() int64 { return d.uploadedAt }

// Size returns the uploaded payload size in bytes.
func (d *Document) Size() int64 { return d.size }

// IsBinary reports whether the body is opaque binary content.
func (d *Document) IsBinary() bool {
	_, ok := d.body.(domain.FilePart)
	return ok
}

// Content returns the text body, or a placeholder marker for binary documents.
func (d *Document) Content() string {
	switch b := d.body.(type) {
	case domain.TextPart:
		return b.Text
	case domain.FilePart:
		return BinaryMarker(b.MIMEType)
	}
	return ""
}

// BinaryMarker is the placeholder stored as content for binary documents.
func BinaryMarker(mimeType string) string {
	return "[binary content: " + mimeType + "]"
}
