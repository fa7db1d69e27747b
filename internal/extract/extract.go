// Package extract classifies uploads and turns their bytes into a document body.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
)

// Format is an accepted upload format.
type Format string

// Accepted formats.
const (
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatText  Format = "txt"
	FormatImage Format = "image"
)

// MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"
)

var imageMIMEs = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

var extensionMIMEs = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Classify resolves the upload format from the file extension, falling back to the declared MIME type.
// It returns the format and the effective MIME type.
func Classify(name, declaredMIME string) (Format, string, error) {
	mime := strings.ToLower(strings.TrimSpace(declaredMIME))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		return FormatPDF, MIMEPDF, nil
	case ".docx":
		return FormatDOCX, MIMEDOCX, nil
	case ".txt":
		return FormatText, MIMEText, nil
	case "":
	default:
		if m, ok := extensionMIMEs[ext]; ok {
			return FormatImage, m, nil
		}
		return "", "", fmt.Errorf("extension %q: %w", ext, domain.ErrUnsupportedFormat)
	}

	switch {
	case mime == MIMEPDF:
		return FormatPDF, mime, nil
	case mime == MIMEDOCX:
		return FormatDOCX, mime, nil
	case mime == MIMEText:
		return FormatText, mime, nil
	case imageMIMEs[mime]:
		return FormatImage, mime, nil
	}
	return "", "", fmt.Errorf("type %q: %w", declaredMIME, domain.ErrUnsupportedFormat)
}

// Body converts raw bytes of a classified upload into a text or binary part.
// A PDF without extractable text is kept as a binary part for inline submission.
func Body(format Format, mime string, data []byte) (domain.Part, error) {
	switch format {
	case FormatText:
		return domain.TextPart{Text: strings.ToValidUTF8(string(data), "�")}, nil
	case FormatDOCX:
		text, err := DOCX(data)
		if err != nil {
			return nil, err
		}
		return domain.TextPart{Text: text}, nil
	case FormatPDF:
		text, err := PDF(data)
		if err != nil || strings.TrimSpace(text) == "" {
			return domain.FilePart{MIMEType: MIMEPDF, Data: data}, nil
		}
		return domain.TextPart{Text: text}, nil
	case FormatImage:
		return domain.FilePart{MIMEType: mime, Data: data}, nil
	}
	return nil, fmt.Errorf("format %q: %w", format, domain.ErrUnsupportedFormat)
}

// PDF extracts plain text from a PDF file.
func PDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.ToValidUTF8(buf.String(), "�"), nil
}

// Title derives a display title from a file name.
func Title(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
