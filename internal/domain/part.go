package domain

import "encoding/base64"

// Part is one piece of multimodal content: either TextPart or FilePart.
// The concrete type is decided once, when a document is ingested.
type Part interface {
	isPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

// FilePart is opaque binary content sent inline with its MIME type.
type FilePart struct {
	MIMEType string
	Data     []byte
}

func (TextPart) isPart() {}
func (FilePart) isPart() {}

// DataURL renders the file as an RFC 2397 data URL.
func (p FilePart) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}
