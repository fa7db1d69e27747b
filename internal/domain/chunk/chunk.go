package chunk

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Chunk is a bounded slice of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	DocumentID string
	Index      int
	Total      int
	// Text is the pre-trim span, including the leading overlap.
	Text string
	// Overlap is the number of leading runes repeated from the previous chunk.
	Overlap  int
	Vector   []float32
	Category string
	Title    string
}

// ID returns the storage identifier "<docID>:<index>".
func (c Chunk) ID() string {
	return ID(c.DocumentID, c.Index)
}

// ID builds a chunk identifier.
func ID(documentID string, index int) string {
	return documentID + ":" + strconv.Itoa(index)
}

// Fresh returns the text without the leading overlap.
func (c Chunk) Fresh() string {
	if c.Overlap <= 0 {
		return c.Text
	}
	n := 0
	for i := range c.Text {
		if n == c.Overlap {
			return c.Text[i:]
		}
		n++
	}
	return ""
}

// Join reconstructs the original text from an ordered chunk sequence.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Fresh())
	}
	return b.String()
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}
