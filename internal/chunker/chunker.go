// Package chunker splits document text into overlapping, boundary-aware chunks.
package chunker

import (
	"unicode"

	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
	"github.com/kailas-cloud/tenderdraft/internal/domain/document"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// Chunker splits text on paragraph, then sentence, then word boundaries,
// falling back to a hard cut at the size ceiling.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size ceiling in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Size returns the chunk size ceiling.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the effective overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Span is one chunk of text and the number of leading runes it repeats.
type Span struct {
	Text    string
	Overlap int
}

// Split cuts text into spans. Empty text yields none; text within the ceiling yields one.
func (c *Chunker) Split(text string) []Span {
	r := []rune(text)
	n := len(r)
	if n == 0 {
		return nil
	}
	if n <= c.chunkSize {
		return []Span{{Text: text}}
	}

	spans := make([]Span, 0, n/(c.chunkSize-c.overlap)+1)
	prevEnd := 0
	for prevEnd < n {
		start, overlap := 0, 0
		if prevEnd > 0 {
			start, overlap = prevEnd-c.overlap, c.overlap
		}
		maxEnd := start + c.chunkSize
		end := n
		if maxEnd < n {
			lo := prevEnd + (maxEnd-prevEnd)/4
			if lo < start+c.overlap {
				lo = start + c.overlap
			}
			if lo <= prevEnd {
				lo = prevEnd + 1
			}
			end = boundary(r, lo, maxEnd)
		}
		spans = append(spans, Span{Text: string(r[start:end]), Overlap: overlap})
		prevEnd = end
	}
	return spans
}

// boundary picks the best cut position p in [lo, hi]; the chunk ends before r[p].
func boundary(r []rune, lo, hi int) int {
	for p := hi; p >= lo; p-- {
		if paragraphEnd(r, p) {
			return p
		}
	}
	for p := hi; p >= lo; p-- {
		if p >= 2 && unicode.IsSpace(r[p-1]) && isTerminal(r[p-2]) {
			return p
		}
	}
	for p := hi; p >= lo; p-- {
		if p >= 1 && unicode.IsSpace(r[p-1]) {
			return p
		}
	}
	return hi
}

// paragraphEnd reports whether r[:p] ends with a blank line ("\n\n" or "\r\n\r\n").
func paragraphEnd(r []rune, p int) bool {
	if p < 2 || r[p-1] != '\n' {
		return false
	}
	if r[p-2] == '\n' {
		return true
	}
	return p >= 3 && r[p-2] == '\r' && r[p-3] == '\n'
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// Chunk splits a document into chunks carrying its metadata.
// Binary documents have no text and yield no chunks.
func (c *Chunker) Chunk(doc document.Document) []chunk.Chunk {
	if doc.IsBinary() {
		return nil
	}
	spans := c.Split(doc.Content())
	chunks := make([]chunk.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = chunk.Chunk{
			DocumentID: doc.ID(),
			Index:      i,
			Total:      len(spans),
			Text:       s.Text,
			Overlap:    s.Overlap,
			Category:   string(doc.Category()),
			Title:      doc.Title(),
		}
	}
	return chunks
}
