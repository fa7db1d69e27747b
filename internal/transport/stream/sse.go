package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// DoneFrame terminates every SSE stream.
const DoneFrame = "data: [DONE]\n\n"

type sseContent struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SSE streams tokens as server-sent events.
type SSE struct {
	w       io.Writer
	flusher http.Flusher
	message func(error) string

	mu     sync.Mutex
	closed bool
}

// NewSSE writes the event-stream headers.
func NewSSE(w http.ResponseWriter) *SSE {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	f, _ := w.(http.Flusher)
	return &SSE{w: w, flusher: f, message: func(error) string { return defaultErrorMessage }}
}

// WithErrorMessage sets how the closing error is rendered for the client.
func (s *SSE) WithErrorMessage(fn func(error) string) *SSE {
	s.message = fn
	return s
}

// Send writes one token frame. It fails once the stream is closed or the client is gone.
func (s *SSE) Send(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	return s.write(sseContent{Content: token})
}

// Close writes an error frame when err is set, then the terminator. Later calls are no-ops.
func (s *SSE) Close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err != nil {
		_ = s.write(sseContent{Error: s.message(err)})
	}
	if _, werr := io.WriteString(s.w, DoneFrame); werr == nil && s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *SSE) write(v sseContent) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
