// Package stream frames generation output for chunked HTTP responses.
package stream

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Progress sentinel framing. Clients strip these lines from the rendered markdown.
const (
	ProgressPrefix = "<!-- PROGRESS_UPDATE: "
	ProgressSuffix = " -->"
)

const defaultErrorMessage = "An error occurred while generating the document."

var progressEscaper = strings.NewReplacer("\r", " ", "\n", " ", "-->", "->")

// FormatProgress renders one progress frame.
func FormatProgress(msg string) string {
	return ProgressPrefix + progressEscaper.Replace(msg) + ProgressSuffix + "\n"
}

// ParseProgress extracts the message from a progress frame line.
func ParseProgress(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, ProgressPrefix) || !strings.HasSuffix(line, ProgressSuffix) {
		return "", false
	}
	return line[len(ProgressPrefix) : len(line)-len(ProgressSuffix)], true
}

// Markdown streams progress frames and markdown blocks in emission order.
// Producers never block: frames are queued and written by a single goroutine
// that flushes after each one. Safe for concurrent use.
type Markdown struct {
	w       io.Writer
	flusher http.Flusher
	message func(error) string
	logger  *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []string
	closed bool

	once sync.Once
	done chan struct{}
}

// NewMarkdown writes the response headers and starts the writer goroutine.
// Close must be called to release it.
func NewMarkdown(w http.ResponseWriter, logger *zap.Logger) *Markdown {
	h := w.Header()
	h.Set("Content-Type", "text/markdown; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	f, _ := w.(http.Flusher)
	return newMarkdown(w, f, logger)
}

func newMarkdown(w io.Writer, f http.Flusher, logger *zap.Logger) *Markdown {
	m := &Markdown{
		w:       w,
		flusher: f,
		message: func(error) string { return defaultErrorMessage },
		logger:  logger,
		done:    make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.loop()
	return m
}

// WithErrorMessage sets how the closing error is rendered for the reader.
func (m *Markdown) WithErrorMessage(fn func(error) string) *Markdown {
	m.message = fn
	return m
}

// Progress queues a progress frame.
func (m *Markdown) Progress(msg string) {
	m.enqueue(FormatProgress(msg))
}

// Block queues a markdown block verbatim.
func (m *Markdown) Block(md string) {
	m.enqueue(md)
}

// Close ends the stream, appending a readable error block when err is set,
// and waits until every queued frame is written. Later calls are no-ops.
func (m *Markdown) Close(err error) {
	m.once.Do(func() {
		if err != nil {
			m.enqueue("\n\n> **Error**: " + m.message(err) + "\n")
		}
		m.mu.Lock()
		m.closed = true
		m.cond.Signal()
		m.mu.Unlock()
		<-m.done
	})
}

func (m *Markdown) enqueue(frame string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.queue = append(m.queue, frame)
	m.cond.Signal()
}

func (m *Markdown) loop() {
	defer close(m.done)
	var writeErr error
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		frames := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, f := range frames {
			if writeErr != nil {
				continue
			}
			if _, writeErr = io.WriteString(m.w, f); writeErr != nil {
				m.logger.Warn("Failed to write stream frame, dropping the rest", zap.Error(writeErr))
				continue
			}
			if m.flusher != nil {
				m.flusher.Flush()
			}
		}
		if closed && len(frames) == 0 {
			return
		}
	}
}
