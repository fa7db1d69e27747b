package summary

import "time"

// Kind tells which extraction prompt produced the summary.
type Kind string

// Summary kinds.
const (
	KindRequirements Kind = "requirements"
	KindCapabilities Kind = "capabilities"
)

// ErrorPrefix starts the text of every cached error summary.
const ErrorPrefix = "**Analysis error**"

// Summary is the cached analysis of one document.
type Summary struct {
	DocumentID string    `json:"documentId"`
	Kind       Kind      `json:"kind"`
	Text       string    `json:"text"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Failed reports whether this is a cached error summary.
func (s Summary) Failed() bool { return s.Error != "" }

// FromError builds the error summary cached after a failed analysis.
func FromError(documentID string, kind Kind, title string, err error, now time.Time) Summary {
	return Summary{
		DocumentID: documentID,
		Kind:       kind,
		Text:       ErrorPrefix + " (" + title + "): " + err.Error(),
		Error:      err.Error(),
		CreatedAt:  now,
	}
}
