package generation

import (
	"context"
	"errors"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
)

// ErrNoDocuments marks a run without requirements documents. It degrades, never fails.
var ErrNoDocuments = errors.New("no requirements documents")

// UserMessage maps an error to the text shown to the person generating the document.
// Internal details never leak through it.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoDocuments):
		return "No requirements documents were uploaded, so a generic tender document is generated instead."
	case errors.Is(err, domain.ErrRateLimited):
		return "The AI service is receiving too many requests right now. Please wait a minute and try again."
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "The AI service rejected the configured credentials. Please contact your administrator."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Generation was cancelled before it finished."
	default:
		return "Document generation failed. Please try again."
	}
}
