package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
)

// parseAPIError extracts a human-readable error from the API response and wraps it
// with a domain sentinel: 429 → ErrRateLimited, 401/403 → ErrAuthenticationFailed,
// anything else → fallback.
func parseAPIError(kind string, err error, fallback error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			kind, reqErr.HTTPStatusCode, detail, classify(reqErr.HTTPStatusCode, fallback))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			kind, apiErr.HTTPStatusCode, apiErr.Message, classify(apiErr.HTTPStatusCode, fallback))
	}

	return fmt.Errorf("%s request failed: %v: %w", kind, err, fallback)
}

func classify(status int, fallback error) error {
	switch status {
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthenticationFailed
	default:
		return fallback
	}
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
