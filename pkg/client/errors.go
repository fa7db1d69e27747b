package client

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError via errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrProvider          = errors.New("provider error")
)

var codeSentinels = map[string]error{
	"not_found":                      ErrNotFound,
	"document_not_found":             ErrDocumentNotFound,
	"bad_request":                    ErrInvalidInput,
	"validation_failed":              ErrInvalidInput,
	"unsupported_format":             ErrUnsupportedFormat,
	"payload_too_large":              ErrPayloadTooLarge,
	"rate_limited":                   ErrRateLimited,
	"unauthorized":                   ErrUnauthorized,
	"provider_authentication_failed": ErrProvider,
	"provider_error":                 ErrProvider,
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tenderdraft: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("tenderdraft: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches the sentinel for the response code.
func (e *APIError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}
