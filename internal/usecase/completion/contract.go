package completion

import (
	"context"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
)

// limiter is the client-side rate limiter consumed by the service (ISP).
type limiter interface {
	Wait(ctx context.Context) error
}

// provider is the raw completion backend.
type provider interface {
	domain.Completer
}
