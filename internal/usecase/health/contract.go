package health

import "context"

// Pinger checks storage availability (Redis/Valkey, filesystem root).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an upstream model provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
