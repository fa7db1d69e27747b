// Package retry runs an operation under a capped exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Policy describes how failed calls are retried.
// The delay before retry n (0-based) is BaseDelay * 2^n, capped at MaxDelay.
type Policy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	RetryableErrors []error
	Logger          *zap.Logger

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy retries the given errors three times starting at one second.
func DefaultPolicy(retryable ...error) Policy {
	return Policy{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		RetryableErrors: retryable,
		Logger:          zap.NewNop(),
	}
}

// Delay returns the backoff before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls operation until it succeeds, fails with a non-retryable error,
// or MaxRetries retries are spent. The last error is returned wrapped.
func Do(ctx context.Context, p Policy, operation func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				log.Debug("operation succeeded after retry", zap.Int("retries", attempt))
			}
			return nil
		}

		if !p.retryable(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, err)
		}

		delay := p.Delay(attempt)
		log.Warn("operation failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", p.MaxRetries),
			zap.Duration("delay", delay),
		)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// DoWithResult is Do for operations returning a value.
func DoWithResult[T any](ctx context.Context, p Policy, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var err error
		result, err = operation(ctx)
		return err
	})
	return result, err
}

func (p Policy) retryable(err error) bool {
	for _, target := range p.RetryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
