// Package completion wraps a completion provider with a shared rate limiter,
// the retry policy, request defaults and logging.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tenderdraft/internal/domain"
	"github.com/kailas-cloud/tenderdraft/internal/metrics"
	"github.com/kailas-cloud/tenderdraft/internal/retry"
)

var errStreamStarted = errors.New("stream already started")

// Service is a domain.Completer and domain.StreamCompleter.
type Service struct {
	inner       provider
	streamer    domain.StreamCompleter
	limiter     limiter
	policy      retry.Policy
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// New creates a completion service. policy controls which errors are retried.
func New(inner provider, policy retry.Policy, logger *zap.Logger) *Service {
	s := &Service{
		inner:  inner,
		policy: policy,
		logger: logger,
	}
	if sc, ok := inner.(domain.StreamCompleter); ok {
		s.streamer = sc
	}
	return s
}

// NewLimiter builds a token bucket limiter; rps <= 0 means unlimited.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// WithLimiter shares a rate limiter across every call made by this service.
func (s *Service) WithLimiter(l limiter) *Service {
	s.limiter = l
	return s
}

// WithModel sets the model label used in metrics.
func (s *Service) WithModel(model string) *Service {
	s.model = model
	return s
}

// WithDefaults sets request defaults applied when a request leaves them zero.
func (s *Service) WithDefaults(maxTokens int, temperature float32) *Service {
	s.maxTokens = maxTokens
	s.temperature = temperature
	return s
}

// Complete runs one completion under the limiter and retry policy.
func (s *Service) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	req = s.applyDefaults(req)
	start := time.Now()

	out, err := retry.DoWithResult(ctx, s.retryPolicy(), func(ctx context.Context) (domain.Completion, error) {
		if err := s.wait(ctx); err != nil {
			return domain.Completion{}, err
		}
		return s.inner.Complete(ctx, req)
	})
	if err != nil {
		s.logger.Warn("Completion failed",
			zap.String("model", s.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	s.logger.Debug("Completion finished",
		zap.String("model", s.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
	)
	return out, nil
}

// Stream streams tokens to onToken. Retries happen only before the first token
// is delivered; once output has started a failure is returned as is.
// Without a streaming backend the whole completion is delivered as one token.
func (s *Service) Stream(
	ctx context.Context,
	req domain.CompletionRequest,
	onToken func(token string) error,
) (domain.Completion, error) {
	if s.streamer == nil {
		out, err := s.Complete(ctx, req)
		if err != nil {
			return domain.Completion{}, err
		}
		if err := onToken(out.Text); err != nil {
			return out, err
		}
		return out, nil
	}

	req = s.applyDefaults(req)
	var (
		started  bool
		midError error
	)
	out, err := retry.DoWithResult(ctx, s.retryPolicy(), func(ctx context.Context) (domain.Completion, error) {
		if err := s.wait(ctx); err != nil {
			return domain.Completion{}, err
		}
		res, err := s.streamer.Stream(ctx, req, func(tok string) error {
			started = true
			return onToken(tok)
		})
		if err != nil && started {
			midError = err
			return res, errStreamStarted
		}
		return res, err
	})
	if errors.Is(err, errStreamStarted) {
		err = midError
	}
	if err != nil {
		s.logger.Warn("Completion stream failed", zap.String("model", s.model), zap.Error(err))
		return out, fmt.Errorf("stream: %w", err)
	}
	return out, nil
}

// HealthCheck delegates to the provider when it supports health checks.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (s *Service) retryPolicy() retry.Policy {
	p := s.policy
	if p.Logger == nil {
		p.Logger = s.logger
	}
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.CompletionRetriesTotal.WithLabelValues(s.model).Inc()
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}
	return p
}

func (s *Service) applyDefaults(req domain.CompletionRequest) domain.CompletionRequest {
	if req.MaxTokens == 0 {
		req.MaxTokens = s.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = s.temperature
	}
	return req
}
