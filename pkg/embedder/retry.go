package embedder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures RetryEmbedder.
type RetryConfig struct {
	MaxRetries      uint          // retries after the first attempt (0 = none)
	InitialInterval time.Duration // delay before the first retry
	MaxInterval     time.Duration // cap for the exponential delay
}

// DefaultRetryConfig returns the settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// RetryEmbedder wraps an Embedder and retries temporary upstream failures
// with exponential backoff.
type RetryEmbedder struct {
	inner Embedder
	cfg   RetryConfig
}

// NewRetryEmbedder wraps inner with retry logic.
func NewRetryEmbedder(inner Embedder, cfg RetryConfig) *RetryEmbedder {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultRetryConfig().InitialInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	return &RetryEmbedder{inner: inner, cfg: cfg}
}

// Embed calls the wrapped embedder until it succeeds, fails permanently or
// runs out of attempts. The last error is returned unchanged.
func (r *RetryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval

	op := func() ([]float32, error) {
		vec, err := r.inner.Embed(ctx, text)
		if err != nil && !isRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return vec, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxRetries+1),
		backoff.WithNotify(func(err error, d time.Duration) {
			slog.Warn("embedding call failed, retrying", "error", err, "delay", d)
		}),
	)
}

// ModelInfo forwards to the wrapped embedder when it reports one.
func (r *RetryEmbedder) ModelInfo() string {
	if mi, ok := r.inner.(interface{ ModelInfo() string }); ok {
		return mi.ModelInfo()
	}
	return "unknown"
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrEmptyInput) || errors.Is(err, context.Canceled) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Temporary()
	}
	return false
}
