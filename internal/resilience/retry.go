package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig tunes [Retry]. Zero fields get defaults.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	// Default: 3.
	Attempts int

	// Backoff is the delay before the second try; it doubles each retry.
	// Default: 500ms.
	Backoff time.Duration

	// MaxBackoff caps the delay. Default: 10s.
	MaxBackoff time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	return c
}

// Retry runs fn up to cfg.Attempts times with exponential backoff between
// tries. It stops early when ctx is cancelled, returning the context error,
// and otherwise returns the last failure.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	backoff := cfg.Backoff
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, cfg.MaxBackoff)
	}
	return fmt.Errorf("resilience: %d attempts failed: %w", cfg.Attempts, lastErr)
}

// RetryValue is [Retry] for functions that return a value.
func RetryValue[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := Retry(ctx, cfg, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
