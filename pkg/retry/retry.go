package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry configuration. A Backoff of 1.0 gives a fixed delay
// between attempts, which is what latency-sensitive callers (health
// probes gating token issuance) want instead of exponential growth.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64
	MaxDelay    time.Duration
}

// Fixed returns a fixed-delay policy: attempts tries, delay between them.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		Delay:       delay,
		Backoff:     1.0,
		MaxDelay:    delay,
	}
}

// Exponential returns a doubling-delay policy capped at maxDelay.
func Exponential(attempts int, initialDelay, maxDelay time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		Delay:       initialDelay,
		Backoff:     2.0,
		MaxDelay:    maxDelay,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so that Do stops retrying immediately and
// returns it. Used for outcomes that are definitive, like a platform
// self-reporting unavailable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Run executes fn up to cfg.MaxAttempts times, waiting between attempts.
// It stops early on success, on a Permanent error, or when ctx is done.
func Run(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do is Run for functions returning a result.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := cfg.Delay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var pe *permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during wait: %w", ctx.Err())
		case <-time.After(delay):
		}

		if cfg.Backoff > 1.0 {
			delay = time.Duration(float64(delay) * cfg.Backoff)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
