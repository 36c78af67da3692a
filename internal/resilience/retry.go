package resilience

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

// Sleeper abstracts time-based waiting for testing.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper uses actual time.
type RealSleeper struct{}

// Sleep waits for d or until ctx is done.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of retries after the first call (0 = no retries)
	BaseWait    time.Duration // Initial wait duration
	MaxWait     time.Duration // Maximum wait duration
	Multiplier  float64       // Backoff multiplier (e.g., 2.0 for exponential)
	Jitter      float64       // Jitter factor (0.0-1.0)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseWait:    time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// Policy decides which errors are retried and how long to wait.
// A nil Retryable retries nothing; a nil RetryAfter leaves the wait to
// exponential backoff.
type Policy struct {
	Retryable  func(err error) bool
	RetryAfter func(err error) time.Duration
	OnRetry    func(attempt int, err error, wait time.Duration)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retry executes fn, retrying errors the policy accepts according to cfg.
// Non-retryable errors are returned unwrapped.
func Retry[T any](ctx context.Context, cfg RetryConfig, sleeper Sleeper, policy Policy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if sleeper == nil {
		sleeper = RealSleeper{}
	}

	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if !policy.retryable(err) {
			return zero, err
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		wait := Backoff(cfg, attempt+1, policy.retryAfter(err))

		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, err, wait)
		}

		if err := sleeper.Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: cfg.MaxAttempts + 1, Err: lastErr}
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return p.Retryable != nil && p.Retryable(err)
}

func (p Policy) retryAfter(err error) time.Duration {
	if p.RetryAfter != nil {
		return p.RetryAfter(err)
	}
	return 0
}

// Backoff returns the wait before the given retry (1-based).
// A positive hint, such as a server-sent Retry-After, wins.
func Backoff(cfg RetryConfig, attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}

	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	wait := float64(cfg.BaseWait) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxWait > 0 && wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	// Apply jitter using crypto/rand
	if cfg.Jitter > 0 {
		jitterRange := int64(wait * cfg.Jitter)
		if jitterRange > 0 {
			n, err := rand.Int(rand.Reader, big.NewInt(jitterRange*2))
			if err == nil {
				wait += float64(n.Int64() - jitterRange)
			}
		}
	}

	return time.Duration(wait)
}
