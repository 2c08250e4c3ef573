// Package backoff runs an operation repeatedly under an explicit retry
// policy: a bounded number of attempts, exponential delays with jitter, and
// a predicate deciding which errors are worth another attempt.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialWait is the delay after the first failed attempt.
	InitialWait time.Duration

	// MaxWait caps a single delay. Zero means uncapped.
	MaxWait time.Duration

	// Multiplier grows the delay per attempt. Values below 1 are treated as 1.
	Multiplier float64

	// Jitter is the relative jitter applied to each delay, e.g. 0.2 for ±20%.
	Jitter float64

	// Retryable decides whether err warrants another attempt. Nil retries
	// every error except context cancellation.
	Retryable func(err error) bool

	// WaitHint lets an error dictate its own delay, e.g. a Retry-After
	// header on a rate limit.
	WaitHint func(err error) (time.Duration, bool)

	// OnRetry is called before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// ExhaustedError is returned when every attempt failed with a retryable
// error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err came from a policy running out of attempts.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable regardless of the policy. Do returns
// the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Delay computes the wait after the given zero-based failed attempt.
func (p Policy) Delay(attempt int, err error) time.Duration {
	if p.WaitHint != nil && err != nil {
		if d, ok := p.WaitHint(err); ok && d > 0 {
			return d
		}
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := float64(p.InitialWait) * math.Pow(mult, float64(attempt))
	if p.MaxWait > 0 && wait > float64(p.MaxWait) {
		wait = float64(p.MaxWait)
	}
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (2*rand.Float64() - 1)
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// context is done, or the policy runs out of attempts. attempt is 1-based.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx, i+1)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !p.retryable(err) {
			var perm *permanentError
			if errors.As(err, &perm) {
				return zero, perm.err
			}
			return zero, err
		}

		if i == attempts-1 {
			break
		}

		wait := p.Delay(i, err)
		if p.OnRetry != nil {
			p.OnRetry(i+1, err, wait)
		}
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Do is Retry for operations without a result.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	_, err := Retry(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}
