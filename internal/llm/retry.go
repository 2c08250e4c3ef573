package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abhisek/intervue/internal/backoff"
)

// RetryProvider retries transient oracle failures with exponential backoff
// and jitter.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	logger *slog.Logger
}

// WithRetry wraps p with the retry policy cfg. A nil logger uses
// slog.Default.
func WithRetry(p Provider, cfg RetryConfig, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryProvider{inner: p, config: cfg, logger: logger}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidRetried := false
	policy := r.config.Policy()
	policy.Retryable = func(err error) bool {
		return shouldRetry(ctx, err, &invalidRetried)
	}
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "llm request failed, retrying",
			"purpose", PurposeFrom(ctx),
			"model", r.inner.ModelID(),
			"attempt", attempt,
			"wait", wait,
			"error", err)
	}

	resp, err := backoff.Retry(ctx, policy, func(ctx context.Context, _ int) (*Response, error) {
		return r.inner.Generate(ctx, req)
	})
	if err != nil {
		// Callers match on the provider's typed error, not the exhaustion
		// wrapper.
		var ex *backoff.ExhaustedError
		if errors.As(err, &ex) {
			r.logger.WarnContext(ctx, "llm request gave up",
				"purpose", PurposeFrom(ctx), "model", r.inner.ModelID(), "attempts", ex.Attempts, "error", ex.Err)
			return nil, ex.Err
		}
		return nil, err
	}
	return resp, nil
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// Policy converts the config into a backoff policy with ±20% jitter that
// honors Retry-After on rate limits. The retry predicate is left to the
// caller.
func (c RetryConfig) Policy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts: c.MaxAttempts,
		InitialWait: c.InitialWait,
		MaxWait:     c.MaxWait,
		Multiplier:  c.Multiplier,
		Jitter:      0.2,
		WaitHint: func(err error) (time.Duration, bool) {
			var rl *ErrRateLimit
			if errors.As(err, &rl) && rl.RetryAfter > 0 {
				return rl.RetryAfter, true
			}
			return 0, false
		},
	}
}

// shouldRetry determines if an error is retryable. A context error only
// ends the loop when the caller's ctx is done; a per-attempt deadline that
// expired below it is a slow upstream and is retried.
func shouldRetry(ctx context.Context, err error, invalidRetried *bool) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Bad credentials and rejected requests fail the same way every time.
	if IsFatal(err) {
		return false
	}

	// Max tokens is a configuration issue, not transient.
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}

	// Invalid response gets one retry.
	var invResp *ErrInvalidResponse
	if errors.As(err, &invResp) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}

	// Rate limits, unavailability and other network errors are transient.
	return true
}
