package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the LLM returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// ErrAuth indicates the provider rejected the credentials (401/403).
// It is never retried.
type ErrAuth struct {
	StatusCode int
	Err        error
}

func (e *ErrAuth) Error() string {
	return fmt.Sprintf("LLM authentication failed (status %d): %v", e.StatusCode, e.Err)
}

func (e *ErrAuth) Unwrap() error { return e.Err }

// ErrValidation indicates the provider rejected the request itself (400),
// e.g. an unknown model or a malformed schema. It is never retried.
type ErrValidation struct {
	Err error
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("LLM request rejected: %v", e.Err)
}

func (e *ErrValidation) Unwrap() error { return e.Err }

// IsFatal reports whether err is an authentication or request validation
// failure that no amount of retrying will fix.
func IsFatal(err error) bool {
	var auth *ErrAuth
	if errors.As(err, &auth) {
		return true
	}
	var val *ErrValidation
	return errors.As(err, &val)
}

// IsTransient reports whether err is a rate limit or an unavailable
// provider.
func IsTransient(err error) bool {
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var unavail *ErrProviderUnavailable
	return errors.As(err, &unavail)
}

// mapStatusError converts an HTTP status from any backend into the typed
// error taxonomy.
func mapStatusError(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ErrAuth{StatusCode: status, Err: err}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &ErrValidation{Err: err}
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
