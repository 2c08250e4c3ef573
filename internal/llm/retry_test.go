package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestRetryProvider(t *testing.T) {
	unavailable := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}}
	invalid := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("not json")}}
	ok := TextResponse("What is backpressure?")

	tests := []struct {
		name      string
		script    []MockResponse
		wantCalls int
		check     func(t *testing.T, resp *Response, err error)
	}{
		{
			name:      "first attempt",
			script:    []MockResponse{ok},
			wantCalls: 1,
		},
		{
			name:      "transient then success",
			script:    []MockResponse{unavailable, unavailable, ok},
			wantCalls: 3,
		},
		{
			name:      "exhausted returns the provider error",
			script:    []MockResponse{unavailable, unavailable, unavailable, ok},
			wantCalls: 3,
			check: func(t *testing.T, _ *Response, err error) {
				var un *ErrProviderUnavailable
				assert.ErrorAs(t, err, &un)
			},
		},
		{
			name:      "invalid reply retried once",
			script:    []MockResponse{invalid, invalid, ok},
			wantCalls: 2,
			check: func(t *testing.T, _ *Response, err error) {
				var inv *ErrInvalidResponse
				assert.ErrorAs(t, err, &inv)
			},
		},
		{
			name:      "auth is fatal",
			script:    []MockResponse{{Err: &ErrAuth{StatusCode: 401}}, ok},
			wantCalls: 1,
			check: func(t *testing.T, _ *Response, err error) {
				assert.True(t, IsFatal(err))
			},
		},
		{
			name:      "validation is fatal",
			script:    []MockResponse{{Err: &ErrValidation{Err: errors.New("unknown model")}}, ok},
			wantCalls: 1,
			check: func(t *testing.T, _ *Response, err error) {
				var val *ErrValidation
				assert.ErrorAs(t, err, &val)
			},
		},
		{
			name:      "token limit is not transient",
			script:    []MockResponse{{Err: &ErrMaxTokensExceeded{}}, ok},
			wantCalls: 1,
			check: func(t *testing.T, _ *Response, err error) {
				var mt *ErrMaxTokensExceeded
				assert.ErrorAs(t, err, &mt)
			},
		},
		{
			name:      "rate limit waits then succeeds",
			script:    []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond}}, ok},
			wantCalls: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.script...)
			resp, err := WithRetry(mock, fastRetry(), nil).Generate(context.Background(), UserPrompt("", "q"))

			assert.Equal(t, tt.wantCalls, mock.CallCount())
			if tt.check == nil {
				require.NoError(t, err)
				assert.Equal(t, "What is backpressure?", resp.Text())
				return
			}
			require.Error(t, err)
			tt.check(t, resp, err)
		})
	}
}

func TestRetryProvider_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{}}, TextResponse("q"))
	_, err := WithRetry(mock, fastRetry(), nil).Generate(ctx, UserPrompt("", "q"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, mock.CallCount(), 1)
}

func TestRetryProvider_LogsPurpose(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{}}, TextResponse("q"))
	ctx := WithPurpose(context.Background(), PurposeQuestion)
	_, err := WithRetry(mock, fastRetry(), logger).Generate(ctx, UserPrompt("", "q"))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "retrying")
	assert.Contains(t, buf.String(), "purpose="+PurposeQuestion)
	assert.Equal(t, "mock", WithRetry(mock, fastRetry(), nil).ModelID())
}

// stallOnce blocks its first call until the request context ends and
// answers every later call.
type stallOnce struct {
	calls atomic.Int32
}

func (s *stallOnce) Generate(ctx context.Context, _ Request) (*Response, error) {
	if s.calls.Add(1) == 1 {
		<-ctx.Done()
		return nil, &ErrProviderUnavailable{Err: ctx.Err()}
	}
	return &Response{Content: []byte("What is backpressure?"), StopReason: StopEnd}, nil
}

func (s *stallOnce) ModelID() string { return "stall" }

func TestRetryProvider_AttemptTimeoutIsRetried(t *testing.T) {
	slow := &stallOnce{}
	p := WithRetry(WithTimeout(slow, 20*time.Millisecond), fastRetry(), nil)

	resp, err := p.Generate(context.Background(), UserPrompt("", "q"))
	require.NoError(t, err)
	assert.Equal(t, "What is backpressure?", resp.Text())
	assert.Equal(t, int32(2), slow.calls.Load())
}

func TestRetryProvider_CallerDeadlineStops(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	slow := &stallOnce{}
	_, err := WithRetry(slow, fastRetry(), nil).Generate(ctx, UserPrompt("", "q"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), slow.calls.Load())
}
