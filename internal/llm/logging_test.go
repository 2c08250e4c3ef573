package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/intervue/internal/store"
)

// recordingEventRepo captures appended LLM events; every other method
// panics through the nil embedded interface.
type recordingEventRepo struct {
	store.EventRepo
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.events = append(r.events, data)
	return r.err
}

func TestLoggingProvider_RecordsSuccess(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: []byte(`"What is a goroutine?"`),
		Usage:   Usage{InputTokens: 42, OutputTokens: 7},
	})
	repo := &recordingEventRepo{}
	p := WithLogging(mock, "groq", repo, nil)

	ctx := WithSession(WithPurpose(context.Background(), PurposeQuestion), "sess-9")
	resp, err := p.Generate(ctx, UserPrompt("You are a technical interviewer.", "Ask question 1."))
	require.NoError(t, err)
	assert.Equal(t, "What is a goroutine?", resp.Text())

	require.Len(t, repo.events, 1)
	e := repo.events[0]
	assert.Equal(t, "sess-9", e.SessionID)
	assert.Equal(t, "groq", e.Provider)
	assert.Equal(t, "mock", e.Model)
	assert.Equal(t, PurposeQuestion, e.Purpose)
	assert.Equal(t, 42, e.InputTokens)
	assert.Equal(t, 7, e.OutputTokens)
	assert.True(t, e.Success)
	assert.JSONEq(t, `{"system":"You are a technical interviewer.","messages":[{"role":"user","content":"Ask question 1."}]}`, e.RequestBody)
	assert.Equal(t, `"What is a goroutine?"`, e.ResponseBody)
}

func TestLoggingProvider_RecordsFailure(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrAuth{StatusCode: 401, Err: errors.New("bad key")}})
	repo := &recordingEventRepo{}
	p := WithLogging(mock, "openai", repo, nil)

	_, err := p.Generate(WithPurpose(context.Background(), PurposeAnalysis), UserPrompt("", "analyze"))
	require.Error(t, err)

	require.Len(t, repo.events, 1)
	assert.False(t, repo.events[0].Success)
	assert.NotEmpty(t, repo.events[0].ErrorMessage)
	assert.Equal(t, PurposeAnalysis, repo.events[0].Purpose)
	assert.Empty(t, repo.events[0].SessionID)
}

func TestLoggingProvider_RepoErrorDoesNotFailRequest(t *testing.T) {
	mock := NewMockProvider(TextResponse("ok"))
	repo := &recordingEventRepo{err: errors.New("disk full")}
	p := WithLogging(mock, "mock", repo, nil)

	resp, err := p.Generate(context.Background(), UserPrompt("", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, "unknown", repo.events[0].Purpose)
}

func TestLoggingProvider_NilRepo(t *testing.T) {
	p := WithLogging(NewMockProvider(TextResponse("ok")), "mock", nil, nil)
	_, err := p.Generate(context.Background(), UserPrompt("", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}

func TestLoggingProvider_WarnsOnTruncation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mock := NewMockProvider(MockResponse{Content: []byte(`{"overallScore": 7`), StopReason: StopMaxTokens})

	req := UserPrompt("", "analyze")
	req.MaxTokens = 64
	req.Schema = &Schema{Name: "analysis"}
	repo := &recordingEventRepo{}
	_, err := WithLogging(mock, "mock", repo, logger).Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "token limit")
	assert.Contains(t, buf.String(), "max_tokens=64")
	assert.Contains(t, repo.events[0].RequestBody, `"schema":"analysis"`)
}

func TestCapture(t *testing.T) {
	assert.Equal(t, "short", capture("short"))

	long := strings.Repeat("é", maxCapturedBody)
	got := capture(long)
	assert.True(t, strings.HasSuffix(got, "[truncated]"))
	assert.LessOrEqual(t, len(got), maxCapturedBody+len("\n[truncated]"))
	assert.True(t, utf8.ValidString(got))
}
