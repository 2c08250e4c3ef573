package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatStub serves canned chat completions and records the last request.
type chatStub struct {
	status  int
	content string
	refusal string
	finish  string
	last    openai.ChatCompletionRequest
}

func (s *chatStub) provider(t *testing.T, strict bool) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &s.last))

		w.Header().Set("Content-Type", "application/json")
		if s.status != 0 {
			w.WriteHeader(s.status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"type": "error", "message": http.StatusText(s.status)},
			})
			return
		}
		finish := s.finish
		if finish == "" {
			finish = "stop"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": s.content, "refusal": s.refusal},
				"finish_reason": finish,
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
		})
	}))
	t.Cleanup(server.Close)

	p := newOpenAICompatible("test-key", server.URL+"/v1", "gpt-4o-mini")
	p.strictSchema = strict
	return p
}

func judgeRequest() Request {
	req := UserPrompt("You detect when someone has finished speaking.", "Transcript: I would use a mutex.")
	req.Schema = completionSchema()
	req.MaxTokens = 200
	return req
}

func TestOpenAIProvider_StrictSchema(t *testing.T) {
	stub := &chatStub{content: `{"isComplete":true,"confidence":0.91}`}
	resp, err := stub.provider(t, true).Generate(context.Background(), judgeRequest())
	require.NoError(t, err)

	assert.JSONEq(t, `{"isComplete":true,"confidence":0.91}`, string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 25, TotalTokens: 65}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)

	require.NotNil(t, stub.last.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, stub.last.ResponseFormat.Type)
	assert.Equal(t, "You detect when someone has finished speaking.", stub.last.Messages[0].Content)
}

func TestOpenAIProvider_CompatibleSchemaInPrompt(t *testing.T) {
	stub := &chatStub{content: "Here you go:\n{\"isComplete\":false,\"confidence\":0.3}"}
	resp, err := stub.provider(t, false).Generate(context.Background(), judgeRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"isComplete":false,"confidence":0.3}`, string(resp.Content))

	require.NotNil(t, stub.last.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, stub.last.ResponseFormat.Type)
	system := stub.last.Messages[0]
	assert.Equal(t, openai.ChatMessageRoleSystem, system.Role)
	assert.Contains(t, system.Content, "You detect when someone has finished speaking.")
	assert.Contains(t, system.Content, `"isComplete"`)
}

func TestOpenAIProvider_PlainQuestion(t *testing.T) {
	stub := &chatStub{content: "  What is a goroutine leak?  ", finish: "length"}
	resp, err := stub.provider(t, true).Generate(context.Background(), UserPrompt("", "Ask one question."))
	require.NoError(t, err)
	assert.Equal(t, "What is a goroutine leak?", resp.Text())
	assert.True(t, resp.Truncated())
	assert.Nil(t, stub.last.ResponseFormat)
	require.Len(t, stub.last.Messages, 1)
}

func TestOpenAIProvider_EmptyReplies(t *testing.T) {
	for name, stub := range map[string]*chatStub{
		"filtered": {finish: "content_filter"},
		"refusal":  {refusal: "I can't help with that."},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := stub.provider(t, true).Generate(context.Background(), UserPrompt("", "q"))
			var inv *ErrInvalidResponse
			assert.ErrorAs(t, err, &inv)
		})
	}
}

func TestOpenAIProvider_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rl *ErrRateLimit
			assert.ErrorAs(t, err, &rl)
		}},
		{http.StatusInternalServerError, func(t *testing.T, err error) {
			var un *ErrProviderUnavailable
			assert.ErrorAs(t, err, &un)
		}},
		{http.StatusBadRequest, func(t *testing.T, err error) {
			var val *ErrValidation
			assert.ErrorAs(t, err, &val)
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			var auth *ErrAuth
			assert.ErrorAs(t, err, &auth)
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			stub := &chatStub{status: tt.status}
			_, err := stub.provider(t, true).Generate(context.Background(), UserPrompt("", "q"))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCompatibleConstructors(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "fast"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
	assert.True(t, p.strictSchema)

	g, err := NewGroqProvider(GroqConfig{APIKey: "gsk-test", Model: "llama-70b"})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", g.ModelID())
	assert.False(t, g.strictSchema)

	or, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or", Model: "anthropic/claude-3-haiku"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-haiku", or.ModelID())
	assert.False(t, or.strictSchema)

	_, err = NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o"})
	assert.Error(t, err)
	_, err = NewGroqProvider(GroqConfig{Model: "llama-70b"})
	assert.Error(t, err)
	_, err = NewOpenRouterProvider(OpenRouterConfig{})
	assert.Error(t, err)
}
