package turn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/intervue/internal/llm"
)

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		complete   bool
	}{
		{"too short", "Yes I", false},
		{"punctuated", "I used goroutines there.", true},
		{"natural ending", "That was the hardest part I think", true},
		{"long without punctuation", "we split the monolith into services over about two quarters", true},
		{"short without ending", "we split the monolith", false},
		{"trailing filler", "I handled it by talking to the team and um", false},
		{"filler but punctuated", "I would say it went well.", true},
		{"filler phrase", "it was mostly about scaling you know", false},
		{"substring is not a filler", "we spent weeks on the legacy system to really understand", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := heuristic(tt.transcript)
			assert.Equal(t, tt.complete, j.IsComplete)
			assert.True(t, j.Heuristic)
			if tt.complete {
				assert.Equal(t, 0.7, j.Confidence)
			} else {
				assert.Equal(t, 0.3, j.Confidence)
			}
		})
	}
}

func TestHeuristicNeverClearsDefaultThreshold(t *testing.T) {
	j := heuristic("This is a perfectly complete sentence.")
	assert.True(t, j.IsComplete)
	assert.LessOrEqual(t, j.Confidence, DefaultConfig().CompleteThreshold)
}

func TestLLMJudge(t *testing.T) {
	mock := llm.NewMockProvider(llm.JSONResponse(map[string]any{
		"isComplete": true,
		"confidence": 0.91,
		"reasoning":  "complete thought",
	}))
	j, err := NewLLMJudge(mock, nil).Judge(context.Background(), "What is a mutex?", "A lock for shared state.")
	require.NoError(t, err)

	assert.True(t, j.IsComplete)
	assert.InDelta(t, 0.91, j.Confidence, 1e-9)
	assert.Equal(t, "A lock for shared state.", j.Transcript)

	req := mock.LastRequest()
	assert.Equal(t, JudgmentSchema, req.Schema)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "What is a mutex?")
	assert.Contains(t, req.Messages[0].Content, "A lock for shared state.")
}

func TestLLMJudgeClampsConfidence(t *testing.T) {
	mock := llm.NewMockProvider(llm.JSONResponse(map[string]any{"isComplete": true, "confidence": 7, "reasoning": ""}))
	j, err := NewLLMJudge(mock, nil).Judge(context.Background(), "", "done now thanks")
	require.NoError(t, err)
	assert.Equal(t, 1.0, j.Confidence)
}

func TestLLMJudgeInvalidJSON(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("sure, they are done"))
	_, err := NewLLMJudge(mock, nil).Judge(context.Background(), "q", "a")
	var inv *llm.ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestFallbackJudge(t *testing.T) {
	failing := judgeFunc(func(context.Context, string, string) (Judgment, error) {
		return Judgment{}, &llm.ErrProviderUnavailable{Err: errors.New("down")}
	})
	j, err := FallbackJudge{Primary: failing}.Judge(context.Background(), "q", "I used channels for that.")
	require.NoError(t, err)
	assert.True(t, j.Heuristic)
	assert.True(t, j.IsComplete)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := judgeFunc(func(ctx context.Context, _, _ string) (Judgment, error) { return Judgment{}, ctx.Err() })
	_, err = FallbackJudge{Primary: cancelled}.Judge(ctx, "q", "a")
	assert.ErrorIs(t, err, context.Canceled)

	j, err = FallbackJudge{Primary: alwaysComplete()}.Judge(context.Background(), "q", "a b c d e")
	require.NoError(t, err)
	assert.False(t, j.Heuristic)
}
