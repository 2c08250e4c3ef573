package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		id     string
		want   ModelCost
		wantOK bool
	}{
		{"claude-haiku-4-5-20251001", ModelCost{1, 5}, true},
		{"anthropic/claude-sonnet-4-5", ModelCost{3, 15}, true},
		{"gpt-4o-2024-08-06", ModelCost{2.5, 10}, true},
		{"GPT-4o-mini", ModelCost{0.15, 0.6}, true},
		{"gemini-2.5-flash-preview-09-2025", ModelCost{0.3, 2.5}, true},
		{"meta-llama/llama-3.1-8b-instant", ModelCost{0.05, 0.08}, true},
		{"mock", ModelCost{}, false},
	}
	for _, tt := range tests {
		got, ok := LookupCost(tt.id)
		assert.Equal(t, tt.wantOK, ok, tt.id)
		assert.Equal(t, tt.want, got, tt.id)
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 3, OutputPerMTok: 15}
	assert.InDelta(t, 0.0105, c.Cost(Usage{InputTokens: 1000, OutputTokens: 500}), 1e-9)
	assert.Zero(t, c.Cost(Usage{}))
}
