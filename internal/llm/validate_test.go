package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionSchema() *Schema {
	return &Schema{
		Name: "test-completion",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"isComplete": map[string]any{"type": "boolean"},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"tone":       map[string]any{"type": "string", "enum": []any{"calm", "hesitant"}},
				"keywords": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"isComplete", "confidence"},
		},
	}
}

func TestStructuredContent(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"bare object", `{"isComplete":true,"confidence":0.9}`, `{"isComplete":true,"confidence":0.9}`, true},
		{"fenced", "```json\n{\"isComplete\":false,\"confidence\":0.4}\n```", `{"isComplete":false,"confidence":0.4}`, true},
		{"prose around", `Sure! {"isComplete":true,"confidence":1} Hope that helps.`, `{"isComplete":true,"confidence":1}`, true},
		{"optional fields", `{"isComplete":true,"confidence":0.5,"tone":"calm","keywords":["ctx"]}`, `{"isComplete":true,"confidence":0.5,"tone":"calm","keywords":["ctx"]}`, true},
		{"missing required", `{"isComplete":true}`, "", false},
		{"out of range", `{"isComplete":true,"confidence":1.4}`, "", false},
		{"bad enum", `{"isComplete":true,"confidence":0.2,"tone":"angry"}`, "", false},
		{"bad item type", `{"isComplete":true,"confidence":0.2,"keywords":[1,2]}`, "", false},
		{"not json", `{not json}`, "", false},
		{"empty", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := structuredContent(completionSchema(), json.RawMessage(tt.raw))
			if !tt.valid {
				var invErr *ErrInvalidResponse
				require.ErrorAs(t, err, &invErr)
				assert.Equal(t, tt.raw, string(invErr.Content))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestStructuredContent_NilSchemaPassesThrough(t *testing.T) {
	raw := json.RawMessage("Tell me about a time you disagreed with a teammate.")
	got, err := structuredContent(nil, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestOutermostObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, string(outermostObject([]byte(" x {\"a\":{\"b\":1}} y "))))
	assert.Equal(t, "no braces", string(outermostObject([]byte("  no braces  "))))
	assert.Equal(t, "} {", string(outermostObject([]byte("} {"))))
}
