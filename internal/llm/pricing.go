package llm

import (
	"regexp"
	"strings"
)

// ModelCost is USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost returns the USD cost of one call.
func (c ModelCost) Cost(u Usage) float64 {
	return float64(u.InputTokens)*c.InputPerMTok/1_000_000 +
		float64(u.OutputTokens)*c.OutputPerMTok/1_000_000
}

var snapshotSuffix = regexp.MustCompile(`-(\d{8}|\d{4}-\d{2}-\d{2}|latest|preview(-[\w-]+)?)$`)

// LookupCost returns pricing for a model ID. OpenRouter vendor prefixes
// and snapshot suffixes are stripped before the lookup, so
// "anthropic/claude-haiku-4-5-20251001" resolves to "claude-haiku-4-5".
func LookupCost(modelID string) (ModelCost, bool) {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if c, ok := modelCosts[id]; ok {
		return c, true
	}
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
		if c, ok := modelCosts[id]; ok {
			return c, true
		}
	}
	c, ok := modelCosts[snapshotSuffix.ReplaceAllString(id, "")]
	return c, ok
}

// modelCosts covers the models reachable through the configured aliases
// plus a few common direct IDs. Prices from the vendors' public pages.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4-5": {3, 15},
	"claude-sonnet-4":   {3, 15},
	"claude-opus-4-1":   {15, 75},
	"claude-3-5-haiku":  {0.8, 4},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},
	"gpt-5":        {1.25, 10},
	"gpt-5-mini":   {0.25, 2},
	"gpt-5-nano":   {0.05, 0.4},

	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},

	"llama-3.3-70b-versatile": {0.59, 0.79},
	"llama-3.1-8b-instant":    {0.05, 0.08},
}
