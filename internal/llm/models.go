package llm

// Model aliases accepted in configuration. "fast" suits turn judgments,
// "default" suits question generation and analysis.
var modelAliases = map[string]map[string]string{
	"anthropic": {
		"claude-sonnet": "claude-sonnet-4-5-20250929",
		"claude-haiku":  "claude-haiku-4-5-20251001",
		"fast":          "claude-haiku-4-5-20251001",
		"default":       "claude-sonnet-4-5-20250929",
	},
	"openai": {
		"fast":    "gpt-4o-mini",
		"default": "gpt-4.1-mini",
	},
	"gemini": {
		"gemini-flash": "gemini-2.5-flash",
		"gemini-pro":   "gemini-2.5-pro",
		"fast":         "gemini-2.5-flash-lite",
		"default":      "gemini-2.5-flash",
	},
	"groq": {
		"llama-70b": "llama-3.3-70b-versatile",
		"llama-8b":  "llama-3.1-8b-instant",
		"fast":      "llama-3.1-8b-instant",
		"default":   "llama-3.3-70b-versatile",
	},
}

// ResolveModel maps an alias to the provider's model ID. Unknown names are
// returned unchanged so full model IDs can be configured directly.
func ResolveModel(provider, name string) string {
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}
