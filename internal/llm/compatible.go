package llm

import "fmt"

const (
	defaultGroqBaseURL       = "https://api.groq.com/openai/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// GroqProvider targets Groq's OpenAI-compatible endpoint. Its low latency
// suits turn judgments.
type GroqProvider struct {
	*OpenAIProvider
}

func NewGroqProvider(cfg GroqConfig) (*GroqProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}
	p := newOpenAICompatible(cfg.APIKey, orDefault(cfg.BaseURL, defaultGroqBaseURL), ResolveModel("groq", cfg.Model))
	return &GroqProvider{OpenAIProvider: p}, nil
}

// OpenRouterProvider targets OpenRouter. Model IDs are passed through
// unchanged ("vendor/model").
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	p := newOpenAICompatible(cfg.APIKey, orDefault(cfg.BaseURL, defaultOpenRouterBaseURL), cfg.Model)
	return &OpenRouterProvider{OpenAIProvider: p}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
