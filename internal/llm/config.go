package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "groq", "mock"
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Groq       GroqConfig       `yaml:"groq"`

	// Timeout bounds a single oracle request. Default: 60s.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // Default: "claude-haiku"
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "gpt-4o-mini"
	BaseURL string `yaml:"base_url"` // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "google/gemini-2.0-flash-exp"
	BaseURL string `yaml:"base_url"` // Default: "https://openrouter.ai/api/v1"
}

// GroqConfig holds Groq-specific configuration.
type GroqConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // Default: "llama-70b"
	BaseURL string `yaml:"base_url"` // Default: "https://api.groq.com/openai/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultRetryConfig is the transport retry used for question generation:
// five attempts starting at two seconds and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		InitialWait: 2 * time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "groq",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Groq: GroqConfig{
			Model: "llama-70b",
		},
		Timeout: 60 * time.Second,
	}
}

// ApplyEnv overrides fields from INTERVUE_* environment variables.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Provider, "INTERVUE_LLM_PROVIDER")

	setString(&c.Anthropic.APIKey, "INTERVUE_ANTHROPIC_API_KEY")
	setString(&c.Anthropic.Model, "INTERVUE_ANTHROPIC_MODEL")

	setString(&c.OpenAI.APIKey, "INTERVUE_OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "INTERVUE_OPENAI_MODEL")
	setString(&c.OpenAI.BaseURL, "INTERVUE_OPENAI_BASE_URL")

	setString(&c.Gemini.APIKey, "INTERVUE_GEMINI_API_KEY")
	setString(&c.Gemini.Model, "INTERVUE_GEMINI_MODEL")

	setString(&c.OpenRouter.APIKey, "INTERVUE_OPENROUTER_API_KEY")
	setString(&c.OpenRouter.Model, "INTERVUE_OPENROUTER_MODEL")

	setString(&c.Groq.APIKey, "INTERVUE_GROQ_API_KEY")
	setString(&c.Groq.Model, "INTERVUE_GROQ_MODEL")

	if v := os.Getenv("INTERVUE_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			c.Timeout = time.Duration(secs) * time.Second
		}
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// DiscoverConfig probes standard API key env vars in priority order
// (Groq → Gemini → OpenAI → Anthropic → OpenRouter) and returns a Config
// for the first provider whose key is found. Returns (Config{}, false) if
// none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GROQ_API_KEY"); k != "" {
		cfg.Provider = "groq"
		cfg.Groq.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// HasKey reports whether the selected provider has an API key configured.
func (c Config) HasKey() bool {
	switch c.Provider {
	case "anthropic":
		return c.Anthropic.APIKey != ""
	case "openai":
		return c.OpenAI.APIKey != ""
	case "gemini":
		return c.Gemini.APIKey != ""
	case "openrouter":
		return c.OpenRouter.APIKey != ""
	case "groq":
		return c.Groq.APIKey != ""
	case "mock":
		return true
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "gemini", "openrouter", "groq":
		if !c.HasKey() {
			return fmt.Errorf("an API key is required for the %s provider (set INTERVUE_%s_API_KEY)",
				c.Provider, strings.ToUpper(c.Provider))
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
