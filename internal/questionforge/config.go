package questionforge

import (
	"time"

	"github.com/abhisek/intervue/internal/llm"
)

// FallbackQuestion is served when no novel question could be produced.
const FallbackQuestion = "Tell me about a challenging situation you faced and how you approached solving it."

// Config controls the behavior of the Forge.
type Config struct {
	// Validators run in order on every normalized question. The first
	// failure discards the question and consumes a novelty attempt.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxPriorQuestions caps how many prior pairs are quoted in the prompt.
	MaxPriorQuestions int

	// Transport is the retry policy around each oracle call.
	Transport llm.RetryConfig

	// NoveltyAttempts bounds how many questions may be generated before
	// giving up on novelty.
	NoveltyAttempts int

	// NoveltyWait is the pause between novelty attempts.
	NoveltyWait time.Duration

	// Fallback overrides FallbackQuestion when set.
	Fallback string
}

// DefaultConfig returns a Config with the standard validator chain and
// recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{MinLength: 10, MaxLength: 4000},
		},
		MaxTokens:         1024,
		Temperature:       0.8,
		MaxPriorQuestions: 10,
		Transport:         llm.DefaultRetryConfig(),
		NoveltyAttempts:   6,
	}
}

func (c Config) fallback() string {
	if c.Fallback != "" {
		return c.Fallback
	}
	return FallbackQuestion
}
