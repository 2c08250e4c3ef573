package session

import (
	"time"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
)

// DefaultSessionDuration is the standard interview length.
const DefaultSessionDuration = 15 * time.Minute

// MaxSessionDuration caps the time budget of one interview.
const MaxSessionDuration = 2 * time.Hour

// DefaultQuestions is the number of questions asked when a plan leaves it
// unset.
const DefaultQuestions = 5

// MaxQuestions caps the number of questions of one interview.
const MaxQuestions = 20

// Plan is a request to start an interview.
type Plan struct {
	CandidateID string               `json:"candidate_id"`
	Category    interview.Category   `json:"category"`
	Subtopic    string               `json:"subtopic,omitempty"`
	Difficulty  interview.Difficulty `json:"difficulty,omitempty"`

	// Questions defaults to DefaultQuestions.
	Questions int `json:"questions,omitempty"`

	// Duration defaults to DefaultSessionDuration.
	Duration time.Duration `json:"duration,omitempty"`

	Profile interview.Profile `json:"profile,omitempty"`

	// Scenario is required for custom interviews and ignored otherwise.
	Scenario *questionforge.Scenario `json:"scenario,omitempty"`
}
