package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/intervue/internal/interview"
)

// ErrInvalidPlan is wrapped by every plan validation failure.
var ErrInvalidPlan = errors.New("invalid interview plan")

// Build validates the plan, fills in defaults and returns a pending
// session with the given id.
func (p Plan) Build(id string, now time.Time) (*interview.Session, error) {
	candidate := strings.TrimSpace(p.CandidateID)
	if candidate == "" {
		return nil, fmt.Errorf("%w: candidate id is required", ErrInvalidPlan)
	}

	category, err := interview.ParseCategory(string(p.Category))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	difficulty, err := interview.ParseDifficulty(string(p.Difficulty))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if category == interview.CategoryCustom && (p.Scenario == nil || strings.TrimSpace(p.Scenario.Description) == "") {
		return nil, fmt.Errorf("%w: custom interviews need a scenario description", ErrInvalidPlan)
	}

	questions := p.Questions
	switch {
	case questions == 0:
		questions = DefaultQuestions
	case questions < 0 || questions > MaxQuestions:
		return nil, fmt.Errorf("%w: questions must be between 1 and %d", ErrInvalidPlan, MaxQuestions)
	}

	duration := p.Duration
	switch {
	case duration == 0:
		duration = DefaultSessionDuration
	case duration < 0 || duration > MaxSessionDuration:
		return nil, fmt.Errorf("%w: duration must be between 1s and %s", ErrInvalidPlan, MaxSessionDuration)
	case duration < time.Second:
		duration = time.Second
	}

	profile := p.Profile
	profile.Skills = compact(profile.Skills)

	return &interview.Session{
		ID:             id,
		CandidateID:    candidate,
		Category:       category,
		Subtopic:       strings.TrimSpace(p.Subtopic),
		Difficulty:     difficulty,
		TotalQuestions: questions,
		Duration:       duration,
		Status:         interview.StatusPending,
		Profile:        profile,
		CreatedAt:      now,
	}, nil
}

func compact(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
