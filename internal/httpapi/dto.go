package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/session"
	"github.com/abhisek/intervue/internal/turn"
)

// Duration accepts either a Go duration string ("20m") or a number of
// minutes.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if mins, err := strconv.ParseFloat(s, 64); err == nil {
			*d = Duration(time.Duration(mins * float64(time.Minute)))
			return nil
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var mins float64
	if err := json.Unmarshal(b, &mins); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(time.Duration(mins * float64(time.Minute)))
	return nil
}

// startRequest is the body of POST /api/sessions.
type startRequest struct {
	CandidateID string                  `json:"candidate_id" binding:"required"`
	Category    string                  `json:"category" binding:"required"`
	Subtopic    string                  `json:"subtopic"`
	Difficulty  string                  `json:"difficulty"`
	Questions   int                     `json:"questions"`
	Duration    Duration                `json:"duration"`
	Profile     interview.Profile       `json:"profile"`
	Scenario    *questionforge.Scenario `json:"scenario"`
}

func (r startRequest) plan(def Defaults) (session.Plan, error) {
	category, err := interview.ParseCategory(r.Category)
	if err != nil {
		return session.Plan{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	var difficulty interview.Difficulty
	if r.Difficulty == "" {
		difficulty = def.Difficulty
	} else if difficulty, err = interview.ParseDifficulty(r.Difficulty); err != nil {
		return session.Plan{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	p := session.Plan{
		CandidateID: r.CandidateID,
		Category:    category,
		Subtopic:    r.Subtopic,
		Difficulty:  difficulty,
		Questions:   r.Questions,
		Duration:    time.Duration(r.Duration),
		Profile:     r.Profile,
		Scenario:    r.Scenario,
	}
	if p.Questions == 0 {
		p.Questions = def.Questions
	}
	if p.Duration == 0 {
		p.Duration = def.Duration
	}
	return p, nil
}

// answerRequest is the body of POST /api/sessions/:id/answers.
type answerRequest struct {
	Text string `json:"text"`
	Skip bool   `json:"skip"`
}

func (r answerRequest) answer() turn.Answer {
	return turn.Answer{Text: r.Text, Skip: r.Skip}
}

// transcriptRequest carries speech text for the audio routes.
type transcriptRequest struct {
	Text string `json:"text"`
}
