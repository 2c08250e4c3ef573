package session

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
)

func TestBuild_Defaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess, err := Plan{CandidateID: " cand-1 ", Category: "DSA"}.Build("s1", now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sess.CandidateID != "cand-1" {
		t.Errorf("CandidateID = %q", sess.CandidateID)
	}
	if sess.Category != interview.CategoryDSA {
		t.Errorf("Category = %q", sess.Category)
	}
	if sess.Difficulty != interview.DifficultyIntermediate {
		t.Errorf("Difficulty = %q", sess.Difficulty)
	}
	if sess.TotalQuestions != DefaultQuestions {
		t.Errorf("TotalQuestions = %d, want %d", sess.TotalQuestions, DefaultQuestions)
	}
	if sess.Duration != DefaultSessionDuration {
		t.Errorf("Duration = %s", sess.Duration)
	}
	if sess.Status != interview.StatusPending || !sess.CreatedAt.Equal(now) {
		t.Errorf("Status = %q CreatedAt = %s", sess.Status, sess.CreatedAt)
	}
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"no candidate", Plan{Category: interview.CategoryHR}},
		{"unknown category", Plan{CandidateID: "c", Category: "poetry"}},
		{"unknown difficulty", Plan{CandidateID: "c", Category: interview.CategoryHR, Difficulty: "godlike"}},
		{"too many questions", Plan{CandidateID: "c", Category: interview.CategoryHR, Questions: MaxQuestions + 1}},
		{"negative questions", Plan{CandidateID: "c", Category: interview.CategoryHR, Questions: -1}},
		{"negative duration", Plan{CandidateID: "c", Category: interview.CategoryHR, Duration: -time.Minute}},
		{"too long", Plan{CandidateID: "c", Category: interview.CategoryHR, Duration: 3 * time.Hour}},
		{"custom without scenario", Plan{CandidateID: "c", Category: interview.CategoryCustom}},
		{"custom blank scenario", Plan{CandidateID: "c", Category: interview.CategoryCustom, Scenario: &questionforge.Scenario{Description: "  "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.plan.Build("s", time.Now())
			if !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("err = %v, want ErrInvalidPlan", err)
			}
		})
	}
}

func TestBuild_Custom(t *testing.T) {
	plan := Plan{
		CandidateID: "c",
		Category:    interview.CategoryCustom,
		Questions:   3,
		Duration:    500 * time.Millisecond,
		Scenario:    &questionforge.Scenario{Description: "Pitch a product to a skeptical investor."},
		Profile:     interview.Profile{Skills: []string{"sales", " ", ""}},
	}
	sess, err := plan.Build("s", time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sess.Duration != time.Second {
		t.Errorf("Duration = %s, want the 1s minimum", sess.Duration)
	}
	if len(sess.Profile.Skills) != 1 {
		t.Errorf("Skills = %q", sess.Profile.Skills)
	}
}

func TestProgressOf(t *testing.T) {
	pairs := []interview.QAPair{
		{Index: 1, Answer: "yes"},
		{Index: 2, Answer: interview.SkipMarker, Skipped: true},
		{Index: 3, Answer: "  "},
	}
	p := ProgressOf(5, pairs)
	want := Progress{Total: 5, Answered: 1, Skipped: 2, Remaining: 2}
	if p != want {
		t.Errorf("ProgressOf = %+v, want %+v", p, want)
	}
	if got := p.Fraction(); got != 0.6 {
		t.Errorf("Fraction = %v", got)
	}
	if (Progress{}).Fraction() != 0 {
		t.Error("empty progress should be 0")
	}
}
