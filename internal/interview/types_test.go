package interview

import (
	"errors"
	"fmt"
	"testing"
)

func TestQAPairAnswered(t *testing.T) {
	tests := []struct {
		name string
		pair QAPair
		want bool
	}{
		{"text", QAPair{Answer: "a hash map"}, true},
		{"empty", QAPair{Answer: ""}, false},
		{"whitespace", QAPair{Answer: "   \n"}, false},
		{"skipped flag", QAPair{Answer: "ignored", Skipped: true}, false},
		{"skip marker", QAPair{Answer: SkipMarker}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pair.Answered(); got != tt.want {
				t.Errorf("Answered() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQAPairAnswerText(t *testing.T) {
	if got := (QAPair{Skipped: true}).AnswerText(); got != SkipMarker {
		t.Errorf("AnswerText() = %q, want %q", got, SkipMarker)
	}
	if got := (QAPair{Answer: "binary search"}).AnswerText(); got != "binary search" {
		t.Errorf("AnswerText() = %q", got)
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" DSA ")
	if err != nil {
		t.Fatalf("ParseCategory: %v", err)
	}
	if c != CategoryDSA || !c.Verdict() {
		t.Errorf("got %q verdict=%v", c, c.Verdict())
	}
	if CategoryHR.Verdict() {
		t.Error("hr should be free-form")
	}
	if _, err := ParseCategory("poetry"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("")
	if err != nil || d != DifficultyIntermediate {
		t.Errorf("empty: got %q, %v", d, err)
	}
	d, err = ParseDifficulty("Pro")
	if err != nil || d != DifficultyPro {
		t.Errorf("Pro: got %q, %v", d, err)
	}
	if _, err := ParseDifficulty("godlike"); err == nil {
		t.Error("expected error")
	}
}

func TestCorrectTally(t *testing.T) {
	r := ScoreReport{CorrectCount: 2, TotalQuestions: 5}
	if got := r.CorrectTally(); got != "2/5" {
		t.Errorf("CorrectTally() = %q", got)
	}
}

func TestErrors(t *testing.T) {
	base := errors.New("disk full")
	err := fmt.Errorf("submit: %w", &PersistenceError{Op: "append turn", Err: base})
	if !errors.Is(err, base) {
		t.Error("PersistenceError should unwrap")
	}
	if IsStateError(err) {
		t.Error("not a state error")
	}
	if !IsStateError(fmt.Errorf("x: %w", &SessionStateError{Op: "submit", State: "idle"})) {
		t.Error("expected state error")
	}
}
