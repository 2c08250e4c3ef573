package components

import (
	"strings"
	"testing"
)

func TestFilled(t *testing.T) {
	tests := []struct {
		score, width, want int
	}{
		{0, 20, 0},
		{50, 20, 10},
		{100, 20, 20},
		{130, 20, 20},
		{-5, 20, 0},
	}
	for _, tt := range tests {
		if got := Filled(tt.score, tt.width); got != tt.want {
			t.Errorf("Filled(%d, %d) = %d, want %d", tt.score, tt.width, got, tt.want)
		}
	}
}

func TestScoreBarView(t *testing.T) {
	out := NewScoreBar("Overall", 72, 14, 50).View()
	if !strings.Contains(out, "Overall") {
		t.Errorf("missing label: %q", out)
	}
	if !strings.Contains(out, "72") {
		t.Errorf("missing score: %q", out)
	}
}
