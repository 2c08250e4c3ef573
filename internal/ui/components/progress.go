package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/intervue/internal/ui/theme"
)

// ScoreBar displays a labelled horizontal bar for a 0..100 score.
type ScoreBar struct {
	Label string
	Score int

	// LabelWidth pads the label so stacked bars line up.
	LabelWidth int
	Width      int
}

// NewScoreBar creates a new score bar.
func NewScoreBar(label string, score, labelWidth, width int) ScoreBar {
	return ScoreBar{
		Label:      label,
		Score:      score,
		LabelWidth: labelWidth,
		Width:      width,
	}
}

// Filled returns how many of width cells a score fills.
func Filled(score, width int) int {
	filled := width * score / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return filled
}

// View renders the score bar.
func (b ScoreBar) View() string {
	label := b.Label
	if pad := b.LabelWidth - lipgloss.Width(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	result := theme.Body.Render(label) + "  "

	barWidth := b.Width - lipgloss.Width(result) - 6 // "  100"
	if barWidth < 4 {
		barWidth = 4
	}
	filled := Filled(b.Score, barWidth)

	result += lipgloss.NewStyle().
		Background(theme.Secondary).
		Render(strings.Repeat(" ", filled))
	result += lipgloss.NewStyle().
		Background(theme.Border).
		Render(strings.Repeat(" ", barWidth-filled))
	result += theme.ScoreColor(b.Score).Render(fmt.Sprintf("  %3d", b.Score))
	return result
}
