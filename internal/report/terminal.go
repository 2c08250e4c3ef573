package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/intervue/internal/ui/components"
	"github.com/abhisek/intervue/internal/ui/theme"
)

const minWidth = 40

// Render draws the report for a terminal of the given width.
func Render(d Document, width int) string {
	if width < minWidth {
		width = minWidth
	}
	inner := width - 8
	r := d.Report

	var b strings.Builder
	b.WriteString(theme.Title.Render(d.Title()))
	b.WriteString("\n")
	meta := []string{string(d.Session.Difficulty), fmt.Sprintf("session %s", d.Session.ID)}
	if date := d.date(); date != "" {
		meta = append(meta, date)
	}
	b.WriteString(theme.Subtitle.Render(strings.Join(meta, " · ")))
	b.WriteString("\n\n")

	for _, s := range d.Scores() {
		b.WriteString(components.NewScoreBar(s.Label, s.Value, 15, inner).View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(theme.Body.Render(fmt.Sprintf(
		"Answered %d of %d  ·  skipped %d  ·  not reached %d",
		r.Answered, r.TotalQuestions, r.Skipped, r.NotAnswered)))
	b.WriteString("\n")
	if d.Session.Category.Verdict() {
		b.WriteString(theme.Body.Render(fmt.Sprintf("Correct %s  ·  skip penalty %d", r.CorrectTally(), r.SkipPenalty)))
		b.WriteString("\n")
	}

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n")
		b.WriteString(theme.Heading.Render(title))
		b.WriteString("\n")
		for _, it := range items {
			b.WriteString(lipgloss.NewStyle().Width(inner).Render("• " + it))
			b.WriteString("\n")
		}
	}
	section("Strengths", r.Strengths)
	section("Improvements", r.Improvements)

	if r.Feedback != "" {
		b.WriteString("\n")
		b.WriteString(theme.Heading.Render("Feedback"))
		b.WriteString("\n")
		b.WriteString(theme.Body.Width(inner).Render(r.Feedback))
		b.WriteString("\n")
	}

	if evals := d.Evaluations(); len(evals) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Heading.Render("Questions"))
		b.WriteString("\n")
		for _, e := range evals {
			if e.Question != "" {
				b.WriteString(theme.Question.Width(inner).Render(fmt.Sprintf("Q%d. %s", e.Index, e.Question)))
				b.WriteString("\n")
				b.WriteString(theme.Hint.Width(inner).Render("A: " + e.Answer))
				b.WriteString("\n")
			}
			if e.Verdict != "" {
				b.WriteString(verdictStyle(e.Verdict).Render(fmt.Sprintf("Q%d: %s", e.Index, e.Verdict)))
				b.WriteString("\n")
			}
		}
	}

	return theme.Card.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func verdictStyle(v string) lipgloss.Style {
	switch verdictClass(v) {
	case 2:
		return theme.Correct
	case 1:
		return theme.Partial
	default:
		return theme.Incorrect
	}
}
