// Package report renders a finished interview for people: a styled
// terminal view and a printable PDF.
package report

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/intervue/internal/interview"
)

// Document is everything a rendered report shows.
type Document struct {
	Session interview.Session
	Pairs   []interview.QAPair
	Report  interview.ScoreReport
}

// Score is one labelled sub-score.
type Score struct {
	Label string
	Value int
}

// Scores lists the report's sub-scores in display order. The category
// score is labelled with the category name.
func (d Document) Scores() []Score {
	r := d.Report
	return []Score{
		{"Overall", r.OverallScore},
		{d.Session.Category.Label(), r.CategoryScore},
		{"Communication", r.CommunicationScore},
		{"Problem Solving", r.ProblemSolvingScore},
		{"Confidence", r.ConfidenceScore},
	}
}

// Evaluation is the verdict recorded for one question.
type Evaluation struct {
	Index    int
	Question string
	Answer   string
	Verdict  string
}

// Evaluations joins the transcript with the per-question verdicts,
// ordered by question index. Questions that were never reached are
// omitted.
func (d Document) Evaluations() []Evaluation {
	byIndex := make(map[int]*Evaluation)
	for _, p := range d.Pairs {
		byIndex[p.Index] = &Evaluation{Index: p.Index, Question: p.Question, Answer: p.AnswerText()}
	}
	for key, verdict := range d.Report.Evaluations {
		n, err := strconv.Atoi(strings.TrimPrefix(key, "Q"))
		if err != nil {
			continue
		}
		if e, ok := byIndex[n]; ok {
			e.Verdict = verdict
		} else {
			byIndex[n] = &Evaluation{Index: n, Verdict: verdict}
		}
	}
	out := make([]Evaluation, 0, len(byIndex))
	for _, e := range byIndex {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Evaluation) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// Title is the report heading.
func (d Document) Title() string {
	t := d.Session.Category.Label() + " Interview Report"
	if d.Session.Subtopic != "" {
		t += ": " + d.Session.Subtopic
	}
	return t
}

func (d Document) date() string {
	at := d.Report.CreatedAt
	if at.IsZero() {
		at = d.Session.CompletedAt
	}
	if at.IsZero() {
		return ""
	}
	return at.Local().Format(time.DateTime)
}

func verdictClass(v string) int {
	l := strings.ToLower(v)
	switch {
	case strings.Contains(l, "fully correct"):
		return 2
	case strings.Contains(l, "partially correct"):
		return 1
	default:
		return 0
	}
}
