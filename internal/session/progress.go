package session

import "github.com/abhisek/intervue/internal/interview"

// Progress counts the recorded pairs of a session.
type Progress struct {
	Total     int `json:"total"`
	Answered  int `json:"answered"`
	Skipped   int `json:"skipped"`
	Remaining int `json:"remaining"`
}

// ProgressOf tallies pairs against the session's question count.
func ProgressOf(total int, pairs []interview.QAPair) Progress {
	p := Progress{Total: total}
	for _, pair := range pairs {
		if pair.Answered() {
			p.Answered++
		} else {
			p.Skipped++
		}
	}
	p.Remaining = max(total-p.Answered-p.Skipped, 0)
	return p
}

// Fraction returns the share of questions already recorded.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Answered+p.Skipped) / float64(p.Total)
}
