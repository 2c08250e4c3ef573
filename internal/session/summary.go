package session

import (
	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/turn"
)

// Summary is the externally visible state of a session.
type Summary struct {
	Session interview.Session `json:"session"`

	// Live is set while a controller is attached.
	Live bool `json:"live"`

	State    turn.State           `json:"state,omitempty"`
	Index    int                  `json:"index"`
	Question string               `json:"question,omitempty"`
	Source   questionforge.Source `json:"source,omitempty"`
	Partial  string               `json:"partial,omitempty"`

	Halted    bool   `json:"halted,omitempty"`
	HaltError string `json:"halt_error,omitempty"`

	Reason   turn.Reason        `json:"reason,omitempty"`
	Progress Progress           `json:"progress"`
	Pairs    []interview.QAPair `json:"pairs"`

	Report        *interview.ScoreReport `json:"report,omitempty"`
	AnalysisError string                 `json:"analysis_error,omitempty"`
}

func liveSummary(l *live, snap turn.Snapshot) *Summary {
	s := &Summary{
		Session:   l.session,
		Live:      true,
		State:     snap.State,
		Index:     snap.Index,
		Question:  snap.Question,
		Source:    snap.Source,
		Partial:   snap.Partial,
		Halted:    snap.Halted,
		HaltError: snap.HaltError,
		Reason:    snap.Reason,
		Progress:  ProgressOf(l.session.TotalQuestions, snap.Pairs),
		Pairs:     snap.Pairs,
	}
	s.Session.CurrentIndex = snap.Index
	if snap.State == turn.StateComplete {
		s.Session.Status = interview.StatusCompleted
	} else if snap.State != turn.StateIdle || snap.Index > 0 {
		s.Session.Status = interview.StatusActive
	}
	report, err := l.outcome()
	s.Report = report
	if err != nil {
		s.AnalysisError = err.Error()
	}
	return s
}

func storedSummary(sess *interview.Session, pairs []interview.QAPair, report *interview.ScoreReport) *Summary {
	if pairs == nil {
		pairs = []interview.QAPair{}
	}
	return &Summary{
		Session:  *sess,
		Index:    sess.CurrentIndex,
		Progress: ProgressOf(sess.TotalQuestions, pairs),
		Pairs:    pairs,
		Report:   report,
	}
}
