package session

import (
	"sync"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/turn"
)

// Handle identifies a live interview.
type Handle struct {
	SessionID   string `json:"session_id"`
	CandidateID string `json:"candidate_id"`
}

// live is the in-memory state of a running or just-finished session.
type live struct {
	session interview.Session
	ctrl    *turn.Controller
	events  *Broadcaster

	// resolveMu serializes scoring; report and err hold its outcome.
	resolveMu sync.Mutex
	report    *interview.ScoreReport
	err       error
}

func (l *live) handle() Handle {
	return Handle{SessionID: l.session.ID, CandidateID: l.session.CandidateID}
}

func (l *live) outcome() (*interview.ScoreReport, error) {
	l.resolveMu.Lock()
	defer l.resolveMu.Unlock()
	return l.report, l.err
}

// AudioInput receives callbacks from a speech subsystem.
type AudioInput interface {
	SpeechOnset()
	PartialTranscript(text string)
	SpeechEnd(transcript string)
	PlaybackFinished()
}

var _ AudioInput = (*turn.Controller)(nil)
