// Package session runs interviews end to end: it creates sessions from a
// Plan, drives each one with a turn controller, fans its events out to
// subscribers and scores it when it completes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/store"
	"github.com/abhisek/intervue/internal/turn"
)

// ErrActiveSession is returned when a candidate already has a live
// interview.
var ErrActiveSession = errors.New("candidate already has an active session")

// Scorer turns a finished session into a report.
type Scorer interface {
	Resolve(ctx context.Context, sess *interview.Session, pairs []interview.QAPair) (*interview.ScoreReport, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store  store.Backend
	Forge  questionforge.Generator
	Scorer Scorer

	// Judge estimates answer completeness. Nil uses turn.HeuristicJudge.
	Judge turn.Judge

	// Audio returns the local player and recorder for a session. When nil,
	// audio commands are published as events.
	Audio func(sessionID string) (turn.Player, turn.Recorder)

	Turn   turn.Config
	Logger *slog.Logger

	// NewID defaults to random UUIDs.
	NewID func() string
	Now   func() time.Time
}

// Service is the application API of the interview system.
type Service struct {
	deps   Deps
	logger *slog.Logger

	mu     sync.Mutex
	live   map[string]*live
	active map[string]string // candidate id -> session id
	wg     sync.WaitGroup
	quit   chan struct{}
	closed sync.Once
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger.With("component", "session"),
		live:   make(map[string]*live),
		active: make(map[string]string),
		quit:   make(chan struct{}),
	}
}

// StartSession creates a session from plan and serves its first question.
func (s *Service) StartSession(ctx context.Context, plan Plan) (Handle, error) {
	sess, err := plan.Build(s.deps.NewID(), s.deps.Now().UTC())
	if err != nil {
		return Handle{}, err
	}
	if err := s.reserve(sess.CandidateID, sess.ID); err != nil {
		return Handle{}, err
	}

	if err := s.deps.Store.SessionRepo().Create(ctx, sess); err != nil {
		s.release(sess.CandidateID, sess.ID)
		return Handle{}, &interview.PersistenceError{Op: "create session", Err: err}
	}

	l, err := s.launch(ctx, *sess, nil, plan.Scenario)
	if err != nil {
		s.release(sess.CandidateID, sess.ID)
		return Handle{}, err
	}
	s.logger.InfoContext(ctx, "session started",
		"session_id", sess.ID,
		"candidate_id", sess.CandidateID,
		"category", sess.Category,
		"questions", sess.TotalQuestions,
		"duration", sess.Duration)
	return l.handle(), nil
}

// Resume reattaches a controller to an active session found in the store,
// for example after a restart. The remaining time budget is what is left
// of the original duration.
func (s *Service) Resume(ctx context.Context, id string) (Handle, error) {
	if l, ok := s.lookup(id); ok {
		return l.handle(), nil
	}
	sess, err := s.deps.Store.SessionRepo().Get(ctx, id)
	if err != nil {
		return Handle{}, fmt.Errorf("resume %s: %w", id, err)
	}
	if sess.Status == interview.StatusCompleted {
		return Handle{}, &interview.SessionStateError{Op: "resume", State: string(sess.Status)}
	}
	pairs, err := s.deps.Store.TurnRepo().List(ctx, id)
	if err != nil {
		return Handle{}, &interview.PersistenceError{Op: "list turns", Err: err}
	}

	if sess.Duration > 0 && !sess.StartedAt.IsZero() {
		remaining := sess.Duration - s.deps.Now().Sub(sess.StartedAt)
		if remaining <= 0 {
			s.logger.InfoContext(ctx, "session expired while detached, scoring", "session_id", id)
			if _, err := s.score(ctx, sess, pairs); err != nil {
				return Handle{}, err
			}
			return Handle{}, &interview.SessionStateError{Op: "resume", State: string(interview.StatusCompleted)}
		}
		sess.Duration = remaining
	}

	if err := s.reserve(sess.CandidateID, sess.ID); err != nil {
		return Handle{}, err
	}
	l, err := s.launch(ctx, *sess, pairs, nil)
	if err != nil {
		s.release(sess.CandidateID, sess.ID)
		return Handle{}, err
	}
	s.logger.InfoContext(ctx, "session resumed", "session_id", id, "recorded", len(pairs))
	return l.handle(), nil
}

func (s *Service) launch(ctx context.Context, sess interview.Session, prior []interview.QAPair, scenario *questionforge.Scenario) (*live, error) {
	l := &live{session: sess, events: NewBroadcaster()}
	deps := turn.Deps{
		Forge:    s.deps.Forge,
		Sessions: s.deps.Store.SessionRepo(),
		Turns:    s.deps.Store.TurnRepo(),
		Events:   s.deps.Store.EventRepo(),
		Judge:    s.deps.Judge,
		Sink:     l.events.Publish,
		Logger:   s.deps.Logger,
		Scenario: scenario,
	}
	if s.deps.Audio != nil {
		deps.Player, deps.Recorder = s.deps.Audio(sess.ID)
	}
	l.ctrl = turn.New(sess, prior, deps, s.deps.Turn)

	if err := l.ctrl.Start(ctx); err != nil {
		l.ctrl.Close()
		l.events.Close()
		return nil, fmt.Errorf("start session %s: %w", sess.ID, err)
	}

	s.mu.Lock()
	s.live[sess.ID] = l
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watch(l)
	return l, nil
}

// watch scores the session as soon as its controller completes, whether
// it finished, expired or was ended.
func (s *Service) watch(l *live) {
	defer s.wg.Done()
	select {
	case <-l.ctrl.Done():
	case <-s.quit:
		return
	}
	s.release(l.session.CandidateID, l.session.ID)
	if _, err := s.resolve(context.Background(), l); err != nil {
		s.logger.Warn("scoring failed", "session_id", l.session.ID, "error", err)
	}
}

// SubmitAnswer records a typed answer or a skip for the current question.
func (s *Service) SubmitAnswer(ctx context.Context, id string, a turn.Answer) error {
	l, err := s.get(id)
	if err != nil {
		return err
	}
	return l.ctrl.SubmitAnswer(ctx, a)
}

// Retry resumes a session halted by a storage or oracle failure.
func (s *Service) Retry(ctx context.Context, id string) error {
	l, err := s.get(id)
	if err != nil {
		return err
	}
	return l.ctrl.Retry(ctx)
}

// EndSession completes the session and returns its report. Ending an
// already-scored session returns the stored report. When a previous
// scoring attempt failed, it is attempted again.
func (s *Service) EndSession(ctx context.Context, id string) (*interview.ScoreReport, error) {
	if l, ok := s.lookup(id); ok {
		if err := l.ctrl.End(ctx); err != nil && !errors.Is(err, turn.ErrClosed) {
			return nil, err
		}
		return s.resolve(ctx, l)
	}

	report, err := s.deps.Store.ReportRepo().Get(ctx, id)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, interview.ErrNotFound) {
		return nil, &interview.PersistenceError{Op: "get report", Err: err}
	}

	sess, err := s.deps.Store.SessionRepo().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("end %s: %w", id, err)
	}
	pairs, err := s.deps.Store.TurnRepo().List(ctx, id)
	if err != nil {
		return nil, &interview.PersistenceError{Op: "list turns", Err: err}
	}
	return s.score(ctx, sess, pairs)
}

// resolve scores a live session once. Concurrent callers wait for the
// same outcome; a failed attempt may be repeated.
func (s *Service) resolve(ctx context.Context, l *live) (*interview.ScoreReport, error) {
	select {
	case <-l.ctrl.Done():
	case <-s.quit:
		return nil, turn.ErrClosed
	}

	l.resolveMu.Lock()
	defer l.resolveMu.Unlock()
	if l.report != nil {
		return l.report, nil
	}

	result, _ := l.ctrl.Result()
	report, err := s.score(ctx, &l.session, result.Pairs)
	if err != nil {
		l.err = err
		l.events.Publish(turn.Event{
			Kind:      EventAnalysisFailed,
			SessionID: l.session.ID,
			Error:     err.Error(),
			Retryable: true,
			At:        s.deps.Now(),
		})
		return nil, err
	}

	l.report, l.err = report, nil
	l.events.Publish(turn.Event{
		Kind:      EventReport,
		SessionID: l.session.ID,
		Reason:    result.Reason,
		At:        s.deps.Now(),
	})
	l.events.Close()

	s.mu.Lock()
	delete(s.live, l.session.ID)
	s.mu.Unlock()
	go l.ctrl.Close()
	return report, nil
}

func (s *Service) score(ctx context.Context, sess *interview.Session, pairs []interview.QAPair) (*interview.ScoreReport, error) {
	report, err := s.deps.Scorer.Resolve(ctx, sess, pairs)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", sess.ID, err)
	}
	return report, nil
}

// Events subscribes to the events of a live session. The returned
// function cancels the subscription.
func (s *Service) Events(ctx context.Context, id string) (<-chan turn.Event, func(), error) {
	if l, ok := s.lookup(id); ok {
		ch, cancel := l.events.Subscribe(64)
		return ch, cancel, nil
	}
	sess, err := s.deps.Store.SessionRepo().Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("events %s: %w", id, err)
	}
	return nil, nil, &interview.SessionStateError{Op: "subscribe", State: string(sess.Status)}
}

// Audio returns the audio callback target of a live session.
func (s *Service) Audio(id string) (AudioInput, error) {
	l, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return l.ctrl, nil
}

// Status describes a live or stored session.
func (s *Service) Status(ctx context.Context, id string) (*Summary, error) {
	if l, ok := s.lookup(id); ok {
		snap, err := l.ctrl.Snapshot(ctx)
		if err == nil {
			return liveSummary(l, snap), nil
		}
		if !errors.Is(err, turn.ErrClosed) {
			return nil, err
		}
	}

	sess, err := s.deps.Store.SessionRepo().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", id, err)
	}
	pairs, err := s.deps.Store.TurnRepo().List(ctx, id)
	if err != nil {
		return nil, &interview.PersistenceError{Op: "list turns", Err: err}
	}
	report, err := s.deps.Store.ReportRepo().Get(ctx, id)
	if err != nil && !errors.Is(err, interview.ErrNotFound) {
		return nil, &interview.PersistenceError{Op: "get report", Err: err}
	}
	return storedSummary(sess, pairs, report), nil
}

// Report returns the stored report of a session.
func (s *Service) Report(ctx context.Context, id string) (*interview.ScoreReport, error) {
	report, err := s.deps.Store.ReportRepo().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", id, err)
	}
	return report, nil
}

// Wait blocks until the live session is scored, or until scoring fails.
func (s *Service) Wait(ctx context.Context, id string) (*interview.ScoreReport, error) {
	l, ok := s.lookup(id)
	if !ok {
		return s.Report(ctx, id)
	}
	select {
	case <-l.ctrl.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.resolve(ctx, l)
}

// Close stops every live controller without completing its session and
// waits for in-flight scoring.
func (s *Service) Close() {
	s.closed.Do(func() { close(s.quit) })
	s.mu.Lock()
	lives := make([]*live, 0, len(s.live))
	for _, l := range s.live {
		lives = append(lives, l)
	}
	s.live = make(map[string]*live)
	s.mu.Unlock()

	for _, l := range lives {
		l.ctrl.Close()
		l.events.Close()
	}
	s.wg.Wait()
}

func (s *Service) reserve(candidateID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.active[candidateID]; ok {
		return fmt.Errorf("%w: %s", ErrActiveSession, existing)
	}
	s.active[candidateID] = sessionID
	return nil
}

func (s *Service) release(candidateID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[candidateID] == sessionID {
		delete(s.active, candidateID)
	}
}

func (s *Service) lookup(id string) (*live, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.live[id]
	return l, ok
}

func (s *Service) get(id string) (*live, error) {
	if l, ok := s.lookup(id); ok {
		return l, nil
	}
	return nil, fmt.Errorf("live session %s: %w", id, interview.ErrNotFound)
}
