// Package turn drives the speaking, listening and processing turns of a
// live interview.
//
// A Controller owns the turn state in a single goroutine. Application
// calls, audio callbacks, timer expiries and the results of asynchronous
// oracle calls are all posted to it as messages, so state transitions are
// strictly sequential. Results of asynchronous work carry the turn
// generation they were started in and are dropped when it has moved on.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/store"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("turn controller closed")

// Deps are the collaborators of a Controller.
type Deps struct {
	Forge    questionforge.Generator
	Sessions store.SessionRepo
	Turns    store.TurnRepo

	// Events receives best-effort session events. Optional.
	Events store.EventRepo

	// Judge estimates answer completeness. Nil uses HeuristicJudge.
	Judge Judge

	// Player and Recorder drive local audio. When nil, the matching
	// commands are published as events for a remote audio bridge.
	Player   Player
	Recorder Recorder

	Sink   Sink
	Logger *slog.Logger

	// Scenario is passed to the forge for custom interviews.
	Scenario *questionforge.Scenario
}

// Answer is a candidate submission: text or a skip.
type Answer struct {
	Text string
	Skip bool
}

// Snapshot is a point-in-time view of a Controller.
type Snapshot struct {
	SessionID string
	State     State
	Index     int
	Total     int
	Question  string
	Source    questionforge.Source
	Partial   string

	// Halted is set when a failed persist or fetch stopped the machine.
	// Retry resumes it.
	Halted    bool
	HaltError string

	// Unsaved holds the answer text that failed to persist.
	Unsaved string

	Reason Reason
	Pairs  []interview.QAPair
}

// Result is the outcome of a completed session.
type Result struct {
	Reason Reason
	Pairs  []interview.QAPair
}

type haltKind int

const (
	haltFetch haltKind = iota + 1
	haltAdvance
	haltPersist
)

type halt struct {
	kind  haltKind
	index int
	err   error
}

// Messages posted to the loop.
type (
	startMsg  struct{ reply chan error }
	answerMsg struct {
		answer Answer
		reply  chan error
	}
	retryMsg        struct{ reply chan error }
	endMsg          struct{ reply chan error }
	snapshotMsg     struct{ reply chan Snapshot }
	onsetMsg        struct{}
	partialMsg      struct{ text string }
	speechEndMsg    struct{ text string }
	playbackDoneMsg struct{}
	timeoutMsg      struct{}
	questionMsg     struct {
		gen   uint64
		index int
		q     *questionforge.Question
		err   error
	}
	judgmentMsg struct {
		gen  uint64
		text string
		j    Judgment
		err  error
	}
	silenceMsg struct {
		gen uint64
		seq uint64
	}
	fallbackMsg struct {
		gen uint64
		seq uint64
	}
)

// Controller is the turn state machine of one session.
type Controller struct {
	session interview.Session
	cfg     Config
	deps    Deps
	logger  *slog.Logger

	inbox    chan any
	quit     chan struct{}
	loopDone chan struct{}
	finished chan struct{}

	tasks       context.Context
	cancelTasks context.CancelFunc

	// Owned by the loop goroutine.
	state     State
	started   bool
	index     int
	question  *questionforge.Question
	pending   *questionforge.Question
	pairs     []interview.QAPair
	unsaved   *interview.QAPair
	halted    *halt
	gen       uint64
	partial   string
	silent    bool
	seq       uint64
	judging   bool
	judgment  *Judgment
	limiter   *rate.Limiter
	player    Player
	recorder  Recorder
	silence   *time.Timer
	fallback  *time.Timer
	countdown *time.Timer
	result    Result
}

// New creates a Controller for sess and starts its loop. prior holds the
// pairs already recorded, for resuming. Close must be called to release
// the loop.
func New(sess interview.Session, prior []interview.QAPair, deps Deps, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Judge == nil {
		deps.Judge = HeuristicJudge{}
	}

	tasks, cancel := context.WithCancel(llm.WithSession(context.Background(), sess.ID))
	c := &Controller{
		session:     sess,
		cfg:         cfg,
		deps:        deps,
		logger:      logger.With("component", "turn", "session_id", sess.ID),
		inbox:       make(chan any, 64),
		quit:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		finished:    make(chan struct{}),
		tasks:       tasks,
		cancelTasks: cancel,
		state:       StateIdle,
		pairs:       slices.Clone(prior),
		limiter:     rate.NewLimiter(rate.Every(cfg.JudgeInterval), 1),
	}
	if len(prior) > 0 {
		c.index = prior[len(prior)-1].Index
	}

	c.player = deps.Player
	if c.player == nil {
		c.player = eventAudio{emit: c.command}
	}
	c.recorder = deps.Recorder
	if c.recorder == nil {
		c.recorder = eventRecorder{emit: c.command}
	}

	go c.run()
	return c
}

// Start serves the first question and starts the session timer.
func (c *Controller) Start(ctx context.Context) error {
	return c.call(ctx, func(r chan error) any { return startMsg{reply: r} })
}

// SubmitAnswer records an answer. Text is accepted while listening; a skip
// is accepted while listening or speaking. Any other combination returns a
// *interview.SessionStateError. A persistence failure is returned as a
// *interview.PersistenceError and halts the controller until Retry.
func (c *Controller) SubmitAnswer(ctx context.Context, a Answer) error {
	return c.call(ctx, func(r chan error) any { return answerMsg{answer: a, reply: r} })
}

// Retry resumes a controller halted by a failed persist or fetch.
func (c *Controller) Retry(ctx context.Context) error {
	return c.call(ctx, func(r chan error) any { return retryMsg{reply: r} })
}

// End completes the session on request. Ending a completed session is a
// no-op.
func (c *Controller) End(ctx context.Context) error {
	return c.call(ctx, func(r chan error) any { return endMsg{reply: r} })
}

// Snapshot returns the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !c.post(snapshotMsg{reply: reply}) {
		return Snapshot{}, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.loopDone:
		return Snapshot{}, ErrClosed
	}
}

// SpeechOnset reports that the candidate started speaking. During
// playback it interrupts the interviewer.
func (c *Controller) SpeechOnset() { c.post(onsetMsg{}) }

// PartialTranscript reports the live transcript of the current answer.
func (c *Controller) PartialTranscript(text string) { c.post(partialMsg{text: text}) }

// SpeechEnd reports that the audio subsystem detected the end of speech.
// A non-empty transcript replaces the current partial.
func (c *Controller) SpeechEnd(transcript string) { c.post(speechEndMsg{text: transcript}) }

// PlaybackFinished reports that the question finished playing.
func (c *Controller) PlaybackFinished() { c.post(playbackDoneMsg{}) }

// Done is closed when the session completes.
func (c *Controller) Done() <-chan struct{} { return c.finished }

// Result returns the outcome once Done is closed.
func (c *Controller) Result() (Result, bool) {
	select {
	case <-c.finished:
		return c.result, true
	default:
		return Result{}, false
	}
}

// Close stops the loop and any in-flight work. It does not complete the
// session.
func (c *Controller) Close() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	<-c.loopDone
}

func (c *Controller) post(msg any) bool {
	select {
	case <-c.loopDone:
		return false
	default:
	}
	select {
	case c.inbox <- msg:
		return true
	case <-c.loopDone:
		return false
	}
}

func (c *Controller) call(ctx context.Context, build func(chan error) any) error {
	reply := make(chan error, 1)
	if !c.post(build(reply)) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.loopDone:
		return ErrClosed
	}
}

func (c *Controller) run() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.quit:
			c.shutdown()
			return
		case msg := <-c.inbox:
			c.handle(msg)
		}
	}
}

func (c *Controller) handle(msg any) {
	switch m := msg.(type) {
	case startMsg:
		m.reply <- c.onStart()
	case answerMsg:
		m.reply <- c.onAnswer(m.answer)
	case retryMsg:
		m.reply <- c.onRetry()
	case endMsg:
		c.complete(ReasonEnded)
		m.reply <- nil
	case snapshotMsg:
		m.reply <- c.snapshot()
	case onsetMsg:
		c.onOnset()
	case partialMsg:
		c.onPartial(m.text)
	case speechEndMsg:
		c.onSpeechEnd(m.text)
	case playbackDoneMsg:
		if c.state == StateSpeaking {
			c.startListening()
		}
	case timeoutMsg:
		c.logger.Info("session time expired", "state", c.state)
		c.complete(ReasonTimeExpired)
	case questionMsg:
		c.onQuestion(m)
	case judgmentMsg:
		c.onJudgment(m)
	case silenceMsg:
		c.onSilence(m)
	case fallbackMsg:
		c.onFallback(m)
	}
}

func (c *Controller) onStart() error {
	if c.started || c.state != StateIdle {
		return &interview.SessionStateError{Op: "start", State: string(c.state)}
	}
	c.started = true

	if d := c.session.Duration; d > 0 {
		c.countdown = time.AfterFunc(d, func() { c.post(timeoutMsg{}) })
	}
	ctx, cancel := c.storeCtx()
	defer cancel()
	if err := c.deps.Sessions.Start(ctx, c.session.ID, time.Now()); err != nil {
		c.logger.Warn("could not mark session started", "error", err)
	}
	c.record("started", "", "", c.index, "")

	if c.index >= c.session.TotalQuestions {
		c.complete(ReasonFinished)
		return nil
	}
	c.fetch(c.index + 1)
	return nil
}

// fetch asks the forge for question index in the background.
func (c *Controller) fetch(index int) {
	c.gen++
	gen := c.gen
	in := questionforge.Context{
		CandidateID: c.session.CandidateID,
		SessionID:   c.session.ID,
		Category:    c.session.Category,
		Subtopic:    c.session.Subtopic,
		Difficulty:  c.session.Difficulty,
		Index:       index,
		Total:       c.session.TotalQuestions,
		Prior:       slices.Clone(c.pairs),
		Profile:     c.session.Profile,
		Scenario:    c.deps.Scenario,
	}
	go func() {
		q, err := c.deps.Forge.Generate(c.tasks, in)
		c.post(questionMsg{gen: gen, index: index, q: q, err: err})
	}()
}

func (c *Controller) onQuestion(m questionMsg) {
	if m.gen != c.gen || c.state == StateComplete {
		return
	}
	if m.err != nil {
		c.halt(&halt{kind: haltFetch, index: m.index, err: m.err}, !llm.IsFatal(m.err))
		return
	}
	if m.q.Source == questionforge.SourceFallback {
		c.logger.Warn("serving fallback question", "index", m.index, "reason", m.q.Reason)
	}
	c.pending = m.q
	c.advance(m.index)
}

// advance moves the session pointer to index and speaks the pending
// question.
func (c *Controller) advance(index int) error {
	ctx, cancel := c.storeCtx()
	defer cancel()
	if err := c.deps.Sessions.Advance(ctx, c.session.ID, index); err != nil {
		perr := &interview.PersistenceError{Op: "advance question", Err: err}
		c.halt(&halt{kind: haltAdvance, index: index, err: perr}, true)
		return perr
	}
	c.halted = nil
	c.index = index
	c.question = c.pending
	c.pending = nil
	c.speak()
	return nil
}

func (c *Controller) speak() {
	c.resetTurn()
	c.emit(Event{Kind: EventQuestion, Index: c.index, Text: c.question.Text})
	c.player.Play(c.question.Text)
	c.transition(StateSpeaking)
}

func (c *Controller) startListening() {
	c.recorder.Start()
	c.transition(StateListening)
}

func (c *Controller) onOnset() {
	switch c.state {
	case StateSpeaking:
		// Barge-in: playback is halted before capture starts.
		c.logger.Debug("barge-in", "index", c.index)
		c.player.Stop()
		c.startListening()
	case StateListening:
		// Onset without a following partial or speech end still runs into
		// the silence window and then the hard fallback.
		c.silent = false
		stopTimer(&c.fallback)
		c.armSilence()
	}
}

func (c *Controller) onPartial(text string) {
	if c.state != StateListening {
		return
	}
	c.partial = strings.TrimSpace(text)
	c.silent = false
	stopTimer(&c.fallback)
	c.armSilence()

	ev := Event{Kind: EventPartial, Index: c.index, Text: c.partial}
	if c.judgment != nil && c.judgment.Transcript == c.partial {
		ev.Judgment = c.judgment
	}
	c.emit(ev)
	c.requestJudgment()
}

func (c *Controller) onSpeechEnd(text string) {
	if c.state != StateListening {
		return
	}
	if t := strings.TrimSpace(text); t != "" {
		c.partial = t
	}
	stopTimer(&c.silence)
	c.seq++
	c.beginSilence()
}

func (c *Controller) armSilence() {
	stopTimer(&c.silence)
	c.seq++
	gen, seq := c.gen, c.seq
	c.silence = time.AfterFunc(c.cfg.SilenceWindow, func() { c.post(silenceMsg{gen: gen, seq: seq}) })
}

func (c *Controller) onSilence(m silenceMsg) {
	if m.gen != c.gen || m.seq != c.seq || c.state != StateListening {
		return
	}
	c.beginSilence()
}

// beginSilence marks the candidate silent, arms the hard fallback and
// checks whether the turn can end.
func (c *Controller) beginSilence() {
	c.silent = true
	stopTimer(&c.fallback)
	gen, seq := c.gen, c.seq
	c.fallback = time.AfterFunc(c.cfg.HardFallback, func() { c.post(fallbackMsg{gen: gen, seq: seq}) })
	c.requestJudgment()
	c.evaluate()
}

func (c *Controller) onFallback(m fallbackMsg) {
	if m.gen != c.gen || m.seq != c.seq || c.state != StateListening || !c.silent {
		return
	}
	if wordCount(c.partial) < c.cfg.EndMinWords {
		c.logger.Debug("silence fallback with too few words", "words", wordCount(c.partial))
		return
	}
	c.logger.Debug("ending turn on silence alone", "index", c.index)
	c.finishTurn(Answer{Text: c.partial})
}

// requestJudgment starts a completeness judgment for the current partial
// unless one is running, the partial is too short, it was already judged
// or the throttle denies it.
func (c *Controller) requestJudgment() {
	if c.judging || wordCount(c.partial) < c.cfg.JudgeMinWords {
		return
	}
	if c.judgment != nil && c.judgment.Transcript == c.partial {
		return
	}
	if !c.limiter.Allow() {
		return
	}
	c.judging = true
	gen, text, question := c.gen, c.partial, c.question.Text
	go func() {
		ctx, cancel := context.WithTimeout(c.tasks, c.cfg.HardFallback)
		defer cancel()
		j, err := c.deps.Judge.Judge(ctx, question, text)
		c.post(judgmentMsg{gen: gen, text: text, j: j, err: err})
	}()
}

func (c *Controller) onJudgment(m judgmentMsg) {
	if m.gen != c.gen {
		return
	}
	c.judging = false
	if m.err != nil {
		c.logger.Debug("completeness judgment failed", "error", m.err)
		return
	}
	j := m.j
	j.Transcript = m.text
	c.judgment = &j
	if c.state != StateListening {
		return
	}
	if m.text == c.partial {
		c.emit(Event{Kind: EventPartial, Index: c.index, Text: c.partial, Judgment: c.judgment})
		c.evaluate()
		return
	}
	c.requestJudgment()
}

// evaluate ends the turn when silence and an agreeing judgment coincide.
func (c *Controller) evaluate() {
	if c.state != StateListening || !c.silent || wordCount(c.partial) < c.cfg.EndMinWords {
		return
	}
	j := c.judgment
	if j == nil || j.Transcript != c.partial || !j.IsComplete || j.Confidence <= c.cfg.CompleteThreshold {
		return
	}
	c.finishTurn(Answer{Text: c.partial})
}

func (c *Controller) onAnswer(a Answer) error {
	switch c.state {
	case StateListening:
		return c.finishTurn(a)
	case StateSpeaking:
		if !a.Skip {
			return &interview.SessionStateError{Op: "submit answer", State: string(c.state)}
		}
		return c.finishTurn(a)
	default:
		return &interview.SessionStateError{Op: "submit answer", State: string(c.state)}
	}
}

// finishTurn stops audio, moves to processing and persists the answer.
func (c *Controller) finishTurn(a Answer) error {
	switch c.state {
	case StateSpeaking:
		c.player.Stop()
	case StateListening:
		c.recorder.Stop()
	}
	c.resetTurn()

	text := strings.TrimSpace(a.Text)
	pair := interview.QAPair{
		SessionID:  c.session.ID,
		Index:      c.index,
		Question:   c.question.Text,
		Answer:     text,
		RecordedAt: time.Now(),
	}
	if a.Skip || text == "" {
		pair.Answer = interview.SkipMarker
		pair.Skipped = true
	}
	c.unsaved = &pair
	c.transition(StateProcessing)
	return c.persist()
}

func (c *Controller) persist() error {
	ctx, cancel := c.storeCtx()
	defer cancel()
	err := c.deps.Turns.Append(ctx, *c.unsaved)
	if err != nil && c.halted != nil && errors.Is(err, store.ErrTurnOutOfOrder) && c.alreadyStored(ctx) {
		err = nil
	}
	if err != nil {
		perr := &interview.PersistenceError{Op: "append answer", Err: err}
		c.halt(&halt{kind: haltPersist, index: c.unsaved.Index, err: perr}, true)
		return perr
	}

	pair := *c.unsaved
	c.unsaved = nil
	c.halted = nil
	c.pairs = append(c.pairs, pair)
	c.emit(Event{Kind: EventAnswer, Index: pair.Index, Text: pair.Answer})
	c.record("answer", "", "", pair.Index, pair.Answer)

	if c.index >= c.session.TotalQuestions {
		c.complete(ReasonFinished)
		return nil
	}
	c.fetch(c.index + 1)
	return nil
}

// alreadyStored reports whether a retried append already landed, e.g.
// after a timeout that hid a successful write.
func (c *Controller) alreadyStored(ctx context.Context) bool {
	pairs, err := c.deps.Turns.List(ctx, c.session.ID)
	if err != nil {
		return false
	}
	for _, p := range pairs {
		if p.Index == c.unsaved.Index {
			return p.Answer == c.unsaved.Answer
		}
	}
	return false
}

func (c *Controller) onRetry() error {
	h := c.halted
	if h == nil {
		return &interview.SessionStateError{Op: "retry", State: string(c.state)}
	}
	c.logger.Info("retrying after failure", "index", h.index, "error", h.err)
	switch h.kind {
	case haltPersist:
		return c.persist()
	case haltAdvance:
		return c.advance(h.index)
	default:
		c.halted = nil
		c.fetch(h.index)
		return nil
	}
}

func (c *Controller) halt(h *halt, retryable bool) {
	c.halted = h
	c.logger.Error("interview halted", "state", c.state, "index", h.index, "error", h.err)
	c.emit(Event{Kind: EventError, Index: h.index, Error: h.err.Error(), Retryable: retryable})
	c.record("error", "", "", h.index, h.err.Error())
}

// complete ends the session exactly once, from any state.
func (c *Controller) complete(reason Reason) {
	if c.state == StateComplete {
		return
	}
	switch c.state {
	case StateSpeaking:
		c.player.Stop()
	case StateListening:
		c.recorder.Stop()
	}
	c.resetTurn()
	c.cancelTasks()
	stopTimer(&c.countdown)

	c.result = Result{Reason: reason, Pairs: slices.Clone(c.pairs)}
	from := c.state
	c.state = StateComplete
	c.emit(Event{Kind: EventTransition, From: from, To: StateComplete, Index: c.index, Reason: reason})
	c.record("transition", string(from), string(StateComplete), c.index, string(reason))
	close(c.finished)
}

func (c *Controller) shutdown() {
	c.cancelTasks()
	stopTimer(&c.silence)
	stopTimer(&c.fallback)
	stopTimer(&c.countdown)
}

// resetTurn clears per-turn detection state and invalidates in-flight
// timers and judgments.
func (c *Controller) resetTurn() {
	stopTimer(&c.silence)
	stopTimer(&c.fallback)
	c.gen++
	c.seq++
	c.partial = ""
	c.silent = false
	c.judging = false
	c.judgment = nil
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.emit(Event{Kind: EventTransition, From: from, To: to, Index: c.index})
	c.record("transition", string(from), string(to), c.index, "")
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		SessionID: c.session.ID,
		State:     c.state,
		Index:     c.index,
		Total:     c.session.TotalQuestions,
		Partial:   c.partial,
		Pairs:     slices.Clone(c.pairs),
	}
	if c.question != nil {
		s.Question = c.question.Text
		s.Source = c.question.Source
	}
	if c.halted != nil {
		s.Halted = true
		s.HaltError = c.halted.err.Error()
	}
	if c.unsaved != nil {
		s.Unsaved = c.unsaved.Answer
	}
	if c.state == StateComplete {
		s.Reason = c.result.Reason
	}
	return s
}

func (c *Controller) command(kind EventKind, text string) {
	c.emit(Event{Kind: kind, Index: c.index, Text: text})
}

func (c *Controller) emit(ev Event) {
	if c.deps.Sink == nil {
		return
	}
	ev.SessionID = c.session.ID
	ev.At = time.Now()
	c.deps.Sink(ev)
}

// record appends a session event to the store. Failures are logged only.
func (c *Controller) record(kind, from, to string, index int, detail string) {
	if c.deps.Events == nil {
		return
	}
	ctx, cancel := c.storeCtx()
	defer cancel()
	err := c.deps.Events.AppendSessionEvent(ctx, store.SessionEventData{
		SessionID: c.session.ID,
		Kind:      kind,
		FromState: from,
		ToState:   to,
		Index:     index,
		Detail:    detail,
	})
	if err != nil {
		c.logger.Warn("could not record session event", "kind", kind, "error", err)
	}
}

func (c *Controller) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
