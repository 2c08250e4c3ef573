package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/store"
)

// scriptedForge serves "Question N?" unless an error is queued.
type scriptedForge struct {
	mu    sync.Mutex
	errs  []error
	calls []questionforge.Context
}

func (f *scriptedForge) Generate(_ context.Context, in questionforge.Context) (*questionforge.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	text := fmt.Sprintf("Question %d?", in.Index)
	return &questionforge.Question{Text: text, Hash: questionforge.Hash(text), Source: questionforge.SourceGenerated}, nil
}

// audioLog records player and recorder commands in order.
type audioLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *audioLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *audioLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakePlayer struct{ log *audioLog }

func (p fakePlayer) Play(string) { p.log.add("play") }
func (p fakePlayer) Stop()       { p.log.add("stop_playback") }

type fakeRecorder struct{ log *audioLog }

func (r fakeRecorder) Start() { r.log.add("start_capture") }
func (r fakeRecorder) Stop()  { r.log.add("stop_capture") }

type judgeFunc func(ctx context.Context, question, transcript string) (Judgment, error)

func (f judgeFunc) Judge(ctx context.Context, q, t string) (Judgment, error) { return f(ctx, q, t) }

func alwaysComplete() Judge {
	return judgeFunc(func(context.Context, string, string) (Judgment, error) {
		return Judgment{IsComplete: true, Confidence: 0.95}, nil
	})
}

// eventSink collects published events.
type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) sink(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) kinds(kind EventKind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	ctrl    *Controller
	store   *store.Store
	session interview.Session
	forge   *scriptedForge
	audio   *audioLog
	events  *eventSink
}

func fastConfig() Config {
	return Config{
		SilenceWindow: 20 * time.Millisecond,
		HardFallback:  300 * time.Millisecond,
		JudgeInterval: time.Millisecond,
		JudgeMinWords: 5,
		EndMinWords:   3,
	}
}

type harnessOpt func(*interview.Session, *Deps, *Config)

func newHarness(t *testing.T, total int, opts ...harnessOpt) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:turn_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sess := interview.Session{
		ID:             uuid.NewString(),
		CandidateID:    "cand-1",
		Category:       interview.CategoryTechnical,
		Difficulty:     interview.DifficultyIntermediate,
		TotalQuestions: total,
	}

	h := &harness{store: st, forge: &scriptedForge{}, audio: &audioLog{}, events: &eventSink{}}
	deps := Deps{
		Forge:    h.forge,
		Sessions: st.SessionRepo(),
		Turns:    st.TurnRepo(),
		Events:   st.EventRepo(),
		Judge:    alwaysComplete(),
		Player:   fakePlayer{log: h.audio},
		Recorder: fakeRecorder{log: h.audio},
		Sink:     h.events.sink,
	}
	cfg := fastConfig()
	for _, o := range opts {
		o(&sess, &deps, &cfg)
	}
	require.NoError(t, st.SessionRepo().Create(context.Background(), &sess))

	h.session = sess
	h.ctrl = New(sess, nil, deps, cfg)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) waitState(t *testing.T, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap, err := h.ctrl.Snapshot(context.Background())
		require.NoError(t, err)
		if snap.State == want {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", snap.State, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) waitIndex(t *testing.T, index int, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap, err := h.ctrl.Snapshot(context.Background())
		require.NoError(t, err)
		if snap.Index == index && snap.State == want {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("at Q%d %s, want Q%d %s", snap.Index, snap.State, index, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	h.waitState(t, StateSpeaking)
}

func TestBargeInStopsPlaybackBeforeCapture(t *testing.T) {
	h := newHarness(t, 2)
	h.start(t)

	// Interviewer audio picked up by the microphone before capture.
	h.ctrl.PartialTranscript("Question one echo from the speaker")

	time.Sleep(400 * time.Millisecond)
	h.ctrl.SpeechOnset()
	h.waitState(t, StateListening)

	assert.Equal(t, []string{"play", "stop_playback", "start_capture"}, h.audio.snapshot())

	// Natural completion arriving after the interruption changes nothing.
	h.ctrl.PlaybackFinished()
	h.ctrl.PartialTranscript("I would pass a context with a deadline to every worker.")
	h.ctrl.SpeechEnd("")

	h.waitIndex(t, 2, StateSpeaking)

	pairs, err := h.store.TurnRepo().List(context.Background(), h.session.ID)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "I would pass a context with a deadline to every worker.", pairs[0].Answer)
	assert.NotContains(t, pairs[0].Answer, "echo")

	ops := h.audio.snapshot()
	assert.Equal(t, []string{"play", "stop_playback", "start_capture", "stop_capture", "play"}, ops)
}

func TestPlaybackFinishedStartsCapture(t *testing.T) {
	h := newHarness(t, 1)
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)
	assert.Equal(t, []string{"play", "start_capture"}, h.audio.snapshot())
}

func TestTurnWaitsForAgreeingJudgment(t *testing.T) {
	var judged sync.WaitGroup
	judged.Add(1)
	var once sync.Once
	incomplete := judgeFunc(func(context.Context, string, string) (Judgment, error) {
		once.Do(judged.Done)
		return Judgment{IsComplete: false, Confidence: 0.9}, nil
	})
	h := newHarness(t, 1, func(_ *interview.Session, d *Deps, _ *Config) { d.Judge = incomplete })
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	h.ctrl.PartialTranscript("I think the answer depends on the workload because")
	judged.Wait()

	// Silent but the judgment disagrees: still listening well before the
	// hard fallback.
	time.Sleep(100 * time.Millisecond)
	snap, err := h.ctrl.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateListening, snap.State)

	// The hard fallback ends the turn on silence alone.
	<-h.ctrl.Done()
	res, ok := h.ctrl.Result()
	require.True(t, ok)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "I think the answer depends on the workload because", res.Pairs[0].Answer)
}

func TestOnsetWithoutSpeechEndFallsBack(t *testing.T) {
	incomplete := judgeFunc(func(context.Context, string, string) (Judgment, error) {
		return Judgment{IsComplete: false, Confidence: 0.9}, nil
	})
	h := newHarness(t, 2, func(_ *interview.Session, d *Deps, _ *Config) { d.Judge = incomplete })
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	h.ctrl.PartialTranscript("I would use a hash map here")
	// A cough registers as onset and nothing follows it.
	h.ctrl.SpeechOnset()

	h.waitIndex(t, 2, StateSpeaking)
	pairs, err := h.store.TurnRepo().List(context.Background(), h.session.ID)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "I would use a hash map here", pairs[0].Answer)
}

func TestLowConfidenceJudgmentDoesNotEndTurn(t *testing.T) {
	calls := make(chan string, 8)
	lukewarm := judgeFunc(func(_ context.Context, _, text string) (Judgment, error) {
		calls <- text
		return Judgment{IsComplete: true, Confidence: 0.72}, nil
	})
	h := newHarness(t, 1, func(_ *interview.Session, d *Deps, c *Config) {
		d.Judge = lukewarm
		c.HardFallback = time.Hour
	})
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	h.ctrl.PartialTranscript("Channels are typed conduits between goroutines.")
	<-calls
	time.Sleep(80 * time.Millisecond)

	snap, err := h.ctrl.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateListening, snap.State, "confidence must exceed the threshold")
}

func TestShortPartialIsNotJudged(t *testing.T) {
	calls := make(chan string, 8)
	judge := judgeFunc(func(_ context.Context, _, text string) (Judgment, error) {
		calls <- text
		return Judgment{IsComplete: true, Confidence: 0.99}, nil
	})
	h := newHarness(t, 1, func(_ *interview.Session, d *Deps, c *Config) {
		d.Judge = judge
		c.HardFallback = time.Hour
	})
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	h.ctrl.PartialTranscript("Yes I have")
	h.ctrl.SpeechEnd("")
	time.Sleep(80 * time.Millisecond)

	assert.Empty(t, calls)
	snap, _ := h.ctrl.Snapshot(context.Background())
	assert.Equal(t, StateListening, snap.State)
	assert.Equal(t, "Yes I have", snap.Partial)
}

func TestTooFewWordsNeverEndOnSilence(t *testing.T) {
	h := newHarness(t, 1, func(_ *interview.Session, _ *Deps, c *Config) {
		c.HardFallback = 30 * time.Millisecond
	})
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	h.ctrl.SpeechEnd("Maybe")
	time.Sleep(120 * time.Millisecond)
	snap, _ := h.ctrl.Snapshot(context.Background())
	assert.Equal(t, StateListening, snap.State)

	require.NoError(t, h.ctrl.SubmitAnswer(context.Background(), Answer{Text: "Maybe"}))
	<-h.ctrl.Done()
}

func TestPartialsArePublished(t *testing.T) {
	h := newHarness(t, 1, func(_ *interview.Session, _ *Deps, c *Config) {
		c.SilenceWindow = time.Hour
	})
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	h.ctrl.PartialTranscript("I")
	h.ctrl.PartialTranscript("I would")
	h.ctrl.PartialTranscript("I would start with")
	_, _ = h.ctrl.Snapshot(context.Background())

	var texts []string
	for _, ev := range h.events.kinds(EventPartial) {
		texts = append(texts, ev.Text)
	}
	assert.Equal(t, []string{"I", "I would", "I would start with"}, texts)
}

func TestSubmitAnswerStateRules(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()

	err := h.ctrl.SubmitAnswer(ctx, Answer{Text: "too early"})
	var se *interview.SessionStateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, string(StateIdle), se.State)

	h.start(t)

	err = h.ctrl.SubmitAnswer(ctx, Answer{Text: "answer while speaking"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, string(StateSpeaking), se.State)

	require.NoError(t, h.ctrl.SubmitAnswer(ctx, Answer{Skip: true}))
	h.waitIndex(t, 2, StateSpeaking)
	assert.Equal(t, []string{"play", "stop_playback", "play"}, h.audio.snapshot())

	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)
	require.NoError(t, h.ctrl.SubmitAnswer(ctx, Answer{Text: "  A typed answer.  "}))
	<-h.ctrl.Done()

	res, _ := h.ctrl.Result()
	assert.Equal(t, ReasonFinished, res.Reason)
	require.Len(t, res.Pairs, 2)
	assert.True(t, res.Pairs[0].Skipped)
	assert.Equal(t, interview.SkipMarker, res.Pairs[0].Answer)
	assert.Equal(t, "A typed answer.", res.Pairs[1].Answer)

	err = h.ctrl.SubmitAnswer(ctx, Answer{Skip: true})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, string(StateComplete), se.State)
}

func TestBlankAnswerIsRecordedAsSkip(t *testing.T) {
	h := newHarness(t, 1)
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	require.NoError(t, h.ctrl.SubmitAnswer(context.Background(), Answer{Text: "   "}))
	<-h.ctrl.Done()
	res, _ := h.ctrl.Result()
	assert.True(t, res.Pairs[0].Skipped)
}

func TestStartTwiceIsStateError(t *testing.T) {
	h := newHarness(t, 1)
	h.start(t)
	err := h.ctrl.Start(context.Background())
	assert.True(t, interview.IsStateError(err))
}

func TestTimerExpiryCompletesOnce(t *testing.T) {
	undecided := judgeFunc(func(context.Context, string, string) (Judgment, error) {
		return Judgment{IsComplete: false, Confidence: 0.9}, nil
	})
	h := newHarness(t, 5, func(s *interview.Session, d *Deps, c *Config) {
		s.Duration = 150 * time.Millisecond
		d.Judge = undecided
		c.HardFallback = time.Hour
	})
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)
	h.ctrl.PartialTranscript("I was in the middle of")

	select {
	case <-h.ctrl.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session timer never fired")
	}
	res, _ := h.ctrl.Result()
	assert.Equal(t, ReasonTimeExpired, res.Reason)
	assert.Empty(t, res.Pairs)

	require.NoError(t, h.ctrl.End(context.Background()))

	completions := 0
	for _, ev := range h.events.kinds(EventTransition) {
		if ev.To == StateComplete {
			completions++
			assert.Equal(t, StateListening, ev.From)
		}
	}
	assert.Equal(t, 1, completions)
	assert.Equal(t, "stop_capture", h.audio.snapshot()[len(h.audio.snapshot())-1])
}

func TestEndDuringSpeaking(t *testing.T) {
	h := newHarness(t, 3)
	h.start(t)
	require.NoError(t, h.ctrl.End(context.Background()))

	<-h.ctrl.Done()
	res, _ := h.ctrl.Result()
	assert.Equal(t, ReasonEnded, res.Reason)
	assert.Equal(t, []string{"play", "stop_playback"}, h.audio.snapshot())
}

// flakyTurns fails the first n appends.
type flakyTurns struct {
	store.TurnRepo
	mu       sync.Mutex
	failures int
}

func (f *flakyTurns) Append(ctx context.Context, p interview.QAPair) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("disk I/O error")
	}
	f.mu.Unlock()
	return f.TurnRepo.Append(ctx, p)
}

func TestPersistFailureHaltsUntilRetry(t *testing.T) {
	var turns *flakyTurns
	h := newHarness(t, 2, func(_ *interview.Session, d *Deps, _ *Config) {
		turns = &flakyTurns{TurnRepo: d.Turns, failures: 1}
		d.Turns = turns
	})
	ctx := context.Background()
	h.start(t)
	h.ctrl.PlaybackFinished()
	h.waitState(t, StateListening)

	err := h.ctrl.SubmitAnswer(ctx, Answer{Text: "Use a worker pool."})
	var perr *interview.PersistenceError
	require.ErrorAs(t, err, &perr)

	snap, err := h.ctrl.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, snap.State)
	assert.True(t, snap.Halted)
	assert.Equal(t, "Use a worker pool.", snap.Unsaved)
	assert.Equal(t, 1, snap.Index, "a failed persist must not advance")

	errs := h.events.kinds(EventError)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Retryable)

	assert.True(t, interview.IsStateError(h.ctrl.SubmitAnswer(ctx, Answer{Text: "again"})))

	require.NoError(t, h.ctrl.Retry(ctx))
	h.waitIndex(t, 2, StateSpeaking)

	pairs, err := h.store.TurnRepo().List(ctx, h.session.ID)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Use a worker pool.", pairs[0].Answer)
}

func TestFetchFailureHaltsInIdle(t *testing.T) {
	h := newHarness(t, 1)
	h.forge.errs = []error{errors.New("provider exploded")}
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx))
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap, err := h.ctrl.Snapshot(ctx)
		require.NoError(t, err)
		if snap.Halted {
			assert.Equal(t, StateIdle, snap.State)
			assert.Contains(t, snap.HaltError, "provider exploded")
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("controller never halted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, h.ctrl.Retry(ctx))
	snap := h.waitState(t, StateSpeaking)
	assert.Equal(t, "Question 1?", snap.Question)
	assert.False(t, snap.Halted)
}

func TestRetryWithoutHaltIsStateError(t *testing.T) {
	h := newHarness(t, 1)
	h.start(t)
	assert.True(t, interview.IsStateError(h.ctrl.Retry(context.Background())))
}

func TestForgeReceivesPriorPairs(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	h.start(t)
	require.NoError(t, h.ctrl.SubmitAnswer(ctx, Answer{Skip: true}))
	h.waitIndex(t, 2, StateSpeaking)

	h.forge.mu.Lock()
	defer h.forge.mu.Unlock()
	require.Len(t, h.forge.calls, 2)
	assert.Equal(t, 2, h.forge.calls[1].Index)
	assert.Equal(t, 3, h.forge.calls[1].Total)
	require.Len(t, h.forge.calls[1].Prior, 1)
	assert.Equal(t, "Question 1?", h.forge.calls[1].Prior[0].Question)
}

func TestEventDrivenAudioBridge(t *testing.T) {
	h := newHarness(t, 1, func(_ *interview.Session, d *Deps, _ *Config) {
		d.Player = nil
		d.Recorder = nil
	})
	h.start(t)
	h.ctrl.SpeechOnset()
	h.waitState(t, StateListening)

	speak := h.events.kinds(EventSpeak)
	require.Len(t, speak, 1)
	assert.Equal(t, "Question 1?", speak[0].Text)
	assert.Len(t, h.events.kinds(EventStopPlayback), 1)
	assert.Len(t, h.events.kinds(EventStartCapture), 1)
}

func TestSessionEventsRecorded(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	h.start(t)
	require.NoError(t, h.ctrl.SubmitAnswer(ctx, Answer{Skip: true}))
	<-h.ctrl.Done()

	events, err := h.store.EventRepo().SessionEvents(ctx, h.session.ID, store.QueryOpts{})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "started", events[0].Kind)

	var last store.SessionEvent
	for _, ev := range events {
		if ev.Kind == "transition" {
			last = ev
		}
	}
	assert.Equal(t, string(StateComplete), last.ToState)
	assert.Equal(t, string(ReasonFinished), last.Detail)

	sess, err := h.store.SessionRepo().Get(ctx, h.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.CurrentIndex)
	assert.Equal(t, interview.StatusActive, sess.Status)
}
