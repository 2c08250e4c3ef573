package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/scoring"
	"github.com/abhisek/intervue/internal/session"
	"github.com/abhisek/intervue/internal/turn"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeService records calls and returns canned results.
type fakeService struct {
	mu sync.Mutex

	plan    session.Plan
	answers []turn.Answer
	audio   []string

	startErr  error
	submitErr error
	endErr    error
	summary   *session.Summary
	events    []turn.Event
}

func (f *fakeService) StartSession(_ context.Context, p session.Plan) (session.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plan = p
	if f.startErr != nil {
		return session.Handle{}, f.startErr
	}
	return session.Handle{SessionID: "sess-1", CandidateID: p.CandidateID}, nil
}

func (f *fakeService) Resume(_ context.Context, id string) (session.Handle, error) {
	return session.Handle{SessionID: id, CandidateID: "cand-1"}, nil
}

func (f *fakeService) SubmitAnswer(_ context.Context, _ string, a turn.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, a)
	return f.submitErr
}

func (f *fakeService) Retry(context.Context, string) error {
	return &interview.SessionStateError{Op: "retry", State: "listening"}
}

func (f *fakeService) EndSession(context.Context, string) (*interview.ScoreReport, error) {
	if f.endErr != nil {
		return nil, f.endErr
	}
	return &interview.ScoreReport{SessionID: "sess-1", OverallScore: 42}, nil
}

func (f *fakeService) Events(_ context.Context, id string) (<-chan turn.Event, func(), error) {
	if id != "sess-1" {
		return nil, nil, fmt.Errorf("events %s: %w", id, interview.ErrNotFound)
	}
	ch := make(chan turn.Event, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, func() {}, nil
}

func (f *fakeService) Audio(id string) (session.AudioInput, error) {
	if id != "sess-1" {
		return nil, fmt.Errorf("live session %s: %w", id, interview.ErrNotFound)
	}
	return (*fakeAudio)(f), nil
}

func (f *fakeService) Status(_ context.Context, id string) (*session.Summary, error) {
	if f.summary == nil || id != "sess-1" {
		return nil, fmt.Errorf("status %s: %w", id, interview.ErrNotFound)
	}
	return f.summary, nil
}

type fakeAudio fakeService

func (a *fakeAudio) note(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audio = append(a.audio, s)
}

func (a *fakeAudio) SpeechOnset()               { a.note("onset") }
func (a *fakeAudio) PartialTranscript(t string) { a.note("partial:" + t) }
func (a *fakeAudio) SpeechEnd(t string)         { a.note("end:" + t) }
func (a *fakeAudio) PlaybackFinished()          { a.note("playback") }

func newTestServer(svc Service) *Server {
	return New(svc, Options{
		Defaults: Defaults{
			Difficulty: interview.DifficultyIntermediate,
			Questions:  5,
			Duration:   15 * time.Minute,
		},
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartSession_AppliesDefaults(t *testing.T) {
	svc := &fakeService{}
	w := do(t, newTestServer(svc), http.MethodPost, "/api/sessions",
		`{"candidate_id":"cand-1","category":"DSA","subtopic":"Graphs"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var h session.Handle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "sess-1", h.SessionID)

	assert.Equal(t, interview.CategoryDSA, svc.plan.Category)
	assert.Equal(t, interview.DifficultyIntermediate, svc.plan.Difficulty)
	assert.Equal(t, 5, svc.plan.Questions)
	assert.Equal(t, 15*time.Minute, svc.plan.Duration)
}

func TestStartSession_Durations(t *testing.T) {
	tests := []struct {
		body string
		want time.Duration
	}{
		{`"20m"`, 20 * time.Minute},
		{`10`, 10 * time.Minute},
		{`"30"`, 30 * time.Minute},
		{`1.5`, 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			svc := &fakeService{}
			w := do(t, newTestServer(svc), http.MethodPost, "/api/sessions",
				`{"candidate_id":"c","category":"hr","duration":`+tt.body+`}`)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			assert.Equal(t, tt.want, svc.plan.Duration)
		})
	}
}

func TestStartSession_BadRequests(t *testing.T) {
	tests := map[string]string{
		"not json":           `{`,
		"missing candidate":  `{"category":"hr"}`,
		"unknown category":   `{"candidate_id":"c","category":"poetry"}`,
		"unknown difficulty": `{"candidate_id":"c","category":"hr","difficulty":"heroic"}`,
		"bad duration":       `{"candidate_id":"c","category":"hr","duration":"soon"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/sessions", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"active session", fmt.Errorf("%w: sess-0", session.ErrActiveSession), http.StatusConflict},
		{"invalid plan", fmt.Errorf("%w: custom needs a scenario", session.ErrInvalidPlan), http.StatusBadRequest},
		{"persistence", &interview.PersistenceError{Op: "create session", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"not found", fmt.Errorf("x: %w", interview.ErrNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestServer(&fakeService{startErr: tt.err}), http.MethodPost, "/api/sessions",
				`{"candidate_id":"c","category":"hr"}`)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(fmt.Errorf("%w: %w", scoring.ErrAnalysisFailed, errors.New("503"))))
	assert.Equal(t, http.StatusConflict, statusFor(turn.ErrClosed))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestSubmitAnswer(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)

	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/sessions/sess-1/answers", `{"text":"use a heap"}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/sessions/sess-1/answers", `{"skip":true}`).Code)
	assert.Equal(t, []turn.Answer{{Text: "use a heap"}, {Skip: true}}, svc.answers)

	svc.submitErr = &interview.SessionStateError{Op: "submit", State: "speaking"}
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/api/sessions/sess-1/answers", `{"text":"x"}`).Code)
}

func TestRetryOutsideHaltIsConflict(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/sessions/sess-1/retry", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEndSession(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/sessions/sess-1/end", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep interview.ScoreReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 42, rep.OverallScore)

	failed := &fakeService{endErr: fmt.Errorf("%w: timeout", scoring.ErrAnalysisFailed)}
	w = do(t, newTestServer(failed), http.MethodPost, "/api/sessions/sess-1/end", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func scoredSummary() *session.Summary {
	return &session.Summary{
		Session: interview.Session{ID: "sess-1", Category: interview.CategoryDSA, TotalQuestions: 1, Status: interview.StatusCompleted},
		Pairs:   []interview.QAPair{{Index: 1, Question: "Reverse a list", Answer: "two pointers"}},
		Report: &interview.ScoreReport{
			SessionID:      "sess-1",
			OverallScore:   80,
			Evaluations:    map[string]string{"Q1": "Fully Correct"},
			CorrectCount:   1,
			TotalQuestions: 1,
			Answered:       1,
		},
	}
}

func TestGetReport(t *testing.T) {
	s := newTestServer(&fakeService{summary: scoredSummary()})

	w := do(t, s, http.MethodGet, "/api/sessions/sess-1/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"overall_score":80`)

	w = do(t, s, http.MethodGet, "/api/sessions/sess-1/report.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/sessions/other/report", "").Code)
}

func TestGetReport_NotScoredYet(t *testing.T) {
	sum := scoredSummary()
	sum.Report = nil
	s := newTestServer(&fakeService{summary: sum})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/sessions/sess-1/report", "").Code)

	sum.AnalysisError = "analysis failed: 503"
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodGet, "/api/sessions/sess-1/report", "").Code)
}

func TestGetSession(t *testing.T) {
	s := newTestServer(&fakeService{summary: scoredSummary()})
	w := do(t, s, http.MethodGet, "/api/sessions/sess-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got, "session")
	assert.Contains(t, got, "progress")
}

// streamRecorder adds the CloseNotifier that gin's streaming needs.
type streamRecorder struct {
	*httptest.ResponseRecorder
}

func (streamRecorder) CloseNotify() <-chan bool { return make(chan bool) }

func TestStreamEvents(t *testing.T) {
	svc := &fakeService{events: []turn.Event{
		{Kind: turn.EventQuestion, SessionID: "sess-1", Index: 1, Text: "Reverse a list"},
		{Kind: turn.EventTransition, SessionID: "sess-1", From: turn.StateSpeaking, To: turn.StateListening},
	}}
	w := streamRecorder{httptest.NewRecorder()}
	newTestServer(svc).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/events", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, "event:question")
	assert.Contains(t, body, "Reverse a list")
	assert.Contains(t, body, "event:transition")
}

func TestStreamEvents_UnknownSession(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/sessions/nope/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAudioCallbacks(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)

	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/sessions/sess-1/audio/onset", "").Code)
	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/sessions/sess-1/audio/partial", `{"text":"I would"}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/sessions/sess-1/audio/end", `{"text":"I would use BFS"}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/api/sessions/sess-1/audio/playback-done", "").Code)
	assert.Equal(t, []string{"onset", "partial:I would", "end:I would use BFS", "playback"}, svc.audio)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/sessions/gone/audio/onset", "").Code)
}

func TestRateLimit(t *testing.T) {
	s := New(&fakeService{}, Options{RateLimit: 0.001, Burst: 2})
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestClientLimiter_PerClientAndSweep(t *testing.T) {
	now := time.Unix(0, 0)
	l := newClientLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "clients have separate buckets")

	now = now.Add(staleAfter + time.Second)
	assert.True(t, l.allow("c"))
	assert.Len(t, l.clients, 1, "idle clients are swept")
}
