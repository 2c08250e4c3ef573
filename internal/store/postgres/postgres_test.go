package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/store"
)

func TestSessionModelRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &interview.Session{
		ID:             "s1",
		CandidateID:    "c1",
		Category:       interview.CategoryDSA,
		Subtopic:       "graphs",
		Difficulty:     interview.DifficultyAdvanced,
		TotalQuestions: 5,
		Duration:       15 * time.Minute,
		Status:         interview.StatusActive,
		CurrentIndex:   2,
		Profile:        interview.Profile{TargetRole: "backend engineer"},
		CreatedAt:      started.Add(-time.Minute),
		StartedAt:      started,
	}

	m, err := toSessionModel(s)
	require.NoError(t, err)
	assert.Equal(t, int64(900000), m.DurationMs)
	assert.NotNil(t, m.StartedAt)
	assert.Nil(t, m.CompletedAt)

	got, err := m.toDomain()
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestReportUpdateColumns(t *testing.T) {
	assert.Equal(t, "question_fingerprints", fingerprintModel{}.TableName())
	assert.NotContains(t, reportUpdateColumns, "created_at")
	assert.NotContains(t, reportUpdateColumns, "session_id")
}

// openTestBackend connects to the database named by
// INTERVUE_TEST_POSTGRES_DSN, or skips.
func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv("INTERVUE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTERVUE_TEST_POSTGRES_DSN not set")
	}
	b, err := Open(context.Background(), dsn, PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackendIntegration(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	id := uuid.NewString()
	candidate := "cand-" + id
	require.NoError(t, b.SessionRepo().Create(ctx, &interview.Session{
		ID:             id,
		CandidateID:    candidate,
		Category:       interview.CategoryHR,
		Difficulty:     interview.DifficultyBeginner,
		TotalQuestions: 2,
	}))

	require.NoError(t, b.SessionRepo().Start(ctx, id, time.Now()))
	assert.True(t, interview.IsStateError(b.SessionRepo().Start(ctx, id, time.Now())))

	require.NoError(t, b.SessionRepo().Advance(ctx, id, 1))
	require.NoError(t, b.TurnRepo().Append(ctx, interview.QAPair{SessionID: id, Index: 1, Question: "Why us?", Answer: "Because."}))
	err := b.TurnRepo().Append(ctx, interview.QAPair{SessionID: id, Index: 2, Question: "Q2"})
	assert.True(t, errors.Is(err, store.ErrTurnOutOfOrder))

	fps := b.FingerprintRepo()
	require.NoError(t, fps.Record(ctx, candidate, "h1", "Why us?"))
	require.NoError(t, fps.Record(ctx, candidate, "h1", "Why us?"))
	fp, err := fps.Lookup(ctx, candidate, "h1")
	require.NoError(t, err)
	require.NotNil(t, fp)
	assert.Equal(t, 2, fp.TimesSeen)

	rep := &interview.ScoreReport{SessionID: id, Category: interview.CategoryHR, OverallScore: 10}
	require.NoError(t, b.ReportRepo().Upsert(ctx, rep))
	rep.OverallScore = 20
	require.NoError(t, b.ReportRepo().Upsert(ctx, rep))
	got, err := b.ReportRepo().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 20, got.OverallScore)

	require.NoError(t, b.SessionRepo().Complete(ctx, id, time.Now()))
	require.NoError(t, b.SessionRepo().Complete(ctx, id, time.Now()))

	require.NoError(t, b.EventRepo().AppendSessionEvent(ctx, store.SessionEventData{SessionID: id, Kind: "completed"}))
	events, err := b.EventRepo().SessionEvents(ctx, id, store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
