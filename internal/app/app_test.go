package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/intervue/internal/config"
	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Provider = "mock"
	cfg.Store.DSN = "file:app_" + t.Name() + "?mode=memory&cache=shared"
	cfg.Log.File = filepath.Join(t.TempDir(), "intervue.log")
	return &cfg
}

func TestNew_WiresService(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Options{Quiet: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.IsType(t, &llm.MockProvider{}, a.Provider)

	plan, err := a.Plan(session.Plan{CandidateID: "cand-1", Category: interview.CategoryHR})
	require.NoError(t, err)
	assert.Equal(t, interview.DifficultyIntermediate, plan.Difficulty)
	assert.Equal(t, 5, plan.Questions)
	assert.Equal(t, 15*time.Minute, plan.Duration)

	ctx := context.Background()
	h, err := a.Service.StartSession(ctx, plan)
	require.NoError(t, err)

	rep, err := a.Service.EndSession(ctx, h.SessionID)
	require.NoError(t, err)
	assert.Zero(t, rep.OverallScore, "no answers gives the zero report")

	stored, err := a.Store.ReportRepo().Get(ctx, h.SessionID)
	require.NoError(t, err)
	assert.Equal(t, rep.Feedback, stored.Feedback)
}

func TestNew_UsesInjectedProvider(t *testing.T) {
	mock := llm.NewMockProvider()
	a, err := New(context.Background(), testConfig(t), Options{Quiet: true, Provider: mock})
	require.NoError(t, err)
	defer a.Close()
	assert.Same(t, mock, a.Provider)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Interview.Questions = 0
	_, err := New(context.Background(), cfg, Options{Quiet: true})
	assert.ErrorContains(t, err, "interview.questions")
}

func TestPlan_KeepsExplicitValues(t *testing.T) {
	a := &App{Config: testConfig(t)}
	plan, err := a.Plan(session.Plan{Difficulty: interview.DifficultyPro, Questions: 3, Duration: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, interview.DifficultyPro, plan.Difficulty)
	assert.Equal(t, 3, plan.Questions)
	assert.Equal(t, time.Minute, plan.Duration)
}

func TestOpenStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "intervue.db")
	b, err := OpenStore(context.Background(), config.StoreConfig{DSN: path})
	require.NoError(t, err)
	defer b.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}
