// Package app assembles the interview runtime from configuration: store,
// oracle, question forge, turn judge, scorer and the session service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/intervue/internal/config"
	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/logging"
	"github.com/abhisek/intervue/internal/questionforge"
	"github.com/abhisek/intervue/internal/scoring"
	"github.com/abhisek/intervue/internal/session"
	"github.com/abhisek/intervue/internal/store"
	"github.com/abhisek/intervue/internal/store/postgres"
	"github.com/abhisek/intervue/internal/turn"
)

// Options adjust how the runtime is built.
type Options struct {
	// Quiet keeps logs off stderr, for interactive terminal use.
	Quiet bool

	// Provider replaces the configured oracle, mostly for tests.
	Provider llm.Provider
}

// App is a running interview runtime.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    store.Backend
	Provider llm.Provider
	Service  *session.Service

	log *logging.Logger
}

// New builds the runtime. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logs, err := logging.New(cfg.Log, opts.Quiet)
	if err != nil {
		return nil, err
	}
	logger := logs.Logger

	backend, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		logs.Close()
		return nil, err
	}

	provider := opts.Provider
	if provider == nil {
		provider, err = llm.NewProvider(ctx, cfg.LLM, backend.EventRepo(), logger)
		if err != nil {
			backend.Close()
			logs.Close()
			return nil, fmt.Errorf("oracle: %w", err)
		}
	}

	forge := questionforge.New(provider, backend.FingerprintRepo(), cfg.Forge.Apply(questionforge.DefaultConfig()), logger)
	resolver := scoring.NewResolver(provider, backend.ReportRepo(), backend.SessionRepo(), scoring.Options{
		Timeout:     cfg.Scoring.Timeout,
		MaxTokens:   cfg.Scoring.MaxTokens,
		Temperature: cfg.Scoring.Temperature,
		Logger:      logger,
	})

	judge := turn.FallbackJudge{Logger: logger}
	if cfg.Interview.UseLLMJudge {
		judge.Primary = turn.NewLLMJudge(provider, logger)
	}

	svc := session.NewService(session.Deps{
		Store:  backend,
		Forge:  forge,
		Scorer: resolver,
		Judge:  judge,
		Turn:   cfg.Turn,
		Logger: logger,
	})

	logger.Debug("runtime ready",
		"provider", cfg.LLM.Provider,
		"postgres", cfg.Store.Postgres(),
		"llm_judge", cfg.Interview.UseLLMJudge)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    backend,
		Provider: provider,
		Service:  svc,
		log:      logs,
	}, nil
}

// Plan fills a plan's unset fields from the interview defaults.
func (a *App) Plan(p session.Plan) (session.Plan, error) {
	def := a.Config.Interview
	if p.Difficulty == "" {
		d, err := interview.ParseDifficulty(def.Difficulty)
		if err != nil {
			return p, err
		}
		p.Difficulty = d
	}
	if p.Questions == 0 {
		p.Questions = def.Questions
	}
	if p.Duration == 0 {
		p.Duration = def.Duration
	}
	return p, nil
}

// Close stops live sessions and releases the store and log file.
func (a *App) Close() error {
	a.Service.Close()
	return errors.Join(a.Store.Close(), a.log.Close())
}

// OpenStore opens the configured backend: PostgreSQL for postgres:// DSNs,
// SQLite otherwise. An empty DSN uses the default SQLite file.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	if cfg.Postgres() {
		b, err := postgres.Open(ctx, cfg.DSN, cfg.Pool)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return b, nil
	}

	path := cfg.DSN
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	} else if !isSQLiteURI(path) {
		if err := store.EnsureDir(path); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func isSQLiteURI(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || dsn == ":memory:"
}
