package questionforge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/intervue/internal/backoff"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/store"
)

// ErrNoveltyExhausted means every novelty attempt produced a question the
// candidate had already seen. It never escapes Generate: the fallback
// question is returned with this as its Reason.
var ErrNoveltyExhausted = errors.New("novelty attempts exhausted")

// errDiscarded marks a generated question that was thrown away and is
// worth another novelty attempt.
var errDiscarded = errors.New("question discarded")

// Generator produces the next interview question.
type Generator interface {
	// Generate returns the next question for the given context. Only
	// fatal oracle errors (bad credentials, rejected request) and context
	// cancellation are returned; everything else degrades to the fallback
	// question.
	Generate(ctx context.Context, in Context) (*Question, error)
}

// Forge implements Generator on an LLM provider and the candidate's
// question history.
type Forge struct {
	provider llm.Provider
	history  store.FingerprintRepo
	config   Config
	logger   *slog.Logger
}

var _ Generator = (*Forge)(nil)

// New creates a Forge. The provider is wrapped with the transport retry
// policy from cfg. history may be nil, in which case only the current
// session is checked for repeats.
func New(provider llm.Provider, history store.FingerprintRepo, cfg Config, logger *slog.Logger) *Forge {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "questionforge")
	return &Forge{
		provider: llm.WithRetry(provider, cfg.Transport, logger),
		history:  history,
		config:   cfg,
		logger:   logger,
	}
}

// Generate produces a question the candidate has not seen before.
func (f *Forge) Generate(ctx context.Context, in Context) (*Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestion)
	if in.SessionID != "" {
		ctx = llm.WithSession(ctx, in.SessionID)
	}
	log := f.logger.With("session_id", in.SessionID, "index", in.Index)

	req := llm.UserPrompt(systemPrompt, buildUserMessage(in, f.config))
	req.MaxTokens = f.config.MaxTokens
	req.Temperature = f.config.Temperature

	attempts := 0
	policy := backoff.Policy{
		MaxAttempts: f.config.NoveltyAttempts,
		InitialWait: f.config.NoveltyWait,
		Multiplier:  1,
		Retryable: func(err error) bool {
			return errors.Is(err, errDiscarded)
		},
		OnRetry: func(attempt int, err error, _ time.Duration) {
			log.InfoContext(ctx, "regenerating question", "attempt", attempt, "reason", err)
		},
	}

	q, err := backoff.Retry(ctx, policy, func(ctx context.Context, attempt int) (*Question, error) {
		attempts = attempt
		return f.attempt(ctx, in, req, attempt)
	})
	if err == nil {
		return q, nil
	}

	switch {
	case llm.IsFatal(err):
		return nil, fmt.Errorf("generate question %d: %w", in.Index, err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case backoff.IsExhausted(err):
		log.WarnContext(ctx, "no novel question, using fallback", "attempts", attempts, "last", err)
		return f.fallback(ctx, in, attempts, ErrNoveltyExhausted), nil
	default:
		log.WarnContext(ctx, "question generation failed, using fallback", "attempts", attempts, "error", err)
		return f.fallback(ctx, in, attempts, err), nil
	}
}

// attempt runs one novelty attempt: generate, normalize, validate and
// check the fingerprint.
func (f *Forge) attempt(ctx context.Context, in Context, req llm.Request, attempt int) (*Question, error) {
	resp, err := f.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	text := Normalize(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("empty reply: %w", errDiscarded)
	}
	for _, v := range f.config.Validators {
		if verr := v.Validate(text, in); verr != nil {
			return nil, fmt.Errorf("%w: %w", verr, errDiscarded)
		}
	}

	hash := Hash(text)
	if askedInSession(hash, in.Prior) {
		return nil, fmt.Errorf("repeat of a question in this session: %w", errDiscarded)
	}

	q := &Question{Text: text, Hash: hash, Source: SourceGenerated, Attempts: attempt}
	if f.history == nil || in.CandidateID == "" {
		return q, nil
	}

	seen, err := f.history.Lookup(ctx, in.CandidateID, hash)
	if err != nil {
		f.logger.WarnContext(ctx, "question history unavailable, accepting question", "hash", hash, "error", err)
		return q, nil
	}

	switch {
	case seen == nil:
		if err := f.history.Record(ctx, in.CandidateID, hash, text); err != nil {
			f.logger.WarnContext(ctx, "could not record question", "hash", hash, "error", err)
		}
		return q, nil
	case seen.Important:
		f.bumpSeen(ctx, in.CandidateID, hash)
		q.Source = SourceReused
		return q, nil
	default:
		f.bumpSeen(ctx, in.CandidateID, hash)
		return nil, fmt.Errorf("candidate saw %s %d times: %w", hash, seen.TimesSeen, errDiscarded)
	}
}

func (f *Forge) bumpSeen(ctx context.Context, candidateID, hash string) {
	if err := f.history.IncrementSeen(ctx, candidateID, hash); err != nil {
		f.logger.WarnContext(ctx, "could not increment times seen", "hash", hash, "error", err)
	}
}

// fallback returns the fixed question and registers its fingerprint so it
// is subject to future novelty checks.
func (f *Forge) fallback(ctx context.Context, in Context, attempts int, reason error) *Question {
	text := f.config.fallback()
	hash := Hash(text)
	if f.history != nil && in.CandidateID != "" {
		if err := f.history.Record(ctx, in.CandidateID, hash, text); err != nil {
			f.logger.WarnContext(ctx, "could not record fallback question", "error", err)
		}
	}
	return &Question{
		Text:     text,
		Hash:     hash,
		Source:   SourceFallback,
		Attempts: attempts,
		Reason:   reason,
	}
}
