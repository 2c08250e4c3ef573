package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/llm"
	"github.com/abhisek/intervue/internal/store"
)

// ErrAnalysisFailed is returned when the oracle could not be reached or
// did not answer in time. It is distinct from a zero report.
var ErrAnalysisFailed = errors.New("analysis failed")

// DefaultTimeout bounds the single analysis call.
const DefaultTimeout = 60 * time.Second

// SkipPenaltyPoints is the informational penalty per skipped question.
const SkipPenaltyPoints = 5

const (
	zeroImprovement = "No participation detected. Please attempt to answer the questions in your next interview."
	zeroFeedback    = "You did not provide any meaningful responses during this interview. To get accurate feedback and improve your interview skills, please ensure you answer the interview questions thoroughly in your next session."
	unreadFeedback  = "The automated assessment could not be read for this interview. Scores reflect participation only."
)

var (
	fullyCorrect     = regexp.MustCompile(`fully\s*correct`)
	partiallyCorrect = regexp.MustCompile(`partially\s*correct|partial`)
)

// Options configures a Resolver.
type Options struct {
	// Timeout bounds the oracle call. Defaults to DefaultTimeout.
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger

	// Now is used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Resolver turns a finished session into a persisted ScoreReport.
type Resolver struct {
	provider llm.Provider
	reports  store.ReportRepo
	sessions store.SessionRepo
	opts     Options
	logger   *slog.Logger
}

// NewResolver creates a Resolver. sessions may be nil, in which case the
// completion timestamp is not recorded.
func NewResolver(provider llm.Provider, reports store.ReportRepo, sessions store.SessionRepo, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		reports:  reports,
		sessions: sessions,
		opts:     opts,
		logger:   logger.With("component", "scoring"),
	}
}

// Resolve scores the session's pairs, stores the report and marks the
// session completed. The oracle is consulted at most once and never when
// nothing was answered.
func (r *Resolver) Resolve(ctx context.Context, sess *interview.Session, pairs []interview.QAPair) (*interview.ScoreReport, error) {
	log := r.logger.With("session_id", sess.ID)
	t := count(sess, pairs)

	var report *interview.ScoreReport
	if t.answered == 0 {
		log.InfoContext(ctx, "no answers, writing zero report", "total", t.total, "skipped", t.skipped)
		report = zeroReport(sess, t)
	} else {
		raw, err := r.analyze(ctx, sess, pairs, t)
		if err != nil {
			log.ErrorContext(ctx, "analysis failed", "error", err)
			return nil, err
		}
		rec := Recognize(raw)
		if rec.Quality != Recognized || rec.Repaired {
			log.WarnContext(ctx, "analysis reply needed recovery", "quality", rec.Quality, "repaired", rec.Repaired)
		}
		report = Score(sess, pairs, rec)
	}

	now := r.opts.Now()
	report.CreatedAt, report.UpdatedAt = now, now
	if err := r.reports.Upsert(ctx, report); err != nil {
		return nil, &interview.PersistenceError{Op: "upsert report", Err: err}
	}

	if r.sessions != nil {
		if err := r.sessions.Complete(ctx, sess.ID, now); err != nil {
			log.WarnContext(ctx, "could not mark session completed", "error", err)
		}
	}

	log.InfoContext(ctx, "session scored",
		"overall", report.OverallScore,
		"category", report.CategoryScore,
		"answered", report.Answered,
		"recognition", report.Recognition)
	return report, nil
}

func (r *Resolver) analyze(ctx context.Context, sess *interview.Session, pairs []interview.QAPair, t tally) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	ctx = llm.WithSession(llm.WithPurpose(ctx, llm.PurposeAnalysis), sess.ID)

	req := llm.UserPrompt(systemPrompt, buildPrompt(sess, pairs, t))
	req.MaxTokens = r.opts.MaxTokens
	req.Temperature = r.opts.Temperature

	resp, err := r.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	return resp.Text(), nil
}

type tally struct {
	total       int
	answered    int
	skipped     int
	notAnswered int
	answeredAt  map[int]bool
}

func (t tally) ratio() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.answered) / float64(t.total)
}

// count tallies participation. Recorded pairs without a real answer count
// as skipped; questions never reached count as not answered.
func count(sess *interview.Session, pairs []interview.QAPair) tally {
	t := tally{total: sess.TotalQuestions, answeredAt: make(map[int]bool)}
	for _, p := range pairs {
		if p.Answered() {
			t.answered++
			t.answeredAt[p.Index] = true
		} else {
			t.skipped++
		}
	}
	if t.total < len(pairs) {
		t.total = len(pairs)
	}
	t.notAnswered = max(t.total-t.answered-t.skipped, 0)
	return t
}

func zeroReport(sess *interview.Session, t tally) *interview.ScoreReport {
	return &interview.ScoreReport{
		SessionID:      sess.ID,
		Category:       sess.Category,
		Strengths:      []string{},
		Improvements:   []string{zeroImprovement},
		Feedback:       zeroFeedback,
		Evaluations:    map[string]string{},
		TotalQuestions: t.total,
		Skipped:        t.skipped,
		NotAnswered:    t.notAnswered,
		SkipPenalty:    t.skipped * SkipPenaltyPoints,
		Recognition:    string(NotRequested),
	}
}

// Score builds a report from a recognized oracle reply. It is pure: scores
// for verdict categories are recomputed from the verdicts, participation
// caps are applied and every score is clamped to 0..100 and rounded.
func Score(sess *interview.Session, pairs []interview.QAPair, rec Recognition) *interview.ScoreReport {
	t := count(sess, pairs)
	a := rec.Analysis

	report := &interview.ScoreReport{
		SessionID:      sess.ID,
		Category:       sess.Category,
		Strengths:      nonNil(a.Strengths),
		Improvements:   nonNil(a.Improvements),
		Feedback:       strings.TrimSpace(a.Feedback),
		Evaluations:    a.Evaluations,
		TotalQuestions: t.total,
		Answered:       t.answered,
		Skipped:        t.skipped,
		NotAnswered:    t.notAnswered,
		SkipPenalty:    t.skipped * SkipPenaltyPoints,
		Recognition:    string(rec.Quality),
	}
	if report.Evaluations == nil {
		report.Evaluations = map[string]string{}
	}
	if report.Feedback == "" && rec.Quality == Unrecognized {
		report.Feedback = unreadFeedback
	}

	var overall, category, problem, comm, conf float64
	if sess.Category.Verdict() {
		category = tallyVerdicts(report, t)
		overall, problem = category, category
	} else {
		overall = value(a.Overall)
		category = value(a.Category)
		problem = value(a.ProblemSolving)
		comm = value(a.Communication) * t.ratio()
		conf = value(a.Confidence) * t.ratio()
	}

	limit := t.ratio() * 100
	overall = math.Min(overall, limit)
	category = math.Min(category, limit)
	problem = math.Min(problem, limit)

	report.OverallScore = clampRound(overall)
	report.CategoryScore = clampRound(category)
	report.ProblemSolvingScore = clampRound(problem)
	report.CommunicationScore = clampRound(comm)
	report.ConfidenceScore = clampRound(conf)
	return report
}

// tallyVerdicts walks every question index and returns the recomputed
// category score. Correct and wrong counts are set on the report and only
// cover answered questions, so CorrectCount never exceeds Answered.
func tallyVerdicts(report *interview.ScoreReport, t tally) float64 {
	if t.total == 0 {
		return 0
	}
	per := 100 / float64(t.total)
	var score float64
	for i := 1; i <= t.total; i++ {
		v, ok := report.Evaluations["Q"+strconv.Itoa(i)]
		if !ok {
			continue
		}
		switch norm := strings.ToLower(strings.Trim(v, `"' `)); {
		case fullyCorrect.MatchString(norm):
			score += per
			if t.answeredAt[i] {
				report.CorrectCount++
			}
		case partiallyCorrect.MatchString(norm):
			score += per / 2
		default:
			if t.answeredAt[i] {
				report.WrongCount++
			}
		}
	}
	return score
}

func value(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return *p
}

func clampRound(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
