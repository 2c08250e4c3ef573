package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/intervue/internal/interview"
)

var reportColumns = []string{
	"session_id", "category",
	"overall_score", "category_score", "communication_score", "problem_solving_score", "confidence_score",
	"strengths", "improvements", "feedback", "evaluations",
	"correct_count", "wrong_count", "total_questions", "answered", "skipped", "not_answered", "skip_penalty",
	"recognition", "created_at", "updated_at",
}

type reportRepo struct {
	db *sql.DB
}

func (r *reportRepo) Upsert(ctx context.Context, rep *interview.ScoreReport) error {
	strengths, improvements, evaluations, err := EncodeReportLists(rep)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now

	ins := builder().Insert("score_reports").
		Set("session_id", rep.SessionID).
		Set("category", string(rep.Category)).
		Set("overall_score", rep.OverallScore).
		Set("category_score", rep.CategoryScore).
		Set("communication_score", rep.CommunicationScore).
		Set("problem_solving_score", rep.ProblemSolvingScore).
		Set("confidence_score", rep.ConfidenceScore).
		Set("strengths", strengths).
		Set("improvements", improvements).
		Set("feedback", rep.Feedback).
		Set("evaluations", evaluations).
		Set("correct_count", rep.CorrectCount).
		Set("wrong_count", rep.WrongCount).
		Set("total_questions", rep.TotalQuestions).
		Set("answered", rep.Answered).
		Set("skipped", rep.Skipped).
		Set("not_answered", rep.NotAnswered).
		Set("skip_penalty", rep.SkipPenalty).
		Set("recognition", rep.Recognition).
		Set("created_at", toMillis(rep.CreatedAt)).
		Set("updated_at", toMillis(rep.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.ResolveWithNewValues(),
			// Keep the original creation time on re-analysis.
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetIgnore("created_at")
			}),
		)
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

func (r *reportRepo) Get(ctx context.Context, sessionID string) (*interview.ScoreReport, error) {
	sel := builder().Select(reportColumns...).
		From(entsql.Table("score_reports")).
		Where(entsql.EQ("session_id", sessionID))

	var (
		rep                                  interview.ScoreReport
		category                             string
		strengths, improvements, evaluations string
		createdAt, updatedAt                 int64
	)
	err := queryRowQ(ctx, r.db, sel).Scan(
		&rep.SessionID, &category,
		&rep.OverallScore, &rep.CategoryScore, &rep.CommunicationScore, &rep.ProblemSolvingScore, &rep.ConfidenceScore,
		&strengths, &improvements, &rep.Feedback, &evaluations,
		&rep.CorrectCount, &rep.WrongCount, &rep.TotalQuestions, &rep.Answered, &rep.Skipped, &rep.NotAnswered, &rep.SkipPenalty,
		&rep.Recognition, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", sessionID, interview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	rep.Category = interview.Category(category)
	rep.CreatedAt = fromMillis(createdAt)
	rep.UpdatedAt = fromMillis(updatedAt)
	if err := DecodeReportLists(&rep, strengths, improvements, evaluations); err != nil {
		return nil, err
	}
	return &rep, nil
}

// EncodeReportLists serializes the list and map fields of a report as JSON
// text columns. Shared with the PostgreSQL backend.
func EncodeReportLists(rep *interview.ScoreReport) (strengths, improvements, evaluations string, err error) {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	s := rep.Strengths
	if s == nil {
		s = []string{}
	}
	i := rep.Improvements
	if i == nil {
		i = []string{}
	}
	e := rep.Evaluations
	if e == nil {
		e = map[string]string{}
	}
	if strengths, err = enc(s); err != nil {
		return "", "", "", fmt.Errorf("encode strengths: %w", err)
	}
	if improvements, err = enc(i); err != nil {
		return "", "", "", fmt.Errorf("encode improvements: %w", err)
	}
	if evaluations, err = enc(e); err != nil {
		return "", "", "", fmt.Errorf("encode evaluations: %w", err)
	}
	return strengths, improvements, evaluations, nil
}

// DecodeReportLists is the inverse of EncodeReportLists.
func DecodeReportLists(rep *interview.ScoreReport, strengths, improvements, evaluations string) error {
	if err := json.Unmarshal([]byte(strengths), &rep.Strengths); err != nil {
		return fmt.Errorf("decode strengths: %w", err)
	}
	if err := json.Unmarshal([]byte(improvements), &rep.Improvements); err != nil {
		return fmt.Errorf("decode improvements: %w", err)
	}
	if err := json.Unmarshal([]byte(evaluations), &rep.Evaluations); err != nil {
		return fmt.Errorf("decode evaluations: %w", err)
	}
	return nil
}
