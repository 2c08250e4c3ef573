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

var sessionColumns = []string{
	"id", "candidate_id", "category", "subtopic", "difficulty",
	"total_questions", "duration_ms", "status", "current_index", "profile",
	"created_at", "started_at", "completed_at",
}

type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) Create(ctx context.Context, s *interview.Session) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = interview.StatusPending
	}

	ins := builder().Insert("sessions").
		Set("id", s.ID).
		Set("candidate_id", s.CandidateID).
		Set("category", string(s.Category)).
		Set("subtopic", s.Subtopic).
		Set("difficulty", string(s.Difficulty)).
		Set("total_questions", s.TotalQuestions).
		Set("duration_ms", s.Duration.Milliseconds()).
		Set("status", string(s.Status)).
		Set("current_index", s.CurrentIndex).
		Set("profile", string(profile)).
		Set("created_at", toMillis(s.CreatedAt)).
		Set("started_at", toMillis(s.StartedAt)).
		Set("completed_at", toMillis(s.CompletedAt))
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*interview.Session, error) {
	sel := builder().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		Where(entsql.EQ("id", id))
	s, err := scanSession(queryRowQ(ctx, r.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, interview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Start(ctx context.Context, id string, at time.Time) error {
	upd := builder().Update("sessions").
		Set("status", string(interview.StatusActive)).
		Set("started_at", toMillis(at)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("status", string(interview.StatusPending)),
		))
	return r.mustAffect(ctx, id, upd)
}

func (r *sessionRepo) Advance(ctx context.Context, id string, index int) error {
	upd := builder().Update("sessions").
		Set("current_index", index).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.LT("current_index", index),
			entsql.GTE("total_questions", index),
		))
	res, err := execQ(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.CurrentIndex == index {
		return nil
	}
	return fmt.Errorf("advance session %s from %d to %d of %d: out of order",
		id, s.CurrentIndex, index, s.TotalQuestions)
}

func (r *sessionRepo) Complete(ctx context.Context, id string, at time.Time) error {
	upd := builder().Update("sessions").
		Set("status", string(interview.StatusCompleted)).
		Set("completed_at", toMillis(at)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("completed_at", 0),
		))
	res, err := execQ(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Already completed, or missing.
	_, err = r.Get(ctx, id)
	return err
}

func (r *sessionRepo) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]interview.Session, error) {
	sel := builder().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		Where(entsql.EQ("candidate_id", candidateID)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	rows, err := queryQ(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []interview.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) mustAffect(ctx context.Context, id string, upd *entsql.UpdateBuilder) error {
	res, err := execQ(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return &interview.SessionStateError{Op: "start", State: string(s.Status)}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*interview.Session, error) {
	var (
		s                                 interview.Session
		category, difficulty, status      string
		profile                           string
		durationMs                        int64
		createdAt, startedAt, completedAt int64
	)
	err := row.Scan(
		&s.ID, &s.CandidateID, &category, &s.Subtopic, &difficulty,
		&s.TotalQuestions, &durationMs, &status, &s.CurrentIndex, &profile,
		&createdAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Category = interview.Category(category)
	s.Difficulty = interview.Difficulty(difficulty)
	s.Status = interview.Status(status)
	s.Duration = time.Duration(durationMs) * time.Millisecond
	s.CreatedAt = fromMillis(createdAt)
	s.StartedAt = fromMillis(startedAt)
	s.CompletedAt = fromMillis(completedAt)
	if profile != "" {
		if err := json.Unmarshal([]byte(profile), &s.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return &s, nil
}
