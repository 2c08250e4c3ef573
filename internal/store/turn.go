package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/intervue/internal/interview"
)

// ErrTurnOutOfOrder is returned when a pair would break strict index order
// or run past the session's current question.
var ErrTurnOutOfOrder = errors.New("question index out of order")

type turnRepo struct {
	db *sql.DB
}

func (r *turnRepo) Append(ctx context.Context, p interview.QAPair) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var current, total int
	sel := builder().Select("current_index", "total_questions").
		From(entsql.Table("sessions")).
		Where(entsql.EQ("id", p.SessionID))
	if err := queryRowQ(ctx, tx, sel).Scan(&current, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session %s: %w", p.SessionID, interview.ErrNotFound)
		}
		return fmt.Errorf("read session: %w", err)
	}

	var last sql.NullInt64
	maxSel := builder().Select(entsql.Max("idx")).
		From(entsql.Table("qa_pairs")).
		Where(entsql.EQ("session_id", p.SessionID))
	if err := queryRowQ(ctx, tx, maxSel).Scan(&last); err != nil {
		return fmt.Errorf("read last index: %w", err)
	}

	want := int(last.Int64) + 1
	if p.Index != want || p.Index > current || p.Index > total {
		return fmt.Errorf("append Q%d (expected Q%d, current %d, total %d): %w",
			p.Index, want, current, total, ErrTurnOutOfOrder)
	}

	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	answer := p.Answer
	if p.Skipped {
		answer = interview.SkipMarker
	}
	ins := builder().Insert("qa_pairs").
		Set("session_id", p.SessionID).
		Set("idx", p.Index).
		Set("question", p.Question).
		Set("answer", answer).
		Set("skipped", boolInt(p.Skipped)).
		Set("recorded_at", toMillis(p.RecordedAt))
	if _, err := execQ(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert pair: %w", err)
	}

	return tx.Commit()
}

func (r *turnRepo) List(ctx context.Context, sessionID string) ([]interview.QAPair, error) {
	sel := builder().Select("session_id", "idx", "question", "answer", "skipped", "recorded_at").
		From(entsql.Table("qa_pairs")).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("idx")
	rows, err := queryQ(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()

	var out []interview.QAPair
	for rows.Next() {
		var (
			p          interview.QAPair
			skipped    int
			recordedAt int64
		)
		if err := rows.Scan(&p.SessionID, &p.Index, &p.Question, &p.Answer, &skipped, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		p.Skipped = skipped != 0
		p.RecordedAt = fromMillis(recordedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
