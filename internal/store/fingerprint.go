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

var fingerprintColumns = []string{
	"candidate_id", "hash", "text", "important", "times_seen", "created_at", "updated_at",
}

type fingerprintRepo struct {
	db *sql.DB
}

func (r *fingerprintRepo) Lookup(ctx context.Context, candidateID, hash string) (*interview.Fingerprint, error) {
	sel := builder().Select(fingerprintColumns...).
		From(entsql.Table("question_fingerprints")).
		Where(entsql.And(
			entsql.EQ("candidate_id", candidateID),
			entsql.EQ("hash", hash),
		))
	fp, err := scanFingerprint(queryRowQ(ctx, r.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return fp, nil
}

func (r *fingerprintRepo) Record(ctx context.Context, candidateID, hash, text string) error {
	now := toMillis(time.Now())
	ins := builder().Insert("question_fingerprints").
		Set("candidate_id", candidateID).
		Set("hash", hash).
		Set("text", text).
		Set("important", 0).
		Set("times_seen", 1).
		Set("created_at", now).
		Set("updated_at", now).
		OnConflict(
			entsql.ConflictColumns("candidate_id", "hash"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add("times_seen", 1)
				u.Set("updated_at", now)
			}),
		)
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (r *fingerprintRepo) IncrementSeen(ctx context.Context, candidateID, hash string) error {
	upd := builder().Update("question_fingerprints").
		Add("times_seen", 1).
		Set("updated_at", toMillis(time.Now())).
		Where(entsql.And(
			entsql.EQ("candidate_id", candidateID),
			entsql.EQ("hash", hash),
		))
	res, err := execQ(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("increment fingerprint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fingerprint %s: %w", hash, interview.ErrNotFound)
	}
	return nil
}

func (r *fingerprintRepo) MarkImportant(ctx context.Context, candidateID, hash string, important bool) error {
	upd := builder().Update("question_fingerprints").
		Set("important", boolInt(important)).
		Set("updated_at", toMillis(time.Now())).
		Where(entsql.And(
			entsql.EQ("candidate_id", candidateID),
			entsql.EQ("hash", hash),
		))
	res, err := execQ(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("mark fingerprint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fingerprint %s: %w", hash, interview.ErrNotFound)
	}
	return nil
}

func (r *fingerprintRepo) List(ctx context.Context, candidateID string) ([]interview.Fingerprint, error) {
	sel := builder().Select(fingerprintColumns...).
		From(entsql.Table("question_fingerprints")).
		Where(entsql.EQ("candidate_id", candidateID)).
		OrderBy(entsql.Desc("times_seen"), entsql.Desc("updated_at"))
	rows, err := queryQ(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	defer rows.Close()

	var out []interview.Fingerprint
	for rows.Next() {
		fp, err := scanFingerprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out = append(out, *fp)
	}
	return out, rows.Err()
}

func scanFingerprint(row rowScanner) (*interview.Fingerprint, error) {
	var (
		fp                   interview.Fingerprint
		important            int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&fp.CandidateID, &fp.Hash, &fp.Text, &important, &fp.TimesSeen, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	fp.Important = important != 0
	fp.CreatedAt = fromMillis(createdAt)
	fp.UpdatedAt = fromMillis(updatedAt)
	return &fp, nil
}
