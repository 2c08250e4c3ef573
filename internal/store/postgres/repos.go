package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/store"
)

type sessionRepo struct {
	db *gorm.DB
}

func (r *sessionRepo) Create(ctx context.Context, s *interview.Session) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = interview.StatusPending
	}
	m, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*interview.Session, error) {
	var m sessionModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, interview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return m.toDomain()
}

func (r *sessionRepo) Start(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND status = ?", id, string(interview.StatusPending)).
		Updates(map[string]any{
			"status":     string(interview.StatusActive),
			"started_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("start session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return &interview.SessionStateError{Op: "start", State: string(s.Status)}
	}
	return nil
}

func (r *sessionRepo) Advance(ctx context.Context, id string, index int) error {
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND current_index < ? AND total_questions >= ?", id, index, index).
		Update("current_index", index)
	if res.Error != nil {
		return fmt.Errorf("advance session: %w", res.Error)
	}
	if res.RowsAffected > 0 {
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
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]any{
			"status":       string(interview.StatusCompleted),
			"completed_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("complete session: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	_, err := r.Get(ctx, id)
	return err
}

func (r *sessionRepo) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]interview.Session, error) {
	q := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []sessionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]interview.Session, 0, len(rows))
	for _, m := range rows {
		s, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode session %s: %w", m.ID, err)
		}
		out = append(out, *s)
	}
	return out, nil
}

type turnRepo struct {
	db *gorm.DB
}

func (r *turnRepo) Append(ctx context.Context, p interview.QAPair) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess sessionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("current_index", "total_questions").
			First(&sess, "id = ?", p.SessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("session %s: %w", p.SessionID, interview.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}

		var last int
		err = tx.Model(&qaPairModel{}).
			Where("session_id = ?", p.SessionID).
			Select("COALESCE(MAX(idx), 0)").
			Scan(&last).Error
		if err != nil {
			return fmt.Errorf("read last index: %w", err)
		}

		want := last + 1
		if p.Index != want || p.Index > sess.CurrentIndex || p.Index > sess.TotalQuestions {
			return fmt.Errorf("append Q%d (expected Q%d, current %d, total %d): %w",
				p.Index, want, sess.CurrentIndex, sess.TotalQuestions, store.ErrTurnOutOfOrder)
		}

		if p.RecordedAt.IsZero() {
			p.RecordedAt = time.Now().UTC()
		}
		answer := p.Answer
		if p.Skipped {
			answer = interview.SkipMarker
		}
		m := qaPairModel{
			SessionID:  p.SessionID,
			Idx:        p.Index,
			Question:   p.Question,
			Answer:     answer,
			Skipped:    p.Skipped,
			RecordedAt: p.RecordedAt,
		}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("insert pair: %w", err)
		}
		return nil
	})
}

func (r *turnRepo) List(ctx context.Context, sessionID string) ([]interview.QAPair, error) {
	var rows []qaPairModel
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("idx").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	out := make([]interview.QAPair, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

type fingerprintRepo struct {
	db *gorm.DB
}

func (r *fingerprintRepo) Lookup(ctx context.Context, candidateID, hash string) (*interview.Fingerprint, error) {
	var m fingerprintModel
	err := r.db.WithContext(ctx).First(&m, "candidate_id = ? AND hash = ?", candidateID, hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}
	fp := m.toDomain()
	return &fp, nil
}

func (r *fingerprintRepo) Record(ctx context.Context, candidateID, hash, text string) error {
	now := time.Now().UTC()
	m := fingerprintModel{
		CandidateID: candidateID,
		Hash:        hash,
		Text:        text,
		TimesSeen:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "hash"}},
		DoUpdates: clause.Assignments(map[string]any{
			"times_seen": gorm.Expr("question_fingerprints.times_seen + 1"),
			"updated_at": now,
		}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (r *fingerprintRepo) IncrementSeen(ctx context.Context, candidateID, hash string) error {
	return r.update(ctx, candidateID, hash, map[string]any{
		"times_seen": gorm.Expr("times_seen + 1"),
		"updated_at": time.Now().UTC(),
	})
}

func (r *fingerprintRepo) MarkImportant(ctx context.Context, candidateID, hash string, important bool) error {
	return r.update(ctx, candidateID, hash, map[string]any{
		"important":  important,
		"updated_at": time.Now().UTC(),
	})
}

func (r *fingerprintRepo) update(ctx context.Context, candidateID, hash string, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&fingerprintModel{}).
		Where("candidate_id = ? AND hash = ?", candidateID, hash).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update fingerprint: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("fingerprint %s: %w", hash, interview.ErrNotFound)
	}
	return nil
}

func (r *fingerprintRepo) List(ctx context.Context, candidateID string) ([]interview.Fingerprint, error) {
	var rows []fingerprintModel
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("times_seen DESC, updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	out := make([]interview.Fingerprint, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

type reportRepo struct {
	db *gorm.DB
}

// reportUpdateColumns are overwritten when a report is re-analysed.
// created_at is left out so it keeps the first analysis time.
var reportUpdateColumns = []string{
	"category", "overall_score", "category_score", "communication_score",
	"problem_solving_score", "confidence_score", "strengths", "improvements",
	"feedback", "evaluations", "correct_count", "wrong_count", "total_questions",
	"answered", "skipped", "not_answered", "skip_penalty", "recognition", "updated_at",
}

func (r *reportRepo) Upsert(ctx context.Context, rep *interview.ScoreReport) error {
	strengths, improvements, evaluations, err := store.EncodeReportLists(rep)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now

	m := reportModel{
		SessionID:           rep.SessionID,
		Category:            string(rep.Category),
		OverallScore:        rep.OverallScore,
		CategoryScore:       rep.CategoryScore,
		CommunicationScore:  rep.CommunicationScore,
		ProblemSolvingScore: rep.ProblemSolvingScore,
		ConfidenceScore:     rep.ConfidenceScore,
		Strengths:           strengths,
		Improvements:        improvements,
		Feedback:            rep.Feedback,
		Evaluations:         evaluations,
		CorrectCount:        rep.CorrectCount,
		WrongCount:          rep.WrongCount,
		TotalQuestions:      rep.TotalQuestions,
		Answered:            rep.Answered,
		Skipped:             rep.Skipped,
		NotAnswered:         rep.NotAnswered,
		SkipPenalty:         rep.SkipPenalty,
		Recognition:         rep.Recognition,
		CreatedAt:           rep.CreatedAt,
		UpdatedAt:           rep.UpdatedAt,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns(reportUpdateColumns),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

func (r *reportRepo) Get(ctx context.Context, sessionID string) (*interview.ScoreReport, error) {
	var m reportModel
	err := r.db.WithContext(ctx).First(&m, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("report %s: %w", sessionID, interview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	rep := &interview.ScoreReport{
		SessionID:           m.SessionID,
		Category:            interview.Category(m.Category),
		OverallScore:        m.OverallScore,
		CategoryScore:       m.CategoryScore,
		CommunicationScore:  m.CommunicationScore,
		ProblemSolvingScore: m.ProblemSolvingScore,
		ConfidenceScore:     m.ConfidenceScore,
		Feedback:            m.Feedback,
		CorrectCount:        m.CorrectCount,
		WrongCount:          m.WrongCount,
		TotalQuestions:      m.TotalQuestions,
		Answered:            m.Answered,
		Skipped:             m.Skipped,
		NotAnswered:         m.NotAnswered,
		SkipPenalty:         m.SkipPenalty,
		Recognition:         m.Recognition,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
	if err := store.DecodeReportLists(rep, m.Strengths, m.Improvements, m.Evaluations); err != nil {
		return nil, err
	}
	return rep, nil
}
