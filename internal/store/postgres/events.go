package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/abhisek/intervue/internal/store"
)

type eventRepo struct {
	db *gorm.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error {
	seq, err := nextSequence(ctx, r.db)
	if err != nil {
		return err
	}
	m := llmEventModel{
		Sequence:     seq,
		Timestamp:    time.Now().UTC(),
		SessionID:    data.SessionID,
		Provider:     data.Provider,
		Model:        data.Model,
		Purpose:      data.Purpose,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		LatencyMs:    data.LatencyMs,
		Success:      data.Success,
		ErrorMessage: data.ErrorMessage,
		RequestBody:  data.RequestBody,
		ResponseBody: data.ResponseBody,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts store.QueryOpts) ([]store.LLMRequestEvent, error) {
	q := applyOpts(r.db.WithContext(ctx), opts).Order("sequence DESC")
	if opts.Purpose != "" {
		q = q.Where("purpose = ?", opts.Purpose)
	}
	var rows []llmEventModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	out := make([]store.LLMRequestEvent, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEvent())
	}
	return out, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*store.LLMRequestEvent, error) {
	var m llmEventModel
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	e := m.toEvent()
	return &e, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]store.LLMUsage, error) {
	return r.llmUsage(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]store.LLMUsage, error) {
	return r.llmUsage(ctx, "model")
}

func (r *eventRepo) llmUsage(ctx context.Context, groupBy string) ([]store.LLMUsage, error) {
	var rows []struct {
		GroupKey     string
		Calls        int
		InputTokens  int
		OutputTokens int
		AvgLatencyMs int64
	}
	err := r.db.WithContext(ctx).Model(&llmEventModel{}).
		Select(groupBy + " AS group_key, COUNT(*) AS calls, " +
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens, " +
			"CAST(AVG(latency_ms) AS BIGINT) AS avg_latency_ms").
		Group(groupBy).
		Order("calls DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", groupBy, err)
	}
	out := make([]store.LLMUsage, 0, len(rows))
	for _, row := range rows {
		u := store.LLMUsage{
			Calls:        row.Calls,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			AvgLatencyMs: row.AvgLatencyMs,
		}
		if groupBy == "purpose" {
			u.Purpose = row.GroupKey
		} else {
			u.Model = row.GroupKey
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *eventRepo) AppendSessionEvent(ctx context.Context, data store.SessionEventData) error {
	seq, err := nextSequence(ctx, r.db)
	if err != nil {
		return err
	}
	m := sessionEventModel{
		Sequence:  seq,
		Timestamp: time.Now().UTC(),
		SessionID: data.SessionID,
		Kind:      data.Kind,
		FromState: data.FromState,
		ToState:   data.ToState,
		Idx:       data.Index,
		Detail:    data.Detail,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *eventRepo) SessionEvents(ctx context.Context, sessionID string, opts store.QueryOpts) ([]store.SessionEvent, error) {
	opts.SessionID = sessionID
	var rows []sessionEventModel
	if err := applyOpts(r.db.WithContext(ctx), opts).Order("sequence").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	out := make([]store.SessionEvent, 0, len(rows))
	for _, m := range rows {
		out = append(out, store.SessionEvent{
			ID:        m.ID,
			Sequence:  m.Sequence,
			Timestamp: m.Timestamp.UTC(),
			SessionEventData: store.SessionEventData{
				SessionID: m.SessionID,
				Kind:      m.Kind,
				FromState: m.FromState,
				ToState:   m.ToState,
				Index:     m.Idx,
				Detail:    m.Detail,
			},
		})
	}
	return out, nil
}

// applyOpts adds the sequence, time, session and limit bounds of opts.
func applyOpts(q *gorm.DB, opts store.QueryOpts) *gorm.DB {
	if opts.After > 0 {
		q = q.Where("sequence > ?", opts.After)
	}
	if opts.Before > 0 {
		q = q.Where("sequence < ?", opts.Before)
	}
	if !opts.From.IsZero() {
		q = q.Where("timestamp >= ?", opts.From)
	}
	if !opts.To.IsZero() {
		q = q.Where("timestamp <= ?", opts.To)
	}
	if opts.SessionID != "" {
		q = q.Where("session_id = ?", opts.SessionID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	return q
}

func (m llmEventModel) toEvent() store.LLMRequestEvent {
	return store.LLMRequestEvent{
		ID:        m.ID,
		Sequence:  m.Sequence,
		Timestamp: m.Timestamp.UTC(),
		LLMRequestEventData: store.LLMRequestEventData{
			SessionID:    m.SessionID,
			Provider:     m.Provider,
			Model:        m.Model,
			Purpose:      m.Purpose,
			InputTokens:  m.InputTokens,
			OutputTokens: m.OutputTokens,
			LatencyMs:    m.LatencyMs,
			Success:      m.Success,
			ErrorMessage: m.ErrorMessage,
			RequestBody:  m.RequestBody,
			ResponseBody: m.ResponseBody,
		},
	}
}
