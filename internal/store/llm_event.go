package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "session_id", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
	"request_body", "response_body",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ins := builder().Insert("llm_request_events").
		Set("sequence", seqNum).
		Set("timestamp", toMillis(time.Now())).
		Set("session_id", data.SessionID).
		Set("provider", data.Provider).
		Set("model", data.Model).
		Set("purpose", data.Purpose).
		Set("input_tokens", data.InputTokens).
		Set("output_tokens", data.OutputTokens).
		Set("latency_ms", data.LatencyMs).
		Set("success", boolInt(data.Success)).
		Set("error_message", data.ErrorMessage).
		Set("request_body", data.RequestBody).
		Set("response_body", data.ResponseBody)
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}

	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	sel := builder().Select(llmEventColumns...).
		From(entsql.Table("llm_request_events")).
		OrderBy(entsql.Desc("sequence"))
	if p := eventPredicates(opts); p != nil {
		sel = sel.Where(p)
	}
	if opts.Purpose != "" {
		sel = sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	rows, err := queryQ(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error) {
	sel := builder().Select(llmEventColumns...).
		From(entsql.Table("llm_request_events")).
		Where(entsql.EQ("id", id))
	e, err := scanLLMEvent(queryRowQ(ctx, r.db, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	return e, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.llmUsage(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.llmUsage(ctx, "model")
}

func (r *eventRepo) llmUsage(ctx context.Context, groupBy string) ([]LLMUsage, error) {
	sel := builder().Select(
		groupBy,
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
		entsql.As("CAST(AVG(latency_ms) AS INTEGER)", "avg_latency_ms"),
	).
		From(entsql.Table("llm_request_events")).
		GroupBy(groupBy).
		OrderBy(entsql.Desc("calls"))

	rows, err := queryQ(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", groupBy, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			key string
		)
		if err := rows.Scan(&key, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if groupBy == "purpose" {
			u.Purpose = key
		} else {
			u.Model = key
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// eventPredicates translates the sequence and time window of opts into a
// predicate, or nil when no bound is set.
func eventPredicates(opts QueryOpts) *entsql.Predicate {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", toMillis(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", toMillis(opts.To)))
	}
	if opts.SessionID != "" {
		preds = append(preds, entsql.EQ("session_id", opts.SessionID))
	}
	if len(preds) == 0 {
		return nil
	}
	return entsql.And(preds...)
}

func scanLLMEvent(row rowScanner) (*LLMRequestEvent, error) {
	var (
		e       LLMRequestEvent
		ts      int64
		success int
	)
	err := row.Scan(
		&e.ID, &e.Sequence, &ts, &e.SessionID, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &success, &e.ErrorMessage,
		&e.RequestBody, &e.ResponseBody,
	)
	if err != nil {
		return nil, err
	}
	e.Timestamp = fromMillis(ts)
	e.Success = success != 0
	return &e, nil
}
