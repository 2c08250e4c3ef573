package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendSessionEvent(ctx context.Context, data SessionEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ins := builder().Insert("session_events").
		Set("sequence", seqNum).
		Set("timestamp", toMillis(time.Now())).
		Set("session_id", data.SessionID).
		Set("kind", data.Kind).
		Set("from_state", data.FromState).
		Set("to_state", data.ToState).
		Set("idx", data.Index).
		Set("detail", data.Detail)
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *eventRepo) SessionEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]SessionEvent, error) {
	opts.SessionID = sessionID
	sel := builder().Select("id", "sequence", "timestamp", "session_id", "kind", "from_state", "to_state", "idx", "detail").
		From(entsql.Table("session_events")).
		Where(eventPredicates(opts)).
		OrderBy("sequence")
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	rows, err := queryQ(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var out []SessionEvent
	for rows.Next() {
		var (
			e  SessionEvent
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &ts, &e.SessionID, &e.Kind, &e.FromState, &e.ToState, &e.Index, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
