package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// eventStream names the sequence shared by the oracle call log and the
// session event log. Ordering across both logs answers questions such as
// whether a turn judgment landed before or after the transition it
// triggered.
const eventStream = "events"

// sequence hands out gap-free ordering numbers from event_sequence. The
// upsert with RETURNING is atomic in SQLite; the mutex keeps concurrent
// writers in this process from contending on the write lock.
type sequence struct {
	mu   sync.Mutex
	db   *sql.DB
	name string
}

func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO event_sequence (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = value + 1
		 RETURNING value`, s.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", s.name, err)
	}
	return n, nil
}

// eventRepo implements EventRepo on SQLite.
type eventRepo struct {
	db  *sql.DB
	seq *sequence
}
