package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL for every table. Statements are idempotent so Open
// can run them on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		category TEXT NOT NULL,
		subtopic TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL,
		total_questions INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		current_index INTEGER NOT NULL DEFAULT 0,
		profile TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		started_at INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_candidate ON sessions (candidate_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS qa_pairs (
		session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		recorded_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, idx)
	)`,

	`CREATE TABLE IF NOT EXISTS question_fingerprints (
		candidate_id TEXT NOT NULL,
		hash TEXT NOT NULL,
		text TEXT NOT NULL,
		important INTEGER NOT NULL DEFAULT 0,
		times_seen INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (candidate_id, hash)
	)`,

	`CREATE TABLE IF NOT EXISTS score_reports (
		session_id TEXT PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		overall_score INTEGER NOT NULL,
		category_score INTEGER NOT NULL,
		communication_score INTEGER NOT NULL,
		problem_solving_score INTEGER NOT NULL,
		confidence_score INTEGER NOT NULL,
		strengths TEXT NOT NULL DEFAULT '[]',
		improvements TEXT NOT NULL DEFAULT '[]',
		feedback TEXT NOT NULL DEFAULT '',
		evaluations TEXT NOT NULL DEFAULT '{}',
		correct_count INTEGER NOT NULL DEFAULT 0,
		wrong_count INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		answered INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		not_answered INTEGER NOT NULL DEFAULT 0,
		skip_penalty INTEGER NOT NULL DEFAULT 0,
		recognition TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		from_state TEXT NOT NULL DEFAULT '',
		to_state TEXT NOT NULL DEFAULT '',
		idx INTEGER NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (session_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS event_sequence (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
