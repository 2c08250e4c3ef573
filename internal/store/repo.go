package store

import (
	"context"
	"time"

	"github.com/abhisek/intervue/internal/interview"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
	Purpose   string    // exact purpose match, "" for all
	SessionID string    // exact session match, "" for all
}

// Backend groups the repositories of one storage backend.
type Backend interface {
	SessionRepo() SessionRepo
	TurnRepo() TurnRepo
	FingerprintRepo() FingerprintRepo
	ReportRepo() ReportRepo
	EventRepo() EventRepo
	Close() error
}

// SessionRepo persists interview sessions.
type SessionRepo interface {
	// Create inserts a new session. The ID must be set by the caller.
	Create(ctx context.Context, s *interview.Session) error

	// Get returns the session or interview.ErrNotFound.
	Get(ctx context.Context, id string) (*interview.Session, error)

	// Start marks the session active and records the start time.
	Start(ctx context.Context, id string, at time.Time) error

	// Advance moves the current question pointer forward. It never moves
	// backwards and never past the total.
	Advance(ctx context.Context, id string, index int) error

	// Complete marks the session completed. Repeated calls keep the first
	// completion time.
	Complete(ctx context.Context, id string, at time.Time) error

	// ListByCandidate returns a candidate's sessions, newest first.
	ListByCandidate(ctx context.Context, candidateID string, limit int) ([]interview.Session, error)
}

// TurnRepo persists question/answer pairs.
type TurnRepo interface {
	// Append records a pair. The index must be exactly one past the last
	// recorded index for the session and no greater than the current
	// question pointer. Recording the same index twice fails.
	Append(ctx context.Context, p interview.QAPair) error

	// List returns every pair of a session in index order.
	List(ctx context.Context, sessionID string) ([]interview.QAPair, error)
}

// FingerprintRepo persists per-candidate question history.
type FingerprintRepo interface {
	// Lookup returns the fingerprint or nil when the candidate never saw it.
	Lookup(ctx context.Context, candidateID, hash string) (*interview.Fingerprint, error)

	// Record inserts a fingerprint with timesSeen=1, or increments
	// timesSeen when it already exists.
	Record(ctx context.Context, candidateID, hash, text string) error

	// IncrementSeen bumps timesSeen of an existing fingerprint.
	IncrementSeen(ctx context.Context, candidateID, hash string) error

	// MarkImportant sets or clears the important flag. Returns
	// interview.ErrNotFound for an unknown fingerprint.
	MarkImportant(ctx context.Context, candidateID, hash string, important bool) error

	// List returns a candidate's fingerprints, most seen first.
	List(ctx context.Context, candidateID string) ([]interview.Fingerprint, error)
}

// ReportRepo persists score reports.
type ReportRepo interface {
	// Upsert inserts or replaces the report of a session.
	Upsert(ctx context.Context, r *interview.ScoreReport) error

	// Get returns the report or interview.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*interview.ScoreReport, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLMRequestEventData.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM calls by purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// SessionEventData captures a session lifecycle event.
type SessionEventData struct {
	SessionID string
	Kind      string // e.g. "started", "transition", "answer", "completed"
	FromState string
	ToState   string
	Index     int
	Detail    string
}

// SessionEvent is a stored SessionEventData.
type SessionEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// EventRepo provides append and query access to the event log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one LLM event, or nil when it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates LLM usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates LLM usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)

	// AppendSessionEvent records a session lifecycle event.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// SessionEvents returns a session's events in sequence order.
	SessionEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]SessionEvent, error)
}
