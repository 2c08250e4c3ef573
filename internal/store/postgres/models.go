package postgres

import (
	"encoding/json"
	"time"

	"github.com/abhisek/intervue/internal/interview"
)

type sessionModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	CandidateID    string `gorm:"size:128;not null;index"`
	Category       string `gorm:"size:32;not null"`
	Subtopic       string
	Difficulty     string `gorm:"size:32;not null"`
	TotalQuestions int    `gorm:"not null"`
	DurationMs     int64  `gorm:"not null;default:0"`
	Status         string `gorm:"size:16;not null"`
	CurrentIndex   int    `gorm:"not null;default:0"`
	Profile        string `gorm:"type:text"`
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

func (sessionModel) TableName() string { return "sessions" }

type qaPairModel struct {
	SessionID  string `gorm:"primaryKey;size:64"`
	Idx        int    `gorm:"primaryKey;autoIncrement:false"`
	Question   string `gorm:"type:text;not null"`
	Answer     string `gorm:"type:text;not null"`
	Skipped    bool   `gorm:"not null;default:false"`
	RecordedAt time.Time
}

func (qaPairModel) TableName() string { return "qa_pairs" }

type fingerprintModel struct {
	CandidateID string `gorm:"primaryKey;size:128"`
	Hash        string `gorm:"primaryKey;size:32"`
	Text        string `gorm:"type:text;not null"`
	Important   bool   `gorm:"not null;default:false"`
	TimesSeen   int    `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (fingerprintModel) TableName() string { return "question_fingerprints" }

type reportModel struct {
	SessionID           string `gorm:"primaryKey;size:64"`
	Category            string `gorm:"size:32;not null"`
	OverallScore        int
	CategoryScore       int
	CommunicationScore  int
	ProblemSolvingScore int
	ConfidenceScore     int
	Strengths           string `gorm:"type:jsonb"`
	Improvements        string `gorm:"type:jsonb"`
	Feedback            string `gorm:"type:text"`
	Evaluations         string `gorm:"type:jsonb"`
	CorrectCount        int
	WrongCount          int
	TotalQuestions      int
	Answered            int
	Skipped             int
	NotAnswered         int
	SkipPenalty         int
	Recognition         string `gorm:"size:16"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (reportModel) TableName() string { return "score_reports" }

type llmEventModel struct {
	ID           int       `gorm:"primaryKey"`
	Sequence     int64     `gorm:"not null;index"`
	Timestamp    time.Time `gorm:"not null;index"`
	SessionID    string    `gorm:"size:64;index"`
	Provider     string    `gorm:"size:32"`
	Model        string    `gorm:"size:128"`
	Purpose      string    `gorm:"size:32;index"`
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string `gorm:"type:text"`
	RequestBody  string `gorm:"type:text"`
	ResponseBody string `gorm:"type:text"`
}

func (llmEventModel) TableName() string { return "llm_request_events" }

type sessionEventModel struct {
	ID        int       `gorm:"primaryKey"`
	Sequence  int64     `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null"`
	SessionID string    `gorm:"size:64;not null;index"`
	Kind      string    `gorm:"size:32;not null"`
	FromState string    `gorm:"size:32"`
	ToState   string    `gorm:"size:32"`
	Idx       int
	Detail    string `gorm:"type:text"`
}

func (sessionEventModel) TableName() string { return "session_events" }

func toSessionModel(s *interview.Session) (sessionModel, error) {
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return sessionModel{}, err
	}
	return sessionModel{
		ID:             s.ID,
		CandidateID:    s.CandidateID,
		Category:       string(s.Category),
		Subtopic:       s.Subtopic,
		Difficulty:     string(s.Difficulty),
		TotalQuestions: s.TotalQuestions,
		DurationMs:     s.Duration.Milliseconds(),
		Status:         string(s.Status),
		CurrentIndex:   s.CurrentIndex,
		Profile:        string(profile),
		CreatedAt:      s.CreatedAt,
		StartedAt:      timePtr(s.StartedAt),
		CompletedAt:    timePtr(s.CompletedAt),
	}, nil
}

func (m sessionModel) toDomain() (*interview.Session, error) {
	s := &interview.Session{
		ID:             m.ID,
		CandidateID:    m.CandidateID,
		Category:       interview.Category(m.Category),
		Subtopic:       m.Subtopic,
		Difficulty:     interview.Difficulty(m.Difficulty),
		TotalQuestions: m.TotalQuestions,
		Duration:       time.Duration(m.DurationMs) * time.Millisecond,
		Status:         interview.Status(m.Status),
		CurrentIndex:   m.CurrentIndex,
		CreatedAt:      m.CreatedAt.UTC(),
		StartedAt:      derefTime(m.StartedAt),
		CompletedAt:    derefTime(m.CompletedAt),
	}
	if m.Profile != "" {
		if err := json.Unmarshal([]byte(m.Profile), &s.Profile); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m qaPairModel) toDomain() interview.QAPair {
	return interview.QAPair{
		SessionID:  m.SessionID,
		Index:      m.Idx,
		Question:   m.Question,
		Answer:     m.Answer,
		Skipped:    m.Skipped,
		RecordedAt: m.RecordedAt.UTC(),
	}
}

func (m fingerprintModel) toDomain() interview.Fingerprint {
	return interview.Fingerprint{
		CandidateID: m.CandidateID,
		Hash:        m.Hash,
		Text:        m.Text,
		Important:   m.Important,
		TimesSeen:   m.TimesSeen,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
