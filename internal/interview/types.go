package interview

import (
	"strconv"
	"strings"
	"time"
)

// SkipMarker is stored as the answer text of a question the candidate skipped.
const SkipMarker = "[Skipped]"

// Status is the lifecycle status of a Session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is one timed interview for one candidate.
type Session struct {
	ID          string     `json:"id"`
	CandidateID string     `json:"candidate_id"`
	Category    Category   `json:"category"`
	Subtopic    string     `json:"subtopic,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`

	// TotalQuestions is the number of questions the session will ask.
	TotalQuestions int `json:"total_questions"`

	// Duration is the overall time budget. Zero means untimed.
	Duration time.Duration `json:"duration"`

	Status Status `json:"status"`

	// CurrentIndex is the 1-based index of the last question served.
	// No QAPair may exist with an index above it.
	CurrentIndex int `json:"current_index"`

	// Profile carries optional personalization hints for question generation.
	Profile Profile `json:"profile,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// QAPair is one question and the candidate's answer to it.
type QAPair struct {
	SessionID  string    `json:"session_id"`
	Index      int       `json:"index"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Skipped    bool      `json:"skipped"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Answered reports whether the pair holds a real answer: non-empty and
// not a skip.
func (p QAPair) Answered() bool {
	if p.Skipped {
		return false
	}
	a := strings.TrimSpace(p.Answer)
	return a != "" && !strings.Contains(a, SkipMarker)
}

// AnswerText returns the answer as it appears in a transcript.
func (p QAPair) AnswerText() string {
	if !p.Answered() {
		return SkipMarker
	}
	return p.Answer
}

// Fingerprint is a per-candidate record of a question seen at least once.
type Fingerprint struct {
	CandidateID string `json:"candidate_id"`
	Hash        string `json:"hash"`
	Text        string `json:"text"`

	// Important marks operator-curated questions that may be reused.
	Important bool `json:"important"`
	TimesSeen int  `json:"times_seen"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile holds candidate hints used to personalize generated questions.
type Profile struct {
	Name              string   `json:"name,omitempty" yaml:"name"`
	CareerStage       string   `json:"career_stage,omitempty" yaml:"career_stage"`
	CurrentRole       string   `json:"current_role,omitempty" yaml:"current_role"`
	YearsOfExperience int      `json:"years_of_experience,omitempty" yaml:"years_of_experience"`
	TargetRole        string   `json:"target_role,omitempty" yaml:"target_role"`
	Skills            []string `json:"skills,omitempty" yaml:"skills"`
	Education         string   `json:"education,omitempty" yaml:"education"`
	ResumeSummary     string   `json:"resume_summary,omitempty" yaml:"resume_summary"`
}

// Empty reports whether no hint is set.
func (p Profile) Empty() bool {
	return p.CareerStage == "" && p.CurrentRole == "" && p.TargetRole == "" &&
		len(p.Skills) == 0 && p.Education == "" && p.ResumeSummary == ""
}

// Verdict is the per-question correctness judgment for verdict categories.
type Verdict string

const (
	VerdictFullyCorrect     Verdict = "Fully Correct"
	VerdictPartiallyCorrect Verdict = "Partially Correct (correct approach)"
	VerdictIncorrect        Verdict = "Incorrect"
)

// ScoreReport is the final per-session assessment.
type ScoreReport struct {
	SessionID string   `json:"session_id"`
	Category  Category `json:"category"`

	OverallScore        int `json:"overall_score"`
	CategoryScore       int `json:"category_score"`
	CommunicationScore  int `json:"communication_score"`
	ProblemSolvingScore int `json:"problem_solving_score"`
	ConfidenceScore     int `json:"confidence_score"`

	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Feedback     string   `json:"feedback"`

	// Evaluations maps "Q<n>" to the oracle's verdict text.
	Evaluations map[string]string `json:"evaluations,omitempty"`

	CorrectCount   int `json:"correct_count"`
	WrongCount     int `json:"wrong_count"`
	TotalQuestions int `json:"total_questions"`
	Answered       int `json:"answered"`
	Skipped        int `json:"skipped"`
	NotAnswered    int `json:"not_answered"`
	SkipPenalty    int `json:"skip_penalty"`

	// Recognition records how much of the oracle reply could be parsed.
	Recognition string `json:"recognition"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CorrectTally formats the correctness tally as "correct/total".
func (r ScoreReport) CorrectTally() string {
	return strconv.Itoa(r.CorrectCount) + "/" + strconv.Itoa(r.TotalQuestions)
}
