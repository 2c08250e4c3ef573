package questionforge

import "github.com/abhisek/intervue/internal/interview"

// Source tells where a returned question came from.
type Source string

const (
	// SourceGenerated is a fresh question the candidate has never seen.
	SourceGenerated Source = "generated"

	// SourceReused is an operator-marked important question served again.
	SourceReused Source = "reused"

	// SourceFallback is the fixed question returned when generation failed
	// or every attempt produced a repeat.
	SourceFallback Source = "fallback"
)

// Question is a question ready to be put to the candidate.
type Question struct {
	// Text is the normalized question text.
	Text string

	// Hash is the fingerprint of Text (see Hash).
	Hash string

	Source Source

	// Attempts is the number of novelty attempts spent.
	Attempts int

	// Reason explains a fallback: ErrNoveltyExhausted or the transport
	// error that ended generation. Nil otherwise.
	Reason error
}

// Context holds everything needed to generate the next question.
type Context struct {
	CandidateID string
	SessionID   string
	Category    interview.Category

	// Subtopic narrows the category, e.g. "trees" for dsa or
	// "backend-golang" for technical. Optional.
	Subtopic   string
	Difficulty interview.Difficulty

	// Index is the 1-based index of the question being generated.
	Index int
	Total int

	// Prior holds the pairs already recorded in this session, in order.
	Prior []interview.QAPair

	// Profile carries optional personalization hints.
	Profile interview.Profile

	// Scenario describes a custom interview. Used only for the custom
	// category.
	Scenario *Scenario
}

// Scenario is an operator-defined custom interview brief.
type Scenario struct {
	Description string   `json:"description" yaml:"description"`
	Setting     string   `json:"setting,omitempty" yaml:"setting"`
	Goals       []string `json:"goals,omitempty" yaml:"goals"`
	FocusAreas  []string `json:"focus_areas,omitempty" yaml:"focus_areas"`
}
