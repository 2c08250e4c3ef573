package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/abhisek/intervue/internal/llm"
)

// Judgment is a semantic estimate of whether a transcript is a finished
// answer.
type Judgment struct {
	IsComplete bool    `json:"isComplete"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`

	// Heuristic is set when the rule-based judge produced the estimate.
	Heuristic bool `json:"heuristic,omitempty"`

	// Transcript is the text that was judged.
	Transcript string `json:"-"`
}

// Judge decides whether a partial transcript reads as a finished thought.
type Judge interface {
	Judge(ctx context.Context, question, transcript string) (Judgment, error)
}

// JudgmentSchema is the structured reply expected from the oracle.
var JudgmentSchema = &llm.Schema{
	Name:        "turn-judgment",
	Description: "Whether the candidate has finished answering",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isComplete": map[string]any{
				"type":        "boolean",
				"description": "True if the candidate is done speaking",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Confidence in the decision from 0.0 to 1.0",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief explanation of the decision",
			},
		},
		"required":             []any{"isComplete", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}

const judgeSystemPrompt = `You detect when someone has finished speaking in an interview conversation.
In interviews people pause naturally after completing an answer. Be proactive about detecting completion: moving on is better than waiting too long.

Mark the answer COMPLETE if any of these apply:
- It addresses the question with a complete thought, even if brief
- It ends naturally (period, question mark, exclamation mark)
- It ends with a closing phrase such as "that's all", "that's it" or "hope that helps"
- It is a substantive answer of three or more words

Mark it INCOMPLETE only if:
- It ends with an active filler ("um...", "uh...", "and um...")
- It is cut off mid-sentence ("I think that because...")
- It is one or two words that do not answer the question`

// LLMJudge asks the oracle for a completeness judgment.
type LLMJudge struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewLLMJudge creates a judge over provider. Judgments are not retried:
// a late judgment is worthless, so failures are left to the caller.
func NewLLMJudge(provider llm.Provider, logger *slog.Logger) *LLMJudge {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMJudge{provider: provider, logger: logger}
}

func (j *LLMJudge) Judge(ctx context.Context, question, transcript string) (Judgment, error) {
	if question == "" {
		question = "a question"
	}
	prompt := fmt.Sprintf("The candidate is answering: %q\n\nTranscript so far:\n%q\n\nHas the candidate finished the answer?", question, transcript)

	req := llm.UserPrompt(judgeSystemPrompt, prompt)
	req.Schema = JudgmentSchema
	req.MaxTokens = 200
	req.Temperature = 0.3

	resp, err := j.provider.Generate(llm.WithPurpose(ctx, llm.PurposeJudgment), req)
	if err != nil {
		return Judgment{}, err
	}

	var out Judgment
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Judgment{}, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	out.Confidence = min(max(out.Confidence, 0), 1)
	out.Transcript = transcript
	j.logger.DebugContext(ctx, "turn judgment",
		"complete", out.IsComplete, "confidence", out.Confidence, "reasoning", out.Reasoning)
	return out, nil
}

var (
	endPunct      = regexp.MustCompile(`[.!?]$`)
	naturalEnding = regexp.MustCompile(`(?i)(that's|that is|so|and that|thank you|thanks|i think|i believe|i feel)$`)
)

var fillerPhrases = []string{"um", "uh", "and", "but", "because", "so", "like", "well", "you know", "i mean"}

// HeuristicJudge is the rule-based judge used when the oracle is
// unavailable. Its confidence is 0.7 for complete and 0.3 otherwise.
type HeuristicJudge struct{}

func (HeuristicJudge) Judge(_ context.Context, _, transcript string) (Judgment, error) {
	return heuristic(transcript), nil
}

func heuristic(transcript string) Judgment {
	text := strings.TrimSpace(transcript)
	words := strings.Fields(text)

	tail := words[max(0, len(words)-3):]
	activeFiller := endsWithFiller(tail)
	punct := endPunct.MatchString(text)
	natural := naturalEnding.MatchString(text)

	complete := len(words) >= 3 && (!activeFiller || punct) && (punct || natural || len(words) > 8)
	j := Judgment{IsComplete: complete, Confidence: 0.3, Heuristic: true, Transcript: transcript}
	switch {
	case complete:
		j.Confidence = 0.7
		j.Reasoning = "sentence reads as finished"
	case activeFiller:
		j.Reasoning = "trailing filler word"
	default:
		j.Reasoning = "too short or no natural ending"
	}
	return j
}

// endsWithFiller reports whether any filler word or phrase appears among
// the last words.
func endsWithFiller(tail []string) bool {
	norm := make([]string, len(tail))
	for i, w := range tail {
		norm[i] = strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
	}
	joined := " " + strings.Join(norm, " ") + " "
	for _, f := range fillerPhrases {
		if strings.Contains(joined, " "+f+" ") {
			return true
		}
	}
	return false
}

// FallbackJudge consults Primary and falls back to the heuristic when it
// fails.
type FallbackJudge struct {
	Primary Judge
	Logger  *slog.Logger
}

func (f FallbackJudge) Judge(ctx context.Context, question, transcript string) (Judgment, error) {
	if f.Primary != nil {
		j, err := f.Primary.Judge(ctx, question, transcript)
		if err == nil {
			return j, nil
		}
		if ctx.Err() != nil {
			return Judgment{}, ctx.Err()
		}
		if f.Logger != nil {
			f.Logger.WarnContext(ctx, "completeness judgment failed, using heuristic", "error", err)
		}
	}
	return heuristic(transcript), nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
