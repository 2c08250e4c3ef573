package scoring

import (
	"fmt"
	"strings"

	"github.com/abhisek/intervue/internal/interview"
)

const systemPrompt = `You are a fair and experienced interview assessor. You read an interview transcript and grade the candidate's answers.
Answers marked [Skipped] were not attempted and earn no credit. Reply with a single JSON object and nothing else.`

// Transcript renders pairs as "Q{n}: question\nA: answer" blocks separated
// by a blank line. Skipped or empty answers appear as [Skipped].
func Transcript(pairs []interview.QAPair) string {
	blocks := make([]string, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, fmt.Sprintf("Q%d: %s\nA: %s", p.Index, p.Question, p.AnswerText()))
	}
	return strings.Join(blocks, "\n\n")
}

// categoryKey is the JSON field that carries the category score.
func categoryKey(c interview.Category) string {
	switch c {
	case interview.CategoryDSA:
		return "dsa_score"
	case interview.CategoryAptitude:
		return "logical_reasoning_score"
	default:
		return "technical_score"
	}
}

func skillName(c interview.Category) string {
	if c == interview.CategoryAptitude {
		return "Logical Reasoning & Quantitative Aptitude"
	}
	return "Data Structures & Algorithms (DSA)"
}

func buildPrompt(sess *interview.Session, pairs []interview.QAPair, t tally) string {
	if sess.Category.Verdict() {
		return verdictPrompt(sess, pairs, t)
	}
	return freeFormPrompt(sess, pairs, t)
}

func verdictPrompt(sess *interview.Session, pairs []interview.QAPair, t tally) string {
	var b strings.Builder
	skill := skillName(sess.Category)
	key := categoryKey(sess.Category)

	fmt.Fprintf(&b, "Evaluate this %s interview.\n\n", skill)
	fmt.Fprintf(&b, "Total questions: %d\nAnswered: %d\nSkipped: %d\n\n", t.total, t.answered, t.skipped)
	b.WriteString("Transcript:\n")
	b.WriteString(Transcript(pairs))
	b.WriteString("\n\n")

	b.WriteString("Judge every question with exactly one verdict:\n")
	b.WriteString("1. \"Fully Correct\": the answer is correct, or the approach is right with only minor slips.\n")
	b.WriteString("2. \"Partially Correct (correct approach)\": the idea is sound but 30-70% complete.\n")
	b.WriteString("3. \"Incorrect\": less than 30% correct, off-topic, or skipped.\n")
	b.WriteString("When in doubt between Fully Correct and Partially Correct, choose Fully Correct.\n\n")

	fmt.Fprintf(&b, "Scoring: each question is worth 100/%d points. A partially correct answer earns half. ", t.total)
	fmt.Fprintf(&b, "The maximum possible score is (%d/%d)*100 because only answered questions can earn credit.\n\n", t.answered, t.total)

	b.WriteString("Reply with this JSON object:\n")
	b.WriteString("{\n")
	b.WriteString("  \"overall_score\": <0-100>,\n")
	fmt.Fprintf(&b, "  \"%s\": <0-100>,\n", key)
	b.WriteString("  \"problem_solving_score\": <0-100>,\n")
	b.WriteString("  \"evaluations\": {")
	for i := 1; i <= t.total; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "\"Q%d\": \"<verdict>\"", i)
	}
	b.WriteString("},\n")
	b.WriteString("  \"strengths\": [\"...\"],\n")
	b.WriteString("  \"improvements\": [\"...\"],\n")
	b.WriteString("  \"detailed_feedback\": \"...\"\n")
	b.WriteString("}\n")
	return b.String()
}

func freeFormPrompt(sess *interview.Session, pairs []interview.QAPair, t tally) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Evaluate this %s interview", sess.Category.Label())
	if sess.Subtopic != "" {
		fmt.Fprintf(&b, " focused on %s", sess.Subtopic)
	}
	fmt.Fprintf(&b, " at %s difficulty.\n\n", sess.Difficulty)

	fmt.Fprintf(&b, "Total Questions: %d\nAnswered Questions: %d\nQuestions Skipped: %d\n\n", t.total, t.answered, t.skipped)
	b.WriteString("Transcript:\n")
	b.WriteString(Transcript(pairs))
	b.WriteString("\n\n")

	b.WriteString("Grade only what the candidate actually said. ")
	b.WriteString("Scores must reflect participation: a candidate who answered few questions cannot score highly.\n\n")

	b.WriteString("Reply with this JSON object:\n")
	b.WriteString("{\n")
	b.WriteString("  \"overall_score\": <0-100>,\n")
	b.WriteString("  \"communication_score\": <0-100>,\n")
	b.WriteString("  \"technical_score\": <0-100>,\n")
	b.WriteString("  \"problem_solving_score\": <0-100>,\n")
	b.WriteString("  \"confidence_score\": <0-100>,\n")
	b.WriteString("  \"strengths\": [\"...\"],\n")
	b.WriteString("  \"improvements\": [\"...\"],\n")
	b.WriteString("  \"detailed_feedback\": \"...\"\n")
	b.WriteString("}\n")
	return b.String()
}
