package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognize_PlainJSON(t *testing.T) {
	rec := Recognize(`{"overall_score": 72, "technical_score": 80, "strengths": ["clear"], "detailed_feedback": "Good."}`)
	require.Equal(t, Recognized, rec.Quality)
	assert.False(t, rec.Repaired)
	require.NotNil(t, rec.Analysis.Overall)
	assert.Equal(t, 72.0, *rec.Analysis.Overall)
	assert.Equal(t, 80.0, *rec.Analysis.Category)
	assert.Nil(t, rec.Analysis.Communication)
	assert.Equal(t, []string{"clear"}, rec.Analysis.Strengths)
	assert.Equal(t, "Good.", rec.Analysis.Feedback)
}

func TestRecognize_FencedWithTrailingComma(t *testing.T) {
	raw := "Here is my evaluation of the candidate.\n\n```json\n{\n  \"overall_score\": 40,\n  \"dsa_score\": 40,\n  \"evaluations\": {\"Q1\": \"Fully Correct\", \"Q2\": \"Incorrect\",},\n  \"strengths\": [\"arrays\",],\n}\n```\nLet me know if you need more."
	rec := Recognize(raw)
	require.Equal(t, Recognized, rec.Quality)
	assert.True(t, rec.Repaired)
	assert.Equal(t, "Fully Correct", rec.Analysis.Evaluations["Q1"])
	assert.Equal(t, "Incorrect", rec.Analysis.Evaluations["Q2"])
	assert.Equal(t, []string{"arrays"}, rec.Analysis.Strengths)
}

func TestRecognize_SingleQuotes(t *testing.T) {
	rec := Recognize(`{'overall_score': 55, 'detailed_feedback': 'Solid effort'}`)
	require.Equal(t, Recognized, rec.Quality)
	assert.True(t, rec.Repaired)
	assert.Equal(t, 55.0, *rec.Analysis.Overall)
	assert.Equal(t, "Solid effort", rec.Analysis.Feedback)
}

func TestRecognize_TrailingCommaKeepsApostrophes(t *testing.T) {
	raw := "The candidate did well overall.\n```json\n{\n  \"overall_score\": 70,\n" +
		"  \"strengths\": [\"structured answers\"],\n" +
		"  \"improvements\": [\"Say: 'I would measure first'\"],\n}\n```"
	rec := Recognize(raw)
	require.Equal(t, Recognized, rec.Quality)
	assert.True(t, rec.Repaired)
	assert.Equal(t, 70.0, *rec.Analysis.Overall)
	assert.Equal(t, []string{"structured answers"}, rec.Analysis.Strengths)
	assert.Equal(t, []string{"Say: 'I would measure first'"}, rec.Analysis.Improvements)
}

func TestRecognize_MixedQuotes(t *testing.T) {
	rec := Recognize(`{'overall_score': 55, "strengths": ["said 'profile first'"], 'detailed_feedback': 'Use "Big O" terms'}`)
	require.Equal(t, Recognized, rec.Quality)
	assert.Equal(t, 55.0, *rec.Analysis.Overall)
	assert.Equal(t, []string{"said 'profile first'"}, rec.Analysis.Strengths)
	assert.Equal(t, `Use "Big O" terms`, rec.Analysis.Feedback)
}

func TestRecognize_LineComments(t *testing.T) {
	raw := "{\n  \"overall_score\": 60, // mandatory\n  \"detailed_feedback\": \"see http://example.com\"\n}"
	rec := Recognize(raw)
	require.Equal(t, Recognized, rec.Quality)
	assert.Equal(t, "see http://example.com", rec.Analysis.Feedback)
}

func TestRecognize_RegexFallback(t *testing.T) {
	raw := `overall_score: 64
dsa_score = nope
logical_reasoning_score: 58
evaluations are Q1: "Fully Correct" and Q2 = 'Partially Correct'
"detailed_feedback": "Mostly fine. \"Quotes\" survive."`
	rec := Recognize(raw)
	require.Equal(t, PartiallyRecognized, rec.Quality)
	assert.Equal(t, 64.0, *rec.Analysis.Overall)
	assert.Equal(t, 58.0, *rec.Analysis.Category)
	assert.Equal(t, "Fully Correct", rec.Analysis.Evaluations["Q1"])
	assert.Equal(t, "Partially Correct", rec.Analysis.Evaluations["Q2"])
	assert.Equal(t, `Mostly fine. "Quotes" survive.`, rec.Analysis.Feedback)
}

func TestRecognize_Unrecognized(t *testing.T) {
	for _, raw := range []string{"", "I cannot evaluate this interview.", "[1, 2, 3]"} {
		rec := Recognize(raw)
		assert.Equal(t, Unrecognized, rec.Quality, "input %q", raw)
	}
}

func TestRecognize_FlexibleValues(t *testing.T) {
	raw := `{"overall_score": "85%", "confidence_score": null, "strengths": "Calm under pressure",
		"evaluations": ["Fully Correct", {"verdict": "Incorrect"}], "detailed_feedback": {"summary": "ok"}}`
	rec := Recognize(raw)
	require.Equal(t, Recognized, rec.Quality)
	assert.Equal(t, 85.0, *rec.Analysis.Overall)
	assert.Nil(t, rec.Analysis.Confidence)
	assert.Equal(t, []string{"Calm under pressure"}, rec.Analysis.Strengths)
	assert.Equal(t, "Fully Correct", rec.Analysis.Evaluations["Q1"])
	assert.Equal(t, "Incorrect", rec.Analysis.Evaluations["Q2"])
	assert.Equal(t, `{"summary": "ok"}`, rec.Analysis.Feedback)
}

func TestRecognize_QuestionKeys(t *testing.T) {
	rec := Recognize(`{"evaluations": {"q1": "Fully Correct", "Question 2": "Incorrect", "3": "partial"}}`)
	require.Equal(t, Recognized, rec.Quality)
	assert.Equal(t, map[string]string{"Q1": "Fully Correct", "Q2": "Incorrect", "Q3": "partial"}, rec.Analysis.Evaluations)
}
