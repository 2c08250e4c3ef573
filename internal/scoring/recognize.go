package scoring

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Quality tells how much of an oracle reply could be read.
type Quality string

const (
	// Recognized means the reply parsed as a JSON object, possibly after
	// textual repairs.
	Recognized Quality = "recognized"

	// PartiallyRecognized means individual fields were extracted by
	// pattern matching.
	PartiallyRecognized Quality = "partial"

	// Unrecognized means nothing usable was found.
	Unrecognized Quality = "unrecognized"

	// NotRequested marks reports built without consulting the oracle.
	NotRequested Quality = "none"
)

// Analysis is the oracle's assessment as far as it could be read. Nil
// scores were absent.
type Analysis struct {
	Overall        *float64
	Communication  *float64
	Category       *float64
	ProblemSolving *float64
	Confidence     *float64

	// Evaluations maps "Q<n>" to the verdict text.
	Evaluations map[string]string

	Strengths    []string
	Improvements []string
	Feedback     string
}

// Recognition is the tagged result of Recognize.
type Recognition struct {
	Quality  Quality
	Analysis Analysis

	// Repaired is set when parsing needed textual repairs.
	Repaired bool
}

var (
	fencedBlock  = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")
	strayFence   = regexp.MustCompile("```(?:json|JSON)?")
	trailingComa = regexp.MustCompile(`,\s*([}\]])`)
	lineComment  = regexp.MustCompile(`(?m)\s*//[^"\n]*$`)

	overallField  = regexp.MustCompile(`(?i)"?overall_score"?\s*:\s*"?(\d{1,3}(?:\.\d+)?)`)
	categoryField = regexp.MustCompile(`(?i)"?(dsa_score|logical_reasoning_score|technical_score|category_score)"?\s*:\s*"?(\d{1,3}(?:\.\d+)?)`)
	problemField  = regexp.MustCompile(`(?i)"?problem_solving_score"?\s*:\s*"?(\d{1,3}(?:\.\d+)?)`)
	commField     = regexp.MustCompile(`(?i)"?communication_score"?\s*:\s*"?(\d{1,3}(?:\.\d+)?)`)
	confField     = regexp.MustCompile(`(?i)"?confidence_score"?\s*:\s*"?(\d{1,3}(?:\.\d+)?)`)
	evalField     = regexp.MustCompile(`["']?Q?(\d+)["']?\s*[:=]\s*["']([^"']+)["']`)
	feedbackField = regexp.MustCompile(`(?s)"?detailed_feedback"?\s*:\s*"((?:[^"\\]|\\.)*)"`)
	questionKey   = regexp.MustCompile(`\d+`)
)

// Recognize reads an oracle analysis reply through an ordered repair
// cascade: extract a fenced block or the largest brace-delimited span,
// parse it, repair common defects and parse again, and finally pull
// individual fields out with patterns. It never fails; the Quality tells
// how far it got.
func Recognize(raw string) Recognition {
	for _, candidate := range candidates(raw) {
		if a, ok := parseAnalysis(candidate); ok {
			return Recognition{Quality: Recognized, Analysis: a}
		}
		fixed := candidate
		for _, fix := range repairs {
			fixed = fix(fixed)
			if a, ok := parseAnalysis(fixed); ok {
				return Recognition{Quality: Recognized, Analysis: a, Repaired: true}
			}
		}
	}
	if a, ok := extractFields(raw); ok {
		return Recognition{Quality: PartiallyRecognized, Analysis: a}
	}
	return Recognition{Quality: Unrecognized}
}

// candidates returns the spans worth parsing, best first.
func candidates(raw string) []string {
	var out []string
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		out = append(out, raw[i:j+1])
	}
	if len(out) == 0 {
		out = append(out, strings.TrimSpace(raw))
	}
	return out
}

// repairs run cumulatively, with a parse attempt after each stage. Quote
// conversion comes last so replies that only needed tidying keep their
// strings untouched.
var repairs = []func(string) string{tidy, doubleQuote}

func tidy(s string) string {
	s = strayFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = lineComment.ReplaceAllString(s, "")
	s = trailingComa.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// doubleQuote rewrites single-quoted keys and values as JSON strings.
// Apostrophes inside double-quoted strings are left alone.
func doubleQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	rs := []rune(s)
	inDouble, inSingle := false, false
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case inDouble:
			b.WriteRune(r)
			if r == '\\' && i+1 < len(rs) {
				i++
				b.WriteRune(rs[i])
			} else if r == '"' {
				inDouble = false
			}
		case inSingle:
			switch {
			case r == '\\' && i+1 < len(rs) && rs[i+1] == '\'':
				i++
				b.WriteRune('\'')
			case r == '\\' && i+1 < len(rs):
				b.WriteRune(r)
				i++
				b.WriteRune(rs[i])
			case r == '\'':
				inSingle = false
				b.WriteRune('"')
			case r == '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
		case r == '"':
			inDouble = true
			b.WriteRune(r)
		case r == '\'':
			inSingle = true
			b.WriteRune('"')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type rawAnalysis struct {
	Overall        number     `json:"overall_score"`
	Communication  number     `json:"communication_score"`
	DSA            number     `json:"dsa_score"`
	Logical        number     `json:"logical_reasoning_score"`
	Technical      number     `json:"technical_score"`
	CategoryScore  number     `json:"category_score"`
	ProblemSolving number     `json:"problem_solving_score"`
	Confidence     number     `json:"confidence_score"`
	Evaluations    any        `json:"evaluations"`
	Strengths      stringList `json:"strengths"`
	Improvements   stringList `json:"improvements"`
	Feedback       text       `json:"detailed_feedback"`
}

func parseAnalysis(s string) (Analysis, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return Analysis{}, false
	}
	var r rawAnalysis
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Analysis{}, false
	}
	a := Analysis{
		Overall:        r.Overall.ptr(),
		Communication:  r.Communication.ptr(),
		ProblemSolving: r.ProblemSolving.ptr(),
		Confidence:     r.Confidence.ptr(),
		Evaluations:    evaluations(r.Evaluations),
		Strengths:      r.Strengths,
		Improvements:   r.Improvements,
		Feedback:       string(r.Feedback),
	}
	for _, n := range []number{r.DSA, r.Logical, r.Technical, r.CategoryScore} {
		if n.ok {
			a.Category = n.ptr()
			break
		}
	}
	return a, true
}

// evaluations normalizes the verdict map. Keys like "Q1", "q1", "1" and
// "Question 1" all become "Q1"; an array is read as Q1..Qn.
func evaluations(v any) map[string]string {
	out := make(map[string]string)
	switch ev := v.(type) {
	case map[string]any:
		for k, val := range ev {
			if n := questionKey.FindString(k); n != "" {
				out["Q"+n] = verdictText(val)
			}
		}
	case []any:
		for i, val := range ev {
			out["Q"+strconv.Itoa(i+1)] = verdictText(val)
		}
	}
	return out
}

func verdictText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, k := range []string{"verdict", "evaluation", "result"} {
			if s, ok := t[k].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// extractFields is the last stage of the cascade.
func extractFields(raw string) (Analysis, bool) {
	var a Analysis
	found := false
	grab := func(re *regexp.Regexp, group int) *float64 {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			return nil
		}
		f, err := strconv.ParseFloat(m[group], 64)
		if err != nil {
			return nil
		}
		found = true
		return &f
	}
	a.Overall = grab(overallField, 1)
	a.Category = grab(categoryField, 2)
	a.ProblemSolving = grab(problemField, 1)
	a.Communication = grab(commField, 1)
	a.Confidence = grab(confField, 1)

	a.Evaluations = make(map[string]string)
	for _, m := range evalField.FindAllStringSubmatch(raw, -1) {
		a.Evaluations["Q"+m[1]] = strings.TrimSpace(m[2])
		found = true
	}
	if m := feedbackField.FindStringSubmatch(raw); m != nil {
		var s string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err == nil {
			a.Feedback = s
			found = true
		}
	}
	return a, found
}

// number accepts a JSON number or a numeric string such as "85" or "85%".
// Anything else is treated as absent.
type number struct {
	v  float64
	ok bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.TrimSuffix(strings.Trim(s, `"`), "%")
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		n.v, n.ok = f, true
	}
	return nil
}

func (n number) ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

// stringList accepts an array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var many []any
	if err := json.Unmarshal(b, &many); err == nil {
		for _, v := range many {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				*l = append(*l, strings.TrimSpace(s))
			}
		}
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil && strings.TrimSpace(one) != "" {
		*l = stringList{strings.TrimSpace(one)}
	}
	return nil
}

// text accepts a string or any other JSON value, kept verbatim.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	if string(b) != "null" {
		*t = text(b)
	}
	return nil
}
