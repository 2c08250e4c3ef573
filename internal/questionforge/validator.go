package questionforge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validator checks a normalized question before it is accepted.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate returns nil if text is acceptable for the given context.
	Validate(text string, in Context) *ValidationError
}

// ValidationError describes why a generated question was rejected.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator rejects replies that are too short, too long, or
// still look like structured output instead of a question.
type StructuralValidator struct {
	MinLength int
	MaxLength int
}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(text string, _ Context) *ValidationError {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return &ValidationError{Validator: v.Name(), Message: "empty question"}
	}
	if v.MinLength > 0 && n < v.MinLength {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("question too short: %d chars (min %d)", n, v.MinLength),
		}
	}
	if v.MaxLength > 0 && n > v.MaxLength {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("question too long: %d chars (max %d)", n, v.MaxLength),
		}
	}
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return &ValidationError{Validator: v.Name(), Message: "reply is a JSON object, not a question"}
	}
	return nil
}
