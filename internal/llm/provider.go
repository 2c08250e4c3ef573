package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider is the oracle: a language model behind one of the supported
// backends. Question generation, turn judgments and session analysis all go
// through it.
type Provider interface {
	// Generate sends one request. With req.Schema set the reply Content is
	// a validated JSON object; otherwise it is the model's text.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

// Request is a single-turn prompt. Every call this system makes is
// stateless, so Messages usually holds one user message.
type Request struct {
	System   string
	Messages []Message

	// Schema requests a structured reply. Backends use their native JSON
	// mode where available.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the backend default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema for a structured reply. Name is kebab-case and
// doubles as the cache key for the compiled schema, so it must be unique
// per definition.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is one oracle reply.
type Response struct {
	// Content is the bare JSON object for structured requests and the
	// reply text otherwise.
	Content json.RawMessage
	Usage   Usage

	// Model is the model that served the call, which may differ from the
	// configured alias.
	Model string

	// StopReason is one of StopEnd, StopMaxTokens or StopFiltered.
	StopReason string
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
	// StopFiltered means the backend withheld the reply, typically on a
	// safety or refusal decision.
	StopFiltered = "filtered"
)

// Truncated reports whether the reply was cut off by the token limit. A
// truncated analysis usually carries an unterminated JSON object.
func (r *Response) Truncated() bool {
	return r != nil && r.StopReason == StopMaxTokens
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Text returns the content as plain text. Unstructured replies are usually
// bare text, but some backends wrap them as a JSON string literal.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	raw := strings.TrimSpace(string(r.Content))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
	}
	return raw
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}
