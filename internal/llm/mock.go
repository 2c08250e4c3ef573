package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	Content    json.RawMessage
	Usage      Usage
	StopReason string
	Err        error
}

// MockProvider replays scripted replies in order. Replies queued with Route
// are only served to calls carrying that purpose, so question generation,
// turn judgments and analysis can share one mock without interleaving.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	routed    map[string][]MockResponse

	// Calls holds every request in arrival order.
	Calls    []Request
	purposes []string
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate serves the next reply for the call's purpose, falling back to
// the shared queue. An empty script yields ErrProviderUnavailable.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purpose := PurposeFrom(ctx)
	m.Calls = append(m.Calls, req)
	m.purposes = append(m.purposes, purpose)

	var next MockResponse
	switch {
	case len(m.routed[purpose]) > 0:
		next = m.routed[purpose][0]
		m.routed[purpose] = m.routed[purpose][1:]
	case len(m.responses) > 0:
		next = m.responses[0]
		m.responses = m.responses[1:]
	default:
		return nil, &ErrProviderUnavailable{}
	}

	if next.Err != nil {
		return nil, next.Err
	}
	stop := next.StopReason
	if stop == "" {
		stop = StopEnd
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: stop}, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends to the shared queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// Route queues replies for calls made with the given purpose.
func (m *MockProvider) Route(purpose string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.routed == nil {
		m.routed = make(map[string][]MockResponse)
	}
	m.routed[purpose] = append(m.routed[purpose], responses...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CallsFor counts calls made with purpose.
func (m *MockProvider) CallsFor(purpose string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.purposes {
		if p == purpose {
			n++
		}
	}
	return n
}

// Remaining counts unconsumed replies across all queues.
func (m *MockProvider) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.responses)
	for _, q := range m.routed {
		n += len(q)
	}
	return n
}

// LastRequest returns the most recent request, or a zero Request.
func (m *MockProvider) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}
	}
	return m.Calls[len(m.Calls)-1]
}

// TextResponse scripts an unstructured reply such as a question.
func TextResponse(text string) MockResponse {
	return MockResponse{Content: json.RawMessage(text)}
}

// JSONResponse scripts a structured reply marshalled from v.
func JSONResponse(v any) MockResponse {
	b, err := json.Marshal(v)
	if err != nil {
		return MockResponse{Err: err}
	}
	return MockResponse{Content: b}
}
