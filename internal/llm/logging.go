package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/abhisek/intervue/internal/store"
)

// maxCapturedBody caps each stored prompt and reply. Analysis prompts carry
// every transcript of the session and can grow large.
const maxCapturedBody = 64 << 10

// LoggingProvider records every oracle call in the event log and the
// structured log.
type LoggingProvider struct {
	inner     Provider
	provider  string
	eventRepo store.EventRepo
	logger    *slog.Logger
}

// WithLogging wraps p. repo may be nil, in which case calls only reach the
// structured log.
func WithLogging(p Provider, provider string, repo store.EventRepo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, provider: provider, eventRepo: repo, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		SessionID:   SessionFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: capture(requestRecord(req)),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = capture(string(resp.Content))
	}

	attrs := []any{
		"provider", data.Provider,
		"model", data.Model,
		"purpose", data.Purpose,
		"latency_ms", data.LatencyMs,
		"input_tokens", data.InputTokens,
		"output_tokens", data.OutputTokens,
	}
	switch {
	case err != nil:
		data.ErrorMessage = err.Error()
		l.logger.WarnContext(ctx, "llm request failed", append(attrs, "error", err)...)
	case resp.Truncated():
		l.logger.WarnContext(ctx, "llm reply hit the token limit", append(attrs, "max_tokens", req.MaxTokens)...)
	default:
		l.logger.DebugContext(ctx, "llm request", attrs...)
	}

	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendLLMRequest(ctx, data); logErr != nil {
			l.logger.WarnContext(ctx, "failed to record llm request event", "error", logErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

type capturedMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type capturedRequest struct {
	System      string            `json:"system,omitempty"`
	Messages    []capturedMessage `json:"messages"`
	Schema      string            `json:"schema,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// requestRecord renders req as JSON for the event log. Schemas are named,
// not inlined: their definitions live in code.
func requestRecord(req Request) string {
	rec := capturedRequest{
		System:      req.System,
		Messages:    make([]capturedMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for i, m := range req.Messages {
		rec.Messages[i] = capturedMessage{Role: m.Role, Content: m.Content}
	}
	if req.Schema != nil {
		rec.Schema = req.Schema.Name
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return string(b)
}

// capture trims s to maxCapturedBody bytes on a rune boundary.
func capture(s string) string {
	if len(s) <= maxCapturedBody {
		return s
	}
	cut := maxCapturedBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n[truncated]"
}
