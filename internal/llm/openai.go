package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the chat completions protocol. Groq and OpenRouter
// reuse it with their own base URLs.
type OpenAIProvider struct {
	client *openai.Client
	model  string

	// strictSchema selects json_schema response formats. Compatible
	// backends that lack them get json_object mode with the schema carried
	// in the system prompt.
	strictSchema bool
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	p := newOpenAICompatible(cfg.APIKey, cfg.BaseURL, ResolveModel("openai", cfg.Model))
	p.strictSchema = true
	return p, nil
}

func newOpenAICompatible(apiKey, baseURL, model string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:               p.model,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}

	system := req.System
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		if p.strictSchema {
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   req.Schema.Name,
					Schema: json.RawMessage(def),
					Strict: true,
				},
			}
		} else {
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
			system = schemaInstruction(system, req.Schema, def)
		}
	}
	chatReq.Messages = openAIMessages(system, req.Messages)

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("no choices in chat completion")}
	}

	choice := resp.Choices[0]
	stop := openAIStopReason(choice.FinishReason)
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		if choice.Message.Refusal != "" {
			return nil, &ErrInvalidResponse{Err: fmt.Errorf("refused: %s", choice.Message.Refusal)}
		}
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("empty reply (finish reason %q)", choice.FinishReason)}
	}

	content, err := structuredContent(req.Schema, json.RawMessage(text))
	if err != nil {
		return nil, err
	}
	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Model:      resp.Model,
		StopReason: stop,
	}, nil
}

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

// schemaInstruction appends the reply contract to a system prompt.
func schemaInstruction(system string, schema *Schema, def []byte) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	b.WriteString("Reply with a single JSON object")
	if schema.Description != "" {
		fmt.Fprintf(&b, " (%s)", schema.Description)
	}
	b.WriteString(" matching this JSON Schema, and nothing else:\n")
	b.Write(def)
	return b.String()
}

func openAIMessages(system string, msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func openAIStopReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonLength:
		return StopMaxTokens
	case openai.FinishReasonContentFilter:
		return StopFiltered
	default:
		return StopEnd
	}
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return mapStatusError(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return mapStatusError(reqErr.HTTPStatusCode, err)
	}
	return &ErrProviderUnavailable{Err: err}
}
