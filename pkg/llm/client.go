// Package llm wraps the OpenAI-compatible chat completion API used by
// the planner and executor. The kernel never retries LLM calls; a
// failed call surfaces to the caller as an error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/models"
)

// ResponseFormatJSON asks the provider to emit a JSON object.
const ResponseFormatJSON = "json_object"

// Client is the LLM gateway used by the reasoning loop. Tools, when
// non-empty, are offered under the function-calling protocol;
// responseFormat is either empty or ResponseFormatJSON.
type Client interface {
	Ask(ctx context.Context, messages []models.Message, tools []openai.Tool, responseFormat string) (*models.Message, error)
}

// OpenAIClient talks to any OpenAI-compatible endpoint. It is
// stateless and safe to share across agents.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIClient builds a client from the provider settings in cfg.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = cfg.APIBase
	}

	slog.Info("Initialized LLM client", "model", cfg.ModelName, "base_url", clientCfg.BaseURL)

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Ask sends one non-streaming chat completion request and returns the
// first choice's message. Tool calls are truncated to at most one so
// a single assistant turn never requests parallel side effects.
func (c *OpenAIClient) Ask(ctx context.Context, messages []models.Message, tools []openai.Tool, responseFormat string) (*models.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    toChatMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = tools
	}
	if responseFormat != "" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatType(responseFormat),
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	msg := fromChatMessage(resp.Choices[0].Message)
	return &msg, nil
}

func toChatMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		cm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func fromChatMessage(m openai.ChatCompletionMessage) models.Message {
	msg := models.Message{
		Role:       models.Role(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	toolCalls := m.ToolCalls
	if len(toolCalls) > 1 {
		toolCalls = toolCalls[:1]
	}
	for _, tc := range toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}
