package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(&config.Config{
		APIKey:      "test-key",
		APIBase:     srv.URL,
		ModelName:   "deepseek-chat",
		Temperature: 0.7,
		MaxTokens:   2000,
	})
}

func completionResponse(msg map[string]any) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "deepseek-chat",
		"choices": []map[string]any{
			{"index": 0, "message": msg, "finish_reason": "stop"},
		},
	})
	return body
}

func TestAskReturnsAssistantMessage(t *testing.T) {
	var gotReq map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(map[string]any{
			"role":    "assistant",
			"content": "hello there",
		}))
	})

	msg, err := client.Ask(t.Context(), []models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "hi"},
	}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "hello there", msg.Content)
	assert.Empty(t, msg.ToolCalls)

	assert.Equal(t, "deepseek-chat", gotReq["model"])
	assert.InDelta(t, 0.7, gotReq["temperature"], 0.001)
	assert.EqualValues(t, 2000, gotReq["max_tokens"])
	assert.NotContains(t, gotReq, "tools")
	assert.NotContains(t, gotReq, "response_format")
}

func TestAskPassesToolsAndResponseFormat(t *testing.T) {
	var gotReq map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(map[string]any{
			"role":    "assistant",
			"content": `{"ok":true}`,
		}))
	})

	tools := []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "shell_exec",
			Description: "run a command",
		},
	}}

	_, err := client.Ask(t.Context(), []models.Message{
		{Role: models.RoleUser, Content: "plan"},
	}, tools, ResponseFormatJSON)
	require.NoError(t, err)

	reqTools, ok := gotReq["tools"].([]any)
	require.True(t, ok)
	require.Len(t, reqTools, 1)

	format, ok := gotReq["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestAskTruncatesToolCallsToOne(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(map[string]any{
			"role":    "assistant",
			"content": "",
			"tool_calls": []map[string]any{
				{"id": "call_1", "type": "function", "function": map[string]any{"name": "shell_exec", "arguments": `{"command":"ls"}`}},
				{"id": "call_2", "type": "function", "function": map[string]any{"name": "shell_view", "arguments": `{}`}},
			},
		}))
	})

	msg, err := client.Ask(t.Context(), []models.Message{{Role: models.RoleUser, Content: "go"}}, nil, "")
	require.NoError(t, err)

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "shell_exec", msg.ToolCalls[0].Name)
	assert.JSONEq(t, `{"command":"ls"}`, msg.ToolCalls[0].Arguments)
}

func TestAskSendsToolResponses(t *testing.T) {
	var gotReq struct {
		Messages []map[string]any `json:"messages"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(map[string]any{"role": "assistant", "content": "done"}))
	})

	_, err := client.Ask(t.Context(), []models.Message{
		{Role: models.RoleUser, Content: "run it"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "call_1", Name: "shell_exec", Arguments: `{"command":"ls"}`}}},
		{Role: models.RoleTool, ToolCallID: "call_1", Content: `{"success":true}`},
	}, nil, "")
	require.NoError(t, err)

	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "assistant", gotReq.Messages[1]["role"])
	assert.Contains(t, gotReq.Messages[1], "tool_calls")
	assert.Equal(t, "tool", gotReq.Messages[2]["role"])
	assert.Equal(t, "call_1", gotReq.Messages[2]["tool_call_id"])
}

func TestAskSurfacesHTTPErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := client.Ask(t.Context(), []models.Message{{Role: models.RoleUser, Content: "hi"}}, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}
