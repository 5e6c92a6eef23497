package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
)

func TestCreateAgentHandler(t *testing.T) {
	t.Run("returns the new agent in the success envelope", func(t *testing.T) {
		rt := &stubRuntime{agent: &models.Agent{ID: "a1b2c3d4e5f60718"}}
		s := newTestServer(rt)

		rec := doJSON(s, http.MethodPost, "/api/v1/agents", "")
		require.Equal(t, http.StatusOK, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, 0, env.Code)
		assert.Equal(t, "success", env.Msg)

		var data AgentResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "a1b2c3d4e5f60718", data.AgentID)
		assert.Equal(t, "created", data.Status)
		assert.Equal(t, "Agent created successfully", data.Message)
	})

	t.Run("provisioning failure is a generic 500", func(t *testing.T) {
		rt := &stubRuntime{createErr: errors.New("creating sandbox: docker unavailable")}
		s := newTestServer(rt)

		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/agents", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := s.createAgentHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok, "expected echo.HTTPError")
		assert.Equal(t, http.StatusInternalServerError, he.Code)
		assert.Contains(t, he.Error(), "Internal server error")
	})
}

func TestChatHandlerStreamsTurn(t *testing.T) {
	plan := &models.Plan{
		ID:      "plan_1",
		Title:   "greet",
		Message: "Working on it",
		Steps:   []*models.Step{{ID: "1", Description: "say hi", Status: models.StatusCompleted, Result: "hi there"}},
		Status:  models.StatusCompleted,
	}
	rt := &stubRuntime{turn: []events.Event{
		events.PlanCreated{Plan: plan},
		events.StepCompleted{Step: plan.Steps[0], Plan: plan},
		events.PlanCompleted{Plan: plan},
		events.Done{},
	}}
	s := newTestServer(rt)

	rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/chat", `{"timestamp":1724600000,"message":"hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	frames := parseSSE(t, rec.Body.String())
	assert.Equal(t, []string{"title", "message", "plan", "step", "message", "plan", "done"},
		frameEvents(frames))

	assert.Equal(t, chatCall{agentID: "a1", message: "hello", timestamp: 1724600000}, rt.lastChat)

	var title events.TitleData
	require.NoError(t, json.Unmarshal([]byte(frames[0].data), &title))
	assert.Equal(t, "greet", title.Title)
	assert.NotZero(t, title.Timestamp)

	var step events.StepData
	require.NoError(t, json.Unmarshal([]byte(frames[3].data), &step))
	assert.Equal(t, "1", step.ID)
	assert.Equal(t, models.StatusCompleted, step.Status)
}

func TestChatHandlerUnknownAgentStreamsError(t *testing.T) {
	rt := &stubRuntime{turn: []events.Event{events.Error{Text: "Agent not initialized"}}}
	s := newTestServer(rt)

	rec := doJSON(s, http.MethodPost, "/api/v1/agents/ghost/chat", `{"timestamp":1,"message":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code, "chat reports unknown agents in-stream, not via HTTP status")

	frames := parseSSE(t, rec.Body.String())
	require.Equal(t, []string{"error"}, frameEvents(frames))

	var data events.ErrorData
	require.NoError(t, json.Unmarshal([]byte(frames[0].data), &data))
	assert.Equal(t, "Agent not initialized", data.Error)
}

func TestChatHandlerBadBody(t *testing.T) {
	rt := &stubRuntime{}
	s := newTestServer(rt)

	rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/chat", `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.Equal(t, "null", string(env.Data))
	assert.Equal(t, chatCall{}, rt.lastChat, "the turn never reached the runtime")
}

func TestShellViewHandler(t *testing.T) {
	t.Run("proxies the session view in the success envelope", func(t *testing.T) {
		rt := &stubRuntime{agents: map[string]sandbox.Sandbox{
			"a1": &viewSandbox{shellResult: &models.ToolResult{
				Success: true,
				Data: map[string]any{
					"output":     "$ ls\nmain.go",
					"session_id": "s1",
					"console": []any{
						map[string]any{"ps1": "$", "command": "ls", "output": "main.go"},
					},
				},
			}},
		}}
		s := newTestServer(rt)

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/shell", `{"session_id":"s1"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, 0, env.Code)

		var data ShellViewResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "$ ls\nmain.go", data.Output)
		assert.Equal(t, "s1", data.SessionID)
		require.Len(t, data.Console, 1)
		assert.Equal(t, ConsoleRecord{PS1: "$", Command: "ls", Output: "main.go"}, data.Console[0])
	})

	t.Run("unknown agent is a 404", func(t *testing.T) {
		s := newTestServer(&stubRuntime{agents: map[string]sandbox.Sandbox{}})

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/missing/shell", `{"session_id":"s1"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, http.StatusNotFound, env.Code)
		assert.Equal(t, "Agent not found: missing", env.Msg)
	})

	t.Run("agent without a sandbox is a 404", func(t *testing.T) {
		s := newTestServer(&stubRuntime{agents: map[string]sandbox.Sandbox{"a1": nil}})

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/shell", `{"session_id":"s1"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, "Sandbox not found: a1", env.Msg)
	})

	t.Run("transport failure is a generic 500", func(t *testing.T) {
		rt := &stubRuntime{agents: map[string]sandbox.Sandbox{
			"a1": &viewSandbox{shellErr: errors.New("connection refused")},
		}}
		s := newTestServer(rt)

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/shell", `{"session_id":"s1"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, "Internal server error", env.Msg)
	})

	t.Run("sandbox rejection surfaces its message as a 400", func(t *testing.T) {
		rt := &stubRuntime{agents: map[string]sandbox.Sandbox{
			"a1": &viewSandbox{shellResult: &models.ToolResult{Success: false, Message: "Invalid session_id"}},
		}}
		s := newTestServer(rt)

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/shell", `{"session_id":"bogus"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, "Invalid session_id", env.Msg)
	})
}

func TestFileViewHandler(t *testing.T) {
	t.Run("proxies the file content in the success envelope", func(t *testing.T) {
		rt := &stubRuntime{agents: map[string]sandbox.Sandbox{
			"a1": &viewSandbox{fileResult: &models.ToolResult{
				Success: true,
				Data:    map[string]any{"content": "package main", "file": "/workspace/main.go"},
			}},
		}}
		s := newTestServer(rt)

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/file", `{"file":"/workspace/main.go"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, 0, env.Code)

		var data FileViewResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "package main", data.Content)
		assert.Equal(t, "/workspace/main.go", data.File)
	})

	t.Run("unknown agent is a 404", func(t *testing.T) {
		s := newTestServer(&stubRuntime{agents: map[string]sandbox.Sandbox{}})

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/missing/file", `{"file":"/etc/hosts"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, "Agent not found: missing", env.Msg)
	})

	t.Run("sandbox rejection surfaces its message as a 400", func(t *testing.T) {
		rt := &stubRuntime{agents: map[string]sandbox.Sandbox{
			"a1": &viewSandbox{fileResult: &models.ToolResult{Success: false, Message: "File not found: /nope"}},
		}}
		s := newTestServer(rt)

		rec := doJSON(s, http.MethodPost, "/api/v1/agents/a1/file", `{"file":"/nope"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		env := decodeEnvelope(t, rec.Body.Bytes())
		assert.Equal(t, "File not found: /nope", env.Msg)
	})
}
