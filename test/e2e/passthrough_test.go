package e2e

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/models"
)

func TestE2E_ShellView(t *testing.T) {
	app := NewTestApp(t)
	agentID := app.CreateAgent(t)
	sb := app.Sandboxes()[0]

	sb.ScriptResult("shell_view", &models.ToolResult{
		Success: true,
		Data: map[string]any{
			"output":     "$ ls\nmain.go\n",
			"session_id": "s1",
			"console": []map[string]any{
				{"ps1": "$", "command": "ls", "output": "main.go"},
			},
		},
	})

	resp := app.postJSON(t, "/api/v1/agents/"+agentID+"/shell", map[string]any{"session_id": "s1"}, 200)
	data := envelope(t, resp, 0, "success")["data"].(map[string]any)
	assert.Equal(t, "$ ls\nmain.go\n", data["output"])
	assert.Equal(t, "s1", data["session_id"])
	console := data["console"].([]any)
	require.Len(t, console, 1)
	assert.Equal(t, "ls", console[0].(map[string]any)["command"])
	assert.Equal(t, 1, sb.CallCount("shell_view"))
}

func TestE2E_ShellViewErrors(t *testing.T) {
	app := NewTestApp(t)
	agentID := app.CreateAgent(t)
	sb := app.Sandboxes()[0]

	t.Run("UnknownAgent", func(t *testing.T) {
		resp := app.postJSON(t, "/api/v1/agents/nope/shell", map[string]any{"session_id": "s1"}, 404)
		envelope(t, resp, 404, "Agent not found: nope")
	})

	t.Run("SandboxRejects", func(t *testing.T) {
		sb.ScriptResult("shell_view", &models.ToolResult{
			Success: false,
			Message: "shell session not found: sX",
		})
		resp := app.postJSON(t, "/api/v1/agents/"+agentID+"/shell", map[string]any{"session_id": "sX"}, 400)
		envelope(t, resp, 400, "shell session not found: sX")
	})

	t.Run("SandboxUnreachable", func(t *testing.T) {
		sb.FailFirst("shell_view", 1)
		resp := app.postJSON(t, "/api/v1/agents/"+agentID+"/shell", map[string]any{"session_id": "s1"}, 500)
		envelope(t, resp, 500, "Internal server error")
	})
}

func TestE2E_FileView(t *testing.T) {
	app := NewTestApp(t)
	agentID := app.CreateAgent(t)
	sb := app.Sandboxes()[0]

	sb.ScriptResult("file_read", &models.ToolResult{
		Success: true,
		Data:    map[string]any{"content": "package main\n", "file": "/workspace/main.go"},
	})

	resp := app.postJSON(t, "/api/v1/agents/"+agentID+"/file", map[string]any{"file": "/workspace/main.go"}, 200)
	data := envelope(t, resp, 0, "success")["data"].(map[string]any)
	assert.Equal(t, "package main\n", data["content"])
	assert.Equal(t, "/workspace/main.go", data["file"])
	assert.Equal(t, 1, sb.CallCount("file_read"))
}

func TestE2E_FileViewErrors(t *testing.T) {
	app := NewTestApp(t)
	agentID := app.CreateAgent(t)
	sb := app.Sandboxes()[0]

	t.Run("UnknownAgent", func(t *testing.T) {
		resp := app.postJSON(t, "/api/v1/agents/nope/file", map[string]any{"file": "/x"}, 404)
		envelope(t, resp, 404, "Agent not found: nope")
	})

	t.Run("SandboxRejects", func(t *testing.T) {
		sb.ScriptResult("file_read", &models.ToolResult{
			Success: false,
			Message: "file not found: /x",
		})
		resp := app.postJSON(t, "/api/v1/agents/"+agentID+"/file", map[string]any{"file": "/x"}, 400)
		envelope(t, resp, 400, "file not found: /x")
	})
}

// Chatting with an unknown agent keeps the SSE contract: a 200 stream
// carrying a single error event and no done terminator.
func TestE2E_ChatUnknownAgent(t *testing.T) {
	app := NewTestApp(t)

	frames := app.Chat(t, "ghost", "hello", 1)
	require.Equal(t, []string{"error"}, frameEvents(frames))
	assert.Equal(t, "Agent not initialized", frames[0].Data["error"])
}

// Health stays envelope-free so load balancers can probe it.
func TestE2E_Health(t *testing.T) {
	app := NewTestApp(t)

	resp := app.getJSON(t, "/health", 200)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["version"])
	_, enveloped := resp["code"]
	assert.False(t, enveloped)
}

func TestE2E_CreateAgentSandboxFailure(t *testing.T) {
	app := NewTestApp(t, WithSandboxError(errors.New("docker daemon down")))

	resp := app.postJSON(t, "/api/v1/agents", nil, 500)
	envelope(t, resp, 500, "Internal server error")
}
