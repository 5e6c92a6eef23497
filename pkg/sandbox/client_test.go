package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/models"
)

type recordedRequest struct {
	path    string
	payload map[string]any
}

// newFakeSandbox returns a Client pointed at an httptest server that
// records the last request and replies with the given envelope.
func newFakeSandbox(t *testing.T, result models.ToolResult) (*Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		rec.path = r.URL.Path
		rec.payload = map[string]any{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec.payload))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(result))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("127.0.0.1")
	c.baseURL = srv.URL
	return c, rec
}

func TestClientEndpoints(t *testing.T) {
	tests := []struct {
		name        string
		call        func(ctx context.Context, c *Client) (*models.ToolResult, error)
		wantPath    string
		wantPayload map[string]any
	}{
		{
			name: "exec command",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.ExecCommand(ctx, "main", "/home/user", "ls -la")
			},
			wantPath:    "/api/v1/shell/exec",
			wantPayload: map[string]any{"id": "main", "exec_dir": "/home/user", "command": "ls -la"},
		},
		{
			name: "view shell",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.ViewShell(ctx, "main")
			},
			wantPath:    "/api/v1/shell/view",
			wantPayload: map[string]any{"id": "main"},
		},
		{
			name: "wait for process",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.WaitForProcess(ctx, "main", 15)
			},
			wantPath:    "/api/v1/shell/wait",
			wantPayload: map[string]any{"id": "main", "seconds": float64(15)},
		},
		{
			name: "write to process",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.WriteToProcess(ctx, "main", "yes", true)
			},
			wantPath:    "/api/v1/shell/write",
			wantPayload: map[string]any{"id": "main", "input": "yes", "press_enter": true},
		},
		{
			name: "kill process",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.KillProcess(ctx, "main")
			},
			wantPath:    "/api/v1/shell/kill",
			wantPayload: map[string]any{"id": "main"},
		},
		{
			name: "file read with line bounds",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.FileRead(ctx, "/tmp/a.txt", 2, 10, true)
			},
			wantPath: "/api/v1/file/read",
			wantPayload: map[string]any{
				"file": "/tmp/a.txt", "start_line": float64(2), "end_line": float64(10), "sudo": true,
			},
		},
		{
			name: "file write",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.FileWrite(ctx, "/tmp/a.txt", "hello", true, false)
			},
			wantPath: "/api/v1/file/write",
			wantPayload: map[string]any{
				"file": "/tmp/a.txt", "content": "hello", "append": true, "sudo": false,
			},
		},
		{
			name: "file replace",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.FileReplace(ctx, "/tmp/a.txt", "old", "new", false)
			},
			wantPath: "/api/v1/file/replace",
			wantPayload: map[string]any{
				"file": "/tmp/a.txt", "old_str": "old", "new_str": "new", "sudo": false,
			},
		},
		{
			name: "file search",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.FileSearch(ctx, "/tmp/a.txt", "func \\w+", false)
			},
			wantPath: "/api/v1/file/search",
			wantPayload: map[string]any{
				"file": "/tmp/a.txt", "regex": "func \\w+", "sudo": false,
			},
		},
		{
			name: "file find",
			call: func(ctx context.Context, c *Client) (*models.ToolResult, error) {
				return c.FileFind(ctx, "/tmp", "*.go")
			},
			wantPath:    "/api/v1/file/find",
			wantPayload: map[string]any{"path": "/tmp", "glob": "*.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newFakeSandbox(t, models.ToolResult{Success: true, Data: "ok"})

			result, err := tt.call(context.Background(), c)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPath, rec.path)
			assert.Equal(t, tt.wantPayload, rec.payload)
			assert.True(t, result.Success)
			assert.Equal(t, "ok", result.Data)
		})
	}
}

func TestClientOmitsUnsetOptionalFields(t *testing.T) {
	c, rec := newFakeSandbox(t, models.ToolResult{Success: true})

	_, err := c.WaitForProcess(context.Background(), "main", 0)
	require.NoError(t, err)
	assert.NotContains(t, rec.payload, "seconds")

	_, err = c.FileRead(context.Background(), "/tmp/a.txt", 0, 0, false)
	require.NoError(t, err)
	assert.NotContains(t, rec.payload, "start_line")
	assert.NotContains(t, rec.payload, "end_line")
}

func TestClientDecodesFailureEnvelope(t *testing.T) {
	c, _ := newFakeSandbox(t, models.ToolResult{
		Success: false,
		Message: "command not found",
	})

	result, err := c.ExecCommand(context.Background(), "main", "", "nope")
	require.NoError(t, err, "a sandbox-level failure is not a transport error")
	assert.False(t, result.Success)
	assert.Equal(t, "command not found", result.Message)
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient("127.0.0.1")
	c.baseURL = srv.URL

	_, err := c.ViewShell(context.Background(), "main")
	require.Error(t, err)
}

func TestNewClientURLs(t *testing.T) {
	c := NewClient("172.17.0.2")

	assert.Equal(t, "http://172.17.0.2:8080", c.baseURL)
	assert.Equal(t, "http://172.17.0.2:9222", c.CDPURL())
	assert.Equal(t, "ws://172.17.0.2:5901", c.VNCURL())
}

func TestDestroyWithoutContainer(t *testing.T) {
	c := NewClient("172.17.0.2")

	require.NoError(t, c.Destroy(context.Background()))
}

func TestResolveIPv4(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		want     string
		wantErr  bool
	}{
		{name: "literal IPv4 passes through", hostname: "10.0.0.7", want: "10.0.0.7"},
		{name: "unresolvable host", hostname: "sandbox.invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveIPv4(context.Background(), tt.hostname)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
