package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/docker/client"

	"github.com/sablehq/sable/pkg/models"
)

// Long enough for shell commands that legitimately run for minutes;
// the in-sandbox supervisor enforces its own per-process limits.
const requestTimeout = 600 * time.Second

// Client is the HTTP gateway to one sandbox instance. When the
// sandbox was provisioned as a container, Destroy removes it; in
// fixed-address mode Destroy is a no-op.
type Client struct {
	http    *http.Client
	baseURL string
	cdpURL  string
	vncURL  string

	containerID string
	docker      client.APIClient
}

// NewClient returns a gateway for the sandbox reachable at ip.
func NewClient(ip string) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: fmt.Sprintf("http://%s:8080", ip),
		cdpURL:  fmt.Sprintf("http://%s:9222", ip),
		vncURL:  fmt.Sprintf("ws://%s:5901", ip),
	}
}

// CDPURL returns the Chrome DevTools endpoint.
func (c *Client) CDPURL() string { return c.cdpURL }

// VNCURL returns the VNC WebSocket endpoint.
func (c *Client) VNCURL() string { return c.vncURL }

func (c *Client) post(ctx context.Context, path string, payload any) (*models.ToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding sandbox request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox request %s: %w", path, err)
	}
	defer resp.Body.Close()

	var result models.ToolResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding sandbox response from %s: %w", path, err)
	}
	return &result, nil
}

// ExecCommand runs a shell command inside the named session.
func (c *Client) ExecCommand(ctx context.Context, sessionID, execDir, command string) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/shell/exec", map[string]any{
		"id":       sessionID,
		"exec_dir": execDir,
		"command":  command,
	})
}

// ViewShell returns the accumulated output of a shell session.
func (c *Client) ViewShell(ctx context.Context, sessionID string) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/shell/view", map[string]any{"id": sessionID})
}

// WaitForProcess blocks on the session's running process. A zero
// seconds value lets the sandbox choose its default wait.
func (c *Client) WaitForProcess(ctx context.Context, sessionID string, seconds int) (*models.ToolResult, error) {
	payload := map[string]any{"id": sessionID}
	if seconds > 0 {
		payload["seconds"] = seconds
	}
	return c.post(ctx, "/api/v1/shell/wait", payload)
}

// WriteToProcess feeds input to the session's running process.
func (c *Client) WriteToProcess(ctx context.Context, sessionID, input string, pressEnter bool) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/shell/write", map[string]any{
		"id":          sessionID,
		"input":       input,
		"press_enter": pressEnter,
	})
}

// KillProcess terminates the session's running process.
func (c *Client) KillProcess(ctx context.Context, sessionID string) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/shell/kill", map[string]any{"id": sessionID})
}

// FileRead returns file content, optionally sliced to [startLine,
// endLine). Zero line bounds read the whole file.
func (c *Client) FileRead(ctx context.Context, file string, startLine, endLine int, sudo bool) (*models.ToolResult, error) {
	payload := map[string]any{"file": file, "sudo": sudo}
	if startLine > 0 {
		payload["start_line"] = startLine
	}
	if endLine > 0 {
		payload["end_line"] = endLine
	}
	return c.post(ctx, "/api/v1/file/read", payload)
}

// FileWrite writes or appends content to a file.
func (c *Client) FileWrite(ctx context.Context, file, content string, append, sudo bool) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/file/write", map[string]any{
		"file":    file,
		"content": content,
		"append":  append,
		"sudo":    sudo,
	})
}

// FileReplace substitutes oldStr with newStr inside a file.
func (c *Client) FileReplace(ctx context.Context, file, oldStr, newStr string, sudo bool) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/file/replace", map[string]any{
		"file":    file,
		"old_str": oldStr,
		"new_str": newStr,
		"sudo":    sudo,
	})
}

// FileSearch greps a file for a regular expression.
func (c *Client) FileSearch(ctx context.Context, file, regex string, sudo bool) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/file/search", map[string]any{
		"file":  file,
		"regex": regex,
		"sudo":  sudo,
	})
}

// FileFind locates files under path matching a glob pattern.
func (c *Client) FileFind(ctx context.Context, path, glob string) (*models.ToolResult, error) {
	return c.post(ctx, "/api/v1/file/find", map[string]any{
		"path": path,
		"glob": glob,
	})
}

// Destroy removes the backing container. Fixed-address sandboxes have
// no container and nothing to release.
func (c *Client) Destroy(ctx context.Context) error {
	c.http.CloseIdleConnections()
	if c.containerID == "" || c.docker == nil {
		return nil
	}
	return removeContainer(ctx, c.docker, c.containerID)
}
