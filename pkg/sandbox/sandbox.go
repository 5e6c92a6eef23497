// Package sandbox provisions and talks to the isolated execution
// environment backing each agent: a container exposing a shell/file
// HTTP control plane on port 8080, a Chrome DevTools endpoint on 9222
// and a VNC WebSocket on 5901.
package sandbox

import (
	"context"

	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/models"
)

// Sandbox is the control plane consumed by the shell and file tools
// and by the transport's shell/file/vnc passthrough endpoints.
// Operation results mirror the sandbox's wire envelope; transport
// failures surface as Go errors.
type Sandbox interface {
	ExecCommand(ctx context.Context, sessionID, execDir, command string) (*models.ToolResult, error)
	ViewShell(ctx context.Context, sessionID string) (*models.ToolResult, error)
	WaitForProcess(ctx context.Context, sessionID string, seconds int) (*models.ToolResult, error)
	WriteToProcess(ctx context.Context, sessionID, input string, pressEnter bool) (*models.ToolResult, error)
	KillProcess(ctx context.Context, sessionID string) (*models.ToolResult, error)

	FileRead(ctx context.Context, file string, startLine, endLine int, sudo bool) (*models.ToolResult, error)
	FileWrite(ctx context.Context, file, content string, append, sudo bool) (*models.ToolResult, error)
	FileReplace(ctx context.Context, file, oldStr, newStr string, sudo bool) (*models.ToolResult, error)
	FileSearch(ctx context.Context, file, regex string, sudo bool) (*models.ToolResult, error)
	FileFind(ctx context.Context, path, glob string) (*models.ToolResult, error)

	// CDPURL returns the Chrome DevTools endpoint for browser automation.
	CDPURL() string
	// VNCURL returns the WebSocket endpoint relayed to VNC clients.
	VNCURL() string

	// Destroy releases the sandbox. In fixed-address mode it is a no-op.
	Destroy(ctx context.Context) error
}

// Create provisions a sandbox for one agent. With SANDBOX_ADDRESS set
// the shared fixed-address sandbox is used as-is; otherwise a fresh
// container is started from SANDBOX_IMAGE.
func Create(ctx context.Context, cfg *config.Config) (Sandbox, error) {
	if cfg.SandboxAddress != "" {
		ip, err := resolveIPv4(ctx, cfg.SandboxAddress)
		if err != nil {
			return nil, err
		}
		return NewClient(ip), nil
	}
	return createContainer(ctx, cfg)
}
