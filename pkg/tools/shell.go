package tools

import (
	"context"

	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
)

// ShellTool exposes the sandbox's shell sessions.
type ShellTool struct {
	sandbox sandbox.Sandbox
}

func NewShellTool(sb sandbox.Sandbox) *ShellTool {
	return &ShellTool{sandbox: sb}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Functions() []Function {
	sessionID := map[string]any{
		"type":        "string",
		"description": "Unique identifier of the target shell session",
	}
	return []Function{
		{
			Name:        "shell_exec",
			Description: "Execute commands in a specified shell session. Use for running code, installing packages, or managing files.",
			Parameters: map[string]any{
				"id": sessionID,
				"exec_dir": map[string]any{
					"type":        "string",
					"description": "Working directory for command execution (must use absolute path)",
				},
				"command": map[string]any{
					"type":        "string",
					"description": "Shell command to execute",
				},
			},
			Required: []string{"id", "exec_dir", "command"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.ExecCommand(ctx, stringArg(args, "id"), stringArg(args, "exec_dir"), stringArg(args, "command"))
			},
		},
		{
			Name:        "shell_view",
			Description: "View the content of a specified shell session. Use for checking command execution results or monitoring output.",
			Parameters:  map[string]any{"id": sessionID},
			Required:    []string{"id"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.ViewShell(ctx, stringArg(args, "id"))
			},
		},
		{
			Name:        "shell_wait",
			Description: "Wait for the running process in a specified shell session to return. Use after running commands that require longer runtime.",
			Parameters: map[string]any{
				"id": sessionID,
				"seconds": map[string]any{
					"type":        "integer",
					"description": "Wait duration in seconds",
				},
			},
			Required: []string{"id"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.WaitForProcess(ctx, stringArg(args, "id"), intArg(args, "seconds"))
			},
		},
		{
			Name:        "shell_write_to_process",
			Description: "Write input to a running process in a specified shell session. Use for responding to interactive command prompts.",
			Parameters: map[string]any{
				"id": sessionID,
				"input": map[string]any{
					"type":        "string",
					"description": "Input content to write to the process",
				},
				"press_enter": map[string]any{
					"type":        "boolean",
					"description": "Whether to press Enter key after input",
				},
			},
			Required: []string{"id", "input", "press_enter"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.WriteToProcess(ctx, stringArg(args, "id"), stringArg(args, "input"), boolArg(args, "press_enter"))
			},
		},
		{
			Name:        "shell_kill_process",
			Description: "Terminate a running process in a specified shell session. Use for stopping long-running processes or handling frozen commands.",
			Parameters:  map[string]any{"id": sessionID},
			Required:    []string{"id"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.KillProcess(ctx, stringArg(args, "id"))
			},
		},
	}
}
