package tools

import (
	"context"

	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
)

// FileTool exposes the sandbox's filesystem operations.
type FileTool struct {
	sandbox sandbox.Sandbox
}

func NewFileTool(sb sandbox.Sandbox) *FileTool {
	return &FileTool{sandbox: sb}
}

func (t *FileTool) Name() string { return "file" }

func (t *FileTool) Functions() []Function {
	sudo := map[string]any{
		"type":        "boolean",
		"description": "(Optional) Whether to use sudo privileges",
	}
	return []Function{
		{
			Name:        "file_read",
			Description: "Read file content. Use for checking file contents, analyzing logs, or reading configuration files.",
			Parameters: map[string]any{
				"file": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to read",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "(Optional) Starting line to read from, 0-based",
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "(Optional) Ending line number (exclusive)",
				},
				"sudo": sudo,
			},
			Required: []string{"file"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.FileRead(ctx, stringArg(args, "file"), intArg(args, "start_line"), intArg(args, "end_line"), boolArg(args, "sudo"))
			},
		},
		{
			Name:        "file_write",
			Description: "Overwrite or append content to a file. Use for creating new files, appending content, or modifying existing files.",
			Parameters: map[string]any{
				"file": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to write to",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Text content to write",
				},
				"append": map[string]any{
					"type":        "boolean",
					"description": "(Optional) Whether to use append mode",
				},
				"leading_newline": map[string]any{
					"type":        "boolean",
					"description": "(Optional) Whether to add a leading newline",
				},
				"trailing_newline": map[string]any{
					"type":        "boolean",
					"description": "(Optional) Whether to add a trailing newline",
				},
				"sudo": sudo,
			},
			Required: []string{"file", "content"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				content := stringArg(args, "content")
				if boolArg(args, "leading_newline") {
					content = "\n" + content
				}
				if boolArg(args, "trailing_newline") {
					content += "\n"
				}
				return t.sandbox.FileWrite(ctx, stringArg(args, "file"), content, boolArg(args, "append"), boolArg(args, "sudo"))
			},
		},
		{
			Name:        "file_str_replace",
			Description: "Replace specified string in a file. Use for updating specific content in files or fixing errors in code.",
			Parameters: map[string]any{
				"file": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to perform replacement on",
				},
				"old_str": map[string]any{
					"type":        "string",
					"description": "Original string to be replaced",
				},
				"new_str": map[string]any{
					"type":        "string",
					"description": "New string to replace with",
				},
				"sudo": sudo,
			},
			Required: []string{"file", "old_str", "new_str"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.FileReplace(ctx, stringArg(args, "file"), stringArg(args, "old_str"), stringArg(args, "new_str"), boolArg(args, "sudo"))
			},
		},
		{
			Name:        "file_find_in_content",
			Description: "Search for matching text within file content. Use for finding specific content or patterns in files.",
			Parameters: map[string]any{
				"file": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to search within",
				},
				"regex": map[string]any{
					"type":        "string",
					"description": "Regular expression pattern to match",
				},
				"sudo": sudo,
			},
			Required: []string{"file", "regex"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.FileSearch(ctx, stringArg(args, "file"), stringArg(args, "regex"), boolArg(args, "sudo"))
			},
		},
		{
			Name:        "file_find_by_name",
			Description: "Find files by name pattern in specified directory. Use for locating files with specific naming patterns.",
			Parameters: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Absolute path of directory to search",
				},
				"glob": map[string]any{
					"type":        "string",
					"description": "Filename pattern using glob syntax wildcards",
				},
			},
			Required: []string{"path", "glob"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.sandbox.FileFind(ctx, stringArg(args, "path"), stringArg(args, "glob"))
			},
		},
	}
}
