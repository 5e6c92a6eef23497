package tools

import (
	"context"

	"github.com/sablehq/sable/pkg/browser"
	"github.com/sablehq/sable/pkg/models"
)

// BrowserTool exposes browser automation against the sandbox's Chrome.
type BrowserTool struct {
	browser browser.Browser
}

func NewBrowserTool(b browser.Browser) *BrowserTool {
	return &BrowserTool{browser: b}
}

func (t *BrowserTool) Name() string { return "browser" }

func (t *BrowserTool) Functions() []Function {
	return []Function{
		{
			Name:        "browser_view",
			Description: "View content of the current browser page. Use for checking the latest state of previously opened pages.",
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.ViewPage(ctx)
			},
		},
		{
			Name:        "browser_navigate",
			Description: "Navigate browser to specified URL. Use when accessing new pages is needed.",
			Parameters: map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Complete URL to visit. Must include protocol prefix.",
				},
			},
			Required: []string{"url"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.Navigate(ctx, stringArg(args, "url"))
			},
		},
		{
			Name:        "browser_restart",
			Description: "Restart browser and navigate to specified URL. Use when browser state needs to be reset.",
			Parameters: map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Complete URL to visit after restart. Must include protocol prefix.",
				},
			},
			Required: []string{"url"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.Restart(ctx, stringArg(args, "url"))
			},
		},
		{
			Name:        "browser_click",
			Description: "Click on elements in the current browser page. Use when clicking page elements is needed.",
			Parameters: map[string]any{
				"index": map[string]any{
					"type":        "integer",
					"description": "(Optional) Index number of the element to click",
				},
				"coordinate_x": map[string]any{
					"type":        "number",
					"description": "(Optional) X coordinate of click position",
				},
				"coordinate_y": map[string]any{
					"type":        "number",
					"description": "(Optional) Y coordinate of click position",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.Click(ctx, optIntArg(args, "index"), optFloatArg(args, "coordinate_x"), optFloatArg(args, "coordinate_y"))
			},
		},
		{
			Name:        "browser_input",
			Description: "Overwrite text in editable elements on the current browser page. Use when filling content in input fields.",
			Parameters: map[string]any{
				"index": map[string]any{
					"type":        "integer",
					"description": "(Optional) Index number of the element to overwrite text",
				},
				"coordinate_x": map[string]any{
					"type":        "number",
					"description": "(Optional) X coordinate of the element to overwrite text",
				},
				"coordinate_y": map[string]any{
					"type":        "number",
					"description": "(Optional) Y coordinate of the element to overwrite text",
				},
				"text": map[string]any{
					"type":        "string",
					"description": "Complete text content to overwrite",
				},
				"press_enter": map[string]any{
					"type":        "boolean",
					"description": "Whether to press Enter key after input",
				},
			},
			Required: []string{"text", "press_enter"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.Input(ctx, stringArg(args, "text"), boolArg(args, "press_enter"),
					optIntArg(args, "index"), optFloatArg(args, "coordinate_x"), optFloatArg(args, "coordinate_y"))
			},
		},
		{
			Name:        "browser_move_mouse",
			Description: "Move cursor to specified position on the current browser page. Use when simulating user mouse movement.",
			Parameters: map[string]any{
				"coordinate_x": map[string]any{
					"type":        "number",
					"description": "X coordinate of target cursor position",
				},
				"coordinate_y": map[string]any{
					"type":        "number",
					"description": "Y coordinate of target cursor position",
				},
			},
			Required: []string{"coordinate_x", "coordinate_y"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				x, y := 0.0, 0.0
				if v := optFloatArg(args, "coordinate_x"); v != nil {
					x = *v
				}
				if v := optFloatArg(args, "coordinate_y"); v != nil {
					y = *v
				}
				return t.browser.MoveMouse(ctx, x, y)
			},
		},
		{
			Name:        "browser_press_key",
			Description: "Simulate key press in the current browser page. Use when specific keyboard operations are needed.",
			Parameters: map[string]any{
				"key": map[string]any{
					"type":        "string",
					"description": "Key name to simulate (e.g., Enter, Tab, ArrowUp), supports key combinations (e.g., Control+Enter).",
				},
			},
			Required: []string{"key"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.PressKey(ctx, stringArg(args, "key"))
			},
		},
		{
			Name:        "browser_select_option",
			Description: "Select specified option from dropdown list element in the current browser page. Use when selecting dropdown menu options.",
			Parameters: map[string]any{
				"index": map[string]any{
					"type":        "integer",
					"description": "Index number of the dropdown list element",
				},
				"option": map[string]any{
					"type":        "integer",
					"description": "Option number to select, starting from 0.",
				},
			},
			Required: []string{"index", "option"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.SelectOption(ctx, intArg(args, "index"), intArg(args, "option"))
			},
		},
		{
			Name:        "browser_scroll_up",
			Description: "Scroll up the current browser page. Use when viewing content above or returning to page top.",
			Parameters: map[string]any{
				"to_top": map[string]any{
					"type":        "boolean",
					"description": "(Optional) Whether to scroll directly to page top instead of one viewport up.",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.ScrollUp(ctx, boolArg(args, "to_top"))
			},
		},
		{
			Name:        "browser_scroll_down",
			Description: "Scroll down the current browser page. Use when viewing content below or jumping to page bottom.",
			Parameters: map[string]any{
				"to_bottom": map[string]any{
					"type":        "boolean",
					"description": "(Optional) Whether to scroll directly to page bottom instead of one viewport down.",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.ScrollDown(ctx, boolArg(args, "to_bottom"))
			},
		},
		{
			Name:        "browser_console_exec",
			Description: "Execute JavaScript code in browser console. Use when custom scripts need to be executed.",
			Parameters: map[string]any{
				"javascript": map[string]any{
					"type":        "string",
					"description": "JavaScript code to execute. Note that the runtime environment is browser console.",
				},
			},
			Required: []string{"javascript"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.ConsoleExec(ctx, stringArg(args, "javascript"))
			},
		},
		{
			Name:        "browser_console_view",
			Description: "View browser console output. Use when checking JavaScript logs or debugging page errors.",
			Parameters: map[string]any{
				"max_lines": map[string]any{
					"type":        "integer",
					"description": "(Optional) Maximum number of log lines to return.",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.browser.ConsoleView(ctx, intArg(args, "max_lines"))
			},
		},
	}
}
