// Package browser drives the sandbox's Chrome instance over CDP for
// the agent's browser tool group. Element references handed to the
// model are small integer indexes assigned during extraction; the
// indexes stay valid until the next extraction pass.
package browser

import (
	"context"

	"github.com/sablehq/sable/pkg/models"
)

// Browser is the automation surface behind the browser tools. Lookup
// and interaction failures that the model can recover from (element
// gone, click timed out) come back inside the ToolResult; broken
// connections and initialization failures are Go errors.
type Browser interface {
	// ViewPage reports the interactive elements in the viewport plus a
	// model-generated markdown rendition of the visible content.
	ViewPage(ctx context.Context) (*models.ToolResult, error)
	// Navigate opens url in the current tab. Slow pages are allowed to
	// keep loading past the navigation timeout.
	Navigate(ctx context.Context, url string) (*models.ToolResult, error)
	// Restart tears the connection down and navigates fresh.
	Restart(ctx context.Context, url string) (*models.ToolResult, error)

	Click(ctx context.Context, index *int, x, y *float64) (*models.ToolResult, error)
	Input(ctx context.Context, text string, pressEnter bool, index *int, x, y *float64) (*models.ToolResult, error)
	MoveMouse(ctx context.Context, x, y float64) (*models.ToolResult, error)
	PressKey(ctx context.Context, key string) (*models.ToolResult, error)
	SelectOption(ctx context.Context, index, option int) (*models.ToolResult, error)
	ScrollUp(ctx context.Context, toTop bool) (*models.ToolResult, error)
	ScrollDown(ctx context.Context, toBottom bool) (*models.ToolResult, error)
	ConsoleExec(ctx context.Context, javascript string) (*models.ToolResult, error)
	ConsoleView(ctx context.Context, maxLines int) (*models.ToolResult, error)

	// Cleanup closes every tab and releases the CDP connection. The
	// next operation reconnects from scratch.
	Cleanup(ctx context.Context) error
}
