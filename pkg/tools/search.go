package tools

import (
	"context"

	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/search"
)

// SearchTool exposes web search. It is only registered when a search
// engine is configured.
type SearchTool struct {
	engine search.Engine
}

func NewSearchTool(engine search.Engine) *SearchTool {
	return &SearchTool{engine: engine}
}

func (t *SearchTool) Name() string { return "search" }

func (t *SearchTool) Functions() []Function {
	return []Function{
		{
			Name:        "info_search_web",
			Description: "Search web pages using search engine. Use for obtaining latest information or finding references.",
			Parameters: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query in Google search style, using 3-5 keywords.",
				},
				"date_range": map[string]any{
					"type":        "string",
					"enum":        []string{"all", "past_hour", "past_day", "past_week", "past_month", "past_year"},
					"description": "(Optional) Time range filter for search results.",
				},
			},
			Required: []string{"query"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return t.engine.Search(ctx, stringArg(args, "query"), stringArg(args, "date_range"))
			},
		},
	}
}
