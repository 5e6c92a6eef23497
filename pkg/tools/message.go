package tools

import (
	"context"

	"github.com/sablehq/sable/pkg/models"
)

// MessageTool lets the model push progress notes to the user. Display
// is handled by the event projection; the handler only echoes.
type MessageTool struct{}

func NewMessageTool() *MessageTool {
	return &MessageTool{}
}

func (t *MessageTool) Name() string { return "message" }

func (t *MessageTool) Functions() []Function {
	return []Function{
		{
			Name: "message_notify_user",
			Description: "Send a message to user without requiring a response. Use for acknowledging receipt of messages, " +
				"providing progress updates, reporting task completion, or explaining changes in approach.",
			Parameters: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Message text to display to user",
				},
			},
			Required: []string{"text"},
			Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
				return &models.ToolResult{Success: true, Data: stringArg(args, "text")}, nil
			},
		},
	}
}
