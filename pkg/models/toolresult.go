package models

// ToolResult is the outcome of a single tool function invocation.
// Data is opaque: it is serialized as-is both for the LLM and for
// downstream clients.
type ToolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
