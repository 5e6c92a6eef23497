package api

// ChatRequest is the HTTP request body for POST /api/v1/agents/:id/chat.
// Timestamp is the client's Unix-second send time; together with Message
// it identifies the turn for reconnect deduplication.
type ChatRequest struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// ShellViewRequest is the HTTP request body for POST /api/v1/agents/:id/shell.
type ShellViewRequest struct {
	SessionID string `json:"session_id"`
}

// FileViewRequest is the HTTP request body for POST /api/v1/agents/:id/file.
type FileViewRequest struct {
	File string `json:"file"`
}
