package api

// Response is the JSON envelope for all non-streaming endpoints.
// Success responses carry code 0 and msg "success"; error responses
// carry the HTTP status as code and a null data field.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// successResponse wraps data in the success envelope.
func successResponse(data any) *Response {
	return &Response{Code: 0, Msg: "success", Data: data}
}

// errorResponse builds the error envelope for the given HTTP status.
func errorResponse(code int, msg string) *Response {
	return &Response{Code: code, Msg: msg, Data: nil}
}

// AgentResponse is the data payload returned by POST /api/v1/agents.
type AgentResponse struct {
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ConsoleRecord is one shell interaction inside a ShellViewResponse.
type ConsoleRecord struct {
	PS1     string `json:"ps1"`
	Command string `json:"command"`
	Output  string `json:"output"`
}

// ShellViewResponse is the data payload returned by POST /api/v1/agents/:id/shell.
type ShellViewResponse struct {
	Output    string          `json:"output"`
	SessionID string          `json:"session_id"`
	Console   []ConsoleRecord `json:"console,omitempty"`
}

// FileViewResponse is the data payload returned by POST /api/v1/agents/:id/file.
type FileViewResponse struct {
	Content string `json:"content"`
	File    string `json:"file"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
