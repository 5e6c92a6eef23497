package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/sablehq/sable/pkg/events"
)

// createAgentHandler handles POST /api/v1/agents. It provisions a fresh
// agent with its own sandbox and worker.
func (s *Server) createAgentHandler(c *echo.Context) error {
	agent, err := s.runtime.CreateAgent(c.Request().Context())
	if err != nil {
		slog.Error("Creating agent", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}

	return c.JSON(http.StatusOK, successResponse(&AgentResponse{
		AgentID: agent.ID,
		Status:  "created",
		Message: "Agent created successfully",
	}))
}

// chatHandler handles POST /api/v1/agents/:id/chat. It enqueues the
// message as a turn and streams the agent's events as SSE until the turn
// finishes or the client disconnects. Unknown agents are reported as an
// in-stream error event rather than an HTTP status so reconnecting
// clients always get a stream to read.
func (s *Server) chatHandler(c *echo.Context) error {
	agentID := c.Param("id")

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	w := newSSEWriter(c)
	ctx := c.Request().Context()
	for event := range s.runtime.Chat(ctx, agentID, req.Message, req.Timestamp) {
		for _, wire := range events.ToSSE(event) {
			if !w.send(wire) {
				return nil
			}
		}
	}
	return nil
}

// shellViewHandler handles POST /api/v1/agents/:id/shell. It proxies a
// read of the named shell session from the agent's sandbox.
func (s *Server) shellViewHandler(c *echo.Context) error {
	agentID := c.Param("id")

	var req ShellViewRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if !s.runtime.HasAgent(agentID) {
		return agentNotFound(agentID)
	}
	sb := s.runtime.GetSandbox(agentID)
	if sb == nil {
		return sandboxNotFound(agentID)
	}

	result, err := sb.ViewShell(c.Request().Context(), req.SessionID)
	if err != nil {
		slog.Error("Shell view failed", "agent_id", agentID, "session_id", req.SessionID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	if !result.Success {
		return echo.NewHTTPError(http.StatusBadRequest, result.Message)
	}

	var resp ShellViewResponse
	if err := decodeResultData(result.Data, &resp); err != nil {
		slog.Error("Decoding shell view data", "agent_id", agentID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, successResponse(&resp))
}

// fileViewHandler handles POST /api/v1/agents/:id/file. It proxies a
// whole-file read from the agent's sandbox.
func (s *Server) fileViewHandler(c *echo.Context) error {
	agentID := c.Param("id")

	var req FileViewRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if !s.runtime.HasAgent(agentID) {
		return agentNotFound(agentID)
	}
	sb := s.runtime.GetSandbox(agentID)
	if sb == nil {
		return sandboxNotFound(agentID)
	}

	result, err := sb.FileRead(c.Request().Context(), req.File, 0, 0, false)
	if err != nil {
		slog.Error("File view failed", "agent_id", agentID, "file", req.File, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	if !result.Success {
		return echo.NewHTTPError(http.StatusBadRequest, result.Message)
	}

	var resp FileViewResponse
	if err := decodeResultData(result.Data, &resp); err != nil {
		slog.Error("Decoding file view data", "agent_id", agentID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, successResponse(&resp))
}

// decodeResultData re-decodes a sandbox result payload into a typed
// response, dropping any fields the API does not expose.
func decodeResultData(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
