package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// vncHandler handles GET /api/v1/agents/:id/vnc. It upgrades the client
// connection with the "binary" subprotocol and relays frames in both
// directions between the viewer and the sandbox's VNC WebSocket. Setup
// failures after the upgrade close the socket with code 1011 and a
// reason instead of an HTTP status.
func (s *Server) vncHandler(c *echo.Context) error {
	agentID := c.Param("id")

	if !s.runtime.HasAgent(agentID) {
		return agentNotFound(agentID)
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		Subprotocols:       []string{"binary"},
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	sb := s.runtime.GetSandbox(agentID)
	if sb == nil {
		conn.Close(websocket.StatusInternalError, "Sandbox not found: "+agentID)
		return nil
	}

	ctx := c.Request().Context()
	slog.Info("Connecting to sandbox VNC", "agent_id", agentID, "url", sb.VNCURL())

	sandboxConn, _, err := websocket.Dial(ctx, sb.VNCURL(), nil)
	if err != nil {
		slog.Error("Connecting to sandbox VNC", "agent_id", agentID, "error", err)
		conn.Close(websocket.StatusInternalError, closeReason(fmt.Sprintf("Unable to connect to sandbox environment: %s", err)))
		return nil
	}

	relayWebSocket(ctx, conn, sandboxConn)
	return nil
}

// closeReason bounds a close frame reason to the 123 bytes the protocol
// leaves for payload after the status code.
func closeReason(s string) string {
	if len(s) > 123 {
		return s[:120] + "..."
	}
	return s
}

// relayWebSocket copies frames between the two connections until either
// side closes, then tears down both.
func relayWebSocket(ctx context.Context, client, sandbox *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{}, 2)
	pump := func(dst, src *websocket.Conn) {
		defer func() { done <- struct{}{} }()
		for {
			typ, data, err := src.Read(ctx)
			if err != nil {
				return
			}
			if err := dst.Write(ctx, typ, data); err != nil {
				return
			}
		}
	}
	go pump(sandbox, client)
	go pump(client, sandbox)

	<-done
	cancel()
	<-done

	client.Close(websocket.StatusNormalClosure, "")
	sandbox.Close(websocket.StatusNormalClosure, "")
}
