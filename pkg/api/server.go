package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
)

// AgentRuntime is the slice of the agent runtime the HTTP layer drives.
type AgentRuntime interface {
	CreateAgent(ctx context.Context) (*models.Agent, error)
	Chat(ctx context.Context, agentID, message string, timestamp int64) <-chan events.Event
	HasAgent(agentID string) bool
	GetSandbox(agentID string) sandbox.Sandbox
}

// Server is the HTTP front end: agent lifecycle endpoints, the SSE turn
// stream, sandbox shell/file views and the VNC WebSocket relay.
type Server struct {
	cfg     *config.Config
	runtime AgentRuntime

	echo       *echo.Echo
	httpServer *http.Server
}

// NewServer wires routes and middleware around the agent runtime.
func NewServer(cfg *config.Config, rt AgentRuntime) *Server {
	e := echo.New()
	s := &Server{
		cfg:     cfg,
		runtime: rt,
		echo:    e,
	}

	e.Use(errorEnvelope(), corsHeaders(), securityHeaders())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRoutes registers all endpoints. Streaming endpoints (chat SSE and
// the VNC relay) hold their connection open for the life of the turn or
// viewer session.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)

	s.echo.POST("/api/v1/agents", s.createAgentHandler)
	s.echo.POST("/api/v1/agents/:id/chat", s.chatHandler)
	s.echo.POST("/api/v1/agents/:id/shell", s.shellViewHandler)
	s.echo.POST("/api/v1/agents/:id/file", s.fileViewHandler)
	s.echo.GET("/api/v1/agents/:id/vnc", s.vncHandler)
}

// Start begins serving and blocks until the listener stops. A server
// closed by Shutdown returns nil.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithListener serves requests on an already-bound listener,
// typically one on an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	slog.Info("HTTP server listening", "addr", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
