package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/sablehq/sable/pkg/version"
)

// healthHandler handles GET /health.
// Returns a minimal, safe response suitable for unauthenticated access.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &HealthResponse{
		Status:  "ok",
		Version: version.GitCommit,
	})
}
