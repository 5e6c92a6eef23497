package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// errorEnvelope returns middleware that converts handler errors into the
// JSON error envelope. Echo HTTP errors keep their status and message;
// anything else is logged and hidden behind a generic 500.
func errorEnvelope() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			var he *echo.HTTPError
			if !errors.As(err, &he) {
				var sc echo.HTTPStatusCoder
				if errors.As(err, &sc) {
					he = echo.NewHTTPError(sc.StatusCode(), err.Error())
				} else {
					slog.Error("Unhandled request error", "path", c.Request().URL.Path, "error", err)
					he = echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
				}
			}
			return c.JSON(he.Code, errorResponse(he.Code, httpErrorMessage(he)))
		}
	}
}

// httpErrorMessage extracts the client-facing message from an echo HTTP
// error, falling back to the standard status text.
func httpErrorMessage(he *echo.HTTPError) string {
	if he.Message != "" {
		return he.Message
	}
	return http.StatusText(he.Code)
}

// agentNotFound is returned when no live agent matches the id.
func agentNotFound(agentID string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, "Agent not found: "+agentID)
}

// sandboxNotFound is returned when an agent exists but its sandbox is gone.
func sandboxNotFound(agentID string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, "Sandbox not found: "+agentID)
}
