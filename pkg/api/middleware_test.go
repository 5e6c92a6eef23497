package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(&stubRuntime{})

	rec := doJSON(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	h := rec.Header()
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Equal(t, "camera=(), microphone=(), geolocation=()", h.Get("Permissions-Policy"))
}

func TestCORSHeaders(t *testing.T) {
	t.Run("echoes the request origin", func(t *testing.T) {
		s := newTestServer(&stubRuntime{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		h := rec.Header()
		assert.Equal(t, "http://localhost:5173", h.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, h.Values("Vary"), "Origin")
	})

	t.Run("wildcard origin without an Origin header", func(t *testing.T) {
		s := newTestServer(&stubRuntime{})

		rec := doJSON(s, http.MethodGet, "/health", "")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits with 204", func(t *testing.T) {
		s := newTestServer(&stubRuntime{})

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/agents", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}
