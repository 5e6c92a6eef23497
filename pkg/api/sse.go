package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/sablehq/sable/pkg/events"
)

// sseWriter streams server-sent events over an open HTTP response,
// flushing after every event so clients see progress immediately.
type sseWriter struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	ctx context.Context
}

// newSSEWriter prepares SSE response headers and returns a writer bound
// to the request's lifetime.
func newSSEWriter(c *echo.Context) *sseWriter {
	w := http.ResponseWriter(c.Response())

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &sseWriter{
		w:   w,
		rc:  http.NewResponseController(w),
		ctx: c.Request().Context(),
	}
}

// send writes one wire event as an "event:"/"data:" frame. It reports
// false once the client has gone away or the payload cannot be written.
func (s *sseWriter) send(ev events.SSEEvent) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		slog.Error("Marshaling SSE payload", "event", ev.Event, "error", err)
		return false
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Event, data); err != nil {
		return false
	}
	if err := s.rc.Flush(); err != nil {
		return false
	}
	return true
}
