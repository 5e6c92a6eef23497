package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
)

// chatCall records the arguments of one Chat invocation.
type chatCall struct {
	agentID   string
	message   string
	timestamp int64
}

// stubRuntime scripts the runtime surface the handlers consume. agents
// maps known ids to their sandbox; a nil value models an agent whose
// sandbox is gone.
type stubRuntime struct {
	agent     *models.Agent
	createErr error
	agents    map[string]sandbox.Sandbox
	turn      []events.Event

	lastChat chatCall
}

func (r *stubRuntime) CreateAgent(_ context.Context) (*models.Agent, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.agent, nil
}

func (r *stubRuntime) Chat(_ context.Context, agentID, message string, timestamp int64) <-chan events.Event {
	r.lastChat = chatCall{agentID: agentID, message: message, timestamp: timestamp}
	ch := make(chan events.Event, len(r.turn))
	for _, e := range r.turn {
		ch <- e
	}
	close(ch)
	return ch
}

func (r *stubRuntime) HasAgent(agentID string) bool {
	_, ok := r.agents[agentID]
	return ok
}

func (r *stubRuntime) GetSandbox(agentID string) sandbox.Sandbox {
	return r.agents[agentID]
}

// viewSandbox stubs the view calls the API proxies. Unstubbed methods
// panic through the embedded nil interface.
type viewSandbox struct {
	sandbox.Sandbox
	shellResult *models.ToolResult
	shellErr    error
	fileResult  *models.ToolResult
	fileErr     error
	vncURL      string
}

func (v *viewSandbox) ViewShell(_ context.Context, _ string) (*models.ToolResult, error) {
	return v.shellResult, v.shellErr
}

func (v *viewSandbox) FileRead(_ context.Context, _ string, _, _ int, _ bool) (*models.ToolResult, error) {
	return v.fileResult, v.fileErr
}

func (v *viewSandbox) VNCURL() string { return v.vncURL }

// newTestServer builds a Server around the stub runtime without starting
// the listener.
func newTestServer(rt AgentRuntime) *Server {
	return NewServer(&config.Config{ListenAddress: ":0"}, rt)
}

// doJSON routes a request through the full middleware and router stack.
func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors the response wrapper with the data field kept raw.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

// sseFrame is one parsed "event:"/"data:" block from a streamed body.
type sseFrame struct {
	event string
	data  string
}

func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.SplitN(block, "\n", 2)
		require.Len(t, lines, 2, "malformed SSE block: %q", block)
		frames = append(frames, sseFrame{
			event: strings.TrimPrefix(lines[0], "event: "),
			data:  strings.TrimPrefix(lines[1], "data: "),
		})
	}
	return frames
}

func frameEvents(frames []sseFrame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.event)
	}
	return names
}
