package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// streamTimeout bounds every chat stream a test opens; a stuck stream
// fails the test instead of hanging the suite.
const streamTimeout = 15 * time.Second

// SSEFrame is one wire event as received by a client.
type SSEFrame struct {
	Event string
	Data  map[string]any
}

// CreateAgent posts /api/v1/agents and returns the new agent id.
func (app *TestApp) CreateAgent(t *testing.T) string {
	t.Helper()
	resp := app.postJSON(t, "/api/v1/agents", nil, http.StatusOK)
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "create agent response carries a data object: %v", resp)
	id, ok := data["agent_id"].(string)
	require.True(t, ok, "create agent response carries an agent_id: %v", data)
	require.NotEmpty(t, id)
	return id
}

// Chat posts one chat message and drains the SSE stream until the
// server closes it, returning the frames in wire order.
func (app *TestApp) Chat(t *testing.T, agentID, message string, timestamp int64) []SSEFrame {
	t.Helper()
	stream := app.ChatStream(t, agentID, message, timestamp)
	defer stream.Close()

	body, err := io.ReadAll(stream.resp.Body)
	require.NoError(t, err)
	return ParseSSE(t, string(body))
}

// ChatStream posts one chat message and returns the open SSE stream
// for incremental reading.
func (app *TestApp) ChatStream(t *testing.T, agentID, message string, timestamp int64) *ChatStream {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"message":   message,
		"timestamp": timestamp,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		app.BaseURL+"/api/v1/agents/"+agentID+"/chat", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return &ChatStream{
		resp:   resp,
		reader: bufio.NewReader(resp.Body),
		cancel: cancel,
	}
}

// ChatStream is an open SSE response.
type ChatStream struct {
	resp   *http.Response
	reader *bufio.Reader
	cancel context.CancelFunc
}

// Next reads one frame. It fails the test when the stream ends first.
func (s *ChatStream) Next(t *testing.T) SSEFrame {
	t.Helper()
	var event, data string
	for {
		line, err := s.reader.ReadString('\n')
		require.NoError(t, err, "reading SSE stream")
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return newFrame(t, event, data)
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// ReadUntil reads frames through the first one of the named event and
// returns everything read.
func (s *ChatStream) ReadUntil(t *testing.T, event string) []SSEFrame {
	t.Helper()
	var frames []SSEFrame
	for {
		f := s.Next(t)
		frames = append(frames, f)
		if f.Event == event {
			return frames
		}
	}
}

// Close aborts the request. The server drops the stream's subscription
// the way it would for a disconnected client.
func (s *ChatStream) Close() {
	s.cancel()
	_ = s.resp.Body.Close()
}

// ParseSSE splits a complete SSE body into frames.
func ParseSSE(t *testing.T, body string) []SSEFrame {
	t.Helper()
	var frames []SSEFrame
	for _, chunk := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		parts := strings.SplitN(chunk, "\n", 2)
		require.Len(t, parts, 2, "malformed SSE frame: %q", chunk)
		frames = append(frames, newFrame(t,
			strings.TrimPrefix(parts[0], "event: "),
			strings.TrimPrefix(parts[1], "data: ")))
	}
	return frames
}

func newFrame(t *testing.T, event, data string) SSEFrame {
	t.Helper()
	frame := SSEFrame{Event: event}
	require.NoError(t, json.Unmarshal([]byte(data), &frame.Data), "decoding %s frame data %q", event, data)
	return frame
}

// frameEvents projects frames onto their event names.
func frameEvents(frames []SSEFrame) []string {
	events := make([]string, 0, len(frames))
	for _, f := range frames {
		events = append(events, f.Event)
	}
	return events
}

// findFrame returns the first frame of the named event.
func findFrame(t *testing.T, frames []SSEFrame, event string) SSEFrame {
	t.Helper()
	for _, f := range frames {
		if f.Event == event {
			return f
		}
	}
	t.Fatalf("no %q frame in %v", event, frameEvents(frames))
	return SSEFrame{}
}

// planSteps decodes a plan frame's steps into (id, status) pairs.
func planSteps(t *testing.T, frame SSEFrame) [][2]string {
	t.Helper()
	require.Equal(t, "plan", frame.Event)
	raw, ok := frame.Data["steps"].([]any)
	require.True(t, ok, "plan frame carries steps: %v", frame.Data)
	steps := make([][2]string, 0, len(raw))
	for _, s := range raw {
		m, ok := s.(map[string]any)
		require.True(t, ok)
		steps = append(steps, [2]string{m["id"].(string), m["status"].(string)})
	}
	return steps
}

func (app *TestApp) postJSON(t *testing.T, path string, body any, expectedStatus int) map[string]any {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, app.BaseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "POST %s: unexpected status", path)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func (app *TestApp) getJSON(t *testing.T, path string, expectedStatus int) map[string]any {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, app.BaseURL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, expectedStatus, resp.StatusCode, "GET %s: unexpected status", path)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

// envelope asserts the standard {code, msg, data} response shape and
// returns it.
func envelope(t *testing.T, resp map[string]any, code int, msg string) map[string]any {
	t.Helper()
	require.Equal(t, float64(code), resp["code"], "envelope code: %v", resp)
	require.Equal(t, msg, resp["msg"], "envelope msg: %v", resp)
	return resp
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, "%s", msg)
}
