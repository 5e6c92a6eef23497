package e2e

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/llm"
)

// Two agents on one server make progress independently: beta runs a
// whole turn while alpha sits mid-step, and neither leaks into the
// other's conversation or sandbox.
func TestE2E_AgentsRunIndependently(t *testing.T) {
	alphaBlocked := make(chan struct{}, 1)
	alphaRelease := make(chan struct{})

	script := NewScriptedLLMClient()
	script.AddRouted("alpha", LLMScriptEntry{
		Text: `{"message":"alpha ack","goal":"alpha goal","title":"alpha plan","steps":[{"id":"a1","description":"alpha step"}]}`,
	})
	script.AddRouted("alpha", LLMScriptEntry{
		Text:    "alpha done",
		WaitCh:  alphaRelease,
		OnBlock: alphaBlocked,
	})
	script.AddRouted("beta", LLMScriptEntry{
		Text: `{"message":"beta ack","goal":"beta goal","title":"beta plan","steps":[{"id":"b1","description":"beta step"}]}`,
	})
	script.AddRouted("beta", LLMScriptEntry{Text: "beta done"})

	app := NewTestApp(t, WithLLMClient(script))
	alphaID := app.CreateAgent(t)
	betaID := app.CreateAgent(t)
	require.NotEqual(t, alphaID, betaID)
	require.Len(t, app.Sandboxes(), 2)

	streamA := app.ChatStream(t, alphaID, "alpha task please", 1)
	defer streamA.Close()
	head := streamA.ReadUntil(t, "step")
	assert.Equal(t, "alpha plan", head[0].Data["title"])
	select {
	case <-alphaBlocked:
	case <-time.After(streamTimeout):
		t.Fatal("alpha executor never reached the LLM")
	}

	// Alpha is parked inside its step; beta's turn must still run end
	// to end.
	framesB := app.Chat(t, betaID, "beta task please", 1)
	require.Equal(t,
		[]string{"title", "message", "plan", "step", "step", "message", "plan", "done"},
		frameEvents(framesB))
	assert.Equal(t, "beta plan", framesB[0].Data["title"])
	assert.Equal(t, "beta done", framesB[5].Data["content"])

	close(alphaRelease)
	tail := streamA.ReadUntil(t, "done")
	require.Equal(t, []string{"step", "message", "plan", "done"}, frameEvents(tail))
	assert.Equal(t, "alpha done", tail[1].Data["content"])

	// Beta's planner context carries nothing of alpha's conversation.
	assert.Equal(t, 4, script.CallCount())
	for _, call := range script.Captured() {
		if call.ResponseFormat != llm.ResponseFormatJSON {
			continue
		}
		if !strings.Contains(latestUserMessage(call.Messages), "beta task") {
			continue
		}
		for _, m := range call.Messages {
			assert.NotContains(t, m.Content, "alpha")
		}
	}
}
