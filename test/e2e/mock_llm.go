package e2e

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
)

var _ llm.Client = (*ScriptedLLMClient)(nil)

// LLMScriptEntry defines a single scripted LLM reply.
type LLMScriptEntry struct {
	// Reply content
	Text     string           // assistant text (planner JSON documents included)
	ToolCall *models.ToolCall // single tool call requested by the reply
	Err      error            // returned from Ask instead of a reply

	// Test control
	WaitCh  <-chan struct{} // block Ask until closed; ctx cancellation aborts the wait
	OnBlock chan<- struct{} // notified when Ask enters its blocking path
}

// CapturedCall records one Ask invocation.
type CapturedCall struct {
	Messages       []models.Message
	ToolCount      int
	ResponseFormat string
}

// ScriptedLLMClient implements llm.Client with a dual-dispatch script:
// entries routed by a substring of the latest user message for
// multi-agent tests where call order is non-deterministic, plus a
// sequential fallback consumed in order.
type ScriptedLLMClient struct {
	mu         sync.Mutex
	sequential []LLMScriptEntry
	seqIndex   int
	routes     map[string][]LLMScriptEntry
	routeIndex map[string]int
	captured   []CapturedCall
}

// NewScriptedLLMClient creates an empty script.
func NewScriptedLLMClient() *ScriptedLLMClient {
	return &ScriptedLLMClient{
		routes:     make(map[string][]LLMScriptEntry),
		routeIndex: make(map[string]int),
	}
}

// AddSequential appends an entry consumed in order by non-routed calls.
func (c *ScriptedLLMClient) AddSequential(entry LLMScriptEntry) {
	c.sequential = append(c.sequential, entry)
}

// AddRouted appends an entry consumed by calls whose latest user
// message contains key. Keys of concurrently active routes must not
// overlap.
func (c *ScriptedLLMClient) AddRouted(key string, entry LLMScriptEntry) {
	c.routes[key] = append(c.routes[key], entry)
}

// Ask implements llm.Client.
func (c *ScriptedLLMClient) Ask(ctx context.Context, messages []models.Message, tools []openai.Tool, responseFormat string) (*models.Message, error) {
	c.mu.Lock()
	c.captured = append(c.captured, CapturedCall{
		Messages:       append([]models.Message(nil), messages...),
		ToolCount:      len(tools),
		ResponseFormat: responseFormat,
	})
	entry, err := c.nextEntry(messages)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if entry.WaitCh != nil {
		if entry.OnBlock != nil {
			entry.OnBlock <- struct{}{}
		}
		select {
		case <-entry.WaitCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if entry.Err != nil {
		return nil, entry.Err
	}

	reply := &models.Message{Role: models.RoleAssistant, Content: entry.Text}
	if entry.ToolCall != nil {
		reply.ToolCalls = []models.ToolCall{*entry.ToolCall}
	}
	return reply, nil
}

// CallCount returns the total number of Ask calls made.
func (c *ScriptedLLMClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.captured)
}

// Captured returns every recorded Ask invocation in order.
func (c *ScriptedLLMClient) Captured() []CapturedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedCall(nil), c.captured...)
}

// nextEntry selects the next script entry: routed dispatch on the
// latest user message first, then the sequential fallback. Must be
// called with c.mu held.
func (c *ScriptedLLMClient) nextEntry(messages []models.Message) (*LLMScriptEntry, error) {
	user := latestUserMessage(messages)

	for key, entries := range c.routes {
		if !strings.Contains(user, key) {
			continue
		}
		idx := c.routeIndex[key]
		if idx < len(entries) {
			c.routeIndex[key] = idx + 1
			return &entries[idx], nil
		}
	}

	if c.seqIndex < len(c.sequential) {
		entry := &c.sequential[c.seqIndex]
		c.seqIndex++
		return entry, nil
	}

	return nil, fmt.Errorf("ScriptedLLMClient: no more entries (user=%.60q, sequential=%d/%d)",
		user, c.seqIndex, len(c.sequential))
}

func latestUserMessage(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
