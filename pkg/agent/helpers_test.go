package agent

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/tools"
)

// scriptEntry defines one scripted LLM reply.
type scriptEntry struct {
	Text      string
	ToolCalls []models.ToolCall
	Err       error
}

// capturedAsk records one Ask invocation for assertions.
type capturedAsk struct {
	messages []models.Message
	tools    []openai.Tool
	format   string
}

// scriptedLLM implements llm.Client with ordered canned replies.
type scriptedLLM struct {
	mu       sync.Mutex
	entries  []scriptEntry
	index    int
	captured []capturedAsk
}

func newScriptedLLM(entries ...scriptEntry) *scriptedLLM {
	return &scriptedLLM{entries: entries}
}

func (c *scriptedLLM) add(entries ...scriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entries...)
}

func (c *scriptedLLM) Ask(ctx context.Context, messages []models.Message, toolSchemas []openai.Tool, responseFormat string) (*models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]models.Message, len(messages))
	copy(snapshot, messages)
	c.captured = append(c.captured, capturedAsk{messages: snapshot, tools: toolSchemas, format: responseFormat})

	if c.index >= len(c.entries) {
		return nil, fmt.Errorf("scriptedLLM: no entry for call %d", c.index+1)
	}
	entry := c.entries[c.index]
	c.index++

	if entry.Err != nil {
		return nil, entry.Err
	}
	return &models.Message{
		Role:      models.RoleAssistant,
		Content:   entry.Text,
		ToolCalls: entry.ToolCalls,
	}, nil
}

func (c *scriptedLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.captured)
}

func (c *scriptedLLM) lastAsk() capturedAsk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captured[len(c.captured)-1]
}

// collector gathers emitted events; emit always reports "keep going".
type collector struct {
	events []events.Event
}

func (c *collector) emit(e events.Event) bool {
	c.events = append(c.events, e)
	return true
}

func (c *collector) types() []string {
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type())
	}
	return out
}

// scriptedTool is a one-function tool group whose handler fails the
// first failures invocations and then succeeds.
type scriptedTool struct {
	failures int
	calls    int
	lastArgs map[string]any
}

func (s *scriptedTool) Name() string { return "stub" }

func (s *scriptedTool) Functions() []tools.Function {
	return []tools.Function{{
		Name:        "stub_echo",
		Description: "Echo the given text",
		Parameters: map[string]any{
			"text": map[string]any{"type": "string"},
		},
		Required: []string{"text"},
		Handler: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
			s.calls++
			s.lastArgs = args
			if s.calls <= s.failures {
				return nil, fmt.Errorf("attempt %d failed", s.calls)
			}
			return &models.ToolResult{Success: true, Data: args["text"]}, nil
		},
	}}
}

func echoCall(id, text string) models.ToolCall {
	return models.ToolCall{ID: id, Name: "stub_echo", Arguments: fmt.Sprintf(`{"text":%q}`, text)}
}

// nullSandbox is a sandbox.Sandbox returning canned successes, with an
// optional injected shell_exec failure for retry tests.
type nullSandbox struct {
	execErr  error
	execs    int
	lastExec [3]string
}

func (n *nullSandbox) ExecCommand(ctx context.Context, sessionID, execDir, command string) (*models.ToolResult, error) {
	n.execs++
	n.lastExec = [3]string{sessionID, execDir, command}
	if n.execErr != nil {
		return nil, n.execErr
	}
	return &models.ToolResult{Success: true, Data: "ok"}, nil
}

func (n *nullSandbox) ViewShell(ctx context.Context, sessionID string) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) WaitForProcess(ctx context.Context, sessionID string, seconds int) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) WriteToProcess(ctx context.Context, sessionID, input string, pressEnter bool) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) KillProcess(ctx context.Context, sessionID string) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) FileRead(ctx context.Context, file string, startLine, endLine int, sudo bool) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) FileWrite(ctx context.Context, file, content string, append, sudo bool) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) FileReplace(ctx context.Context, file, oldStr, newStr string, sudo bool) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) FileSearch(ctx context.Context, file, regex string, sudo bool) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) FileFind(ctx context.Context, path, glob string) (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (n *nullSandbox) CDPURL() string                    { return "http://127.0.0.1:9222" }
func (n *nullSandbox) VNCURL() string                    { return "ws://127.0.0.1:5901" }
func (n *nullSandbox) Destroy(ctx context.Context) error { return nil }

// nullBrowser is a browser.Browser returning canned successes.
type nullBrowser struct{}

func ok() (*models.ToolResult, error) {
	return &models.ToolResult{Success: true}, nil
}

func (nullBrowser) ViewPage(ctx context.Context) (*models.ToolResult, error) { return ok() }

func (nullBrowser) Navigate(ctx context.Context, url string) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) Restart(ctx context.Context, url string) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) Click(ctx context.Context, index *int, x, y *float64) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) Input(ctx context.Context, text string, pressEnter bool, index *int, x, y *float64) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) MoveMouse(ctx context.Context, x, y float64) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) PressKey(ctx context.Context, key string) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) SelectOption(ctx context.Context, index, option int) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) ScrollUp(ctx context.Context, toTop bool) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) ScrollDown(ctx context.Context, toBottom bool) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) ConsoleExec(ctx context.Context, javascript string) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) ConsoleView(ctx context.Context, maxLines int) (*models.ToolResult, error) {
	return ok()
}

func (nullBrowser) Cleanup(ctx context.Context) error { return nil }
