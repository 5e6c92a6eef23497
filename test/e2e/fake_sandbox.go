package e2e

import (
	"context"
	"fmt"
	"sync"

	"github.com/sablehq/sable/pkg/browser"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
	"github.com/sablehq/sable/pkg/search"
)

var (
	_ sandbox.Sandbox = (*FakeSandbox)(nil)
	_ browser.Browser = fakeBrowser{}
	_ search.Engine   = (*fakeSearchEngine)(nil)
)

// FakeSandbox implements sandbox.Sandbox in memory. Every operation
// succeeds with a generic result unless ScriptResult installed one or
// FailFirst armed transport failures for it.
type FakeSandbox struct {
	mu        sync.Mutex
	results   map[string]*models.ToolResult
	failures  map[string]int
	calls     []string
	destroyed bool

	vncURL string
}

// NewFakeSandbox creates a sandbox with no scripted behavior.
func NewFakeSandbox() *FakeSandbox {
	return &FakeSandbox{
		results:  make(map[string]*models.ToolResult),
		failures: make(map[string]int),
		vncURL:   "ws://127.0.0.1:5901",
	}
}

// ScriptResult installs the result returned by the named operation
// ("shell_exec", "file_read", …).
func (f *FakeSandbox) ScriptResult(op string, result *models.ToolResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[op] = result
}

// FailFirst makes the named operation return a transport error for its
// next n calls.
func (f *FakeSandbox) FailFirst(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

// SetVNCURL overrides the reported VNC endpoint.
func (f *FakeSandbox) SetVNCURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vncURL = url
}

// Calls returns the operation names invoked so far, in order.
func (f *FakeSandbox) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times the named operation ran.
func (f *FakeSandbox) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Destroyed reports whether Destroy has been called.
func (f *FakeSandbox) Destroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func (f *FakeSandbox) op(name string) (*models.ToolResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if n := f.failures[name]; n > 0 {
		f.failures[name] = n - 1
		return nil, fmt.Errorf("sandbox unreachable: %s", name)
	}
	if r, ok := f.results[name]; ok {
		return r, nil
	}
	return &models.ToolResult{Success: true, Data: name + " ok"}, nil
}

func (f *FakeSandbox) ExecCommand(_ context.Context, _, _, _ string) (*models.ToolResult, error) {
	return f.op("shell_exec")
}

func (f *FakeSandbox) ViewShell(_ context.Context, _ string) (*models.ToolResult, error) {
	return f.op("shell_view")
}

func (f *FakeSandbox) WaitForProcess(_ context.Context, _ string, _ int) (*models.ToolResult, error) {
	return f.op("shell_wait")
}

func (f *FakeSandbox) WriteToProcess(_ context.Context, _, _ string, _ bool) (*models.ToolResult, error) {
	return f.op("shell_write")
}

func (f *FakeSandbox) KillProcess(_ context.Context, _ string) (*models.ToolResult, error) {
	return f.op("shell_kill")
}

func (f *FakeSandbox) FileRead(_ context.Context, _ string, _, _ int, _ bool) (*models.ToolResult, error) {
	return f.op("file_read")
}

func (f *FakeSandbox) FileWrite(_ context.Context, _, _ string, _, _ bool) (*models.ToolResult, error) {
	return f.op("file_write")
}

func (f *FakeSandbox) FileReplace(_ context.Context, _, _, _ string, _ bool) (*models.ToolResult, error) {
	return f.op("file_replace")
}

func (f *FakeSandbox) FileSearch(_ context.Context, _, _ string, _ bool) (*models.ToolResult, error) {
	return f.op("file_search")
}

func (f *FakeSandbox) FileFind(_ context.Context, _, _ string) (*models.ToolResult, error) {
	return f.op("file_find")
}

func (f *FakeSandbox) CDPURL() string { return "http://127.0.0.1:9222" }

func (f *FakeSandbox) VNCURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vncURL
}

func (f *FakeSandbox) Destroy(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	return nil
}

// fakeBrowser satisfies browser.Browser; agent scenarios here exercise
// the shell, file, message and search groups, so every operation just
// succeeds.
type fakeBrowser struct{}

func ok() (*models.ToolResult, error) {
	return &models.ToolResult{Success: true, Message: "ok"}, nil
}

func (fakeBrowser) ViewPage(context.Context) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) Navigate(context.Context, string) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) Restart(context.Context, string) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) Click(context.Context, *int, *float64, *float64) (*models.ToolResult, error) {
	return ok()
}

func (fakeBrowser) Input(context.Context, string, bool, *int, *float64, *float64) (*models.ToolResult, error) {
	return ok()
}

func (fakeBrowser) MoveMouse(context.Context, float64, float64) (*models.ToolResult, error) {
	return ok()
}

func (fakeBrowser) PressKey(context.Context, string) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) SelectOption(context.Context, int, int) (*models.ToolResult, error) {
	return ok()
}

func (fakeBrowser) ScrollUp(context.Context, bool) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) ScrollDown(context.Context, bool) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) ConsoleExec(context.Context, string) (*models.ToolResult, error) {
	return ok()
}

func (fakeBrowser) ConsoleView(context.Context, int) (*models.ToolResult, error) { return ok() }

func (fakeBrowser) Cleanup(context.Context) error { return nil }

// fakeSearchEngine satisfies search.Engine with a canned hit list.
type fakeSearchEngine struct {
	result *models.ToolResult
}

func (f *fakeSearchEngine) Search(_ context.Context, query, dateRange string) (*models.ToolResult, error) {
	if f.result != nil {
		return f.result, nil
	}
	return &models.ToolResult{
		Success: true,
		Data: map[string]any{
			"query":      query,
			"date_range": dateRange,
			"results": []map[string]any{
				{"title": "Example", "link": "https://example.com", "snippet": "An example hit"},
			},
		},
	}, nil
}
