// Package e2e boots the full agent server (real runtime, real HTTP
// transport) against scripted collaborators and exercises it over the
// wire.
package e2e

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sablehq/sable/pkg/api"
	"github.com/sablehq/sable/pkg/browser"
	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/runtime"
	"github.com/sablehq/sable/pkg/sandbox"
	"github.com/sablehq/sable/pkg/search"
)

// TestApp is a complete server instance under test: real runtime and
// HTTP transport, scripted LLM, in-memory sandboxes.
type TestApp struct {
	Config  *config.Config
	LLM     *ScriptedLLMClient
	Runtime *runtime.Runtime
	Server  *api.Server
	BaseURL string

	mu        sync.Mutex
	sandboxes []*FakeSandbox

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	cfg        *config.Config
	llm        *ScriptedLLMClient
	engine     search.Engine
	sandboxErr error
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithConfig sets a custom config.
func WithConfig(cfg *config.Config) TestAppOption {
	return func(c *testAppConfig) { c.cfg = cfg }
}

// WithLLMClient sets a pre-scripted LLM client.
func WithLLMClient(client *ScriptedLLMClient) TestAppOption {
	return func(c *testAppConfig) { c.llm = client }
}

// WithSearchEngine wires a search backend, enabling the search tool
// group for every agent.
func WithSearchEngine(engine search.Engine) TestAppOption {
	return func(c *testAppConfig) { c.engine = engine }
}

// WithSandboxError makes sandbox provisioning fail, so agent creation
// fails end to end.
func WithSandboxError(err error) TestAppOption {
	return func(c *testAppConfig) { c.sandboxErr = err }
}

// NewTestApp creates and starts a full server instance on an
// OS-assigned port. Shutdown is registered via t.Cleanup.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.cfg == nil {
		tc.cfg = defaultTestConfig()
	}
	if tc.llm == nil {
		tc.llm = NewScriptedLLMClient()
	}

	app := &TestApp{
		Config: tc.cfg,
		LLM:    tc.llm,
		t:      t,
	}

	rtOpts := []runtime.Option{
		runtime.WithSandboxFactory(func(_ context.Context) (sandbox.Sandbox, error) {
			if tc.sandboxErr != nil {
				return nil, tc.sandboxErr
			}
			sb := NewFakeSandbox()
			app.mu.Lock()
			app.sandboxes = append(app.sandboxes, sb)
			app.mu.Unlock()
			return sb, nil
		}),
		runtime.WithBrowserFactory(func(string) browser.Browser {
			return &fakeBrowser{}
		}),
	}
	if tc.engine != nil {
		rtOpts = append(rtOpts, runtime.WithSearchEngine(tc.engine))
	}
	app.Runtime = runtime.New(tc.cfg, tc.llm, rtOpts...)
	app.Server = api.NewServer(tc.cfg, app.Runtime)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Server.StartWithListener(ln)
	}()
	app.BaseURL = "http://" + ln.Addr().String()

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Server.Shutdown(shutdownCtx)
		app.Runtime.CloseAll(context.Background())
	})

	return app
}

// Sandboxes returns every sandbox provisioned so far, in creation
// order.
func (app *TestApp) Sandboxes() []*FakeSandbox {
	app.mu.Lock()
	defer app.mu.Unlock()
	return append([]*FakeSandbox(nil), app.sandboxes...)
}

// defaultTestConfig is a minimal config for tests that do not provide
// their own.
func defaultTestConfig() *config.Config {
	return &config.Config{
		ModelName:     "test-model",
		Temperature:   0.2,
		MaxTokens:     512,
		ListenAddress: "127.0.0.1:0",
	}
}
