// Package runtime hosts live agents. Each agent owns a sandbox, a
// browser, a plan/act flow and one worker goroutine, connected to the
// transport by an inbound message queue and an outbound event queue.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sablehq/sable/pkg/agent"
	"github.com/sablehq/sable/pkg/browser"
	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/queue"
	"github.com/sablehq/sable/pkg/sandbox"
	"github.com/sablehq/sable/pkg/search"
)

// agentContext bundles everything one live agent owns. The queues and
// flow are created once and live until CloseAgent; cancel and
// workerDone track the current worker goroutine, which may be
// respawned after a task error.
type agentContext struct {
	agent   *models.Agent
	flow    *agent.Flow
	sandbox sandbox.Sandbox
	browser browser.Browser

	msgQueue *queue.Queue[string]
	events   *queue.Queue[events.Event]

	cancel     context.CancelFunc
	workerDone chan struct{}

	lastMessage     string
	lastMessageTime int64
}

// failTurn reports a worker-level failure on the event stream and
// terminates the turn.
func (ac *agentContext) failTurn(text string) {
	ac.events.Put(events.Error{Text: text})
	ac.events.Put(events.Done{})
}

// Runtime manages the set of live agents. The LLM client and search
// engine are stateless and shared; every agent gets its own sandbox
// and browser.
type Runtime struct {
	cfg    *config.Config
	llm    llm.Client
	engine search.Engine

	newSandbox func(ctx context.Context) (sandbox.Sandbox, error)
	newBrowser func(cdpURL string) browser.Browser

	mu       sync.Mutex
	contexts map[string]*agentContext
}

// Option adjusts a Runtime under construction.
type Option func(*Runtime)

// WithSandboxFactory overrides how sandboxes are provisioned for new
// agents.
func WithSandboxFactory(f func(ctx context.Context) (sandbox.Sandbox, error)) Option {
	return func(r *Runtime) { r.newSandbox = f }
}

// WithBrowserFactory overrides how browsers are attached to a
// sandbox's CDP endpoint.
func WithBrowserFactory(f func(cdpURL string) browser.Browser) Option {
	return func(r *Runtime) { r.newBrowser = f }
}

// WithSearchEngine overrides the web-search backend regardless of the
// configured Google settings.
func WithSearchEngine(engine search.Engine) Option {
	return func(r *Runtime) { r.engine = engine }
}

// New builds a runtime from the loaded configuration. Web search is
// wired only when both Google custom-search settings are present.
func New(cfg *config.Config, llmClient llm.Client, opts ...Option) *Runtime {
	r := &Runtime{
		cfg: cfg,
		llm: llmClient,
		newSandbox: func(ctx context.Context) (sandbox.Sandbox, error) {
			return sandbox.Create(ctx, cfg)
		},
		newBrowser: func(cdpURL string) browser.Browser {
			return browser.NewPlaywrightBrowser(llmClient, cdpURL)
		},
		contexts: make(map[string]*agentContext),
	}
	if cfg.SearchEnabled() {
		r.engine = search.NewGoogleEngine(cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID)
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.engine != nil {
		slog.Info("Web search enabled")
	} else {
		slog.Warn("Web search disabled: GOOGLE_SEARCH_API_KEY or GOOGLE_SEARCH_ENGINE_ID not set")
	}
	return r
}

// CreateAgent provisions a sandbox and browser, wires a flow around
// fresh planner and executor memories, registers the context and
// starts the agent's worker.
func (r *Runtime) CreateAgent(ctx context.Context) (*models.Agent, error) {
	sb, err := r.newSandbox(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}
	slog.Info("Sandbox created", "cdp_url", sb.CDPURL())

	b := r.newBrowser(sb.CDPURL())

	a := &models.Agent{
		ID:              models.NewAgentID(),
		PlannerMemory:   models.NewMemory(),
		ExecutionMemory: models.NewMemory(),
		ModelName:       r.cfg.ModelName,
		Temperature:     r.cfg.Temperature,
		MaxTokens:       r.cfg.MaxTokens,
	}

	flow, err := agent.NewFlow(a, r.llm, sb, b, r.engine)
	if err != nil {
		if derr := sb.Destroy(ctx); derr != nil {
			slog.Warn("Destroying sandbox after failed agent setup", "error", derr)
		}
		return nil, err
	}

	ac := &agentContext{
		agent:    a,
		flow:     flow,
		sandbox:  sb,
		browser:  b,
		msgQueue: queue.New[string](),
		events:   queue.New[events.Event](),
	}

	r.mu.Lock()
	r.contexts[a.ID] = ac
	r.spawnWorkerLocked(ac)
	r.mu.Unlock()

	slog.Info("Agent created", "agent_id", a.ID, "model", a.ModelName)
	return a, nil
}

// Chat submits one user message and returns the agent's event stream
// for the turn; the channel closes after the done event. An unknown
// agent id yields a single error event and no done.
//
// An empty message, or one equal to the previous message with the same
// timestamp, is not enqueued: if the flow is idle the stream is a lone
// done event (a clean terminator for reconnecting clients), otherwise
// the call attaches to the in-flight turn's events.
func (r *Runtime) Chat(ctx context.Context, agentID, message string, timestamp int64) <-chan events.Event {
	out := make(chan events.Event)

	r.mu.Lock()
	ac, ok := r.contexts[agentID]
	if !ok {
		r.mu.Unlock()
		slog.Warn("Chat with unknown agent", "agent_id", agentID)
		go func() {
			defer close(out)
			deliver(ctx, out, events.Error{Text: "Agent not initialized"})
		}()
		return out
	}

	fresh := message != "" && !(message == ac.lastMessage && timestamp == ac.lastMessageTime)
	if fresh {
		slog.Debug("Enqueueing message", "agent_id", agentID, "message", truncate(message, 50))
		ac.msgQueue.Put(message)
		ac.lastMessage = message
		ac.lastMessageTime = timestamp
	} else if ac.flow.IsIdle() {
		r.mu.Unlock()
		slog.Info("Duplicate or empty message while idle", "agent_id", agentID)
		go func() {
			defer close(out)
			deliver(ctx, out, events.Done{})
		}()
		return out
	}

	r.ensureWorkerLocked(ac)
	r.mu.Unlock()

	go func() {
		defer close(out)
		for {
			e, err := ac.events.Get(ctx)
			if err != nil {
				return
			}
			if !deliver(ctx, out, e) {
				return
			}
			if e.Type() == events.TypeDone {
				return
			}
		}
	}()
	return out
}

func deliver(ctx context.Context, out chan<- events.Event, e events.Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// spawnWorkerLocked starts a fresh worker goroutine for ac. Caller
// holds r.mu.
func (r *Runtime) spawnWorkerLocked(ac *agentContext) {
	ctx, cancel := context.WithCancel(context.Background())
	ac.cancel = cancel
	done := make(chan struct{})
	ac.workerDone = done
	go func() {
		defer close(done)
		r.work(ctx, ac)
	}()
}

// ensureWorkerLocked respawns the worker when a previous one exited
// after a task error. Caller holds r.mu.
func (r *Runtime) ensureWorkerLocked(ac *agentContext) {
	select {
	case <-ac.workerDone:
		slog.Info("Restarting agent worker", "agent_id", ac.agent.ID)
		r.spawnWorkerLocked(ac)
	default:
	}
}

// work drains the agent's message queue, running one flow turn per
// message. Events are forwarded to the outbound queue; after each one
// the inbound queue is checked so a newly arrived message preempts the
// turn cooperatively. Any error or panic escaping a turn is reported
// as a Task error on the stream and stops the worker; the next Chat
// call starts a fresh one.
func (r *Runtime) work(ctx context.Context, ac *agentContext) {
	log := slog.With("agent_id", ac.agent.ID)
	defer func() {
		if v := recover(); v != nil {
			log.Error("Agent worker panicked", "panic", v)
			ac.failTurn(fmt.Sprintf("Task error: %v", v))
		}
	}()

	for {
		msg, err := ac.msgQueue.Get(ctx)
		if err != nil {
			log.Info("Agent worker stopping", "reason", err)
			return
		}

		emit := func(e events.Event) bool {
			ac.events.Put(e)
			return ac.msgQueue.Len() == 0
		}

		if err := ac.flow.Run(ctx, msg, emit); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Agent turn failed", "error", err)
			ac.failTurn(fmt.Sprintf("Task error: %v", err))
			return
		}
	}
}

// HasAgent reports whether an agent with the given id is registered.
func (r *Runtime) HasAgent(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.contexts[agentID]
	return ok
}

// GetSandbox returns the sandbox owned by the given agent, or nil when
// the agent is unknown.
func (r *Runtime) GetSandbox(agentID string) sandbox.Sandbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	ac, ok := r.contexts[agentID]
	if !ok {
		slog.Warn("Sandbox lookup for unknown agent", "agent_id", agentID)
		return nil
	}
	return ac.sandbox
}

// CloseAgent tears down one agent: stops its worker, drains both
// queues, cleans up the browser and destroys the sandbox. Returns
// false for an unknown id.
func (r *Runtime) CloseAgent(ctx context.Context, agentID string) bool {
	r.mu.Lock()
	ac, ok := r.contexts[agentID]
	if !ok {
		r.mu.Unlock()
		slog.Warn("Closing unknown agent", "agent_id", agentID)
		return false
	}
	delete(r.contexts, agentID)
	r.mu.Unlock()

	ac.cancel()
	<-ac.workerDone

	ac.msgQueue.Drain()
	ac.msgQueue.Close()
	ac.events.Drain()
	ac.events.Close()

	if err := ac.browser.Cleanup(ctx); err != nil {
		slog.Warn("Browser cleanup failed", "agent_id", agentID, "error", err)
	}
	if err := ac.sandbox.Destroy(ctx); err != nil {
		slog.Error("Sandbox destroy failed", "agent_id", agentID, "error", err)
	}

	slog.Info("Agent closed", "agent_id", agentID)
	return true
}

// CloseAll closes every registered agent. Used at shutdown.
func (r *Runtime) CloseAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.contexts))
	for id := range r.contexts {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slog.Info("Closing all agents", "count", len(ids))
	for _, id := range ids {
		r.CloseAgent(ctx, id)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
