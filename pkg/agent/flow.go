package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sablehq/sable/pkg/browser"
	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
	"github.com/sablehq/sable/pkg/search"
)

// State is the flow's position in the plan/act cycle.
type State string

const (
	StateIdle      State = "idle"
	StatePlanning  State = "planning"
	StateExecuting State = "executing"
	StateUpdating  State = "updating"
	StateCompleted State = "completed"
)

// Flow is the per-agent state machine orchestrating planner and
// executor: plan once, execute the next pending step, re-plan while
// pending steps remain, complete when none do.
//
// Run is only ever called from the agent's worker goroutine. State is
// the one field read concurrently (IsIdle, from the transport's
// duplicate-suppression path) and is mutex-guarded for that reason.
type Flow struct {
	agentID  string
	planner  *Planner
	executor *Executor

	mu    sync.Mutex
	state State

	plan *models.Plan
}

// NewFlow wires a planner and executor around the agent's two
// memories. engine may be nil, which leaves the search group unbound.
func NewFlow(a *models.Agent, llmClient llm.Client, sb sandbox.Sandbox, b browser.Browser, engine search.Engine) (*Flow, error) {
	planner, err := NewPlanner(a.PlannerMemory, llmClient)
	if err != nil {
		return nil, err
	}
	executor, err := NewExecutor(a.ExecutionMemory, llmClient, sb, b, engine)
	if err != nil {
		return nil, err
	}
	return &Flow{
		agentID:  a.ID,
		planner:  planner,
		executor: executor,
		state:    StateIdle,
	}, nil
}

// IsIdle reports whether no turn is in progress. Safe to call from
// any goroutine.
func (f *Flow) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateIdle
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) currentState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Run processes one user message to completion: create a plan,
// execute and re-plan steps, then emit plan_completed and done.
//
// Called while a previous turn is still in flight (the worker was
// preempted), it first rolls both memories back and re-plans from the
// new message; the abandoned plan gets no plan_completed.
//
// A nil return means the turn ended cleanly or was preempted; the
// preempted case emits no done, the next turn ends the stream instead.
func (f *Flow) Run(ctx context.Context, message string, emit EmitFunc) error {
	if err := f.run(ctx, message, emit); err != nil {
		if errors.Is(err, errPreempted) {
			slog.Info("Turn preempted by new message", "agent_id", f.agentID, "state", f.currentState())
			return nil
		}
		return err
	}
	return nil
}

func (f *Flow) run(ctx context.Context, message string, emit EmitFunc) error {
	log := slog.With("agent_id", f.agentID)

	if !f.IsIdle() {
		log.Info("Interrupting in-flight plan", "state", f.currentState())
		f.setState(StatePlanning)
		f.planner.Rollback()
		f.executor.Rollback()
	}

	log.Info("Processing message", "message", truncate(message, 50))

	for {
		switch f.currentState() {
		case StateIdle:
			f.setState(StatePlanning)

		case StatePlanning:
			plan, err := f.planner.CreatePlan(ctx, message, emit)
			if err != nil {
				return err
			}
			f.plan = plan
			log.Info("Plan created", "plan_id", plan.ID, "steps", len(plan.Steps))
			f.setState(StateExecuting)

		case StateExecuting:
			f.plan.Status = models.StatusRunning
			step := f.plan.NextStep()
			if step == nil {
				f.setState(StateCompleted)
				continue
			}
			log.Info("Executing step", "step_id", step.ID, "description", truncate(step.Description, 50))
			if err := f.executor.ExecuteStep(ctx, f.plan, step, emit); err != nil {
				return err
			}
			// Re-planning is only worth an LLM round while pending
			// steps remain; a finished plan completes directly.
			if f.plan.NextStep() == nil {
				f.setState(StateCompleted)
			} else {
				f.setState(StateUpdating)
			}

		case StateUpdating:
			if err := f.planner.UpdatePlan(ctx, f.plan, emit); err != nil {
				return err
			}
			log.Info("Plan updated", "plan_id", f.plan.ID, "steps", len(f.plan.Steps))
			f.setState(StateExecuting)

		case StateCompleted:
			f.plan.Status = models.StatusCompleted
			log.Info("Plan completed", "plan_id", f.plan.ID)
			if !emit(events.PlanCompleted{Plan: f.plan}) {
				return errPreempted
			}
			f.setState(StateIdle)
			if !emit(events.Done{}) {
				return errPreempted
			}
			return nil
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
