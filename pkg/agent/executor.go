package agent

import (
	"context"
	"fmt"

	"github.com/sablehq/sable/pkg/browser"
	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/sandbox"
	"github.com/sablehq/sable/pkg/search"
	"github.com/sablehq/sable/pkg/tools"
)

// Executor runs individual plan steps through the reasoning loop with
// the sandbox-backed tool surface bound. The search group is bound
// only when a search engine is configured.
type Executor struct {
	loop *loop
}

// NewExecutor seeds memory with the execution system prompt and
// compiles the tool registry. engine may be nil.
func NewExecutor(memory *models.Memory, llmClient llm.Client, sb sandbox.Sandbox, b browser.Browser, engine search.Engine) (*Executor, error) {
	groups := []tools.Tool{
		tools.NewShellTool(sb),
		tools.NewBrowserTool(b),
		tools.NewFileTool(sb),
		tools.NewMessageTool(),
	}
	if engine != nil {
		groups = append(groups, tools.NewSearchTool(engine))
	}

	registry, err := tools.NewRegistry(groups...)
	if err != nil {
		return nil, err
	}
	return &Executor{
		loop: newLoop(memory, llmClient, registry, executionSystemPrompt, ""),
	}, nil
}

// ExecuteStep drives one step to a terminal status: running on entry
// with step_started, then failed + step_failed when the loop ends on
// an error, or completed + step_completed with the loop's final
// message as the step result.
func (e *Executor) ExecuteStep(ctx context.Context, plan *models.Plan, step *models.Step, emit EmitFunc) error {
	step.Status = models.StatusRunning
	if !emit(events.StepStarted{Step: step, Plan: plan}) {
		return errPreempted
	}

	out, err := e.loop.run(ctx, fmt.Sprintf(executionPrompt, plan.Goal, step.Description), emit)
	if err != nil {
		return err
	}

	if out.errText != "" {
		step.Status = models.StatusFailed
		step.Error = out.errText
		if !emit(events.StepFailed{Step: step, Plan: plan}) {
			return errPreempted
		}
		return nil
	}

	step.Status = models.StatusCompleted
	step.Result = out.content
	if !emit(events.StepCompleted{Step: step, Plan: plan}) {
		return errPreempted
	}
	return nil
}

// Rollback undoes the most recent in-flight memory entry after an
// interrupted turn.
func (e *Executor) Rollback() {
	e.loop.rollback()
}
