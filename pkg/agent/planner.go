package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/tools"
)

// Planner turns user messages into step plans and revises the pending
// suffix of a plan between steps. It runs the reasoning loop with no
// tools bound and a JSON response format; plan documents come back as
// the loop's terminal message.
type Planner struct {
	loop *loop
}

// NewPlanner seeds memory with the planner system prompt.
func NewPlanner(memory *models.Memory, llmClient llm.Client) (*Planner, error) {
	registry, err := tools.NewRegistry()
	if err != nil {
		return nil, err
	}
	return &Planner{
		loop: newLoop(memory, llmClient, registry, plannerSystemPrompt, llm.ResponseFormatJSON),
	}, nil
}

// planPayload is the JSON document the planner model returns for a
// create request. Extra fields (the model sometimes volunteers a
// "todo" list) are ignored.
type planPayload struct {
	Message string         `json:"message"`
	Goal    string         `json:"goal"`
	Title   string         `json:"title"`
	Steps   []*models.Step `json:"steps"`
}

// CreatePlan builds a fresh plan from the user's message and emits
// plan_created. A response that does not parse as a plan document
// fails the turn.
func (p *Planner) CreatePlan(ctx context.Context, message string, emit EmitFunc) (*models.Plan, error) {
	out, err := p.loop.run(ctx, fmt.Sprintf(createPlanPrompt, message), emit)
	if err != nil {
		return nil, err
	}
	if out.errText != "" {
		if !emit(events.Error{Text: out.errText}) {
			return nil, errPreempted
		}
	}

	slog.Debug("Planner response", "content", out.content)
	var payload planPayload
	if err := json.Unmarshal([]byte(out.content), &payload); err != nil {
		return nil, fmt.Errorf("parsing plan response: %w", err)
	}

	plan := models.NewPlan(payload.Title, payload.Goal, payload.Message, payload.Steps)
	if !emit(events.PlanCreated{Plan: plan}) {
		return nil, errPreempted
	}
	return plan, nil
}

// UpdatePlan asks the model to re-plan everything from the first
// non-terminal step onward and splices the answer onto the plan's
// terminal prefix. Goal and title never change. Emits plan_updated.
func (p *Planner) UpdatePlan(ctx context.Context, plan *models.Plan, emit EmitFunc) error {
	current, err := json.Marshal(struct {
		Steps []*models.Step `json:"steps"`
	}{Steps: plan.Steps})
	if err != nil {
		return fmt.Errorf("encoding plan steps: %w", err)
	}

	out, err := p.loop.run(ctx, fmt.Sprintf(updatePlanPrompt, plan.Goal, string(current)), emit)
	if err != nil {
		return err
	}
	if out.errText != "" {
		if !emit(events.Error{Text: out.errText}) {
			return errPreempted
		}
	}

	var payload struct {
		Steps []*models.Step `json:"steps"`
	}
	if err := json.Unmarshal([]byte(out.content), &payload); err != nil {
		return fmt.Errorf("parsing plan update response: %w", err)
	}

	plan.SpliceSteps(payload.Steps)
	if !emit(events.PlanUpdated{Plan: plan}) {
		return errPreempted
	}
	return nil
}

// Rollback undoes the most recent in-flight memory entry after an
// interrupted turn.
func (p *Planner) Rollback() {
	p.loop.rollback()
}
