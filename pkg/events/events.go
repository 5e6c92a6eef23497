// Package events defines the domain events produced by an agent's
// plan/act flow and their projection onto the SSE wire format
// consumed by clients.
//
// Domain events form a closed set discriminated by Type. The flow,
// planner, executor and reasoning loop produce them onto the agent's
// outbound queue; the transport drains the queue, projects each event
// with ToSSE and ships the result until a Done event terminates the
// stream.
package events

import "github.com/sablehq/sable/pkg/models"

// Domain event type discriminators.
const (
	TypePlanCreated   = "plan_created"
	TypePlanUpdated   = "plan_updated"
	TypePlanCompleted = "plan_completed"
	TypeStepStarted   = "step_started"
	TypeStepCompleted = "step_completed"
	TypeStepFailed    = "step_failed"
	TypeToolCalling   = "tool_calling"
	TypeToolCalled    = "tool_called"
	TypeMessage       = "message"
	TypeError         = "error"
	TypeDone          = "done"
)

// Event is a domain event emitted during agent execution.
type Event interface {
	Type() string
}

// PlanCreated is emitted once a fresh plan has been parsed from the
// planner's output.
type PlanCreated struct {
	Plan *models.Plan
}

func (PlanCreated) Type() string { return TypePlanCreated }

// PlanUpdated is emitted after replanning spliced new steps onto the
// plan's completed prefix.
type PlanUpdated struct {
	Plan *models.Plan
}

func (PlanUpdated) Type() string { return TypePlanUpdated }

// PlanCompleted is emitted when no non-terminal step remains.
type PlanCompleted struct {
	Plan *models.Plan
}

func (PlanCompleted) Type() string { return TypePlanCompleted }

// StepStarted is emitted when the executor marks a step running.
type StepStarted struct {
	Step *models.Step
	Plan *models.Plan
}

func (StepStarted) Type() string { return TypeStepStarted }

// StepCompleted is emitted when a step's reasoning loop ends with a
// final assistant message.
type StepCompleted struct {
	Step *models.Step
	Plan *models.Plan
}

func (StepCompleted) Type() string { return TypeStepCompleted }

// StepFailed is emitted when a step's reasoning loop ends with an error.
type StepFailed struct {
	Step *models.Step
	Plan *models.Plan
}

func (StepFailed) Type() string { return TypeStepFailed }

// ToolCalling is emitted immediately before a tool function runs.
type ToolCalling struct {
	ToolName     string
	FunctionName string
	FunctionArgs map[string]any
}

func (ToolCalling) Type() string { return TypeToolCalling }

// ToolCalled is emitted after a tool function returned successfully.
type ToolCalled struct {
	ToolName       string
	FunctionName   string
	FunctionArgs   map[string]any
	FunctionResult any
}

func (ToolCalled) Type() string { return TypeToolCalled }

// Message carries a final assistant message for the current request.
type Message struct {
	Text string
}

func (Message) Type() string { return TypeMessage }

// Error carries a terminal failure description for the current request.
type Error struct {
	Text string
}

func (Error) Type() string { return TypeError }

// Done terminates the event stream for one user turn.
type Done struct{}

func (Done) Type() string { return TypeDone }
