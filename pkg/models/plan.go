package models

import "fmt"

// ExecutionStatus tracks the lifecycle of a plan or step.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is a single unit of work within a plan.
// Result is set when the step completes; Error when it fails.
type Step struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Status      ExecutionStatus `json:"status"`
	Result      string          `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Plan is an ordered list of steps toward a goal. Steps that have
// reached a terminal status form a stable prefix: replanning never
// rewrites them.
type Plan struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Goal    string          `json:"goal"`
	Message string          `json:"message"`
	Steps   []*Step         `json:"steps"`
	Status  ExecutionStatus `json:"status"`
	Error   string          `json:"error,omitempty"`
}

// NewPlan builds a plan from parsed planner output. All steps start
// pending and the plan id encodes the step count.
func NewPlan(title, goal, message string, steps []*Step) *Plan {
	for _, s := range steps {
		s.Status = StatusPending
	}
	return &Plan{
		ID:      fmt.Sprintf("plan_%d", len(steps)),
		Title:   title,
		Goal:    goal,
		Message: message,
		Steps:   steps,
		Status:  StatusPending,
	}
}

// FirstNonTerminalIndex returns the index of the first step that is
// neither completed nor failed, or -1 if every step is terminal.
func (p *Plan) FirstNonTerminalIndex() int {
	for i, s := range p.Steps {
		if !s.Status.IsTerminal() {
			return i
		}
	}
	return -1
}

// NextStep returns the first step in document order that has not
// reached a terminal status, or nil when the plan is finished.
func (p *Plan) NextStep() *Step {
	if i := p.FirstNonTerminalIndex(); i >= 0 {
		return p.Steps[i]
	}
	return nil
}

// SpliceSteps replaces everything from the first non-terminal step
// onward with the given replacement steps, preserving the completed
// prefix. When all steps are terminal the plan is left unchanged.
func (p *Plan) SpliceSteps(replacement []*Step) {
	i := p.FirstNonTerminalIndex()
	if i < 0 {
		return
	}
	for _, s := range replacement {
		if s.Status == "" {
			s.Status = StatusPending
		}
	}
	p.Steps = append(p.Steps[:i:i], replacement...)
}
