package events

import (
	"time"

	"github.com/sablehq/sable/pkg/models"
)

// SSE wire event names.
const (
	SSEMessage = "message"
	SSETool    = "tool"
	SSEStep    = "step"
	SSEPlan    = "plan"
	SSETitle   = "title"
	SSEError   = "error"
	SSEDone    = "done"
)

// SSEEvent is one wire event: a name and a JSON-serializable payload.
type SSEEvent struct {
	Event string
	Data  any
}

// MessageData is the payload of a "message" wire event.
type MessageData struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ToolData is the payload of a "tool" wire event. Status is "calling"
// before execution and "called" after; Result is set only for "called".
type ToolData struct {
	Name      string         `json:"name"`
	Function  string         `json:"function"`
	Args      map[string]any `json:"args"`
	Result    any            `json:"result,omitempty"`
	Status    string         `json:"status"`
	Timestamp int64          `json:"timestamp"`
}

// StepData is the payload of a "step" wire event and the per-step
// entry inside PlanData.
type StepData struct {
	Status      models.ExecutionStatus `json:"status"`
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Timestamp   int64                  `json:"timestamp"`
}

// PlanData is the payload of a "plan" wire event.
type PlanData struct {
	Steps     []StepData `json:"steps"`
	Timestamp int64      `json:"timestamp"`
}

// ErrorData is the payload of an "error" wire event.
type ErrorData struct {
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

// TitleData is the payload of a "title" wire event.
type TitleData struct {
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// DoneData is the payload of a "done" wire event.
type DoneData struct {
	Timestamp int64 `json:"timestamp"`
}

// interactiveTools are surfaced to clients at calling time so the UI
// can show intent before a long-running operation finishes. Search is
// read-only and is surfaced only after its result arrives.
var interactiveTools = map[string]bool{
	"browser": true,
	"file":    true,
	"shell":   true,
	"message": true,
}

// ToSSE projects one domain event onto zero or more wire events, in
// emission order. Payload timestamps are Unix seconds at projection
// time.
func ToSSE(event Event) []SSEEvent {
	now := time.Now().Unix()

	switch e := event.(type) {
	case PlanCreated:
		var out []SSEEvent
		if e.Plan.Title != "" {
			out = append(out, SSEEvent{Event: SSETitle, Data: TitleData{Title: e.Plan.Title, Timestamp: now}})
		}
		out = append(out, SSEEvent{Event: SSEMessage, Data: MessageData{Content: e.Plan.Message, Timestamp: now}})
		if len(e.Plan.Steps) > 0 {
			out = append(out, SSEEvent{Event: SSEPlan, Data: planData(e.Plan, now)})
		}
		return out

	case PlanUpdated:
		if len(e.Plan.Steps) == 0 {
			return nil
		}
		return []SSEEvent{{Event: SSEPlan, Data: planData(e.Plan, now)}}

	case PlanCompleted:
		if len(e.Plan.Steps) == 0 {
			return nil
		}
		return []SSEEvent{{Event: SSEPlan, Data: planData(e.Plan, now)}}

	case ToolCalling:
		if !interactiveTools[e.ToolName] {
			return nil
		}
		return []SSEEvent{{Event: SSETool, Data: ToolData{
			Name:      e.ToolName,
			Function:  e.FunctionName,
			Args:      e.FunctionArgs,
			Status:    "calling",
			Timestamp: now,
		}}}

	case ToolCalled:
		if e.ToolName != "search" {
			return nil
		}
		return []SSEEvent{{Event: SSETool, Data: ToolData{
			Name:      e.ToolName,
			Function:  e.FunctionName,
			Args:      e.FunctionArgs,
			Result:    e.FunctionResult,
			Status:    "called",
			Timestamp: now,
		}}}

	case StepStarted:
		return stepEvents(e.Step, now)
	case StepCompleted:
		return stepEvents(e.Step, now)
	case StepFailed:
		return stepEvents(e.Step, now)

	case Message:
		// Assistant text reaches clients through its step's projection;
		// the bare domain event stays internal.
		return nil

	case Error:
		return []SSEEvent{{Event: SSEError, Data: ErrorData{Error: e.Text, Timestamp: now}}}

	case Done:
		return []SSEEvent{{Event: SSEDone, Data: DoneData{Timestamp: now}}}
	}
	return nil
}

func planData(p *models.Plan, now int64) PlanData {
	steps := make([]StepData, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, StepData{
			Status:      s.Status,
			ID:          s.ID,
			Description: s.Description,
			Timestamp:   now,
		})
	}
	return PlanData{Steps: steps, Timestamp: now}
}

// stepEvents emits the step transition itself, then piggybacks the
// step's error and result when present.
func stepEvents(s *models.Step, now int64) []SSEEvent {
	out := []SSEEvent{{Event: SSEStep, Data: StepData{
		Status:      s.Status,
		ID:          s.ID,
		Description: s.Description,
		Timestamp:   now,
	}}}
	if s.Error != "" {
		out = append(out, SSEEvent{Event: SSEError, Data: ErrorData{Error: s.Error, Timestamp: now}})
	}
	if s.Result != "" {
		out = append(out, SSEEvent{Event: SSEMessage, Data: MessageData{Content: s.Result, Timestamp: now}})
	}
	return out
}
