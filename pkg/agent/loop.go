// Package agent implements the plan/act cycle of one hosted agent:
// a planner that turns user messages into step plans, an executor
// that drives each step through a tool-calling reasoning loop, and a
// flow state machine that orchestrates the two.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sablehq/sable/pkg/events"
	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/models"
	"github.com/sablehq/sable/pkg/tools"
)

const (
	// maxIterations bounds the number of tool rounds per request.
	maxIterations = 30
	// maxRetries is the number of additional attempts after a failed
	// tool invocation.
	maxRetries = 3
	// defaultRetryInterval is the pause between tool attempts.
	defaultRetryInterval = time.Second
)

// maxIterationsText is the terminal failure reported when a request
// still wants tools after the last allowed round.
const maxIterationsText = "maximum iteration count reached, failed to complete the task"

// EmitFunc delivers one domain event to the agent's outbound stream.
// It reports whether the turn should keep running; false means a new
// inbound message is waiting and the current turn must yield.
type EmitFunc func(events.Event) bool

// errPreempted unwinds the flow when EmitFunc reports a waiting
// message. It never escapes Flow.Run.
var errPreempted = errors.New("preempted by new message")

// outcome is the terminal state of one reasoning-loop run. ErrText is
// set when the loop ended on retry or iteration exhaustion; Content
// carries the last assistant text either way.
type outcome struct {
	content string
	errText string
}

// loop is the bounded ask/act cycle shared by planner and executor:
// ask the LLM, honor at most one tool call per turn, feed the result
// back, repeat. Intermediate tool events go through the EmitFunc; the
// terminal message or error is returned to the caller, which decides
// how to surface it.
type loop struct {
	memory         *models.Memory
	llm            llm.Client
	registry       *tools.Registry
	responseFormat string
	retryInterval  time.Duration
}

func newLoop(memory *models.Memory, llmClient llm.Client, registry *tools.Registry, systemPrompt, responseFormat string) *loop {
	memory.Add(models.Message{Role: models.RoleSystem, Content: systemPrompt})
	return &loop{
		memory:         memory,
		llm:            llmClient,
		registry:       registry,
		responseFormat: responseFormat,
		retryInterval:  defaultRetryInterval,
	}
}

// run drives the loop for one request. LLM failures, unknown
// functions and event-stream preemption surface as errors; tool retry
// exhaustion and iteration exhaustion end the run with an outcome
// whose errText is set.
func (l *loop) run(ctx context.Context, request string, emit EmitFunc) (*outcome, error) {
	reply, err := l.ask(ctx, models.Message{Role: models.RoleUser, Content: request})
	if err != nil {
		return nil, err
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		if len(reply.ToolCalls) == 0 {
			return &outcome{content: reply.Content}, nil
		}

		call := reply.ToolCalls[0]
		toolName, err := l.registry.Owner(call.Name)
		if err != nil {
			return nil, err
		}
		args, decodeErr := decodeArgs(call.Arguments)

		if !emit(events.ToolCalling{ToolName: toolName, FunctionName: call.Name, FunctionArgs: args}) {
			return nil, errPreempted
		}

		var result *models.ToolResult
		if decodeErr != nil {
			// Malformed argument JSON is fed back in-band so the
			// model can correct itself on the next turn.
			result = &models.ToolResult{
				Success: false,
				Message: fmt.Sprintf("invalid arguments for %s: %v", call.Name, decodeErr),
			}
		} else {
			result, err = l.invokeWithRetry(ctx, call.Name, args)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				return &outcome{errText: err.Error()}, nil
			}
		}
		if !emit(events.ToolCalled{ToolName: toolName, FunctionName: call.Name, FunctionArgs: args, FunctionResult: result}) {
			return nil, errPreempted
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding result of %s: %w", call.Name, err)
		}
		reply, err = l.ask(ctx, models.Message{
			Role:       models.RoleTool,
			ToolCallID: call.ID,
			Content:    string(payload),
		})
		if err != nil {
			return nil, err
		}
	}

	return &outcome{content: reply.Content, errText: maxIterationsText}, nil
}

// ask appends msg, queries the LLM with the memory's effective view,
// and appends the reply. At most one tool call survives per reply.
func (l *loop) ask(ctx context.Context, msg models.Message) (*models.Message, error) {
	l.memory.Add(msg)

	reply, err := l.llm.Ask(ctx, l.memory.Effective(), l.registry.Schemas(), l.responseFormat)
	if err != nil {
		return nil, err
	}
	if len(reply.ToolCalls) > 1 {
		reply.ToolCalls = reply.ToolCalls[:1]
	}
	l.memory.Add(*reply)
	return reply, nil
}

// invokeWithRetry runs one tool function, retrying failed attempts up
// to maxRetries times with a pause in between. Context cancellation
// aborts the pause; any other terminal error is the exhaustion error
// carrying the last attempt's failure.
func (l *loop) invokeWithRetry(ctx context.Context, functionName string, args map[string]any) (*models.ToolResult, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.retryInterval):
			}
		}
		result, err := l.registry.Invoke(ctx, functionName, args)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("tool execution failed after %d retries: %v", maxRetries, lastErr)
}

// decodeArgs parses the raw argument JSON of a tool call. Providers
// send an empty string for functions without parameters.
func decodeArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}, err
	}
	return args, nil
}

// rollback undoes the most recent in-flight entry after an
// interrupted turn; see models.Memory.Rollback for the predicate.
func (l *loop) rollback() {
	l.memory.Rollback()
}
