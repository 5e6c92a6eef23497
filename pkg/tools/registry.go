// Package tools defines the tool surface exposed to the model: named
// tool groups, their function schemas, and argument-validated dispatch.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sashabaranov/go-openai"

	"github.com/sablehq/sable/pkg/models"
)

// Handler executes one tool function with already-decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (*models.ToolResult, error)

// Function is one callable exposed to the model. Parameters holds the
// JSON-schema properties keyed by argument name.
type Function struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
	Handler     Handler
}

// Tool is a named group of functions sharing a backend.
type Tool interface {
	Name() string
	Functions() []Function
}

type binding struct {
	toolName string
	fn       Function
	schema   *jsonschema.Schema
}

// Registry indexes tool functions across groups. When two groups
// declare the same function name, the group registered first owns it.
type Registry struct {
	bindings map[string]binding
	schemas  []openai.Tool
}

// NewRegistry compiles the argument schemas of every function in the
// given groups. Schema compilation failures are programming errors and
// reported eagerly.
func NewRegistry(groups ...Tool) (*Registry, error) {
	r := &Registry{bindings: make(map[string]binding)}
	for _, group := range groups {
		for _, fn := range group.Functions() {
			if _, taken := r.bindings[fn.Name]; taken {
				continue
			}
			schema, err := compileSchema(fn)
			if err != nil {
				return nil, fmt.Errorf("compiling schema for %s.%s: %w", group.Name(), fn.Name, err)
			}
			r.bindings[fn.Name] = binding{toolName: group.Name(), fn: fn, schema: schema}
			r.schemas = append(r.schemas, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        fn.Name,
					Description: fn.Description,
					Parameters:  schemaDocument(fn),
				},
			})
		}
	}
	return r, nil
}

// Schemas returns the function declarations in registration order, as
// sent with every chat completion request.
func (r *Registry) Schemas() []openai.Tool {
	return r.schemas
}

// Owner returns the name of the tool group owning functionName.
func (r *Registry) Owner(functionName string) (string, error) {
	b, ok := r.bindings[functionName]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", functionName)
	}
	return b.toolName, nil
}

// Invoke validates args against the function's schema and runs its
// handler. Validation failures are reported in-band so the model can
// correct itself on the next turn; only handler failures become Go
// errors (and are subject to the caller's retry policy).
func (r *Registry) Invoke(ctx context.Context, functionName string, args map[string]any) (*models.ToolResult, error) {
	b, ok := r.bindings[functionName]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", functionName)
	}
	if err := b.schema.Validate(normalize(args)); err != nil {
		return &models.ToolResult{
			Success: false,
			Message: fmt.Sprintf("invalid arguments for %s: %v", functionName, err),
		}, nil
	}
	return b.fn.Handler(ctx, args)
}

func schemaDocument(fn Function) map[string]any {
	properties := fn.Parameters
	if properties == nil {
		properties = map[string]any{}
	}
	required := fn.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func compileSchema(fn Function) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(schemaDocument(fn))
	if err != nil {
		return nil, err
	}
	return jsonschema.CompileString(fn.Name+".json", string(doc))
}

// normalize round-trips args through encoding/json so handler-supplied
// test values (int, typed slices) validate the same as decoded wire
// arguments.
func normalize(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
