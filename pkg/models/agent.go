package models

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Agent holds the conversational state and LLM parameters for one
// hosted agent. The planner and executor each own an independent
// memory so replanning never disturbs execution history.
type Agent struct {
	ID              string  `json:"id"`
	PlannerMemory   *Memory `json:"-"`
	ExecutionMemory *Memory `json:"-"`
	ModelName       string  `json:"model_name"`
	Temperature     float32 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
}

// NewAgentID returns a fresh 16-hex-character agent identifier.
// The id is the agent's sole external handle.
func NewAgentID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
