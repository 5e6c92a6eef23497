package models

// Memory is an append-only conversation log. It performs no
// deduplication or size capping; retention is the caller's concern.
// It is not safe for concurrent use: each memory is touched only by
// the worker goroutine of the agent that owns it.
type Memory struct {
	messages []Message
}

// NewMemory returns an empty memory, optionally seeded with messages.
func NewMemory(seed ...Message) *Memory {
	m := &Memory{}
	m.messages = append(m.messages, seed...)
	return m
}

// Add appends a message to the log.
func (m *Memory) Add(msg Message) {
	m.messages = append(m.messages, msg)
}

// All returns every entry in insertion order.
func (m *Memory) All() []Message {
	return m.messages
}

// Len returns the number of stored messages.
func (m *Memory) Len() int {
	return len(m.messages)
}

// Effective returns the message list sent to the LLM: the latest
// system message (when one exists) followed by all non-system
// messages in insertion order.
func (m *Memory) Effective() []Message {
	var system *Message
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == RoleSystem {
			system = &m.messages[i]
			break
		}
	}
	out := make([]Message, 0, len(m.messages))
	if system != nil {
		out = append(out, *system)
	}
	for _, msg := range m.messages {
		if msg.Role != RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

// Rollback removes the most recent entry if it is a tool message not
// preceded by another tool message, or if it is a user message.
// Anything else is left untouched, so assistant reasoning already
// produced for an interrupted step survives.
func (m *Memory) Rollback() {
	n := len(m.messages)
	if n == 0 {
		return
	}
	tail := m.messages[n-1]
	switch {
	case n > 1 && tail.Role == RoleTool && m.messages[n-2].Role != RoleTool:
		m.messages = m.messages[:n-1]
	case tail.Role == RoleUser:
		m.messages = m.messages[:n-1]
	}
}
