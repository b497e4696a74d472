// Package memoryx holds conversation history for a session: messages
// accumulate across turns and can be trimmed to a token budget before they go
// back out in a request. Trimming never splits a tool invocation from its
// result; the Messages API rejects a tool_result whose tool_use is missing
// from history.
package memoryx

import (
	"sync"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
)

// Memory stores an ordered conversation
type Memory interface {
	// Messages returns the stored conversation in order
	Messages() ([]llm.Message, error)

	// Add appends one message
	Add(message llm.Message) error

	// Clear discards the stored conversation
	Clear() error
}

// InMemoryMemory is the in-process Memory for a single session
type InMemoryMemory struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// NewInMemoryMemory creates an empty in-memory conversation
func NewInMemoryMemory() *InMemoryMemory {
	return &InMemoryMemory{}
}

// Messages implements Memory; callers get a copy they may mutate
func (m *InMemoryMemory) Messages() ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]llm.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// Add implements Memory
func (m *InMemoryMemory) Add(message llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

// Clear implements Memory
func (m *InMemoryMemory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	return nil
}
