package memoryx

import "github.com/Abraxas-365/agentwire/pkg/ai/llm"

// WindowMemory wraps a Memory and serves only the most recent messages that
// fit a token budget. Older messages stay stored; they just stop going out.
type WindowMemory struct {
	inner Memory

	// MaxTokens is the budget for the served window. Zero means no trimming.
	MaxTokens int

	// Estimator defaults to a CharBasedEstimator when nil
	Estimator TokenEstimator
}

// NewWindowMemory creates a budgeted view over an existing memory
func NewWindowMemory(inner Memory, maxTokens int) *WindowMemory {
	return &WindowMemory{inner: inner, MaxTokens: maxTokens}
}

// Messages implements Memory, returning the trimmed window
func (w *WindowMemory) Messages() ([]llm.Message, error) {
	messages, err := w.inner.Messages()
	if err != nil {
		return nil, err
	}
	return TrimToBudget(messages, w.MaxTokens, w.estimator()), nil
}

// Add implements Memory
func (w *WindowMemory) Add(message llm.Message) error {
	return w.inner.Add(message)
}

// Clear implements Memory
func (w *WindowMemory) Clear() error {
	return w.inner.Clear()
}

func (w *WindowMemory) estimator() TokenEstimator {
	if w.Estimator != nil {
		return w.Estimator
	}
	return &CharBasedEstimator{}
}

// TrimToBudget drops the oldest messages until the remainder fits the
// budget. The window never opens on a message carrying tool_result blocks:
// their tool_use lives in the message that was just dropped, and a result
// without its invocation is an invalid conversation. A budget of zero or
// less disables trimming.
func TrimToBudget(messages []llm.Message, maxTokens int, estimator TokenEstimator) []llm.Message {
	if maxTokens <= 0 || len(messages) == 0 {
		return messages
	}
	if estimator == nil {
		estimator = &CharBasedEstimator{}
	}
	if estimator.EstimateTokens(messages) <= maxTokens {
		return messages
	}

	start := 0
	for start < len(messages)-1 {
		if estimator.EstimateTokens(messages[start:]) <= maxTokens && !startsWithToolResult(messages[start]) {
			break
		}
		start++
	}
	for start < len(messages)-1 && startsWithToolResult(messages[start]) {
		start++
	}
	return messages[start:]
}

func startsWithToolResult(m llm.Message) bool {
	return len(m.ToolResults()) > 0
}
