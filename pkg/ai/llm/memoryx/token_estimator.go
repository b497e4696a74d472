package memoryx

import (
	"encoding/json"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
)

// TokenEstimator estimates token counts for messages.
// The default implementation uses a simple heuristic (1 token ≈ 4 chars).
// Provide a custom implementation for more accurate counting.
type TokenEstimator interface {
	EstimateTokens(messages []llm.Message) int
}

// CharBasedEstimator estimates tokens using a characters-per-token ratio.
// This is a rough approximation — good enough for triggering trim
// thresholds, but not for exact billing.
type CharBasedEstimator struct {
	CharsPerToken int // defaults to 4 if zero
}

func (e *CharBasedEstimator) ratio() int {
	if e.CharsPerToken <= 0 {
		return 4
	}
	return e.CharsPerToken
}

func (e *CharBasedEstimator) EstimateTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		// Each message has ~4 tokens of overhead (role, separators)
		total += 4
		for _, block := range m.Blocks {
			total += e.blockChars(block) / e.ratio()
		}
	}
	return total
}

func (e *CharBasedEstimator) blockChars(block llm.ContentBlock) int {
	switch b := block.(type) {
	case llm.TextBlock:
		return len(b.Text)
	case llm.ThinkingBlock:
		return len(b.Thinking)
	case llm.ToolUseBlock:
		n := len(b.Name)
		if data, err := json.Marshal(b.Input); err == nil {
			n += len(data)
		}
		return n
	case llm.ToolResultBlock:
		if s, ok := b.Content.(string); ok {
			return len(s)
		}
		if data, err := json.Marshal(b.Content); err == nil {
			return len(data)
		}
		return 0
	case llm.UnknownBlock:
		return len(b.Raw)
	default:
		return 0
	}
}
