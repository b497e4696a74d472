package llm

import (
	"encoding/json"
	"strings"
)

// Role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockType discriminates the concrete kind of a content block
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
	BlockTypeThinking   BlockType = "thinking"
)

// ContentBlock is the closed set of content kinds a Messages-API message can
// carry. Blocks are validated once when a message crosses the stream boundary;
// everything downstream switches on the concrete type instead of a string tag.
type ContentBlock interface {
	Type() BlockType
}

// TextBlock is a run of assistant or user text
type TextBlock struct {
	Text string `json:"text"`
}

// Type implements ContentBlock
func (TextBlock) Type() BlockType { return BlockTypeText }

// ToolUseBlock is a single tool invocation requested by the model
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Type implements ContentBlock
func (ToolUseBlock) Type() BlockType { return BlockTypeToolUse }

// InputEmpty reports whether the block's input carries no keys yet.
// Streaming responses register tool_use blocks before their input JSON has
// fully arrived, so an empty input is a placeholder, not an error.
func (b ToolUseBlock) InputEmpty() bool { return len(b.Input) == 0 }

// ToolResultBlock carries the outcome of one tool invocation back to the
// model. Content is either a plain string or the structured value the tool
// returned.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   any    `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Type implements ContentBlock
func (ToolResultBlock) Type() BlockType { return BlockTypeToolResult }

// ThinkingBlock is extended-thinking output
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

// Type implements ContentBlock
func (ThinkingBlock) Type() BlockType { return BlockTypeThinking }

// UnknownBlock preserves a block whose type this package does not model.
// Unknown kinds pass through untouched rather than failing the message.
type UnknownBlock struct {
	Kind BlockType
	Raw  json.RawMessage
}

// Type implements ContentBlock
func (b UnknownBlock) Type() BlockType { return b.Kind }

// Message is one conversation message as a sequence of content blocks
type Message struct {
	Role   string
	Blocks []ContentBlock
}

// Text concatenates the message's text blocks
func (m Message) Text() string {
	var parts []string
	for _, b := range m.Blocks {
		if tb, ok := b.(TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

// ToolUses returns the message's tool_use blocks in source order
func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, b := range m.Blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// ToolResults returns the message's tool_result blocks in source order
func (m Message) ToolResults() []ToolResultBlock {
	var results []ToolResultBlock
	for _, b := range m.Blocks {
		if tr, ok := b.(ToolResultBlock); ok {
			results = append(results, tr)
		}
	}
	return results
}

// NewUserMessage creates a user message with a single text block
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Blocks: []ContentBlock{TextBlock{Text: text}}}
}

// NewAssistantMessage creates an assistant message with a single text block
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []ContentBlock{TextBlock{Text: text}}}
}

// ─── JSON boundary ───────────────────────────────────────────────────────────

type rawBlock struct {
	Type BlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   any    `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// DecodeBlock validates one wire-format content block into its closed variant
func DecodeBlock(raw json.RawMessage) (ContentBlock, error) {
	var rb rawBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, err
	}
	switch rb.Type {
	case BlockTypeText:
		return TextBlock{Text: rb.Text}, nil
	case BlockTypeToolUse:
		return ToolUseBlock{ID: rb.ID, Name: rb.Name, Input: rb.Input}, nil
	case BlockTypeToolResult:
		return ToolResultBlock{ToolUseID: rb.ToolUseID, Content: rb.Content, IsError: rb.IsError}, nil
	case BlockTypeThinking:
		return ThinkingBlock{Thinking: rb.Thinking, Signature: rb.Signature}, nil
	default:
		return UnknownBlock{Kind: rb.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// EncodeBlock converts a content block back to its wire representation
func EncodeBlock(b ContentBlock) (json.RawMessage, error) {
	switch blk := b.(type) {
	case TextBlock:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			Text string    `json:"text"`
		}{BlockTypeText, blk.Text})
	case ToolUseBlock:
		input := blk.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(struct {
			Type  BlockType      `json:"type"`
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		}{BlockTypeToolUse, blk.ID, blk.Name, input})
	case ToolResultBlock:
		return json.Marshal(struct {
			Type      BlockType `json:"type"`
			ToolUseID string    `json:"tool_use_id"`
			Content   any       `json:"content"`
			IsError   bool      `json:"is_error,omitempty"`
		}{BlockTypeToolResult, blk.ToolUseID, blk.Content, blk.IsError})
	case ThinkingBlock:
		return json.Marshal(struct {
			Type      BlockType `json:"type"`
			Thinking  string    `json:"thinking"`
			Signature string    `json:"signature,omitempty"`
		}{BlockTypeThinking, blk.Thinking, blk.Signature})
	case UnknownBlock:
		return blk.Raw, nil
	default:
		return json.Marshal(b)
	}
}

// UnmarshalJSON decodes {"role": ..., "content": [...]} into closed variants.
// A plain string content is accepted as a single text block.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role = wire.Role
	m.Blocks = nil

	if len(wire.Content) == 0 {
		return nil
	}
	if wire.Content[0] == '"' {
		var text string
		if err := json.Unmarshal(wire.Content, &text); err != nil {
			return err
		}
		m.Blocks = []ContentBlock{TextBlock{Text: text}}
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(wire.Content, &raws); err != nil {
		return err
	}
	for _, raw := range raws {
		block, err := DecodeBlock(raw)
		if err != nil {
			return err
		}
		m.Blocks = append(m.Blocks, block)
	}
	return nil
}

// MarshalJSON encodes the message back to wire format
func (m Message) MarshalJSON() ([]byte, error) {
	content := make([]json.RawMessage, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		raw, err := EncodeBlock(b)
		if err != nil {
			return nil, err
		}
		content = append(content, raw)
	}
	return json.Marshal(struct {
		Role    string            `json:"role"`
		Content []json.RawMessage `json:"content"`
	}{m.Role, content})
}
