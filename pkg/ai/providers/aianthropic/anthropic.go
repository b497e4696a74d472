// Package aianthropic wires the metadata pipeline into the Anthropic
// Messages API client. The streamx middleware sits between the SDK and the
// wire: outgoing requests get their tool schemas augmented and their history
// metadata restored, incoming streams are stripped before the SDK parses
// them.
package aianthropic

import (
	"context"
	"encoding/json"
	"os"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/agentx"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/streamx"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Provider is an Anthropic Messages client with the metadata pipeline
// installed as transport middleware.
type Provider struct {
	client anthropic.Client
	apiKey string
}

// NewProvider creates a provider. The config and store are shared with the
// sessions that consume this provider's responses; the store is where the
// middleware parks stripped metadata for later re-injection.
func NewProvider(apiKey string, cfg toolmeta.Config, store toolmeta.Store, opts ...option.RequestOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	options := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMiddleware(streamx.Middleware(cfg, store)),
	}, opts...)

	return &Provider{
		client: anthropic.NewClient(options...),
		apiKey: apiKey,
	}
}

// StreamTurn runs one streaming assistant turn: it begins a turn on the
// session, streams the response (text deltas go to onText when set),
// assembles the final message, and feeds it through the session so tool
// starts are derived and registered. The returned message's tool inputs are
// already metadata-free.
func (p *Provider) StreamTurn(ctx context.Context, params anthropic.MessageNewParams, session *agentx.Session, onText func(string)) (llm.Message, error) {
	if p.apiKey == "" {
		return llm.Message{}, errorRegistry.New(ErrMissingAPIKey)
	}

	session.BeginTurn()

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	acc := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return llm.Message{}, errorRegistry.NewWithCause(ErrAPIResponse, err)
		}
		if onText != nil && event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
			onText(event.Delta.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return llm.Message{}, ParseAnthropicError(err).
			WithDetail("model", string(params.Model))
	}

	msg := MessageFromSDK(&acc)
	session.ProcessAssistantMessage(ctx, msg, "")
	return msg, nil
}

// Message runs one non-streaming turn through the same pipeline. The
// middleware still rewrites the request; only the response-side stripping
// does not apply.
func (p *Provider) Message(ctx context.Context, params anthropic.MessageNewParams, session *agentx.Session) (llm.Message, error) {
	if p.apiKey == "" {
		return llm.Message{}, errorRegistry.New(ErrMissingAPIKey)
	}

	session.BeginTurn()

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Message{}, ParseAnthropicError(err).
			WithDetail("model", string(params.Model))
	}

	msg := MessageFromSDK(message)
	session.ProcessAssistantMessage(ctx, msg, "")
	return msg, nil
}

// MessageFromSDK converts an SDK response message into the closed content
// model. Unknown block kinds are preserved verbatim.
func MessageFromSDK(msg *anthropic.Message) llm.Message {
	out := llm.Message{Role: llm.RoleAssistant}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Blocks = append(out.Blocks, llm.TextBlock{Text: block.Text})
		case "tool_use":
			input := map[string]any{}
			if data, err := json.Marshal(block.Input); err == nil {
				_ = json.Unmarshal(data, &input)
			}
			out.Blocks = append(out.Blocks, llm.ToolUseBlock{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		case "thinking":
			out.Blocks = append(out.Blocks, llm.ThinkingBlock{
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})
		default:
			out.Blocks = append(out.Blocks, llm.UnknownBlock{
				Kind: llm.BlockType(block.Type),
				Raw:  json.RawMessage(block.RawJSON()),
			})
		}
	}

	return out
}

// ConvertMessages converts conversation history into SDK message params for
// an outgoing request. Tool results ride in user messages, mirroring how the
// API expects them back.
func ConvertMessages(messages []llm.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range messages {
		blocks, err := convertBlocks(msg.Blocks)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}

		switch msg.Role {
		case llm.RoleUser:
			result = append(result, anthropic.NewUserMessage(blocks...))
		case llm.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		default:
			return nil, errorRegistry.New(ErrUnsupportedRole).
				WithDetail("role", msg.Role)
		}
	}

	return result, nil
}

func convertBlocks(blocks []llm.ContentBlock) ([]anthropic.ContentBlockParamUnion, error) {
	var out []anthropic.ContentBlockParamUnion

	for _, block := range blocks {
		switch blk := block.(type) {
		case llm.TextBlock:
			out = append(out, anthropic.NewTextBlock(blk.Text))
		case llm.ToolUseBlock:
			input := blk.Input
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, anthropic.NewToolUseBlock(blk.ID, input, blk.Name))
		case llm.ToolResultBlock:
			out = append(out, anthropic.NewToolResultBlock(
				blk.ToolUseID, agentx.SerializeResult(blk.Content), blk.IsError,
			))
		case llm.ThinkingBlock:
			out = append(out, anthropic.NewThinkingBlock(blk.Signature, blk.Thinking))
		case llm.UnknownBlock:
			// No param representation; dropped from outbound history.
		default:
			return nil, errorRegistry.New(ErrConversionFailed).
				WithDetail("block_type", string(block.Type()))
		}
	}

	return out, nil
}

// ToolUnion is re-exported so callers can build tool definitions without
// importing the SDK twice.
type ToolUnion = anthropic.ToolUnionParam

// NewTool builds a tool definition from a name, description, and a JSON
// Schema properties map plus required list.
func NewTool(name, description string, properties map[string]any, required []string) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{Properties: properties}
	schema.Required = append(schema.Required, required...)
	tool := anthropic.ToolUnionParamOfTool(schema, name)
	if description != "" {
		tool.OfTool.Description = anthropic.String(description)
	}
	return tool
}
