package main

import (
	"bufio"
	"encoding/json"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/agentx"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/agentwire/pkg/ai/providers/aianthropic"
	"github.com/Abraxas-365/agentwire/pkg/errx"
	"github.com/Abraxas-365/agentwire/pkg/logx"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/gofiber/fiber/v2"
)

// streamRequest is the relay's wire format. Messages carry the conversation
// so far, including tool_result blocks for tools the client executed.
type streamRequest struct {
	Model     string        `json:"model"`
	MaxTokens int64         `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []llm.Message `json:"messages"`
	Tools     []toolDef     `json:"tools,omitempty"`
}

type toolDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required,omitempty"`
	} `json:"input_schema"`
}

// streamHandler runs one assistant turn and relays the derived AgentEvents
// to the client as SSE.
func streamHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req streamRequest
		if err := c.BodyParser(&req); err != nil {
			return errx.Validation("invalid request body").WithDetail("cause", err.Error())
		}
		if len(req.Messages) == 0 {
			return errx.Validation("messages must not be empty")
		}
		if req.Model == "" {
			req.Model = "claude-sonnet-4-20250514"
		}
		if req.MaxTokens == 0 {
			req.MaxTokens = 4096
		}

		// The upstream request gets a budgeted window of the history; the
		// session replay below still sees all of it.
		upstream := memoryx.TrimToBudget(req.Messages, container.PipelineConfig.HistoryTokenBudget, nil)
		params, err := buildParams(req, upstream)
		if err != nil {
			return err
		}

		ctx := c.UserContext()

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			// Events derived while replaying prior turns stay off the wire;
			// only the new turn streams to the client.
			live := false
			session := agentx.NewSession(container.Store,
				agentx.WithConfig(container.ToolConfig),
				agentx.WithEventHandler(func(event agentx.AgentEvent) {
					if live {
						writeSSE(w, string(event.Type()), event)
					}
				}),
			)
			replayHistory(c, session, req.Messages)
			live = true

			_, err := container.Provider.StreamTurn(ctx, params, session, func(text string) {
				writeSSE(w, "message_text", fiber.Map{"text": text})
			})
			if err != nil {
				logx.Errorf("stream turn failed: %v", err)
				writeSSE(w, "error", fiber.Map{"error": err.Error()})
				return
			}
			writeSSE(w, "done", fiber.Map{"turn_id": session.TurnID()})
		})

		return nil
	}
}

// replayHistory warms the session's tool index and emitted-ids set from the
// conversation so far, so the new turn's parent resolution and dedup see
// every prior invocation.
func replayHistory(c *fiber.Ctx, session *agentx.Session, messages []llm.Message) {
	ctx := c.UserContext()
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleAssistant:
			session.ProcessAssistantMessage(ctx, msg, "")
		case llm.RoleUser:
			if results := msg.ToolResults(); len(results) > 0 {
				session.ProcessToolResults(ctx, msg.Blocks, "", nil)
			}
		}
	}
}

func buildParams(req streamRequest, history []llm.Message) (anthropic.MessageNewParams, error) {
	messages, err := aianthropic.ConvertMessages(history)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, aianthropic.NewTool(
			tool.Name, tool.Description, tool.InputSchema.Properties, tool.InputSchema.Required,
		))
	}
	return params, nil
}

func writeSSE(w *bufio.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logx.Debugf("sse marshal failed: %v", err)
		return
	}
	w.WriteString("event: ")
	w.WriteString(event)
	w.WriteString("\ndata: ")
	w.Write(data)
	w.WriteString("\n\n")
	w.Flush()
}
