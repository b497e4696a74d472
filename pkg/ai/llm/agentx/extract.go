package agentx

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/Abraxas-365/agentwire/pkg/logx"
)

// Built-in tool names with special handling
const (
	ToolNameTask      = "Task"
	ToolNameBash      = "Bash"
	ToolNameKillShell = "KillShell"
)

// fallbackSentinelID is the synthetic tool-call id used when a convenience
// result arrives with neither an id nor a turn id to derive one from.
const fallbackSentinelID = "fallback-result"

// Background markers surfaced in free-text tool results. The token is the
// contiguous non-whitespace run after the colon-space.
var (
	agentIDPattern = regexp.MustCompile(`agentId: (\S+)`)
	shellIDPattern = regexp.MustCompile(`shell_id: (\S+)`)
)

// EmittedSet remembers which tool-call ids already produced a ToolStartEvent.
// The value records whether the input was non-empty at emission time; the one
// permitted re-emission is the placeholder-to-complete transition.
type EmittedSet map[string]bool

// StartOptions carries the per-call context for ExtractToolStarts
type StartOptions struct {
	// ParentToolUseID is the parent declared upstream for the whole message,
	// "" when none was declared.
	ParentToolUseID string

	// TurnID groups the derived events with their assistant response
	TurnID string

	// ActiveParents holds the ids of Task tools currently in flight. Used
	// only for unambiguous fallback parent assignment: exactly one member,
	// and never the block's own id.
	ActiveParents map[string]struct{}

	// Metadata resolves intent and display name for ids whose input was
	// stripped on the way in. Optional.
	Metadata toolmeta.Store
}

// ExtractToolStarts converts a message's content blocks into ToolStartEvents.
// Every tool_use block is registered into the index; emission is deduplicated
// by id so replays from streaming deltas and the final assistant message do
// not double-render a call. Output order mirrors block order.
func ExtractToolStarts(ctx context.Context, blocks []llm.ContentBlock, opts StartOptions, index *ToolIndex, emitted EmittedSet) []AgentEvent {
	var events []AgentEvent

	for _, block := range blocks {
		tu, ok := block.(llm.ToolUseBlock)
		if !ok {
			continue
		}

		index.Register(tu.ID, tu.Name, tu.Input)

		nonEmpty := !tu.InputEmpty()
		prevNonEmpty, seen := emitted[tu.ID]
		if seen && !(nonEmpty && !prevNonEmpty) {
			continue
		}
		emitted[tu.ID] = nonEmpty

		intent, displayName := resolveMetadata(ctx, tu, opts.Metadata)

		events = append(events, ToolStartEvent{
			ToolUseID:       tu.ID,
			ToolName:        tu.Name,
			Input:           cleanInput(tu.Input),
			ParentToolUseID: resolveParent(tu.ID, opts.ParentToolUseID, opts.ActiveParents),
			Intent:          intent,
			DisplayName:     displayName,
			TurnID:          opts.TurnID,
		})
	}

	return events
}

// resolveParent applies the declared parent when present, falling back to
// the sole active Task when that is unambiguous. Self-references are
// suppressed: an id must never parent itself, and with zero or several
// active Tasks the parent stays unresolved rather than guessed.
func resolveParent(id, declared string, activeParents map[string]struct{}) string {
	if declared != "" {
		if declared == id {
			return ""
		}
		return declared
	}
	if len(activeParents) != 1 {
		return ""
	}
	for parent := range activeParents {
		if parent != id {
			return parent
		}
	}
	return ""
}

// resolveMetadata derives intent and display name from the explicit input
// fields, the metadata store, or the Bash description convention, in that
// order.
func resolveMetadata(ctx context.Context, tu llm.ToolUseBlock, store toolmeta.Store) (intent, displayName string) {
	if v, ok := tu.Input[toolmeta.KeyIntent].(string); ok {
		intent = v
	}
	if v, ok := tu.Input[toolmeta.KeyDisplayName].(string); ok {
		displayName = v
	}

	if (intent == "" || displayName == "") && store != nil {
		meta, err := store.Get(ctx, tu.ID)
		if err != nil {
			logx.WithField("tool_use_id", tu.ID).
				Debugf("agentx: metadata lookup failed: %v", err)
		} else if meta != nil {
			if intent == "" {
				intent = meta.Intent
			}
			if displayName == "" {
				displayName = meta.DisplayName
			}
		}
	}

	if intent == "" && tu.Name == ToolNameBash {
		if desc, ok := tu.Input["description"].(string); ok {
			intent = desc
		}
	}
	return intent, displayName
}

// cleanInput copies the input without the reserved metadata keys
func cleanInput(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	_, hasIntent := input[toolmeta.KeyIntent]
	_, hasDisplay := input[toolmeta.KeyDisplayName]
	if !hasIntent && !hasDisplay {
		return input
	}
	clean := make(map[string]any, len(input))
	for k, v := range input {
		if k == toolmeta.KeyIntent || k == toolmeta.KeyDisplayName {
			continue
		}
		clean[k] = v
	}
	return clean
}

// FallbackResult is the convenience result/id pair used when a turn produced
// a result without any tool_result content blocks.
type FallbackResult struct {
	Result    any
	ToolUseID string
}

// ResultOptions carries the per-call context for ExtractToolResults
type ResultOptions struct {
	// ParentToolUseID is the parent declared upstream for the message
	ParentToolUseID string

	// TurnID groups the derived events with their assistant response
	TurnID string

	// Fallback, when set, synthesizes one event if no tool_result blocks
	// are present. A result is never silently dropped.
	Fallback *FallbackResult

	// Metadata resolves intent for derived background events. Optional.
	Metadata toolmeta.Store
}

// ExtractToolResults converts tool_result content blocks into
// ToolResultEvents, matched to their invocations strictly by id. Results for
// ids that were never registered are tolerated; their ToolName stays empty.
// Background-lifecycle events derived from result text are appended directly
// after their base event.
func ExtractToolResults(ctx context.Context, blocks []llm.ContentBlock, opts ResultOptions, index *ToolIndex) []AgentEvent {
	var events []AgentEvent

	for _, block := range blocks {
		tr, ok := block.(llm.ToolResultBlock)
		if !ok {
			continue
		}
		events = appendResultEvents(ctx, events, tr.ToolUseID, tr.Content, tr.IsError, opts, index)
	}
	if events != nil || opts.Fallback == nil {
		return events
	}

	// Fallback path: no tool_result blocks, but a result exists.
	id := opts.Fallback.ToolUseID
	if id == "" {
		if opts.TurnID != "" {
			id = "fallback-" + opts.TurnID
		} else {
			id = fallbackSentinelID
		}
	}
	return appendResultEvents(ctx, events, id, opts.Fallback.Result, false, opts, index)
}

func appendResultEvents(ctx context.Context, events []AgentEvent, id string, content any, isError bool, opts ResultOptions, index *ToolIndex) []AgentEvent {
	name, _ := index.Name(id)
	result := SerializeResult(content)

	parent := opts.ParentToolUseID
	if parent == id {
		parent = ""
	}

	events = append(events, ToolResultEvent{
		ToolUseID:       id,
		ToolName:        name,
		Result:          result,
		IsError:         isError || hasErrorPrefix(result),
		ParentToolUseID: parent,
		TurnID:          opts.TurnID,
	})

	return appendBackgroundEvents(ctx, events, id, name, result, opts, index)
}

// appendBackgroundEvents scans result text for background markers and
// appends the derived lifecycle events after the base tool_result.
func appendBackgroundEvents(ctx context.Context, events []AgentEvent, id, name, result string, opts ResultOptions, index *ToolIndex) []AgentEvent {
	if name == ToolNameTask {
		if m := agentIDPattern.FindStringSubmatch(result); m != nil {
			events = append(events, TaskBackgroundedEvent{
				ToolUseID: id,
				TaskID:    m[1],
				Intent:    intentFor(ctx, id, index, opts.Metadata),
			})
		}
	}

	if m := shellIDPattern.FindStringSubmatch(result); m != nil {
		command, _ := index.Input(id)["command"].(string)
		events = append(events, ShellBackgroundedEvent{
			ToolUseID: id,
			ShellID:   m[1],
			Intent:    intentFor(ctx, id, index, opts.Metadata),
			Command:   command,
		})
	}

	if name == ToolNameKillShell {
		shellID, _ := index.Input(id)["shell_id"].(string)
		if shellID == "" {
			if m := shellIDPattern.FindStringSubmatch(result); m != nil {
				shellID = m[1]
			}
		}
		if shellID != "" {
			events = append(events, ShellKilledEvent{ShellID: shellID})
		}
	}

	return events
}

func intentFor(ctx context.Context, id string, index *ToolIndex, store toolmeta.Store) string {
	if store != nil {
		meta, err := store.Get(ctx, id)
		if err == nil && meta != nil && meta.Intent != "" {
			return meta.Intent
		}
	}
	if v, ok := index.Input(id)[toolmeta.KeyIntent].(string); ok {
		return v
	}
	return ""
}

// SerializeResult normalizes a tool result value to display text: strings
// pass through, nil becomes empty, anything else is pretty-printed JSON.
func SerializeResult(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// hasErrorPrefix is the textual error heuristic for results without an
// explicit flag. Known false-positive source: legitimate output that starts
// with the same token.
func hasErrorPrefix(result string) bool {
	trimmed := strings.TrimSpace(result)
	return strings.HasPrefix(trimmed, "Error:") || strings.HasPrefix(trimmed, "error:")
}
