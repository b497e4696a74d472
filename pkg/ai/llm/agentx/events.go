package agentx

// EventType identifies what kind of event is being emitted
type EventType string

const (
	// EventToolStart fires when the assistant invokes a tool
	EventToolStart EventType = "tool_start"

	// EventToolResult fires when a tool invocation's result arrives
	EventToolResult EventType = "tool_result"

	// EventTaskBackgrounded fires when a Task sub-agent detaches from the turn
	EventTaskBackgrounded EventType = "task_backgrounded"

	// EventShellBackgrounded fires when a shell command keeps running past the turn
	EventShellBackgrounded EventType = "shell_backgrounded"

	// EventShellKilled fires when a backgrounded shell is terminated
	EventShellKilled EventType = "shell_killed"
)

// AgentEvent is the closed set of events the pipeline derives from message
// content. Consumers correlate starts with results strictly by ToolUseID;
// arrival order between them is not guaranteed once tools run in the
// background.
type AgentEvent interface {
	Type() EventType
}

// ToolStartEvent announces one tool invocation. ParentToolUseID links nested
// calls made by a Task sub-agent to the Task that spawned them; it is empty
// when the call is top-level or the parent could not be resolved
// unambiguously.
type ToolStartEvent struct {
	ToolUseID       string         `json:"tool_use_id"`
	ToolName        string         `json:"tool_name"`
	Input           map[string]any `json:"input"`
	ParentToolUseID string         `json:"parent_tool_use_id,omitempty"`
	Intent          string         `json:"intent,omitempty"`
	DisplayName     string         `json:"display_name,omitempty"`
	TurnID          string         `json:"turn_id,omitempty"`
}

// Type implements AgentEvent
func (ToolStartEvent) Type() EventType { return EventToolStart }

// ToolResultEvent carries one tool invocation's outcome. ToolName is empty
// when the id was never registered.
type ToolResultEvent struct {
	ToolUseID       string `json:"tool_use_id"`
	ToolName        string `json:"tool_name,omitempty"`
	Result          string `json:"result"`
	IsError         bool   `json:"is_error"`
	ParentToolUseID string `json:"parent_tool_use_id,omitempty"`
	TurnID          string `json:"turn_id,omitempty"`
}

// Type implements AgentEvent
func (ToolResultEvent) Type() EventType { return EventToolResult }

// TaskBackgroundedEvent reports that a Task sub-agent will finish after the
// current turn; its completion arrives later under TaskID.
type TaskBackgroundedEvent struct {
	ToolUseID string `json:"tool_use_id"`
	TaskID    string `json:"task_id"`
	Intent    string `json:"intent,omitempty"`
}

// Type implements AgentEvent
func (TaskBackgroundedEvent) Type() EventType { return EventTaskBackgrounded }

// ShellBackgroundedEvent reports a shell command that keeps running past the
// turn that started it.
type ShellBackgroundedEvent struct {
	ToolUseID string `json:"tool_use_id"`
	ShellID   string `json:"shell_id"`
	Intent    string `json:"intent,omitempty"`
	Command   string `json:"command,omitempty"`
}

// Type implements AgentEvent
func (ShellBackgroundedEvent) Type() EventType { return EventShellBackgrounded }

// ShellKilledEvent reports that a backgrounded shell was terminated
type ShellKilledEvent struct {
	ShellID string `json:"shell_id"`
}

// Type implements AgentEvent
func (ShellKilledEvent) Type() EventType { return EventShellKilled }

// EventHandler receives events as they are derived
type EventHandler func(event AgentEvent)
