package agentx

import (
	"context"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/google/uuid"
)

// Session is the per-conversation pipeline context: one tool index, one
// emitted-ids set, one active-parents set, and one metadata store. Two
// sessions share nothing, so concurrent conversations cannot contaminate
// each other's tool correlation state.
//
// A session has one logical producer; its methods are not safe for
// concurrent use.
type Session struct {
	id      string
	turnID  string
	cfg     toolmeta.Config
	meta    toolmeta.Store
	index   *ToolIndex
	emitted EmittedSet
	active  map[string]struct{}
	handler EventHandler
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithConfig sets the augmentation config the session's requests use
func WithConfig(cfg toolmeta.Config) SessionOption {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithEventHandler registers a handler invoked for every derived event
func WithEventHandler(handler EventHandler) SessionOption {
	return func(s *Session) {
		s.handler = handler
	}
}

// NewSession creates a session around a metadata store. A nil store gets a
// fresh in-memory one.
func NewSession(store toolmeta.Store, opts ...SessionOption) *Session {
	if store == nil {
		store = toolmeta.NewMemoryStore()
	}
	s := &Session{
		id:      uuid.New().String(),
		meta:    store,
		index:   NewToolIndex(),
		emitted: make(EmittedSet),
		active:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Config returns the session's augmentation config
func (s *Session) Config() toolmeta.Config { return s.cfg }

// MetadataStore returns the session's metadata store
func (s *Session) MetadataStore() toolmeta.Store { return s.meta }

// Index returns the session's tool index
func (s *Session) Index() *ToolIndex { return s.index }

// BeginTurn starts a new assistant turn and returns its correlation id
func (s *Session) BeginTurn() string {
	s.turnID = uuid.New().String()
	return s.turnID
}

// TurnID returns the current turn's correlation id
func (s *Session) TurnID() string { return s.turnID }

// ProcessAssistantMessage derives tool_start events from one assistant
// message and marks its Task invocations as active parents for subsequent
// nested calls. The declared parent id, when known, takes precedence over
// the active-parent fallback.
func (s *Session) ProcessAssistantMessage(ctx context.Context, msg llm.Message, parentToolUseID string) []AgentEvent {
	events := ExtractToolStarts(ctx, msg.Blocks, StartOptions{
		ParentToolUseID: parentToolUseID,
		TurnID:          s.turnID,
		ActiveParents:   s.active,
		Metadata:        s.meta,
	}, s.index, s.emitted)

	for _, tu := range msg.ToolUses() {
		if tu.Name == ToolNameTask {
			s.active[tu.ID] = struct{}{}
		}
	}

	s.dispatch(events)
	return events
}

// ProcessToolResults derives tool_result and background-lifecycle events
// from result content blocks. Completed invocations stop being fallback
// parent candidates.
func (s *Session) ProcessToolResults(ctx context.Context, blocks []llm.ContentBlock, parentToolUseID string, fallback *FallbackResult) []AgentEvent {
	events := ExtractToolResults(ctx, blocks, ResultOptions{
		ParentToolUseID: parentToolUseID,
		TurnID:          s.turnID,
		Fallback:        fallback,
		Metadata:        s.meta,
	}, s.index)

	for _, event := range events {
		if result, ok := event.(ToolResultEvent); ok {
			delete(s.active, result.ToolUseID)
		}
	}

	s.dispatch(events)
	return events
}

func (s *Session) dispatch(events []AgentEvent) {
	if s.handler == nil {
		return
	}
	for _, event := range events {
		s.handler(event)
	}
}
