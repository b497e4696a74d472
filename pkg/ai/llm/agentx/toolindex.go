package agentx

// ToolIndex is the authoritative table of tool-call id to name and input for
// one session. Streaming deltas and the final assistant message both report
// the same invocations, possibly out of order and more than once, so
// Register is idempotent and order-independent: the final state after any
// sequence of compatible calls is the same.
type ToolIndex struct {
	entries map[string]toolEntry
}

type toolEntry struct {
	name  string
	input map[string]any
}

// NewToolIndex creates an empty index
func NewToolIndex() *ToolIndex {
	return &ToolIndex{entries: make(map[string]toolEntry)}
}

// Register records a tool invocation. The name is fixed by the first call
// for an id. Input upgrades monotonically: an empty (placeholder) input may
// be replaced by a non-empty one, never the reverse, and a non-empty input
// is never overwritten.
func (x *ToolIndex) Register(id, name string, input map[string]any) {
	existing, ok := x.entries[id]
	if !ok {
		x.entries[id] = toolEntry{name: name, input: input}
		return
	}
	if len(existing.input) == 0 && len(input) > 0 {
		existing.input = input
		x.entries[id] = existing
	}
}

// Name returns the registered tool name for an id
func (x *ToolIndex) Name(id string) (string, bool) {
	entry, ok := x.entries[id]
	return entry.name, ok
}

// Input returns the registered input for an id, nil when unknown
func (x *ToolIndex) Input(id string) map[string]any {
	return x.entries[id].input
}

// Has reports whether an id is registered
func (x *ToolIndex) Has(id string) bool {
	_, ok := x.entries[id]
	return ok
}

// Size returns the number of registered invocations
func (x *ToolIndex) Size() int {
	return len(x.entries)
}
