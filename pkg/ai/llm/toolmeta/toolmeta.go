// Package toolmeta manages the metadata the model embeds in its tool calls:
// a short display label and a one-line intent. The fields travel inside tool
// input JSON under reserved keys, are stripped out before the input reaches
// schema validation, and are restored into outgoing request history so the
// model keeps producing them on later turns.
package toolmeta

import (
	"context"
	"sync"
	"time"
)

// Reserved input keys carrying tool-call metadata on the wire.
const (
	KeyIntent      = "_intent"
	KeyDisplayName = "_displayName"
)

// Config controls which tools get the metadata properties injected into
// their schemas.
type Config struct {
	// RichToolDescriptions enables injection for every tool. When off, only
	// MCP-namespaced tools are augmented.
	RichToolDescriptions bool
}

// Metadata is what was extracted from one tool invocation's input
type Metadata struct {
	Intent      string    `json:"intent,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Empty reports whether neither field carries a value
func (m Metadata) Empty() bool {
	return m.Intent == "" && m.DisplayName == ""
}

// Store keeps extracted metadata keyed by tool-call id for the lifetime of a
// session. Entries are only ever added; eviction is the backend's concern.
type Store interface {
	// Put records metadata for a tool-call id. Later puts for the same id
	// overwrite earlier ones.
	Put(ctx context.Context, toolUseID string, meta Metadata) error

	// Get returns the stored metadata, or nil when the id is unknown.
	Get(ctx context.Context, toolUseID string) (*Metadata, error)
}

// MemoryStore is the in-process Store used for a single session
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Metadata
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Metadata)}
}

// Put implements Store
func (s *MemoryStore) Put(_ context.Context, toolUseID string, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[toolUseID] = meta
	return nil
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, toolUseID string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.entries[toolUseID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

// Size returns the number of stored entries
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
