// Package toolmetaredis provides a Redis-backed toolmeta.Store for sessions
// that outlive a single process, e.g. conversations resumed after a restart
// or served by more than one replica.
package toolmetaredis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements toolmeta.Store backed by Redis.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// Option configures a RedisStore
type Option func(*RedisStore)

// WithTTL sets an expiry on stored entries. Zero (the default) keeps entries
// until the session key space is cleaned up externally; the pipeline itself
// never deletes.
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(rdb *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{rdb: rdb}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func metaKey(toolUseID string) string {
	return fmt.Sprintf("toolmeta:meta:%s", toolUseID)
}

// Put implements toolmeta.Store
func (s *RedisStore) Put(ctx context.Context, toolUseID string, meta toolmeta.Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("tool_use_id", toolUseID)
	}
	if err := s.rdb.Set(ctx, metaKey(toolUseID), data, s.ttl).Err(); err != nil {
		return redisErrors.NewWithCause(ErrSet, err).WithDetail("tool_use_id", toolUseID)
	}
	return nil
}

// Get implements toolmeta.Store
func (s *RedisStore) Get(ctx context.Context, toolUseID string) (*toolmeta.Metadata, error) {
	data, err := s.rdb.Get(ctx, metaKey(toolUseID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrGet, err).WithDetail("tool_use_id", toolUseID)
	}
	var meta toolmeta.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, redisErrors.NewWithCause(ErrMarshal, err).WithDetail("tool_use_id", toolUseID)
	}
	return &meta, nil
}
