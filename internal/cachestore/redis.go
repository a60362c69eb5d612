package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type redisEnvelope[T any] struct {
	Payload     T         `json:"payload"`
	RetrievedAt time.Time `json:"retrievedAtUtc"`
	ExpiresAt   time.Time `json:"expiresAtUtc"`
}

// Redis stores entries as JSON strings under "<table>:<key>". Keys carry a
// PX expiry so Redis drops them itself; readers still check ExpiresAt.
type Redis[T any] struct {
	client redis.Cmdable
	prefix string
	clock  clockwork.Clock
}

// NewRedis creates a store for table, which must be one of Tables.
func NewRedis[T any](client redis.Cmdable, table string, clock clockwork.Clock) (*Redis[T], error) {
	if !validTable(table) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Redis[T]{client: client, prefix: table + ":", clock: clock}, nil
}

// Get returns the unexpired entry for key, or nil.
func (r *Redis[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.prefix+key, err)
	}

	var env redisEnvelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.prefix+key, err)
	}

	entry := &Entry[T]{
		Key:         key,
		Payload:     env.Payload,
		RetrievedAt: env.RetrievedAt,
		ExpiresAt:   env.ExpiresAt,
	}
	if !entry.LiveAt(r.clock.Now()) {
		return nil, nil
	}
	return entry, nil
}

// Upsert overwrites the key. Entries that are already expired are not written.
func (r *Redis[T]) Upsert(ctx context.Context, entry Entry[T]) error {
	ttl := entry.ExpiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(redisEnvelope[T]{
		Payload:     entry.Payload,
		RetrievedAt: entry.RetrievedAt.UTC(),
		ExpiresAt:   entry.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.prefix+entry.Key, err)
	}

	if err := r.client.Set(ctx, r.prefix+entry.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.prefix+entry.Key, err)
	}
	return nil
}
