package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryEntry[T any] struct {
	entry    Entry[T]
	storedAt time.Time
}

// Memory is an in-process Store. It backs the short-lived tier in front of
// every persistent store and can serve as the persistent tier itself in
// development.
type Memory[T any] struct {
	mu     sync.RWMutex
	items  map[string]memoryEntry[T]
	clock  clockwork.Clock
	maxAge time.Duration
}

// NewMemory creates an in-process store. A positive maxAge additionally hides
// entries stored longer ago than maxAge, regardless of their ExpiresAt.
func NewMemory[T any](clock clockwork.Clock, maxAge time.Duration) *Memory[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory[T]{
		items:  make(map[string]memoryEntry[T]),
		clock:  clock,
		maxAge: maxAge,
	}
}

// Get returns the live entry for key, or nil.
func (m *Memory[T]) Get(_ context.Context, key string) (*Entry[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]
	if !ok {
		return nil, nil
	}

	now := m.clock.Now()
	if !item.entry.LiveAt(now) {
		return nil, nil
	}
	if m.maxAge > 0 && now.Sub(item.storedAt) >= m.maxAge {
		return nil, nil
	}

	entry := item.entry
	return &entry, nil
}

// Upsert stores entry under its key, replacing any previous value.
func (m *Memory[T]) Upsert(_ context.Context, entry Entry[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[entry.Key] = memoryEntry[T]{entry: entry, storedAt: m.clock.Now()}
	return nil
}

// PurgeExpired drops entries whose ExpiresAt is before the cutoff.
func (m *Memory[T]) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, item := range m.items {
		if item.entry.ExpiresAt.Before(before) {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, live or not.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
