package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 16

// Memory is a process-local, sharded in-memory Store with lazy TTL expiry.
// Safe for concurrent use.
type Memory struct {
	shards [memoryShards]*memoryShard
	clock  Clock
}

type memoryShard struct {
	mu    sync.RWMutex
	store map[string]memoryItem
}

type memoryItem struct {
	entry     *Entry
	expiresAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryClock sets the time source used for expiry checks. Useful for
// testing.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(m *Memory) {
		m.clock = clock
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{clock: systemClock{}}
	for i := range m.shards {
		m.shards[i] = &memoryShard{store: make(map[string]memoryItem)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) shard(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%memoryShards]
}

// Get returns the entry for key, or ErrCacheMiss if absent or expired.
// Expired entries are removed on read.
func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	shard := m.shard(key)
	now := m.clock.Now()

	shard.mu.RLock()
	item, exists := shard.store[key]
	shard.mu.RUnlock()

	if !exists {
		cacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, ErrCacheMiss
	}

	if now.After(item.expiresAt) || now.Equal(item.expiresAt) {
		shard.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the item.
		if cur, ok := shard.store[key]; ok && !cur.expiresAt.After(now) {
			delete(shard.store, key)
		}
		shard.mu.Unlock()
		cacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.WithLabelValues(layerMemory).Inc()
	return item.entry, nil
}

// Set stores entry under key for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	if ttl <= 0 {
		return nil
	}

	shard := m.shard(key)
	shard.mu.Lock()
	shard.store[key] = memoryItem{entry: entry, expiresAt: m.clock.Now().Add(ttl)}
	shard.mu.Unlock()

	return nil
}

// Delete removes the entry for key.
func (m *Memory) Delete(_ context.Context, key string) error {
	shard := m.shard(key)
	shard.mu.Lock()
	delete(shard.store, key)
	shard.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (m *Memory) Clear(_ context.Context) error {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.store = make(map[string]memoryItem)
		shard.mu.Unlock()
	}
	return nil
}

// Has reports whether a fresh entry exists for key.
func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err == ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetMultiple returns the fresh entries for the given keys; absent and
// expired keys are omitted.
func (m *Memory) GetMultiple(ctx context.Context, keys []string) (map[string]*Entry, error) {
	entries := make(map[string]*Entry, len(keys))
	for _, key := range keys {
		entry, err := m.Get(ctx, key)
		if err == ErrCacheMiss {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries[key] = entry
	}
	return entries, nil
}

// SetMultiple stores every entry with the same ttl.
func (m *Memory) SetMultiple(ctx context.Context, entries map[string]*Entry, ttl time.Duration) error {
	for key, entry := range entries {
		if err := m.Set(ctx, key, entry, ttl); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMultiple removes exactly the named keys.
func (m *Memory) DeleteMultiple(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := m.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
