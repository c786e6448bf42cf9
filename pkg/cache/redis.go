package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a shared Redis instance. Entries are stored as
// JSON under a common key prefix; TTL enforcement is delegated to Redis, so
// expired entries are absent by construction.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed store. All keys are namespaced with
// prefix so Clear only touches entries owned by this store.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "calgo:"
	}
	return &Redis{
		client: client,
		prefix: prefix,
	}
}

func (r *Redis) redisKey(key string) string {
	return r.prefix + key
}

// Get returns the entry for key, or ErrCacheMiss if absent or expired.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.WithLabelValues(layerRedis).Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	cacheHits.WithLabelValues(layerRedis).Inc()
	return &entry, nil
}

// Set stores entry under key for ttl. A non-positive ttl stores nothing.
func (r *Redis) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(key), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	cacheSize.WithLabelValues(layerRedis).Add(float64(len(data)))

	return nil
}

// Delete removes the entry for key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes all entries under this store's prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			cacheErrors.WithLabelValues("clear").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		cacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Has reports whether a fresh entry exists for key.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.redisKey(key)).Result()
	if err != nil {
		cacheErrors.WithLabelValues("has").Inc()
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// GetMultiple returns the fresh entries for the given keys; absent and
// expired keys are omitted.
func (r *Redis) GetMultiple(ctx context.Context, keys []string) (map[string]*Entry, error) {
	if len(keys) == 0 {
		return map[string]*Entry{}, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = r.redisKey(key)
	}

	values, err := r.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	entries := make(map[string]*Entry, len(keys))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Nil value - key absent or expired.
			cacheMisses.WithLabelValues(layerRedis).Inc()
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			cacheErrors.WithLabelValues("get").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}

		cacheHits.WithLabelValues(layerRedis).Inc()
		entries[keys[i]] = &entry
	}

	return entries, nil
}

// SetMultiple stores every entry with the same ttl using a pipeline.
func (r *Redis) SetMultiple(ctx context.Context, entries map[string]*Entry, ttl time.Duration) error {
	if ttl <= 0 || len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for key, entry := range entries {
		if entry == nil {
			return ErrInvalidEntry
		}
		data, err := json.Marshal(entry)
		if err != nil {
			cacheErrors.WithLabelValues("set").Inc()
			return fmt.Errorf("marshal cache entry: %w", err)
		}
		pipe.Set(ctx, r.redisKey(key), data, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis pipeline set: %w", err)
	}
	return nil
}

// DeleteMultiple removes exactly the named keys.
func (r *Redis) DeleteMultiple(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = r.redisKey(key)
	}

	if err := r.client.Del(ctx, redisKeys...).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
