package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Clock is the time source used for expiry checks. Tests supply a
// controllable clock to simulate elapsed time without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Store is a key/value store with per-entry TTL. Expiry is checked lazily
// on read: an expired entry behaves identically to an absent one on Get and
// Has, and does not appear in batch reads.
//
// Memory is the process-local implementation; Redis backs the same contract
// with a shared store.
type Store interface {
	// Get returns the entry for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores entry under key for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Delete removes the entry for key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this store.
	Clear(ctx context.Context) error

	// Has reports whether a fresh entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// GetMultiple returns the fresh entries for the given keys. Absent and
	// expired keys are omitted from the result.
	GetMultiple(ctx context.Context, keys []string) (map[string]*Entry, error)

	// SetMultiple stores every entry with the same ttl.
	SetMultiple(ctx context.Context, entries map[string]*Entry, ttl time.Duration) error

	// DeleteMultiple removes exactly the named keys, leaving others intact.
	DeleteMultiple(ctx context.Context, keys []string) error
}
