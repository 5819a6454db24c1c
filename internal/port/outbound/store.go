package outbound

import (
	"context"
	"time"
)

// KVStorePort is the key-value contract shared by the entitlement store,
// the usage counter and the event deduplicator.
type KVStorePort interface {
	// Name identifies the backend (redis, sqlite, memory).
	Name() string

	// Get returns the value stored at key. found is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically adds 1 to the integer at key and returns the new value.
	// ttl is applied only when the increment creates the key.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping checks backend availability.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// SweeperPort is implemented by backends that must purge expired entries
// themselves.
type SweeperPort interface {
	Sweep(ctx context.Context) (int, error)
}
