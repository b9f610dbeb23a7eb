// Package cache defines the port interface for byte caches (template bodies, idempotent replays).
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value cache. Implementations must be safe
// for concurrent use; a miss is reported through the bool, not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
