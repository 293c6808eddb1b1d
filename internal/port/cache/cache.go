// Package cache defines the caching port used by the reviewer directory.
//
// Implementations live under internal/adapter: ristretto (in-process),
// natskv (shared across instances via JetStream KV), and tiered (both).
// The cachetest subpackage holds the compliance suite every
// implementation must pass.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry TTLs.
//
// Get reports a miss with ok=false and a nil error; the error return is
// reserved for backend failures. Set may drop the entry (in-process
// caches shed load under memory pressure), so callers treat the cache as
// advisory. Delete of an absent key is not an error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
