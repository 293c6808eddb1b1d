// Package tiered layers the in-process cache over the shared NATS KV
// tier so hot reviewer lookups stay local while instances still converge.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/arbiterhq/arbiter/internal/port/cache"
)

// Cache reads through L1 then L2, backfilling L1 on an L2 hit.
//
// An unreachable L2 degrades reads and writes to L1-only with a warning:
// the directory treats cache misses as "ask Postgres", so availability
// beats completeness here. Delete is the exception, because a swallowed
// invalidation leaves other instances serving a revoked authority tier.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache. l1Expire bounds how long L2 backfills live
// in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1 then L2, backfilling L1 on an L2 hit.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		slog.Warn("l1 cache read failed", "key", key, "error", err)
	} else if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		slog.Warn("l2 cache read failed, degrading to miss", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}

	if err := c.l1.Set(ctx, key, val, c.l1Expire); err != nil {
		slog.Warn("l1 backfill failed", "key", key, "error", err)
	}
	return val, true, nil
}

// Set writes both tiers. An L2 write failure is logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("l2 cache write failed", "key", key, "error", err)
	}
	return nil
}

// Delete invalidates both tiers and reports any failure. Both tiers are
// attempted even when the first errors.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.l1.Delete(ctx, key), c.l2.Delete(ctx, key))
}
