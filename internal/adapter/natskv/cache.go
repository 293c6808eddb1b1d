// Package natskv implements the cache port on NATS JetStream KV, giving
// every arbiter instance a shared second cache tier.
package natskv

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache adapts a JetStream KeyValue bucket to the cache port. Expiry is
// governed by the bucket TTL set when cmd/arbiter creates the bucket, so
// the per-call ttl argument is ignored.
type Cache struct {
	kv jetstream.KeyValue
}

// New wraps an existing KeyValue bucket.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get returns the stored value, mapping an absent key to a clean miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		return entry.Value(), true, nil
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Set stores value under key. The bucket TTL applies, not the argument.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, key, value)
	return err
}

// Delete purges the key. Purge rather than KV delete keeps the bucket
// stream compact: cached lookups have no history worth retaining.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.kv.Purge(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return err
	}
	return nil
}
