// Package cacheddir decorates a reviewer directory with a cache layer, so
// authority checks during review bursts do not hammer the backing store.
package cacheddir

import (
	"context"
	"encoding/json"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
	"github.com/arbiterhq/arbiter/internal/port/cache"
	"github.com/arbiterhq/arbiter/internal/port/directory"
)

// Dot-separated so the key stays legal as a JetStream KV subject token
// when the L2 tier backs this cache.
const keyPrefix = "reviewer."

// Directory wraps an inner directory with read-through caching. Cache
// failures are treated as misses so a broken cache never blocks authority
// resolution. Only successful lookups are cached; the TTL should stay short
// so tier changes and account disables take effect promptly.
type Directory struct {
	inner directory.Directory
	cache cache.Cache
	ttl   time.Duration
}

// New creates a caching directory decorator.
func New(inner directory.Directory, c cache.Cache, ttl time.Duration) *Directory {
	return &Directory{inner: inner, cache: c, ttl: ttl}
}

// Lookup implements directory.Directory. The cached copy omits the password
// hash (json "-" tag), which is fine: callers resolve identity and tier here,
// never credentials.
func (d *Directory) Lookup(ctx context.Context, reviewerID string) (*reviewer.Reviewer, error) {
	key := keyPrefix + reviewerID

	if data, ok, err := d.cache.Get(ctx, key); err == nil && ok {
		var rv reviewer.Reviewer
		if err := json.Unmarshal(data, &rv); err == nil {
			return &rv, nil
		}
		// Corrupt entry: drop it and fall through to the inner lookup.
		_ = d.cache.Delete(ctx, key)
	}

	rv, err := d.inner.Lookup(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rv); err == nil {
		_ = d.cache.Set(ctx, key, data, d.ttl)
	}
	return rv, nil
}

// Invalidate drops the cached entry for a reviewer, for callers that just
// changed the account.
func (d *Directory) Invalidate(ctx context.Context, reviewerID string) {
	_ = d.cache.Delete(ctx, keyPrefix+reviewerID)
}
