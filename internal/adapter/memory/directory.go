package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

// Directory is a fixed reviewer directory backed by a map. Useful for tests
// and demos where reviewer accounts are not stored anywhere.
type Directory struct {
	mu        sync.RWMutex
	reviewers map[string]reviewer.Reviewer
}

// NewDirectory creates a Directory holding the given reviewers.
func NewDirectory(reviewers ...reviewer.Reviewer) *Directory {
	d := &Directory{reviewers: make(map[string]reviewer.Reviewer, len(reviewers))}
	for _, rv := range reviewers {
		d.reviewers[rv.ID] = rv
	}
	return d
}

// Put adds or replaces a reviewer.
func (d *Directory) Put(rv reviewer.Reviewer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reviewers[rv.ID] = rv
}

// Remove deletes a reviewer by ID.
func (d *Directory) Remove(reviewerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.reviewers, reviewerID)
}

// Lookup implements directory.Directory.
func (d *Directory) Lookup(_ context.Context, reviewerID string) (*reviewer.Reviewer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rv, ok := d.reviewers[reviewerID]
	if !ok || !rv.Enabled {
		return nil, fmt.Errorf("lookup reviewer %s: %w", reviewerID, domain.ErrUnauthorized)
	}
	clone := rv
	return &clone, nil
}
