// Package memory provides in-memory store and directory adapters with the
// same semantics as the PostgreSQL implementations. Intended for tests and
// single-node development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

// Store implements database.Store backed by maps. All records are deep-copied
// on the way in and out so callers never share state with the store.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]*decision.Record
	reviewers map[string]*reviewer.Reviewer
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		decisions: make(map[string]*decision.Record),
		reviewers: make(map[string]*reviewer.Reviewer),
	}
}

func (s *Store) CreateDecision(_ context.Context, rec *decision.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.decisions[rec.ID]; exists {
		return fmt.Errorf("create decision %s: %w", rec.ID, domain.ErrConflict)
	}
	s.decisions[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *Store) GetDecision(_ context.Context, id string) (*decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.decisions[id]
	if !ok {
		return nil, fmt.Errorf("get decision %s: %w", id, domain.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

// UpdateDecision applies the write only if rec.Version matches the stored
// version, mirroring the SQL compare-and-swap. The stored version and
// rec.Version are bumped on success.
func (s *Store) UpdateDecision(_ context.Context, rec *decision.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.decisions[rec.ID]
	if !ok {
		return fmt.Errorf("update decision %s: %w", rec.ID, domain.ErrConflict)
	}
	if stored.Version != rec.Version {
		return fmt.Errorf("update decision %s: %w", rec.ID, domain.ErrConflict)
	}
	next := cloneRecord(rec)
	next.Version++
	s.decisions[rec.ID] = next
	rec.Version++
	return nil
}

func (s *Store) ListPendingDecisions(_ context.Context, levels []decision.ReviewLevel) ([]decision.Record, error) {
	wanted := make(map[decision.ReviewLevel]bool, len(levels))
	for _, l := range levels {
		wanted[l] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []decision.Record
	for _, rec := range s.decisions {
		if rec.Status != decision.StatusPendingReview && rec.Status != decision.StatusEscalated {
			continue
		}
		if len(wanted) > 0 && !wanted[rec.RequiredReviewLevel] {
			continue
		}
		result = append(result, *cloneRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ListDecisionsByStatus(_ context.Context, status decision.Status, limit int) ([]decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []decision.Record
	for _, rec := range s.decisions {
		if rec.Status != status {
			continue
		}
		result = append(result, *cloneRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateReviewer(_ context.Context, rv *reviewer.Reviewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reviewers[rv.ID]; exists {
		return fmt.Errorf("create reviewer %s: %w", rv.ID, domain.ErrConflict)
	}
	for _, existing := range s.reviewers {
		if existing.Email == rv.Email {
			return fmt.Errorf("create reviewer %s: email taken: %w", rv.ID, domain.ErrConflict)
		}
	}
	now := time.Now().UTC()
	rv.CreatedAt = now
	rv.UpdatedAt = now
	clone := *rv
	s.reviewers[rv.ID] = &clone
	return nil
}

func (s *Store) GetReviewer(_ context.Context, id string) (*reviewer.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rv, ok := s.reviewers[id]
	if !ok {
		return nil, fmt.Errorf("get reviewer %s: %w", id, domain.ErrNotFound)
	}
	clone := *rv
	return &clone, nil
}

func (s *Store) GetReviewerByEmail(_ context.Context, email string) (*reviewer.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rv := range s.reviewers {
		if rv.Email == email {
			clone := *rv
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("get reviewer by email %s: %w", email, domain.ErrNotFound)
}

func (s *Store) ListReviewers(_ context.Context) ([]reviewer.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]reviewer.Reviewer, 0, len(s.reviewers))
	for _, rv := range s.reviewers {
		result = append(result, *rv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) UpdateReviewer(_ context.Context, rv *reviewer.Reviewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviewers[rv.ID]; !ok {
		return fmt.Errorf("update reviewer %s: %w", rv.ID, domain.ErrNotFound)
	}
	rv.UpdatedAt = time.Now().UTC()
	clone := *rv
	s.reviewers[rv.ID] = &clone
	return nil
}

// Lookup implements directory.Directory on top of the reviewer table.
// Unknown or disabled reviewers are not authorized to act.
func (s *Store) Lookup(_ context.Context, reviewerID string) (*reviewer.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rv, ok := s.reviewers[reviewerID]
	if !ok || !rv.Enabled {
		return nil, fmt.Errorf("lookup reviewer %s: %w", reviewerID, domain.ErrUnauthorized)
	}
	clone := *rv
	return &clone, nil
}

func cloneRecord(rec *decision.Record) *decision.Record {
	c := *rec
	c.Recommendation = cloneRaw(rec.Recommendation)
	c.FinalDecision = cloneRaw(rec.FinalDecision)
	if rec.SupportingEvidence != nil {
		c.SupportingEvidence = make([]json.RawMessage, len(rec.SupportingEvidence))
		for i, ev := range rec.SupportingEvidence {
			c.SupportingEvidence[i] = cloneRaw(ev)
		}
	}
	c.Reviews = append([]decision.HumanReview(nil), rec.Reviews...)
	c.AuditTrail = append([]decision.AuditEntry(nil), rec.AuditTrail...)
	return &c
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
