// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

// Store is the port interface for persistence. Decision writes use
// optimistic concurrency: UpdateDecision persists the record only if its
// Version still matches the stored version, returning domain.ErrConflict
// otherwise, and bumps rec.Version on success. Review and audit lists are
// part of the record and are committed in the same write as the status
// transition they belong to.
type Store interface {
	// Decisions
	CreateDecision(ctx context.Context, rec *decision.Record) error
	GetDecision(ctx context.Context, id string) (*decision.Record, error)
	UpdateDecision(ctx context.Context, rec *decision.Record) error
	ListPendingDecisions(ctx context.Context, levels []decision.ReviewLevel) ([]decision.Record, error)
	ListDecisionsByStatus(ctx context.Context, status decision.Status, limit int) ([]decision.Record, error)

	// Reviewers
	CreateReviewer(ctx context.Context, rv *reviewer.Reviewer) error
	GetReviewer(ctx context.Context, id string) (*reviewer.Reviewer, error)
	GetReviewerByEmail(ctx context.Context, email string) (*reviewer.Reviewer, error)
	ListReviewers(ctx context.Context) ([]reviewer.Reviewer, error)
	UpdateReviewer(ctx context.Context, rv *reviewer.Reviewer) error
}
