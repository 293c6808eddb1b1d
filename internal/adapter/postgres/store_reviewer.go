package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/reviewer"
)

func (s *Store) CreateReviewer(ctx context.Context, rv *reviewer.Reviewer) error {
	now := time.Now().UTC()
	rv.CreatedAt = now
	rv.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviewers (id, email, name, role, tier, password_hash, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rv.ID, rv.Email, rv.Name, rv.Role, string(rv.Tier), rv.PasswordHash, rv.Enabled, rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}
	return nil
}

const reviewerColumns = `id, email, name, role, tier, password_hash, enabled, created_at, updated_at`

func (s *Store) GetReviewer(ctx context.Context, id string) (*reviewer.Reviewer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+reviewerColumns+` FROM reviewers WHERE id = $1`, id)

	rv, err := scanReviewer(row)
	if err != nil {
		return nil, notFoundWrap(err, "get reviewer %s", id)
	}
	return rv, nil
}

func (s *Store) GetReviewerByEmail(ctx context.Context, email string) (*reviewer.Reviewer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+reviewerColumns+` FROM reviewers WHERE email = $1`, email)

	rv, err := scanReviewer(row)
	if err != nil {
		return nil, notFoundWrap(err, "get reviewer by email %s", email)
	}
	return rv, nil
}

func (s *Store) ListReviewers(ctx context.Context) ([]reviewer.Reviewer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reviewerColumns+` FROM reviewers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	reviewers, err := pgx.CollectRows(rows, rowTo(scanReviewer))
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	return reviewers, nil
}

func (s *Store) UpdateReviewer(ctx context.Context, rv *reviewer.Reviewer) error {
	rv.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE reviewers SET name = $2, role = $3, tier = $4, enabled = $5, password_hash = $6, updated_at = $7
		WHERE id = $1`,
		rv.ID, rv.Name, rv.Role, string(rv.Tier), rv.Enabled, rv.PasswordHash, rv.UpdatedAt,
	)
	return execExpectOne(tag, err, "update reviewer %s", rv.ID)
}

// Lookup implements directory.Directory on top of the reviewers table.
// Unknown or disabled reviewers are not authorized to act; infrastructure
// failures surface as domain.ErrUnavailable so callers can distinguish them.
func (s *Store) Lookup(ctx context.Context, reviewerID string) (*reviewer.Reviewer, error) {
	rv, err := s.GetReviewer(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup reviewer %s: %w", reviewerID, domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("lookup reviewer %s: %w", reviewerID, domain.ErrUnavailable)
	}
	if !rv.Enabled {
		return nil, fmt.Errorf("lookup reviewer %s: disabled: %w", reviewerID, domain.ErrUnauthorized)
	}
	return rv, nil
}
