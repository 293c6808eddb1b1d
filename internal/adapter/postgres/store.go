package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const decisionColumns = `id, source_system, decision_type, confidence_score, recommendation,
	supporting_evidence, related_entity_id, financial_impact, status, required_review_level,
	final_decision, reviews, audit_trail, version, created_at, updated_at`

// CreateDecision inserts a new decision record.
func (s *Store) CreateDecision(ctx context.Context, rec *decision.Record) error {
	evidence, reviews, audit, err := marshalDecisionLists(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO decisions (id, source_system, decision_type, confidence_score, recommendation,
			supporting_evidence, related_entity_id, financial_impact, status, required_review_level,
			final_decision, reviews, audit_trail, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.SourceSystem, rec.DecisionType, rec.ConfidenceScore, []byte(rec.Recommendation),
		evidence, rec.RelatedEntityID, rec.FinancialImpact, string(rec.Status), string(rec.RequiredReviewLevel),
		nullJSON(rec.FinalDecision), reviews, audit, rec.Version, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create decision: %w", err)
	}
	return nil
}

// GetDecision retrieves a decision record by ID.
func (s *Store) GetDecision(ctx context.Context, id string) (*decision.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = $1`, id)

	rec, err := scanDecision(row)
	if err != nil {
		return nil, notFoundWrap(err, "get decision %s", id)
	}
	return rec, nil
}

// UpdateDecision persists the record if its version still matches the stored
// row, bumping both on success. A version mismatch (or a concurrent delete)
// affects zero rows and surfaces as domain.ErrConflict.
func (s *Store) UpdateDecision(ctx context.Context, rec *decision.Record) error {
	evidence, reviews, audit, err := marshalDecisionLists(rec)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE decisions SET status = $2, required_review_level = $3, final_decision = $4,
			reviews = $5, audit_trail = $6, supporting_evidence = $7,
			version = version + 1, updated_at = $8
		WHERE id = $1 AND version = $9`,
		rec.ID, string(rec.Status), string(rec.RequiredReviewLevel), nullJSON(rec.FinalDecision),
		reviews, audit, evidence, rec.UpdatedAt, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update decision %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update decision %s: %w", rec.ID, domain.ErrConflict)
	}
	rec.Version++
	return nil
}

// ListPendingDecisions returns decisions awaiting review (pending_review or
// escalated) at the given levels, oldest first. An empty level list matches
// all levels.
func (s *Store) ListPendingDecisions(ctx context.Context, levels []decision.ReviewLevel) ([]decision.Record, error) {
	q := `SELECT ` + decisionColumns + ` FROM decisions
		WHERE status IN ($1, $2)`
	args := []any{string(decision.StatusPendingReview), string(decision.StatusEscalated)}

	if len(levels) > 0 {
		q += ` AND required_review_level = ANY($3)`
		names := make([]string, len(levels))
		for i, l := range levels {
			names[i] = string(l)
		}
		args = append(args, names)
	}
	q += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending decisions: %w", err)
	}
	result, err := pgx.CollectRows(rows, rowTo(scanDecision))
	if err != nil {
		return nil, fmt.Errorf("list pending decisions: %w", err)
	}
	return result, nil
}

// ListDecisionsByStatus returns up to limit decisions with the given status,
// most recent first. limit <= 0 means no limit.
func (s *Store) ListDecisionsByStatus(ctx context.Context, status decision.Status, limit int) ([]decision.Record, error) {
	q := `SELECT ` + decisionColumns + ` FROM decisions
		WHERE status = $1 ORDER BY created_at DESC`
	args := []any{string(status)}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions by status: %w", err)
	}
	result, err := pgx.CollectRows(rows, rowTo(scanDecision))
	if err != nil {
		return nil, fmt.Errorf("list decisions by status: %w", err)
	}
	return result, nil
}

// scanDecision scans a decision row, unmarshalling the JSONB list columns.
func scanDecision(row scannable) (*decision.Record, error) {
	var (
		rec            decision.Record
		recommendation []byte
		evidence       []byte
		finalDecision  []byte
		reviews        []byte
		audit          []byte
	)
	err := row.Scan(
		&rec.ID, &rec.SourceSystem, &rec.DecisionType, &rec.ConfidenceScore, &recommendation,
		&evidence, &rec.RelatedEntityID, &rec.FinancialImpact, &rec.Status, &rec.RequiredReviewLevel,
		&finalDecision, &reviews, &audit, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Recommendation = json.RawMessage(recommendation)
	if len(finalDecision) > 0 {
		rec.FinalDecision = json.RawMessage(finalDecision)
	}
	if err := json.Unmarshal(evidence, &rec.SupportingEvidence); err != nil {
		return nil, fmt.Errorf("unmarshal supporting_evidence for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(reviews, &rec.Reviews); err != nil {
		return nil, fmt.Errorf("unmarshal reviews for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(audit, &rec.AuditTrail); err != nil {
		return nil, fmt.Errorf("unmarshal audit_trail for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// marshalDecisionLists serializes the JSONB list columns. nil slices become
// [] so the columns never hold SQL NULL.
func marshalDecisionLists(rec *decision.Record) (evidence, reviews, audit []byte, err error) {
	evidence, err = json.Marshal(orEmpty(rec.SupportingEvidence))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal supporting_evidence: %w", err)
	}
	reviews, err = json.Marshal(orEmpty(rec.Reviews))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal reviews: %w", err)
	}
	audit, err = json.Marshal(orEmpty(rec.AuditTrail))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal audit_trail: %w", err)
	}
	return evidence, reviews, audit, nil
}
