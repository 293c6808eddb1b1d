package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/port/database"
	"github.com/arbiterhq/arbiter/internal/port/directory"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
)

// OversightService is the review processor: it owns every status transition
// a decision record goes through, from intake and classification to the
// final human verdict. It is the sole writer of status, final_decision, and
// required_review_level after creation.
type OversightService struct {
	store   database.Store
	dir     directory.Directory
	queue   messagequeue.Queue
	policy  decision.Policy
	metrics *arbotel.Metrics

	newID func() string
	now   func() time.Time
}

// NewOversightService creates the review processor. queue and metrics may be
// nil in tests; event publication and instrumentation are skipped.
func NewOversightService(store database.Store, dir directory.Directory, queue messagequeue.Queue, policy decision.Policy, metrics *arbotel.Metrics) *OversightService {
	return &OversightService{
		store:   store,
		dir:     dir,
		queue:   queue,
		policy:  policy,
		metrics: metrics,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// SubmitDecision takes a machine-generated recommendation into governance:
// it classifies the required review level, applies the auto-approval rules,
// and persists the record with its first audit entry in one write. Event
// publication is fire-and-forget; a queue outage never fails a submission.
func (s *OversightService) SubmitDecision(ctx context.Context, req *decision.SubmitRequest) (*decision.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &decision.Record{
		ID:                 s.newID(),
		SourceSystem:       req.SourceSystem,
		DecisionType:       req.DecisionType,
		ConfidenceScore:    req.ConfidenceScore,
		Recommendation:     req.Recommendation,
		SupportingEvidence: req.SupportingEvidence,
		RelatedEntityID:    req.RelatedEntityID,
		FinancialImpact:    req.FinancialImpact,
		Status:             decision.StatusPendingReview,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	ctx, span := arbotel.StartSubmitSpan(ctx, rec.ID, rec.SourceSystem, rec.DecisionType)
	defer span.End()

	cls := s.policy.Classify(rec.DecisionType, rec.ConfidenceScore, rec.FinancialImpact)
	rec.RequiredReviewLevel = cls.Level

	approved, reason := s.policy.AutoApprove(rec)
	if approved {
		rec.Status = decision.StatusApproved
		rec.FinalDecision = rec.Recommendation
		rec.AppendAudit(decision.AuditEntry{
			Timestamp: now,
			Action:    decision.AuditAutoApproved,
			Actor:     decision.SystemActor,
			Detail:    reason,
		})
	} else {
		rec.AppendAudit(decision.AuditEntry{
			Timestamp: now,
			Action:    decision.AuditQueuedForReview,
			Actor:     decision.SystemActor,
			Detail:    fmt.Sprintf("level %s: %s", cls.Level, cls.Reason),
		})
	}

	if err := s.store.CreateDecision(ctx, rec); err != nil {
		return nil, fmt.Errorf("create decision: %w", err)
	}

	if s.metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("decision.type", rec.DecisionType),
			attribute.String("review.level", string(rec.RequiredReviewLevel)),
		)
		s.metrics.DecisionsSubmitted.Add(ctx, 1, attrs)
		if approved {
			s.metrics.DecisionsAutoApproved.Add(ctx, 1, attrs)
		}
	}

	if approved {
		slog.Info("decision auto-approved",
			"decision_id", rec.ID, "decision_type", rec.DecisionType,
			"confidence", rec.ConfidenceScore)
		s.publish(ctx, messagequeue.SubjectDecisionResolved, messagequeue.DecisionResolvedPayload{
			DecisionID:   rec.ID,
			Status:       string(rec.Status),
			AutoApproved: true,
		})
	} else {
		slog.Info("decision queued for review",
			"decision_id", rec.ID, "decision_type", rec.DecisionType,
			"level", rec.RequiredReviewLevel, "rule", cls.Rule)
		s.publish(ctx, messagequeue.SubjectDecisionQueued, messagequeue.DecisionQueuedPayload{
			DecisionID:      rec.ID,
			SourceSystem:    rec.SourceSystem,
			DecisionType:    rec.DecisionType,
			ReviewLevel:     string(rec.RequiredReviewLevel),
			ConfidenceScore: rec.ConfidenceScore,
			RelatedEntityID: rec.RelatedEntityID,
		})
	}

	return rec, nil
}

// SubmitReview applies one reviewer action to a pending decision.
//
// Authority is validated against the record's current required level, so a
// reviewer who could act before an escalation can no longer act after it.
// The write carries the version read here; when another reviewer resolved
// the record in between, the store rejects the write and the caller gets
// domain.ErrConflict rather than a silent overwrite.
func (s *OversightService) SubmitReview(ctx context.Context, decisionID, reviewerID string, req *decision.ReviewRequest) (*decision.ReviewResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := arbotel.StartReviewSpan(ctx, decisionID, reviewerID, string(req.Action))
	defer span.End()

	rv, err := s.dir.Lookup(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, fmt.Errorf("decision %s is %s: %w", decisionID, rec.Status, domain.ErrAlreadyTerminal)
	}

	if !decision.ValidateAuthority(rec.RequiredReviewLevel, rv.Tier) {
		return nil, fmt.Errorf("reviewer %s (tier %s) cannot act on level %s: %w",
			reviewerID, rv.Tier, rec.RequiredReviewLevel, domain.ErrInsufficientAuthority)
	}

	now := s.now().UTC()
	review := decision.HumanReview{
		ReviewerID:   rv.ID,
		ReviewerName: rv.Name,
		ReviewerRole: rv.Role,
		Timestamp:    now,
		Action:       req.Action,
		Comments:     req.Comments,
	}

	var detail string
	switch req.Action {
	case decision.ActionApprove:
		rec.Status = decision.StatusApproved
		rec.FinalDecision = rec.Recommendation
		detail = "recommendation approved"
	case decision.ActionReject:
		rec.Status = decision.StatusRejected
		rec.FinalDecision = nil
		detail = "recommendation rejected"
	case decision.ActionOverride:
		rec.Status = decision.StatusOverridden
		rec.FinalDecision = req.ReplacementRecommendation
		review.OverrideReason = req.OverrideReason
		review.ReplacementRecommendation = req.ReplacementRecommendation
		detail = "recommendation overridden: " + req.OverrideReason
	case decision.ActionEscalate:
		rec.Status = decision.StatusEscalated
		rec.RequiredReviewLevel = decision.LevelDirectorApproval
		detail = fmt.Sprintf("escalated to %s", rec.RequiredReviewLevel)
	}

	rec.AppendReview(review, detail)
	rec.UpdatedAt = now

	if err := s.store.UpdateDecision(ctx, rec); err != nil {
		if s.metrics != nil && errors.Is(err, domain.ErrConflict) {
			s.metrics.ReviewConflicts.Add(ctx, 1)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReviewsProcessed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("review.action", string(req.Action)),
		))
		if rec.Status.Terminal() {
			s.metrics.ResolutionTime.Record(ctx, now.Sub(rec.CreatedAt).Seconds())
		}
	}

	slog.Info("review applied",
		"decision_id", rec.ID, "reviewer_id", rv.ID,
		"action", req.Action, "status", rec.Status)

	if rec.Status == decision.StatusEscalated {
		s.publish(ctx, messagequeue.SubjectDecisionEscalated, messagequeue.DecisionEscalatedPayload{
			DecisionID:  rec.ID,
			ReviewLevel: string(rec.RequiredReviewLevel),
			ReviewerID:  rv.ID,
		})
	} else {
		s.publish(ctx, messagequeue.SubjectDecisionResolved, messagequeue.DecisionResolvedPayload{
			DecisionID: rec.ID,
			Status:     string(rec.Status),
			ReviewerID: rv.ID,
		})
	}

	return &decision.ReviewResult{
		Status:        rec.Status,
		FinalDecision: rec.FinalDecision,
	}, nil
}

// PendingReviews returns the decisions awaiting review that the reviewer's
// authority tier covers, oldest first.
func (s *OversightService) PendingReviews(ctx context.Context, reviewerID string) ([]decision.Record, error) {
	rv, err := s.dir.Lookup(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	return s.store.ListPendingDecisions(ctx, rv.Tier.CoveredLevels())
}

// GetDecision returns the full record including its reviews and audit trail.
func (s *OversightService) GetDecision(ctx context.Context, id string) (*decision.Record, error) {
	return s.store.GetDecision(ctx, id)
}

// ListByStatus returns recent decisions in the given status for the
// dashboard, newest first. limit <= 0 returns all.
func (s *OversightService) ListByStatus(ctx context.Context, status decision.Status, limit int) ([]decision.Record, error) {
	if !decision.ValidStatuses[status] {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	return s.store.ListDecisionsByStatus(ctx, status, limit)
}

// publish sends a decision event, logging failures without propagating them.
func (s *OversightService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event failed", "subject", subject, "error", err)
	}
}
