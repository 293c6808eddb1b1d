// Package decision defines the domain model for the AI decision oversight
// workflow: machine-generated recommendations held as governed records that
// move through classification, review, and an append-only audit trail.
package decision

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
)

// Status represents the governance state of a decision record.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusOverridden    Status = "overridden"
	StatusEscalated     Status = "escalated"
)

// ValidStatuses enumerates every accepted status value.
var ValidStatuses = map[Status]bool{
	StatusPendingReview: true,
	StatusApproved:      true,
	StatusRejected:      true,
	StatusOverridden:    true,
	StatusEscalated:     true,
}

// Terminal reports whether the status accepts no further review actions.
// Escalated is not terminal: the record re-enters review at the raised level.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusOverridden:
		return true
	}
	return false
}

// ReviewAction is a single reviewer verb applied to a pending decision.
type ReviewAction string

const (
	ActionApprove  ReviewAction = "approve"
	ActionReject   ReviewAction = "reject"
	ActionOverride ReviewAction = "override"
	ActionEscalate ReviewAction = "escalate"
)

// ValidActions enumerates every accepted review action.
var ValidActions = map[ReviewAction]bool{
	ActionApprove:  true,
	ActionReject:   true,
	ActionOverride: true,
	ActionEscalate: true,
}

// Record is the persistent unit of governance: one AI-produced
// recommendation together with its review history and audit trail.
type Record struct {
	ID                  string            `json:"id"`
	SourceSystem        string            `json:"source_system"`
	DecisionType        string            `json:"decision_type"`
	ConfidenceScore     float64           `json:"confidence_score"`
	Recommendation      json.RawMessage   `json:"recommendation"`
	SupportingEvidence  []json.RawMessage `json:"supporting_evidence,omitempty"`
	RelatedEntityID     string            `json:"related_entity_id,omitempty"`
	FinancialImpact     float64           `json:"financial_impact,omitempty"`
	Status              Status            `json:"status"`
	RequiredReviewLevel ReviewLevel       `json:"required_review_level"`
	FinalDecision       json.RawMessage   `json:"final_decision,omitempty"`
	Reviews             []HumanReview     `json:"reviews"`
	AuditTrail          []AuditEntry      `json:"audit_trail"`
	Version             int               `json:"version"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// HumanReview is one reviewer's action against a record. Identity fields are
// captured from the directory at action time and never re-resolved, so the
// history stays stable if the reviewer's role later changes.
type HumanReview struct {
	ReviewerID                string          `json:"reviewer_id"`
	ReviewerName              string          `json:"reviewer_name"`
	ReviewerRole              string          `json:"reviewer_role"`
	Timestamp                 time.Time       `json:"timestamp"`
	Action                    ReviewAction    `json:"action"`
	Comments                  string          `json:"comments,omitempty"`
	OverrideReason            string          `json:"override_reason,omitempty"`
	ReplacementRecommendation json.RawMessage `json:"replacement_recommendation,omitempty"`
}

// SubmitRequest holds the fields a producing system supplies for a new
// decision. Recommendation and evidence are opaque to the engine.
type SubmitRequest struct {
	SourceSystem       string            `json:"source_system"`
	DecisionType       string            `json:"decision_type"`
	ConfidenceScore    float64           `json:"confidence_score"`
	Recommendation     json.RawMessage   `json:"recommendation"`
	SupportingEvidence []json.RawMessage `json:"supporting_evidence,omitempty"`
	RelatedEntityID    string            `json:"related_entity_id,omitempty"`
	FinancialImpact    float64           `json:"financial_impact,omitempty"`
}

// Validate checks required fields and value ranges.
func (r *SubmitRequest) Validate() error {
	if r.SourceSystem == "" {
		return fmt.Errorf("%w: source_system is required", domain.ErrValidation)
	}
	if r.DecisionType == "" {
		return fmt.Errorf("%w: decision_type is required", domain.ErrValidation)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence_score must be in [0,1], got %v", domain.ErrValidation, r.ConfidenceScore)
	}
	if len(r.Recommendation) == 0 {
		return fmt.Errorf("%w: recommendation is required", domain.ErrValidation)
	}
	if r.FinancialImpact < 0 {
		return fmt.Errorf("%w: financial_impact must not be negative", domain.ErrValidation)
	}
	return nil
}

// ReviewRequest holds the fields a reviewer supplies for one review action.
type ReviewRequest struct {
	Action                    ReviewAction    `json:"action"`
	Comments                  string          `json:"comments,omitempty"`
	OverrideReason            string          `json:"override_reason,omitempty"`
	ReplacementRecommendation json.RawMessage `json:"replacement_recommendation,omitempty"`
}

// Validate checks the action value and the override-specific requirements.
func (r *ReviewRequest) Validate() error {
	if !ValidActions[r.Action] {
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, r.Action)
	}
	if r.Action == ActionOverride {
		if r.OverrideReason == "" {
			return fmt.Errorf("%w: override requires override_reason", domain.ErrValidation)
		}
		if len(r.ReplacementRecommendation) == 0 {
			return fmt.Errorf("%w: override requires replacement_recommendation", domain.ErrValidation)
		}
	}
	return nil
}

// ReviewResult is returned to the caller after a review action is applied.
type ReviewResult struct {
	Status        Status          `json:"status"`
	FinalDecision json.RawMessage `json:"final_decision,omitempty"`
}
