package decision

import "time"

// Audit trail actions recorded by the engine itself, alongside the four
// reviewer actions.
const (
	AuditAutoApproved    = "auto_approved"
	AuditQueuedForReview = "queued_for_review"
)

// SystemActor identifies engine-originated audit entries.
const SystemActor = "system"

// AuditEntry is one immutable line in a record's history. Entries are only
// ever appended, never edited or removed.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
}

// AppendAudit adds an entry to the record's audit trail, preserving
// insertion order. The caller commits the append together with the owning
// state transition in a single store write.
func (r *Record) AppendAudit(e AuditEntry) {
	r.AuditTrail = append(r.AuditTrail, e)
}

// AppendReview adds a human review and its matching audit entry. The audit
// trail stays a superset of the review list: every review produces exactly
// one audit line, attributed to the reviewer.
func (r *Record) AppendReview(review HumanReview, detail string) {
	r.Reviews = append(r.Reviews, review)
	r.AuditTrail = append(r.AuditTrail, AuditEntry{
		Timestamp: review.Timestamp,
		Action:    string(review.Action),
		Actor:     review.ReviewerID,
		Detail:    detail,
	})
}
