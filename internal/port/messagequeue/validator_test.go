package messagequeue

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    string
		wantErr string // substring, empty means valid
	}{
		{
			name:    "queued with full payload",
			subject: SubjectDecisionQueued,
			data:    `{"decision_id":"d1","source_system":"exemption-ai","decision_type":"routine_exemption","review_level":"staff_review","confidence_score":0.82}`,
		},
		{
			name:    "resolved with reviewer",
			subject: SubjectDecisionResolved,
			data:    `{"decision_id":"d1","status":"approved","reviewer_id":"r1"}`,
		},
		{
			name:    "resolved auto approval without reviewer",
			subject: SubjectDecisionResolved,
			data:    `{"decision_id":"d1","status":"approved","auto_approved":true}`,
		},
		{
			name:    "escalated",
			subject: SubjectDecisionEscalated,
			data:    `{"decision_id":"d1","review_level":"director_approval","reviewer_id":"r1"}`,
		},
		{
			name:    "queued missing decision_id",
			subject: SubjectDecisionQueued,
			data:    `{"review_level":"staff_review","confidence_score":0.5}`,
			wantErr: "missing required field decision_id",
		},
		{
			name:    "queued missing review_level",
			subject: SubjectDecisionQueued,
			data:    `{"decision_id":"d1","confidence_score":0.5}`,
			wantErr: "missing required field review_level",
		},
		{
			name:    "resolved missing status",
			subject: SubjectDecisionResolved,
			data:    `{"decision_id":"d1"}`,
			wantErr: "missing required field status",
		},
		{
			name:    "escalated empty object",
			subject: SubjectDecisionEscalated,
			data:    `{}`,
			wantErr: "missing required field decision_id",
		},
		{
			name:    "wrong field type",
			subject: SubjectDecisionQueued,
			data:    `{"decision_id":"d1","review_level":"staff_review","confidence_score":"very high"}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "truncated JSON",
			subject: SubjectDecisionQueued,
			data:    `{"decision_id": `,
			wantErr: "invalid JSON",
		},
		{
			name:    "unknown subject passes on any valid JSON",
			subject: "decisions.future",
			data:    `{"anything":"goes"}`,
		},
		{
			name:    "unknown subject still rejects broken JSON",
			subject: "decisions.future",
			data:    `not-json`,
			wantErr: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.data))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
