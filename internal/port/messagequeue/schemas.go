package messagequeue

// DecisionQueuedPayload is the schema for decisions.queued messages.
type DecisionQueuedPayload struct {
	DecisionID      string  `json:"decision_id"`
	SourceSystem    string  `json:"source_system"`
	DecisionType    string  `json:"decision_type"`
	ReviewLevel     string  `json:"review_level"`
	ConfidenceScore float64 `json:"confidence_score"`
	RelatedEntityID string  `json:"related_entity_id,omitempty"`
}

// DecisionResolvedPayload is the schema for decisions.resolved messages.
type DecisionResolvedPayload struct {
	DecisionID   string `json:"decision_id"`
	Status       string `json:"status"`
	ReviewerID   string `json:"reviewer_id,omitempty"`
	AutoApproved bool   `json:"auto_approved,omitempty"`
}

// DecisionEscalatedPayload is the schema for decisions.escalated messages.
type DecisionEscalatedPayload struct {
	DecisionID  string `json:"decision_id"`
	ReviewLevel string `json:"review_level"`
	ReviewerID  string `json:"reviewer_id"`
}
