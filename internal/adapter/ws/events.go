package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventDecisionQueued    = "decision.queued"
	EventDecisionResolved  = "decision.resolved"
	EventDecisionEscalated = "decision.escalated"
)

// DecisionQueuedEvent is broadcast when a decision enters the review queue.
type DecisionQueuedEvent struct {
	DecisionID      string  `json:"decision_id"`
	SourceSystem    string  `json:"source_system"`
	DecisionType    string  `json:"decision_type"`
	ReviewLevel     string  `json:"review_level"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// DecisionResolvedEvent is broadcast when a decision reaches a terminal
// status, including auto-approvals.
type DecisionResolvedEvent struct {
	DecisionID   string `json:"decision_id"`
	Status       string `json:"status"`
	ReviewerID   string `json:"reviewer_id,omitempty"`
	AutoApproved bool   `json:"auto_approved,omitempty"`
}

// DecisionEscalatedEvent is broadcast when a reviewer escalates a decision.
type DecisionEscalatedEvent struct {
	DecisionID  string `json:"decision_id"`
	ReviewLevel string `json:"review_level"`
	ReviewerID  string `json:"reviewer_id"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
