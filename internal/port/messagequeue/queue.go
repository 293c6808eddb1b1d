// Package messagequeue defines the event bus port for decision lifecycle
// events, together with the subjects and payload schemas that flow over it.
package messagequeue

import "context"

// Handler processes one message. The context carries request-scoped values
// such as the request ID propagated from the original submission. Returning
// an error triggers redelivery; messages that exhaust their redeliveries, or
// that fail schema validation outright, move to the subject's dead letter
// queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port for publishing and consuming decision events. Delivery
// is at-least-once, so handlers must tolerate duplicates.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain processes in-flight messages and refuses new ones, then closes.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for the decision oversight event stream.
const (
	// SubjectDecisionQueued carries decisions waiting for human review.
	// Consumed by the notification dispatcher.
	SubjectDecisionQueued = "decisions.queued"

	// SubjectDecisionResolved carries terminal outcomes (approved, rejected,
	// overridden), including auto-approvals.
	SubjectDecisionResolved = "decisions.resolved"

	// SubjectDecisionEscalated carries escalations raised to director level.
	SubjectDecisionEscalated = "decisions.escalated"
)
