// Package broadcast defines the port for pushing decision lifecycle
// events to connected review dashboards.
package broadcast

import "context"

// Broadcaster fans an event out to every connected client. The dispatch
// service publishes queued, resolved, and escalated decisions through it;
// the WebSocket hub under internal/adapter/ws is the live implementation.
//
// Delivery is fire-and-forget. Slow or disconnected clients are the
// implementation's problem and must never block the caller.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
