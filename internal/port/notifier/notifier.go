// Package notifier defines the notification port (interface) and capabilities.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Severity levels for Notification.Level. Providers map these onto their
// own presentation (Slack attachment colors, Discord embed colors).
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification is the payload sent through a Notifier. Delivery is
// best-effort: the oversight engine never blocks or fails on it.
type Notification struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Level       string `json:"level"` // one of the Level constants
	Event       string `json:"event"` // e.g. "decision.queued", "decision.escalated"
	DecisionID  string `json:"decision_id,omitempty"`
	ReviewLevel string `json:"review_level,omitempty"`
}

// Capabilities declares which features a notifier supports.
type Capabilities struct {
	RichFormatting bool `json:"rich_formatting"`
	Threads        bool `json:"threads"`
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack", "email").
	Name() string

	// Capabilities returns what this notifier supports.
	Capabilities() Capabilities

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
