package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

// DispatchService consumes decision events from the queue and drives the
// outbound surfaces: notifier fan-out and the websocket dashboard feed.
// Delivery runs off the queue so webhook and SMTP round-trips never sit on
// the submission or review path.
type DispatchService struct {
	queue   messagequeue.Queue
	notify  *NotificationService
	caster  broadcast.Broadcaster
	cancels []func()
}

// NewDispatchService creates a dispatcher. caster may be nil when no
// websocket hub is running.
func NewDispatchService(queue messagequeue.Queue, notify *NotificationService, caster broadcast.Broadcaster) *DispatchService {
	return &DispatchService{
		queue:  queue,
		notify: notify,
		caster: caster,
	}
}

// Start subscribes to the decision subjects. On failure, subscriptions made
// so far are canceled before the error is returned.
func (s *DispatchService) Start(ctx context.Context) error {
	subjects := []struct {
		subject string
		handler messagequeue.Handler
	}{
		{messagequeue.SubjectDecisionQueued, s.handleQueued},
		{messagequeue.SubjectDecisionResolved, s.handleResolved},
		{messagequeue.SubjectDecisionEscalated, s.handleEscalated},
	}

	for _, sub := range subjects {
		cancel, err := s.queue.Subscribe(ctx, sub.subject, sub.handler)
		if err != nil {
			s.Stop()
			return fmt.Errorf("subscribe %s: %w", sub.subject, err)
		}
		s.cancels = append(s.cancels, cancel)
	}

	slog.Info("dispatcher started", "subjects", len(subjects))
	return nil
}

// Stop cancels all queue subscriptions.
func (s *DispatchService) Stop() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

func (s *DispatchService) handleQueued(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.DecisionQueuedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode queued event: %w", err)
	}

	s.broadcast(ctx, ws.EventDecisionQueued, ws.DecisionQueuedEvent{
		DecisionID:      p.DecisionID,
		SourceSystem:    p.SourceSystem,
		DecisionType:    p.DecisionType,
		ReviewLevel:     p.ReviewLevel,
		ConfidenceScore: p.ConfidenceScore,
	})

	level := notifier.LevelInfo
	if p.ReviewLevel == string(decision.LevelDirectorApproval) {
		level = notifier.LevelWarning
	}
	s.notify.Notify(ctx, notifier.Notification{
		Title: "Decision awaiting review",
		Message: fmt.Sprintf("A %s decision from %s is waiting for %s (confidence %.2f).",
			p.DecisionType, p.SourceSystem, levelLabel(p.ReviewLevel), p.ConfidenceScore),
		Level:       level,
		Event:       ws.EventDecisionQueued,
		DecisionID:  p.DecisionID,
		ReviewLevel: p.ReviewLevel,
	})
	return nil
}

func (s *DispatchService) handleResolved(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.DecisionResolvedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode resolved event: %w", err)
	}

	s.broadcast(ctx, ws.EventDecisionResolved, ws.DecisionResolvedEvent{
		DecisionID:   p.DecisionID,
		Status:       p.Status,
		ReviewerID:   p.ReviewerID,
		AutoApproved: p.AutoApproved,
	})

	var message string
	if p.AutoApproved {
		message = fmt.Sprintf("Decision %s was approved automatically.", p.DecisionID)
	} else {
		message = fmt.Sprintf("Decision %s was %s by reviewer %s.", p.DecisionID, p.Status, p.ReviewerID)
	}
	// Approvals read as green, rejections and overrides as attention.
	level := notifier.LevelSuccess
	if p.Status != string(decision.StatusApproved) {
		level = notifier.LevelWarning
	}
	s.notify.Notify(ctx, notifier.Notification{
		Title:      "Decision resolved",
		Message:    message,
		Level:      level,
		Event:      ws.EventDecisionResolved,
		DecisionID: p.DecisionID,
	})
	return nil
}

func (s *DispatchService) handleEscalated(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.DecisionEscalatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode escalated event: %w", err)
	}

	s.broadcast(ctx, ws.EventDecisionEscalated, ws.DecisionEscalatedEvent{
		DecisionID:  p.DecisionID,
		ReviewLevel: p.ReviewLevel,
		ReviewerID:  p.ReviewerID,
	})

	s.notify.Notify(ctx, notifier.Notification{
		Title: "Decision escalated",
		Message: fmt.Sprintf("Decision %s was escalated to %s by reviewer %s.",
			p.DecisionID, levelLabel(p.ReviewLevel), p.ReviewerID),
		Level:       notifier.LevelWarning,
		Event:       ws.EventDecisionEscalated,
		DecisionID:  p.DecisionID,
		ReviewLevel: p.ReviewLevel,
	})
	return nil
}

func (s *DispatchService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.caster == nil {
		return
	}
	s.caster.BroadcastEvent(ctx, eventType, payload)
}

// levelLabel renders a review level for human-facing messages.
func levelLabel(level string) string {
	return strings.ReplaceAll(level, "_", " ")
}
