// Package service contains application services.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
	"github.com/arbiterhq/arbiter/internal/resilience"
)

// NotificationService fans a notification out to all registered notifiers.
// Sends run concurrently, bounded by a semaphore, and each provider sits
// behind its own circuit breaker so one flapping webhook cannot slow or
// starve the others. Delivery is best-effort: failures are logged and never
// reach the caller.
type NotificationService struct {
	mu            sync.RWMutex
	notifiers     []notifier.Notifier
	breakers      map[string]*resilience.Breaker
	sem           *semaphore.Weighted
	enabledEvents map[string]bool

	maxFailures int
	cooldown    time.Duration
}

// NewNotificationService creates a NotificationService with the given
// notifiers and notify configuration. cfg.Events lists the enabled event
// types (e.g. "decision.queued", "decision.escalated"); nil or empty enables
// all events.
func NewNotificationService(notifiers []notifier.Notifier, cfg config.Notify, breakerCfg config.Breaker) *NotificationService {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	maxFailures := breakerCfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	timeout := breakerCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	enabled := make(map[string]bool, len(cfg.Events))
	for _, e := range cfg.Events {
		enabled[e] = true
	}

	breakers := make(map[string]*resilience.Breaker, len(notifiers))
	for _, p := range notifiers {
		breakers[p.Name()] = resilience.NewBreaker(maxFailures, timeout)
	}

	return &NotificationService{
		notifiers:     notifiers,
		breakers:      breakers,
		sem:           semaphore.NewWeighted(maxConcurrent),
		enabledEvents: enabled,
		maxFailures:   maxFailures,
		cooldown:      timeout,
	}
}

// ReplaceProviders swaps in a new provider set with fresh breakers. Called
// after a secret reload so a rotated webhook URL takes effect without a
// restart. In-flight sends finish against the old providers.
func (s *NotificationService) ReplaceProviders(notifiers []notifier.Notifier) {
	breakers := make(map[string]*resilience.Breaker, len(notifiers))
	for _, p := range notifiers {
		breakers[p.Name()] = resilience.NewBreaker(s.maxFailures, s.cooldown)
	}

	s.mu.Lock()
	s.notifiers = notifiers
	s.breakers = breakers
	s.mu.Unlock()
}

// Notify sends a notification to all registered notifiers and waits for the
// sends to finish. Errors are logged but do not interrupt delivery to other
// notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if len(s.enabledEvents) > 0 && !s.enabledEvents[n.Event] {
		return
	}

	s.mu.RLock()
	notifiers := s.notifiers
	breakers := s.breakers
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, provider := range notifiers {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			slog.Warn("notification dispatch canceled", "provider", provider.Name(), "error", err)
			break
		}
		wg.Add(1)
		go func(p notifier.Notifier) {
			defer wg.Done()
			defer s.sem.Release(1)

			breaker := breakers[p.Name()]
			err := breaker.Execute(func() error {
				return p.Send(ctx, n)
			})
			if errors.Is(err, resilience.ErrCircuitOpen) {
				slog.Debug("notification provider suspended",
					"provider", p.Name(),
					"breaker", breaker.State(),
					"event", n.Event,
				)
				return
			}
			if err != nil {
				slog.Warn("notification send failed",
					"provider", p.Name(),
					"event", n.Event,
					"title", n.Title,
					"error", err,
				)
				return
			}
			slog.Debug("notification sent", "provider", p.Name(), "title", n.Title)
		}(provider)
	}
	wg.Wait()
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifiers)
}
