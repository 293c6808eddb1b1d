// Package resilience provides failure isolation for outbound provider calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker is a circuit breaker guarding one notification provider. A run of
// consecutive failures trips it; while tripped, Execute rejects immediately
// so a dead webhook endpoint cannot hold fan-out permits for a full HTTP
// timeout on every decision event. Once the cooldown elapses the next call
// probes the provider: success closes the breaker, failure re-trips it.
type Breaker struct {
	mu sync.Mutex

	maxFailures int
	cooldown    time.Duration

	failures  int
	openUntil time.Time // zero while closed

	now func() time.Time
}

// NewBreaker returns a closed breaker that trips after maxFailures
// consecutive failures and rejects calls for the given cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is open, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()
	b.record(err == nil)
	return err
}

// State reports "closed", "open", or "half_open" for logs and health checks.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.openUntil.IsZero():
		return "closed"
	case b.now().Before(b.openUntil):
		return "open"
	default:
		return "half_open"
	}
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.openUntil.IsZero() && b.now().Before(b.openUntil) {
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		b.failures = 0
		b.openUntil = time.Time{}
		return
	}

	b.failures++
	probing := !b.openUntil.IsZero()
	if probing || b.failures >= b.maxFailures {
		b.openUntil = b.now().Add(b.cooldown)
	}
}
