// Package circuit implements the global failure-rate tripwire that shields
// the document store during systemic outages. One shared instance guards the
// public submission path; it is not a per-source punishment mechanism.
package circuit

import (
	"context"
	"sync"
	"time"

	"laudo/internal/platform/metrics"
	"laudo/pkg/requestcontext"
)

// State is the breaker's admission state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 15 * time.Minute
)

// Breaker is a mutex-guarded state machine. Transitions:
// closed→open on the failure threshold, open→half-open once the cooldown
// elapses (checked inside Allow), half-open→closed on a recorded success.
//
// Entering half-open clears the failure counter before any probe resolves,
// so a single admitted-but-unresolved request already looks reset. This
// mirrors the portal's long-standing behavior; tightening it to require a
// successful probe would change recovery timing for every caller.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	lastTransition   time.Time
	failureThreshold int
	cooldown         time.Duration
	metrics          *metrics.Metrics
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) { b.failureThreshold = n }
}

func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) { b.cooldown = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Breaker) { b.metrics = m }
}

func New(opts ...Option) *Breaker {
	b := &Breaker{
		state:            StateClosed,
		failureThreshold: defaultFailureThreshold,
		cooldown:         defaultCooldown,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a request may proceed. While open it first checks
// whether the cooldown has elapsed; if so the breaker moves to half-open,
// the failure counter is cleared, and the request is admitted as a probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}

	now := requestcontext.Now(ctx)
	if now.Sub(b.lastTransition) >= b.cooldown {
		b.transition(StateHalfOpen, now)
		b.failures = 0
		return true
	}
	return false
}

// RecordFailure counts one systemic failure. Crossing the threshold while
// closed or half-open opens the breaker.
func (b *Breaker) RecordFailure(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		return
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.transition(StateOpen, requestcontext.Now(ctx))
	}
}

// RecordSuccess clears the failure counter and closes a half-open breaker.
func (b *Breaker) RecordSuccess(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.transition(StateClosed, requestcontext.Now(ctx))
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State, now time.Time) {
	b.state = to
	b.lastTransition = now
	b.metrics.RecordBreakerTransition(string(to))
	switch to {
	case StateClosed:
		b.metrics.SetBreakerState(0)
	case StateHalfOpen:
		b.metrics.SetBreakerState(1)
	case StateOpen:
		b.metrics.SetBreakerState(2)
	}
}
