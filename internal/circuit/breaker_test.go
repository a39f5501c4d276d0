package circuit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"laudo/pkg/requestcontext"
)

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestBreaker_InitialState(t *testing.T) {
	b := New()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow(context.Background()))
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(WithFailureThreshold(5))
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		b.RecordFailure(ctxAt(now))
		assert.Equal(t, StateClosed, b.State())
	}

	b.RecordFailure(ctxAt(now))
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow(ctxAt(now)))
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := New(WithFailureThreshold(1), WithCooldown(15*time.Minute))
	opened := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	b.RecordFailure(ctxAt(opened))
	assert.Equal(t, StateOpen, b.State())

	// Before the cooldown every check is rejected.
	assert.False(t, b.Allow(ctxAt(opened.Add(14*time.Minute))))
	assert.Equal(t, StateOpen, b.State())

	// After the cooldown the next check is admitted as a probe.
	assert.True(t, b.Allow(ctxAt(opened.Add(15*time.Minute))))
	assert.Equal(t, StateHalfOpen, b.State())
}

// Entering half-open clears the failure counter before any probe resolves.
// This is deliberate: the counter reset is tied to the transition, not to a
// successful probe.
func TestBreaker_HalfOpenClearsFailureCounter(t *testing.T) {
	b := New(WithFailureThreshold(2), WithCooldown(15*time.Minute))
	opened := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	b.RecordFailure(ctxAt(opened))
	b.RecordFailure(ctxAt(opened))
	assert.Equal(t, StateOpen, b.State())

	probe := opened.Add(15 * time.Minute)
	assert.True(t, b.Allow(ctxAt(probe)))
	assert.Equal(t, StateHalfOpen, b.State())

	// The counter restarted at zero: one new failure is below the
	// threshold of two, so the breaker stays half-open.
	b.RecordFailure(ctxAt(probe))
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure(ctxAt(probe))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_SuccessClosesHalfOpen(t *testing.T) {
	b := New(WithFailureThreshold(1), WithCooldown(15*time.Minute))
	opened := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	b.RecordFailure(ctxAt(opened))
	probe := opened.Add(15 * time.Minute)
	assert.True(t, b.Allow(ctxAt(probe)))

	b.RecordSuccess(ctxAt(probe))
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow(ctxAt(probe)))
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(WithFailureThreshold(3))
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	b.RecordFailure(ctxAt(now))
	b.RecordFailure(ctxAt(now))
	b.RecordSuccess(ctxAt(now))

	// The reset means two more failures stay below the threshold.
	b.RecordFailure(ctxAt(now))
	b.RecordFailure(ctxAt(now))
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure(ctxAt(now))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_ExactCooldownBoundary(t *testing.T) {
	b := New(WithFailureThreshold(1), WithCooldown(900*time.Second))
	opened := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	b.RecordFailure(ctxAt(opened))
	assert.False(t, b.Allow(ctxAt(opened.Add(899*time.Second))))
	assert.True(t, b.Allow(ctxAt(opened.Add(900*time.Second))))
}
