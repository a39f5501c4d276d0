package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementRestartsElapsedWindow(t *testing.T) {
	ctx := context.Background()
	store := New()
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	count, start, err := store.Increment(ctx, "src", base, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, base, start)

	count, _, err = store.Increment(ctx, "src", base.Add(30*time.Minute), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Past the window: counter restarts and the window start moves.
	count, start, err = store.Increment(ctx, "src", base.Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, base.Add(2*time.Hour), start)
}

func TestBlockLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	_, blocked, err := store.IsBlocked(ctx, "src", base)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, store.SetBlock(ctx, "src", base, 15*time.Minute))

	remaining, blocked, err := store.IsBlocked(ctx, "src", base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 10*time.Minute, remaining)

	// Block clears at its deadline.
	_, blocked, err = store.IsBlocked(ctx, "src", base.Add(15*time.Minute))
	require.NoError(t, err)
	assert.False(t, blocked)
}

// TestConcurrentIncrements verifies the read-increment-write is race-free:
// N concurrent increments for one source must be counted exactly N times.
func TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()
	const goroutines = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.Increment(ctx, "src", now, time.Hour)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _, err := store.Increment(ctx, "src", now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, goroutines+1, count)
}
