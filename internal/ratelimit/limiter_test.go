package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akshaya-auth/internal/bucketing"
)

func newTestLimiter(window time.Duration, max int) *Limiter {
	return NewLimiter(window, max, bucketing.NewManager(64, 16))
}

func TestAllowWithinWindow(t *testing.T) {
	l := newTestLimiter(60*time.Second, 3)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Three requests spread over 10 seconds are all admitted
	require.True(t, l.Allow("10.0.0.1", base))
	require.True(t, l.Allow("10.0.0.1", base.Add(4*time.Second)))
	require.True(t, l.Allow("10.0.0.1", base.Add(9*time.Second)))

	// The fourth before the window elapses is denied
	require.False(t, l.Allow("10.0.0.1", base.Add(30*time.Second)))
}

func TestWindowSlidesPastEarliestRequest(t *testing.T) {
	l := newTestLimiter(60*time.Second, 3)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.Allow("10.0.0.1", base))
	require.True(t, l.Allow("10.0.0.1", base.Add(time.Second)))
	require.True(t, l.Allow("10.0.0.1", base.Add(2*time.Second)))
	require.False(t, l.Allow("10.0.0.1", base.Add(3*time.Second)))

	// Once the earliest request ages out, capacity frees up
	require.True(t, l.Allow("10.0.0.1", base.Add(61*time.Second)))
}

func TestDenialDoesNotConsumeCapacity(t *testing.T) {
	l := newTestLimiter(60*time.Second, 2)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.Allow("a", base))
	require.True(t, l.Allow("a", base))

	// Repeated denials must not extend the lockout
	for i := 0; i < 10; i++ {
		require.False(t, l.Allow("a", base.Add(10*time.Second)))
	}
	require.True(t, l.Allow("a", base.Add(61*time.Second)))
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l := newTestLimiter(60*time.Second, 1)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.Allow("a", base))
	require.False(t, l.Allow("a", base))

	// Denying "a" never affects "b"
	assert.True(t, l.Allow("b", base))
}

func TestSweepRemovesOnlyIdleIdentities(t *testing.T) {
	l := newTestLimiter(60*time.Second, 5)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.Allow("stale", base))
	require.True(t, l.Allow("fresh", base.Add(50*time.Second)))
	require.Equal(t, 2, l.Tracked())

	removed := l.Sweep(base.Add(70 * time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Tracked())

	// The surviving identity still has its in-window request counted
	require.True(t, l.Allow("fresh", base.Add(71*time.Second)))
}

func TestConcurrentSameIdentity(t *testing.T) {
	const workers = 32
	l := newTestLimiter(60*time.Second, 10)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("shared", now)
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	// Read-check-increment is atomic per identity, so exactly max pass
	assert.Equal(t, 10, n)
}

func TestConcurrentDistinctIdentities(t *testing.T) {
	l := newTestLimiter(60*time.Second, 1)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		identity := fmt.Sprintf("198.51.100.%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, l.Allow(identity, now))
		}()
	}
	wg.Wait()
}
