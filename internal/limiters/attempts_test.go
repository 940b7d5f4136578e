package limiters

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testAttemptConfig() AttemptConfig {
	return AttemptConfig{
		Threshold:       5,
		Window:          5 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
}

func TestAttemptTrackerLocksAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	tracker := NewAttemptTracker(testAttemptConfig(), clock.Now)

	for i := 0; i < 4; i++ {
		assert.False(t, tracker.RecordFailure("user@x.com", "1.2.3.4"))
		assert.False(t, tracker.IsLocked("user@x.com", "1.2.3.4"))
		clock.Advance(10 * time.Second)
	}
	assert.Equal(t, 1, tracker.RemainingAttempts("user@x.com", "1.2.3.4"))

	assert.True(t, tracker.RecordFailure("user@x.com", "1.2.3.4"))
	assert.True(t, tracker.IsLocked("user@x.com", "1.2.3.4"))
	assert.Equal(t, 0, tracker.RemainingAttempts("user@x.com", "1.2.3.4"))
	assert.Equal(t, 15*time.Minute, tracker.LockoutRemaining("user@x.com", "1.2.3.4"))

	// Other addresses are unaffected.
	assert.False(t, tracker.IsLocked("user@x.com", "5.6.7.8"))

	clock.Advance(15*time.Minute - time.Second)
	assert.True(t, tracker.IsLocked("user@x.com", "1.2.3.4"))

	clock.Advance(time.Second)
	assert.False(t, tracker.IsLocked("user@x.com", "1.2.3.4"))
	assert.Equal(t, 5, tracker.RemainingAttempts("user@x.com", "1.2.3.4"))
}

func TestAttemptTrackerLockoutSurvivesFurtherFailuresAndReset(t *testing.T) {
	clock := newFakeClock()
	tracker := NewAttemptTracker(testAttemptConfig(), clock.Now)

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("id", "addr")
	}
	require.True(t, tracker.IsLocked("id", "addr"))

	// Past the attempt window but inside the lockout: a failure must not reopen the pair.
	clock.Advance(6 * time.Minute)
	tracker.RecordFailure("id", "addr")
	assert.True(t, tracker.IsLocked("id", "addr"))
	assert.Equal(t, 9*time.Minute, tracker.LockoutRemaining("id", "addr"))
}

func TestAttemptTrackerWindowRestartsCounter(t *testing.T) {
	clock := newFakeClock()
	tracker := NewAttemptTracker(testAttemptConfig(), clock.Now)

	for i := 0; i < 4; i++ {
		tracker.RecordFailure("id", "addr")
	}
	clock.Advance(5*time.Minute + time.Second)

	assert.Equal(t, 5, tracker.RemainingAttempts("id", "addr"))
	tracker.RecordFailure("id", "addr")
	assert.False(t, tracker.IsLocked("id", "addr"))
	assert.Equal(t, 4, tracker.RemainingAttempts("id", "addr"))
}

func TestAttemptTrackerDistributedAttack(t *testing.T) {
	clock := newFakeClock()
	cfg := testAttemptConfig()
	tracker := NewAttemptTracker(cfg, clock.Now)

	var flagged atomic.Int32
	tracker.OnDistributedAttack = func(identity string, failures int) {
		assert.Equal(t, "victim@x.com", identity)
		assert.Equal(t, 16, failures)
		flagged.Add(1)
	}

	for i := 0; i < cfg.Threshold*4; i++ {
		tracker.RecordFailure("victim@x.com", fmt.Sprintf("10.0.0.%d", i))
		if i < 3*cfg.Threshold {
			assert.False(t, tracker.IsDistributedAttack("victim@x.com"), "attempt %d", i)
		}
	}

	assert.True(t, tracker.IsDistributedAttack("victim@x.com"))
	assert.Equal(t, int32(1), flagged.Load())
	assert.Len(t, tracker.Addresses("victim@x.com"), cfg.Threshold*4)
	assert.False(t, tracker.IsDistributedAttack("someone-else"))

	// The flag is advisory: no individual address is locked.
	assert.False(t, tracker.IsLocked("victim@x.com", "10.0.0.1"))
}

func TestAttemptTrackerResetClearsGlobalOnlyWhenLastAddress(t *testing.T) {
	tracker := NewAttemptTracker(testAttemptConfig(), newFakeClock().Now)

	for i := 0; i < 8; i++ {
		tracker.RecordFailure("id", "a")
		tracker.RecordFailure("id", "b")
	}
	require.True(t, tracker.IsDistributedAttack("id"))

	tracker.Reset("id", "a")
	assert.True(t, tracker.IsDistributedAttack("id"))
	assert.True(t, tracker.IsLocked("id", "b"))

	tracker.Reset("id", "b")
	assert.False(t, tracker.IsDistributedAttack("id"))
	assert.Empty(t, tracker.Addresses("id"))
}

func TestAttemptTrackerConcurrentFailuresAreNotLost(t *testing.T) {
	cfg := testAttemptConfig()
	cfg.Threshold = 1000
	tracker := NewAttemptTracker(cfg, newFakeClock().Now)

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				tracker.RecordFailure("shared", "addr")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, tracker.RemainingAttempts("shared", "addr"))
}

func TestAttemptTrackerNilSafe(t *testing.T) {
	var tracker *AttemptTracker
	assert.False(t, tracker.RecordFailure("a", "b"))
	assert.False(t, tracker.IsLocked("a", "b"))
	assert.False(t, tracker.IsDistributedAttack("a"))
	tracker.Reset("a", "b")
}
