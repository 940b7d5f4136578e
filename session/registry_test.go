package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRegistry() (*Registry, *fakeClock) {
	c := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewRegistry(DefaultBudgets(), c.now), c
}

func TestDefaultBudgetsPerRole(t *testing.T) {
	b := DefaultBudgets()
	assert.Equal(t, Budget{Idle: 20 * time.Minute, Absolute: 8 * time.Hour}, b.For("user"))
	assert.Equal(t, Budget{Idle: 15 * time.Minute, Absolute: 7 * time.Hour}, b.For("creator"))
	assert.Equal(t, Budget{Idle: 15 * time.Minute, Absolute: 7 * time.Hour}, b.For("admin"))
}

func TestGetOrCreateReturnsSameEntry(t *testing.T) {
	r, _ := newTestRegistry()
	a := r.GetOrCreate("k", "user")
	b := r.GetOrCreate("k", "admin")
	assert.Same(t, a, b)
	assert.Equal(t, "user", b.Role)
	assert.Equal(t, 1, r.Len())
}

func TestIdleExpiry(t *testing.T) {
	r, c := newTestRegistry()
	info := r.GetOrCreate("k", "user")

	c.advance(20 * time.Minute)
	assert.False(t, r.IsIdleExpired(info))

	c.advance(time.Second)
	assert.True(t, r.IsIdleExpired(info))
	assert.False(t, r.IsAbsoluteExpired(info))
}

func TestStaffIdleBudgetIsShorter(t *testing.T) {
	r, c := newTestRegistry()
	user := r.GetOrCreate("u", "user")
	admin := r.GetOrCreate("a", "admin")

	c.advance(16 * time.Minute)
	assert.False(t, r.IsIdleExpired(user))
	assert.True(t, r.IsIdleExpired(admin))
}

func TestAbsoluteExpiryDespiteActivity(t *testing.T) {
	r, c := newTestRegistry()
	key := "creator-session"
	r.GetOrCreate(key, "creator")

	for elapsed := time.Duration(0); elapsed < 7*time.Hour; elapsed += 10 * time.Minute {
		_, err := r.Check(key, "creator")
		require.NoError(t, err, "elapsed %s", elapsed)
		c.advance(10 * time.Minute)
	}
	c.advance(time.Second)

	_, err := r.Check(key, "creator")
	assert.ErrorIs(t, err, ErrAbsoluteExpired)
	_, ok := r.get(key)
	assert.False(t, ok)
}

func TestCheckRemovesIdleSession(t *testing.T) {
	r, c := newTestRegistry()
	r.GetOrCreate("k", "user")

	c.advance(21 * time.Minute)
	_, err := r.Check("k", "user")
	assert.ErrorIs(t, err, ErrIdleExpired)

	_, ok := r.get("k")
	assert.False(t, ok)

	info, err := r.Check("k", "user")
	require.NoError(t, err, "a fresh entry starts a new session")
	assert.Equal(t, c.now(), info.CreatedAt)
}

func TestTouchExtendsIdleWindow(t *testing.T) {
	r, c := newTestRegistry()
	info := r.GetOrCreate("k", "user")

	c.advance(15 * time.Minute)
	r.Touch(info)
	c.advance(15 * time.Minute)
	assert.False(t, r.IsIdleExpired(info))
	assert.True(t, c.now().Add(-15*time.Minute).Equal(info.LastActivity()))
}

func TestRemoveUnknownKey(t *testing.T) {
	r, _ := newTestRegistry()
	r.Remove("missing")
	assert.Equal(t, 0, r.Len())
}

func TestConcurrentCheck(t *testing.T) {
	r, _ := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := r.Check(fmt.Sprintf("k%d", j%8), "user")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, r.Len())
}
