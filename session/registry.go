package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const registryShards = 32

var (
	// ErrIdleExpired is returned by [Registry.Check] when the idle budget is spent.
	ErrIdleExpired = errors.New("session idle timeout")
	// ErrAbsoluteExpired is returned by [Registry.Check] when the session is too old.
	ErrAbsoluteExpired = errors.New("session absolute timeout")
)

// Budget is the pair of timeouts applied to one role.
type Budget struct {
	Idle     time.Duration `mapstructure:"idle"`
	Absolute time.Duration `mapstructure:"absolute"`
}

// Budgets maps a role to its timeouts. Unknown roles use Default.
type Budgets struct {
	Default Budget            `mapstructure:"default"`
	Roles   map[string]Budget `mapstructure:"roles"`
}

// DefaultBudgets returns the stock policy: end users get 20m idle and 8h absolute,
// creators and administrators 15m idle and 7h absolute.
func DefaultBudgets() Budgets {
	staff := Budget{Idle: 15 * time.Minute, Absolute: 7 * time.Hour}
	return Budgets{
		Default: Budget{Idle: 20 * time.Minute, Absolute: 8 * time.Hour},
		Roles: map[string]Budget{
			"admin":   staff,
			"creator": staff,
		},
	}
}

// For returns the budget of role.
func (b Budgets) For(role string) Budget {
	if budget, ok := b.Roles[role]; ok {
		return budget
	}
	return b.Default
}

// Info is the in-memory state of one session.
type Info struct {
	Key       string
	Role      string
	CreatedAt time.Time

	lastActivity atomic.Int64
}

// LastActivity returns the instant of the latest touch.
func (i *Info) LastActivity() time.Time {
	return time.Unix(0, i.lastActivity.Load())
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[string]*Info
}

// Registry tracks session activity in process memory. Entries vanish on restart.
type Registry struct {
	budgets Budgets
	now     func() time.Time
	shards  [registryShards]registryShard
}

// NewRegistry creates a Registry. now may be nil.
func NewRegistry(budgets Budgets, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	r := &Registry{budgets: budgets, now: now}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*Info)
	}
	return r
}

func (r *Registry) shard(key string) *registryShard {
	return &r.shards[xxhash.Sum64String(key)%registryShards]
}

// GetOrCreate returns the session for key, creating it with role when missing.
func (r *Registry) GetOrCreate(key, role string) *Info {
	s := r.shard(key)

	s.mu.RLock()
	info, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return info
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.sessions[key]; ok {
		return info
	}
	now := r.now()
	info = &Info{Key: key, Role: role, CreatedAt: now}
	info.lastActivity.Store(now.UnixNano())
	s.sessions[key] = info
	return info
}

func (r *Registry) get(key string) (*Info, bool) {
	s := r.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sessions[key]
	return info, ok
}

// Touch records activity at the current instant.
func (r *Registry) Touch(info *Info) {
	info.lastActivity.Store(r.now().UnixNano())
}

// IsIdleExpired reports whether the idle budget of info's role has elapsed since
// its last activity.
func (r *Registry) IsIdleExpired(info *Info) bool {
	return r.now().Sub(info.LastActivity()) > r.budgets.For(info.Role).Idle
}

// IsAbsoluteExpired reports whether info is older than its role's absolute budget.
func (r *Registry) IsAbsoluteExpired(info *Info) bool {
	return r.now().Sub(info.CreatedAt) > r.budgets.For(info.Role).Absolute
}

// Remove deletes the session for key. Missing keys are ignored.
func (r *Registry) Remove(key string) {
	s := r.shard(key)
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
}

// Check loads or creates the session, applies both expiration rules and touches
// it when still valid. An expired session is removed before the error returns.
func (r *Registry) Check(key, role string) (*Info, error) {
	info := r.GetOrCreate(key, role)

	if r.IsAbsoluteExpired(info) {
		r.Remove(key)
		return nil, ErrAbsoluteExpired
	}
	if r.IsIdleExpired(info) {
		r.Remove(key)
		return nil, ErrIdleExpired
	}

	r.Touch(info)
	return info, nil
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.sessions)
		s.mu.RUnlock()
	}
	return n
}
