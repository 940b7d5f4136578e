package limiters

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const attemptShards = 64

// AttemptConfig holds thresholds for the in-memory attempt tracker.
type AttemptConfig struct {
	Threshold         int
	Window            time.Duration
	LockoutDuration   time.Duration
	DistributedFactor int
}

// AttemptRecord is the failure state of one identity+address pair.
type AttemptRecord struct {
	Count        int
	FirstAttempt time.Time
	LockedUntil  time.Time
}

func (r *AttemptRecord) lockedAt(now time.Time) bool {
	return !r.LockedUntil.IsZero() && now.Before(r.LockedUntil)
}

type identityAttempts struct {
	total     int
	firstSeen time.Time
	records   map[string]*AttemptRecord
	addresses map[string]struct{}
}

type attemptShard struct {
	mu         sync.Mutex
	identities map[string]*identityAttempts
}

// AttemptTracker counts failed authentications per identity and source address,
// locks pairs that cross the threshold and flags identities attacked from many
// addresses. State lives in memory only.
//
// An identity and all of its addresses hash to the same shard, so the pair record
// and the identity-wide counter change inside one critical section.
type AttemptTracker struct {
	config AttemptConfig
	now    func() time.Time
	shards [attemptShards]attemptShard

	// OnDistributedAttack, when set, is called once per crossing with the
	// identity and its global failure count. It runs outside the shard lock.
	OnDistributedAttack func(identity string, failures int)
}

// NewAttemptTracker creates a tracker. now may be nil.
func NewAttemptTracker(cfg AttemptConfig, now func() time.Time) *AttemptTracker {
	if now == nil {
		now = time.Now
	}
	if cfg.DistributedFactor <= 0 {
		cfg.DistributedFactor = 3
	}
	t := &AttemptTracker{config: cfg, now: now}
	for i := range t.shards {
		t.shards[i].identities = make(map[string]*identityAttempts)
	}
	return t
}

func (t *AttemptTracker) shard(identity string) *attemptShard {
	return &t.shards[xxhash.Sum64String(identity)%attemptShards]
}

// RecordFailure counts one failed attempt. It reports whether the attempt caused
// the pair to become locked.
func (t *AttemptTracker) RecordFailure(identity, address string) bool {
	if t == nil || identity == "" {
		return false
	}

	now := t.now()
	s := t.shard(identity)

	s.mu.Lock()
	entry, ok := s.identities[identity]
	if !ok {
		entry = &identityAttempts{
			firstSeen: now,
			records:   make(map[string]*AttemptRecord),
			addresses: make(map[string]struct{}),
		}
		s.identities[identity] = entry
	}

	record, ok := entry.records[address]
	switch {
	case !ok:
		record = &AttemptRecord{Count: 1, FirstAttempt: now}
		entry.records[address] = record
	case !record.lockedAt(now) && now.Sub(record.FirstAttempt) > t.config.Window:
		record.Count = 1
		record.FirstAttempt = now
		record.LockedUntil = time.Time{}
	default:
		record.Count++
	}

	locked := false
	if record.Count >= t.config.Threshold && !record.lockedAt(now) {
		record.LockedUntil = now.Add(t.config.LockoutDuration)
		locked = true
	}

	if now.Sub(entry.firstSeen) > t.config.Window {
		entry.total = 0
		entry.firstSeen = now
	}
	entry.total++
	entry.addresses[address] = struct{}{}

	limit := t.config.DistributedFactor * t.config.Threshold
	crossed := entry.total == limit+1
	total := entry.total
	s.mu.Unlock()

	if crossed && t.OnDistributedAttack != nil {
		t.OnDistributedAttack(identity, total)
	}
	return locked
}

// IsLocked reports whether the pair is inside a lockout. A lapsed lockout is
// evicted together with its counters.
func (t *AttemptTracker) IsLocked(identity, address string) bool {
	return t.LockoutRemaining(identity, address) > 0
}

// LockoutRemaining returns the time left on the pair's lockout, or zero.
func (t *AttemptTracker) LockoutRemaining(identity, address string) time.Duration {
	if t == nil || identity == "" {
		return 0
	}

	now := t.now()
	s := t.shard(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.identities[identity]
	if !ok {
		return 0
	}
	record, ok := entry.records[address]
	if !ok || record.LockedUntil.IsZero() {
		return 0
	}
	if !record.lockedAt(now) {
		s.removeLocked(identity, entry, address)
		return 0
	}
	return record.LockedUntil.Sub(now)
}

// RemainingAttempts returns how many failures the pair may still make before
// being locked.
func (t *AttemptTracker) RemainingAttempts(identity, address string) int {
	if t == nil {
		return 0
	}

	now := t.now()
	s := t.shard(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.identities[identity]
	if !ok {
		return t.config.Threshold
	}
	record, ok := entry.records[address]
	if !ok {
		return t.config.Threshold
	}
	if record.lockedAt(now) {
		return 0
	}
	if now.Sub(record.FirstAttempt) > t.config.Window {
		return t.config.Threshold
	}

	remaining := t.config.Threshold - record.Count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the pair after a fully successful authentication. The identity's
// global counter is dropped when no other address still has a record.
func (t *AttemptTracker) Reset(identity, address string) {
	if t == nil || identity == "" {
		return
	}

	s := t.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.identities[identity]; ok {
		s.removeLocked(identity, entry, address)
	}
}

// IsDistributedAttack reports whether the identity's failures across all
// addresses exceed DistributedFactor times the threshold inside the window.
func (t *AttemptTracker) IsDistributedAttack(identity string) bool {
	if t == nil {
		return false
	}

	now := t.now()
	s := t.shard(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.identities[identity]
	if !ok || now.Sub(entry.firstSeen) > t.config.Window {
		return false
	}
	return entry.total > t.config.DistributedFactor*t.config.Threshold
}

// Addresses returns the source addresses seen failing for identity.
func (t *AttemptTracker) Addresses(identity string) []string {
	if t == nil {
		return nil
	}

	s := t.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.identities[identity]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(entry.addresses))
	for addr := range entry.addresses {
		out = append(out, addr)
	}
	return out
}

// removeLocked must be called with s.mu held.
func (s *attemptShard) removeLocked(identity string, entry *identityAttempts, address string) {
	delete(entry.records, address)
	if len(entry.records) == 0 {
		delete(s.identities, identity)
	}
}
