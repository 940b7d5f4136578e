package token

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal"
)

var (
	// ErrNotFound is returned for unknown and expired tokens alike.
	ErrNotFound = errors.New("token not found")
	// ErrRedisUnavailable wraps Redis failures in the Redis-backed store.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// DefaultTTL is the absolute lifetime of a bearer token.
const DefaultTTL = 8 * time.Hour

// Token is an opaque bearer credential bound to an account and role.
// ID is the secret presented by clients; stores persist only its fingerprint.
type Token struct {
	ID        string
	AccountID string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether t is past its absolute expiration at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Fingerprint returns the storage key derived from a token id.
func Fingerprint(id string) string {
	return internal.Fingerprint(id)
}

// Store persists bearer tokens.
type Store interface {
	// Create mints a new random token for the account.
	Create(ctx context.Context, accountID, role string) (*Token, error)
	// Lookup returns ErrNotFound when the token is absent or expired. Expired
	// records found during lookup are deleted.
	Lookup(ctx context.Context, id string) (*Token, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// DeleteByAccount revokes every token of the account.
	DeleteByAccount(ctx context.Context, accountID string) error
}

func newToken(accountID, role string, now time.Time, ttl time.Duration) (*Token, error) {
	id, err := internal.NewBearerToken()
	if err != nil {
		return nil, err
	}
	return &Token{
		ID:        id,
		AccountID: accountID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
