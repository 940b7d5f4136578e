package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrPendingSecretNotFound = errors.New("pending totp secret not found")

// TOTPStore holds enrolment secrets awaiting confirmation and the markers that
// stop an accepted code from being replayed.
type TOTPStore struct {
	redis redis.UniversalClient
}

// NewTOTPStore creates a TOTPStore.
func NewTOTPStore(redisClient redis.UniversalClient) *TOTPStore {
	return &TOTPStore{redis: redisClient}
}

func pendingSecretKey(account string) string {
	return "tps:" + account
}

func usedCodeKey(account, code string) string {
	return "tpu:" + account + ":" + code
}

// SavePendingSecret stores secret until it is confirmed or ttl elapses.
func (s *TOTPStore) SavePendingSecret(ctx context.Context, account, secret string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, pendingSecretKey(account), secret, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// PendingSecret returns the unconfirmed secret for account.
func (s *TOTPStore) PendingSecret(ctx context.Context, account string) (string, error) {
	secret, err := s.redis.Get(ctx, pendingSecretKey(account)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrPendingSecretNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return secret, nil
}

// DeletePendingSecret drops the unconfirmed secret.
func (s *TOTPStore) DeletePendingSecret(ctx context.Context, account string) error {
	if err := s.redis.Del(ctx, pendingSecretKey(account)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// MarkCodeUsed records code as consumed for account. It reports false when the
// code was already used inside ttl.
func (s *TOTPStore) MarkCodeUsed(ctx context.Context, account, code string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, usedCodeKey(account, code), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}
