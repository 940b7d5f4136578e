package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deleteTokenScript = `
local existed = redis.call("DEL", KEYS[1])
if ARGV[1] ~= "" then
  redis.call("SREM", KEYS[2], ARGV[1])
end
return existed
`

var deleteTokenLua = redis.NewScript(deleteTokenScript)

// RedisStore keeps tokens in Redis with a native TTL, plus a per-account index set
// used for bulk revocation.
type RedisStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisStore creates a RedisStore. now may be nil.
func NewRedisStore(redisClient redis.UniversalClient, ttl time.Duration, now func() time.Time) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: redisClient, ttl: ttl, now: now}
}

func tokenKey(fingerprint string) string {
	return "tk:" + fingerprint
}

func accountKey(accountID string) string {
	return "tka:" + accountID
}

func (s *RedisStore) Create(ctx context.Context, accountID, role string) (*Token, error) {
	t, err := newToken(accountID, role, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}
	data, err := encode(t)
	if err != nil {
		return nil, err
	}

	fp := Fingerprint(t.ID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(fp), data, s.ttl)
		pipe.SAdd(ctx, accountKey(accountID), fp)
		pipe.Expire(ctx, accountKey(accountID), s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return t, nil
}

func (s *RedisStore) Lookup(ctx context.Context, id string) (*Token, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	fp := Fingerprint(id)

	data, err := s.redis.Get(ctx, tokenKey(fp)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	t, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	t.ID = id

	if t.Expired(s.now()) {
		if err := s.remove(ctx, fp, t.AccountID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	fp := Fingerprint(id)

	accountID := ""
	if data, err := s.redis.Get(ctx, tokenKey(fp)).Bytes(); err == nil {
		if t, err := decode(data); err == nil {
			accountID = t.AccountID
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.remove(ctx, fp, accountID)
}

func (s *RedisStore) remove(ctx context.Context, fp, accountID string) error {
	member := ""
	if accountID != "" {
		member = fp
	}
	if err := deleteTokenLua.Run(ctx, s.redis, []string{tokenKey(fp), accountKey(accountID)}, member).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) DeleteByAccount(ctx context.Context, accountID string) error {
	fingerprints, err := s.redis.SMembers(ctx, accountKey(accountID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, fp := range fingerprints {
			pipe.Del(ctx, tokenKey(fp))
		}
		pipe.Del(ctx, accountKey(accountID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
