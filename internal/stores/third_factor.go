package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeRecordVersionV1 = 1

var (
	ErrCodeNotFound         = errors.New("verification code not found")
	ErrCodeMismatch         = errors.New("verification code mismatch")
	ErrCodeAttemptsExceeded = errors.New("verification code attempts exceeded")
	ErrStoreUnavailable     = errors.New("challenge store unavailable")
)

// CodeRecord is a mailed out-of-band code, persisted as its SHA-256 hash.
type CodeRecord struct {
	CodeHash  [32]byte
	ExpiresAt int64
	Attempts  uint16
}

// ThirdFactorStore keeps at most one live code per identity plus the pending
// challenge marker that authorises issuing one.
type ThirdFactorStore struct {
	redis redis.UniversalClient
	now   func() time.Time
}

// NewThirdFactorStore creates a store. now may be nil.
func NewThirdFactorStore(redisClient redis.UniversalClient, now func() time.Time) *ThirdFactorStore {
	if now == nil {
		now = time.Now
	}
	return &ThirdFactorStore{redis: redisClient, now: now}
}

func codeKey(identity string) string {
	return "tfc:" + identity
}

func challengeKey(identity string) string {
	return "tfp:" + identity
}

// OpenChallenge marks identity as having passed every earlier factor.
func (s *ThirdFactorStore) OpenChallenge(ctx context.Context, identity string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, challengeKey(identity), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// HasChallenge reports whether a pending challenge exists for identity.
func (s *ThirdFactorStore) HasChallenge(ctx context.Context, identity string) (bool, error) {
	n, err := s.redis.Exists(ctx, challengeKey(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// CloseChallenge removes the pending challenge and any live code.
func (s *ThirdFactorStore) CloseChallenge(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, challengeKey(identity), codeKey(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SaveCode stores a new code for identity, replacing any previous one.
func (s *ThirdFactorStore) SaveCode(ctx context.Context, identity string, codeHash [32]byte, ttl time.Duration) error {
	record := &CodeRecord{
		CodeHash:  codeHash,
		ExpiresAt: s.now().Add(ttl).UnixMilli(),
	}
	if err := s.redis.Set(ctx, codeKey(identity), encodeCodeRecord(record), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ConsumeCode checks providedHash against the live code. A match deletes the code.
// A mismatch counts an attempt and deletes the code once maxAttempts is reached.
func (s *ThirdFactorStore) ConsumeCode(ctx context.Context, identity string, providedHash [32]byte, maxAttempts int) error {
	const maxRetries = 4
	key := codeKey(identity)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeCodeRecord(data)
			if err != nil {
				return err
			}

			ttl := time.UnixMilli(record.ExpiresAt).Sub(s.now())
			if ttl <= 0 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrCodeNotFound
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) == 1 {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrCodeAttemptsExceeded
			}

			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encodeCodeRecord(record), ttl)
				return nil
			}); err != nil {
				return err
			}
			return ErrCodeMismatch
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.Nil):
			return ErrCodeNotFound
		case errors.Is(err, ErrCodeNotFound), errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrCodeAttemptsExceeded):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return ErrCodeNotFound
}

func encodeCodeRecord(record *CodeRecord) []byte {
	var buf bytes.Buffer
	buf.WriteByte(codeRecordVersionV1)
	_ = binary.Write(&buf, binary.BigEndian, record.Attempts)
	_ = binary.Write(&buf, binary.BigEndian, record.ExpiresAt)
	buf.Write(record.CodeHash[:])
	return buf.Bytes()
}

func decodeCodeRecord(data []byte) (*CodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersionV1 {
		return nil, errors.New("invalid code record version")
	}

	record := &CodeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in code record")
	}
	return record, nil
}
