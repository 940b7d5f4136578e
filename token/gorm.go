package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Row is the persisted form of a token. Only the fingerprint of the secret is stored.
type Row struct {
	Fingerprint string    `gorm:"primaryKey;size:64"`
	AccountID   string    `gorm:"size:64;not null;index"`
	Role        string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

func (Row) TableName() string { return "auth_tokens" }

// Models returns the gorm models owned by this package, for migrations.
func Models() []any {
	return []any{&Row{}}
}

// GormStore keeps tokens in a relational table.
type GormStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewGormStore creates a GormStore. now may be nil.
func NewGormStore(db *gorm.DB, ttl time.Duration, now func() time.Time) *GormStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &GormStore{db: db, ttl: ttl, now: now}
}

func (s *GormStore) Create(ctx context.Context, accountID, role string) (*Token, error) {
	t, err := newToken(accountID, role, s.now().UTC(), s.ttl)
	if err != nil {
		return nil, err
	}
	row := Row{
		Fingerprint: Fingerprint(t.ID),
		AccountID:   accountID,
		Role:        role,
		CreatedAt:   t.CreatedAt,
		ExpiresAt:   t.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("token: create: %w", err)
	}
	return t, nil
}

func (s *GormStore) Lookup(ctx context.Context, id string) (*Token, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	fp := Fingerprint(id)

	var row Row
	err := s.db.WithContext(ctx).Where("fingerprint = ?", fp).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("token: lookup: %w", err)
	}

	t := &Token{
		ID:        id,
		AccountID: row.AccountID,
		Role:      row.Role,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if t.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Where("fingerprint = ?", fp).Delete(&Row{}).Error; err != nil {
			return nil, fmt.Errorf("token: delete expired: %w", err)
		}
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("fingerprint = ?", Fingerprint(id)).Delete(&Row{}).Error; err != nil {
		return fmt.Errorf("token: delete: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteByAccount(ctx context.Context, accountID string) error {
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&Row{}).Error; err != nil {
		return fmt.Errorf("token: delete by account: %w", err)
	}
	return nil
}

// PurgeExpired removes every row past its expiration and returns the count.
func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&Row{})
	if res.Error != nil {
		return 0, fmt.Errorf("token: purge: %w", res.Error)
	}
	return res.RowsAffected, nil
}
