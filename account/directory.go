package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory resolves and mutates principals across the three stores.
type Directory interface {
	// FindByEmailCI searches admins, creators then users; the first match wins.
	FindByEmailCI(ctx context.Context, email string) (*Principal, error)
	FindByID(ctx context.Context, kind Kind, id string) (*Principal, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*Principal, error)
	// Create inserts p, claiming its email across every store.
	Create(ctx context.Context, p *Principal) error
	// UpdatePassword replaces the digest and clears any reset token.
	UpdatePassword(ctx context.Context, kind Kind, id, digest string) error
	SetResetToken(ctx context.Context, kind Kind, id, hash string, expiresAt time.Time) error
	SetTOTPSecret(ctx context.Context, kind Kind, id, secret string) error
	SetThirdFactor(ctx context.Context, kind Kind, id string, enabled bool) error
	SetActive(ctx context.Context, kind Kind, id string, active bool) error
}

// GormDirectory implements Directory on a SQL database.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory returns a Directory backed by db.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) FindByEmailCI(ctx context.Context, email string) (*Principal, error) {
	return findByEmailCI(d.db.WithContext(ctx), email)
}

func findByEmailCI(db *gorm.DB, email string) (*Principal, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	folded := strings.ToLower(email)

	for _, kind := range LookupOrder {
		table, _ := tableFor(kind)

		var row Credentials
		err := db.Table(table).Where("email = ?", email).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = db.Table(table).Where("LOWER(email) = ?", folded).Take(&row).Error
		}
		if err == nil {
			return row.toPrincipal(kind), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (d *GormDirectory) FindByID(ctx context.Context, kind Kind, id string) (*Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var row Credentials
	err = d.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toPrincipal(kind), nil
}

func (d *GormDirectory) FindByResetTokenHash(ctx context.Context, hash string) (*Principal, error) {
	if hash == "" {
		return nil, ErrNotFound
	}

	db := d.db.WithContext(ctx)
	for _, kind := range LookupOrder {
		table, _ := tableFor(kind)

		var row Credentials
		err := db.Table(table).Where("reset_token_hash = ?", hash).Take(&row).Error
		if err == nil {
			return row.toPrincipal(kind), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (d *GormDirectory) Create(ctx context.Context, p *Principal) error {
	table, err := tableFor(p.Kind)
	if err != nil {
		return err
	}

	p.Email = NormalizeEmail(p.Email)
	if p.Email == "" {
		return errors.New("account email is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folded := EmailKey(p.Email)

		var claimed int64
		if err := tx.Model(&EmailClaim{}).Where("email = ?", folded).Count(&claimed).Error; err != nil {
			return err
		}
		if claimed > 0 {
			return ErrEmailTaken
		}
		// Rows created before claims existed are still checked directly.
		if _, err := findByEmailCI(tx, p.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		claim := EmailClaim{Email: folded, Kind: string(p.Kind), AccountID: p.ID}
		if err := tx.Create(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}

		row := credentialsFrom(p)
		if err := tx.Table(table).Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}
		p.CreatedAt = row.CreatedAt
		return nil
	})
}

func (d *GormDirectory) UpdatePassword(ctx context.Context, kind Kind, id, digest string) error {
	return d.update(ctx, kind, id, map[string]any{
		"password_hash":    digest,
		"reset_token_hash": nil,
		"reset_expires_at": nil,
	})
}

func (d *GormDirectory) SetResetToken(ctx context.Context, kind Kind, id, hash string, expiresAt time.Time) error {
	return d.update(ctx, kind, id, map[string]any{
		"reset_token_hash": hash,
		"reset_expires_at": expiresAt,
	})
}

func (d *GormDirectory) SetTOTPSecret(ctx context.Context, kind Kind, id, secret string) error {
	return d.update(ctx, kind, id, map[string]any{"totp_secret": secret})
}

func (d *GormDirectory) SetThirdFactor(ctx context.Context, kind Kind, id string, enabled bool) error {
	return d.update(ctx, kind, id, map[string]any{"third_factor_enabled": enabled})
}

func (d *GormDirectory) SetActive(ctx context.Context, kind Kind, id string, active bool) error {
	return d.update(ctx, kind, id, map[string]any{"active": active})
}

func (d *GormDirectory) update(ctx context.Context, kind Kind, id string, values map[string]any) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	values["updated_at"] = time.Now()
	res := d.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
