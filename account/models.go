package account

import "time"

// Credentials is the column set shared by the admins, creators and users tables.
type Credentials struct {
	ID                 string     `gorm:"type:varchar(36);primaryKey"`
	Email              string     `gorm:"type:varchar(320);not null;uniqueIndex"`
	Name               string     `gorm:"type:varchar(128)"`
	Surname            string     `gorm:"type:varchar(128)"`
	Alias              string     `gorm:"type:varchar(128)"`
	PasswordHash       string     `gorm:"type:text;not null"`
	TOTPSecret         string     `gorm:"type:text"`
	ThirdFactorEnabled bool       `gorm:"not null"`
	Active             bool       `gorm:"not null"`
	ResetTokenHash     *string    `gorm:"type:varchar(64);index"`
	ResetExpiresAt     *time.Time `gorm:"column:reset_expires_at"`
	CreatedAt          time.Time  `gorm:"not null;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"not null;autoUpdateTime"`
}

// Admin is a row of the admins table.
type Admin struct {
	Credentials
}

func (Admin) TableName() string { return "admins" }

// Creator is a row of the creators table.
type Creator struct {
	Credentials
}

func (Creator) TableName() string { return "creators" }

// User is a row of the users table.
type User struct {
	Credentials
}

func (User) TableName() string { return "users" }

// EmailClaim reserves a case-folded email for exactly one account across all
// three stores.
type EmailClaim struct {
	Email     string    `gorm:"type:varchar(320);primaryKey"`
	Kind      string    `gorm:"type:varchar(16);not null"`
	AccountID string    `gorm:"type:varchar(36);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (EmailClaim) TableName() string { return "account_emails" }

// Models lists every table owned by this package, for migrations.
func Models() []any {
	return []any{&Admin{}, &Creator{}, &User{}, &EmailClaim{}}
}

func tableFor(kind Kind) (string, error) {
	switch kind {
	case KindAdmin:
		return Admin{}.TableName(), nil
	case KindCreator:
		return Creator{}.TableName(), nil
	case KindUser:
		return User{}.TableName(), nil
	}
	return "", ErrInvalidKind
}

func (c *Credentials) toPrincipal(kind Kind) *Principal {
	p := &Principal{
		Kind:               kind,
		ID:                 c.ID,
		Email:              c.Email,
		Name:               c.Name,
		Surname:            c.Surname,
		Alias:              c.Alias,
		PasswordHash:       c.PasswordHash,
		TOTPSecret:         c.TOTPSecret,
		ThirdFactorEnabled: c.ThirdFactorEnabled,
		Active:             c.Active,
		ResetExpiresAt:     c.ResetExpiresAt,
		CreatedAt:          c.CreatedAt,
	}
	if c.ResetTokenHash != nil {
		p.ResetTokenHash = *c.ResetTokenHash
	}
	return p
}

func credentialsFrom(p *Principal) *Credentials {
	c := &Credentials{
		ID:                 p.ID,
		Email:              p.Email,
		Name:               p.Name,
		Surname:            p.Surname,
		Alias:              p.Alias,
		PasswordHash:       p.PasswordHash,
		TOTPSecret:         p.TOTPSecret,
		ThirdFactorEnabled: p.ThirdFactorEnabled,
		Active:             p.Active,
		ResetExpiresAt:     p.ResetExpiresAt,
	}
	if p.ResetTokenHash != "" {
		hash := p.ResetTokenHash
		c.ResetTokenHash = &hash
	}
	return c
}
