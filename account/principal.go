package account

import (
	"errors"
	"strings"
	"time"
)

// Kind identifies which principal store an account lives in. Its string form is
// the role carried by tokens and sessions.
type Kind string

const (
	KindAdmin   Kind = "admin"
	KindCreator Kind = "creator"
	KindUser    Kind = "user"
)

// LookupOrder is the fixed order in which stores are searched by email.
var LookupOrder = []Kind{KindAdmin, KindCreator, KindUser}

var (
	ErrNotFound    = errors.New("account not found")
	ErrEmailTaken  = errors.New("email already registered")
	ErrInvalidKind = errors.New("invalid account kind")
)

// ParseKind validates a role string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAdmin, KindCreator, KindUser:
		return k, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) String() string { return string(k) }

// Principal is an account from any of the three stores.
type Principal struct {
	Kind               Kind
	ID                 string
	Email              string
	Name               string
	Surname            string
	Alias              string
	PasswordHash       string
	TOTPSecret         string
	ThirdFactorEnabled bool
	Active             bool
	ResetTokenHash     string
	ResetExpiresAt     *time.Time
	CreatedAt          time.Time
}

// HasTOTP reports whether a TOTP secret is configured.
func (p *Principal) HasTOTP() bool {
	return p != nil && p.TOTPSecret != ""
}

// Profile is the public view of a principal returned to clients.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Surname string `json:"surname,omitempty"`
	Alias   string `json:"alias,omitempty"`
	Role    Kind   `json:"role"`
}

// Profile returns the public fields of p.
func (p *Principal) Profile() Profile {
	return Profile{
		ID:      p.ID,
		Email:   p.Email,
		Name:    p.Name,
		Surname: p.Surname,
		Alias:   p.Alias,
		Role:    p.Kind,
	}
}

// NormalizeEmail trims surrounding whitespace.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// EmailKey is the case-folded form used for uniqueness and limiter keys.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
