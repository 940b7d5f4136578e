package csrf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMismatch is returned when the header token differs from the cookie token.
	ErrMismatch = errors.New("csrf token mismatch")
	// ErrInvalid is returned for malformed, expired or foreign tokens.
	ErrInvalid = errors.New("invalid csrf token")
)

// Config holds the signing parameters.
type Config struct {
	Secret []byte        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
	Leeway time.Duration `mapstructure:"leeway"`
}

// Claims bind a CSRF token to the credential it protects. Subject carries the
// credential fingerprint.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and verifies double-submit CSRF tokens signed with HS256.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg. now may be nil.
func NewManager(cfg Config, now func() time.Time) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("csrf secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("csrf ttl must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid csrf leeway")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// Issue returns a token bound to subject.
func (m *Manager) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("csrf subject is required")
	}
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify checks a double-submitted token: the header value must equal the cookie
// value, carry a valid signature and be bound to subject.
func (m *Manager) Verify(header, cookie, subject string) error {
	if header == "" || cookie == "" || header != cookie {
		return ErrMismatch
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(subject),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(header, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !token.Valid {
		return ErrInvalid
	}
	return nil
}
