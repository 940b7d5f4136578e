package goAccount

import (
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
)

// Config holds every engine tunable. Zero values are not defaults; start from
// DefaultConfig and override.
type Config struct {
	Password      PasswordConfig        `mapstructure:"password"`
	Breach        password.BreachConfig `mapstructure:"breach"`
	Attempts      AttemptConfig         `mapstructure:"attempts"`
	RateLimit     RateLimitConfig       `mapstructure:"rate_limit"`
	Token         TokenConfig           `mapstructure:"token"`
	Session       session.Budgets       `mapstructure:"session"`
	CSRF          CSRFConfig            `mapstructure:"csrf"`
	TOTP          TOTPConfig            `mapstructure:"totp"`
	ThirdFactor   ThirdFactorConfig     `mapstructure:"third_factor"`
	PasswordReset PasswordResetConfig   `mapstructure:"password_reset"`
	Registration  RegistrationConfig    `mapstructure:"registration"`
	Audit         AuditConfig           `mapstructure:"audit"`
	Metrics       MetricsConfig         `mapstructure:"metrics"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// MinPepperLength is the shortest accepted PasswordConfig.Pepper.
const MinPepperLength = 16

// PasswordConfig selects the digest algorithm. Digests of the other algorithm
// still verify and are rehashed on login when UpgradeOnLogin is set. Pepper is
// a server secret mixed into every digest; changing it invalidates all stored
// passwords.
type PasswordConfig struct {
	Algorithm      string                `mapstructure:"algorithm"`
	Pepper         string                `mapstructure:"pepper"`
	BcryptCost     int                   `mapstructure:"bcrypt_cost"`
	Argon2         password.Argon2Config `mapstructure:"argon2"`
	UpgradeOnLogin bool                  `mapstructure:"upgrade_on_login"`
}

/*
====================================
BRUTE-FORCE CONFIG
====================================
*/

// AttemptConfig tunes the in-memory failure tracker.
type AttemptConfig struct {
	Threshold         int           `mapstructure:"threshold"`
	Window            time.Duration `mapstructure:"window"`
	LockoutDuration   time.Duration `mapstructure:"lockout_duration"`
	DistributedFactor int           `mapstructure:"distributed_factor"`
}

// RateLimitConfig tunes the Redis sliding windows.
type RateLimitConfig struct {
	LoginLimit         int           `mapstructure:"login_limit"`
	LoginWindow        time.Duration `mapstructure:"login_window"`
	OTPHourlyLimit     int           `mapstructure:"otp_hourly_limit"`
	OTPDailyLimit      int           `mapstructure:"otp_daily_limit"`
	RegistrationLimit  int           `mapstructure:"registration_limit"`
	RegistrationWindow time.Duration `mapstructure:"registration_window"`
}

/*
====================================
TOKEN & CSRF CONFIG
====================================
*/

const (
	TokenBackendRedis = "redis"
	TokenBackendSQL   = "sql"
)

type TokenConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Backend string        `mapstructure:"backend"`
}

type CSRFConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
	Leeway time.Duration `mapstructure:"leeway"`
}

/*
====================================
FACTOR CONFIG
====================================
*/

// TOTPConfig follows RFC 6238 parameters. Skew counts whole periods either side.
type TOTPConfig struct {
	Issuer     string        `mapstructure:"issuer"`
	Period     uint          `mapstructure:"period"`
	Skew       uint          `mapstructure:"skew"`
	Digits     int           `mapstructure:"digits"`
	PendingTTL time.Duration `mapstructure:"pending_ttl"`
}

type ThirdFactorConfig struct {
	CodeTTL      time.Duration `mapstructure:"code_ttl"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Digits       int           `mapstructure:"digits"`
}

// PasswordResetConfig controls reset links. The token is appended to LinkBaseURL.
type PasswordResetConfig struct {
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	LinkBaseURL string        `mapstructure:"link_base_url"`
}

type RegistrationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig = internalaudit.Config

type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Algorithm:  HashBcrypt,
			BcryptCost: 12,
			Argon2: password.Argon2Config{
				Memory:      64 * 1024,
				Time:        3,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
			UpgradeOnLogin: true,
		},
		Breach: password.DefaultBreachConfig(),
		Attempts: AttemptConfig{
			Threshold:         5,
			Window:            5 * time.Minute,
			LockoutDuration:   15 * time.Minute,
			DistributedFactor: 3,
		},
		RateLimit: RateLimitConfig{
			LoginLimit:         10,
			LoginWindow:        5 * time.Minute,
			OTPHourlyLimit:     5,
			OTPDailyLimit:      20,
			RegistrationLimit:  10,
			RegistrationWindow: time.Hour,
		},
		Token: TokenConfig{
			TTL:     8 * time.Hour,
			Backend: TokenBackendRedis,
		},
		Session: session.DefaultBudgets(),
		CSRF: CSRFConfig{
			TTL:    8 * time.Hour,
			Issuer: "goaccount",
			Leeway: 30 * time.Second,
		},
		TOTP: TOTPConfig{
			Issuer:     "goAccount",
			Period:     30,
			Skew:       1,
			Digits:     6,
			PendingTTL: 10 * time.Minute,
		},
		ThirdFactor: ThirdFactorConfig{
			CodeTTL:      15 * time.Minute,
			ChallengeTTL: 15 * time.Minute,
			MaxAttempts:  5,
			Digits:       6,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:    time.Hour,
			LinkBaseURL: "http://localhost:8080/reset-password?token=",
		},
		Registration: RegistrationConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Session.Roles != nil {
		out.Session.Roles = make(map[string]session.Budget, len(cfg.Session.Roles))
		for role, budget := range cfg.Session.Roles {
			out.Session.Roles[role] = budget
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Password
	switch c.Password.Algorithm {
	case HashBcrypt, HashArgon2id:
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}
	if len(c.Password.Pepper) < MinPepperLength {
		return fmt.Errorf("Password Pepper must be at least %d bytes", MinPepperLength)
	}

	// Breach
	if c.Breach.Enabled && c.Breach.Endpoint == "" {
		return errors.New("Breach Endpoint required when enabled")
	}

	// Attempts
	if c.Attempts.Threshold <= 0 {
		return errors.New("Attempts Threshold must be > 0")
	}
	if c.Attempts.Window <= 0 {
		return errors.New("Attempts Window must be > 0")
	}
	if c.Attempts.LockoutDuration <= 0 {
		return errors.New("Attempts LockoutDuration must be > 0")
	}
	if c.Attempts.DistributedFactor <= 0 {
		return errors.New("Attempts DistributedFactor must be > 0")
	}

	// Rate limits
	if c.RateLimit.LoginLimit <= 0 || c.RateLimit.LoginWindow <= 0 {
		return errors.New("RateLimit login limit and window must be > 0")
	}
	if c.RateLimit.OTPHourlyLimit <= 0 || c.RateLimit.OTPDailyLimit <= 0 {
		return errors.New("RateLimit OTP limits must be > 0")
	}
	if c.RateLimit.OTPDailyLimit < c.RateLimit.OTPHourlyLimit {
		return errors.New("RateLimit OTPDailyLimit must be >= OTPHourlyLimit")
	}
	if c.RateLimit.RegistrationLimit < 0 || c.RateLimit.RegistrationWindow < 0 {
		return errors.New("RateLimit registration limit and window must be >= 0")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.Backend != TokenBackendRedis && c.Token.Backend != TokenBackendSQL {
		return errors.New("Token Backend must be 'redis' or 'sql'")
	}

	// Session
	if err := validateBudget(c.Session.Default); err != nil {
		return err
	}
	for _, budget := range c.Session.Roles {
		if err := validateBudget(budget); err != nil {
			return err
		}
	}

	// CSRF
	if len(c.CSRF.Secret) < 32 {
		return errors.New("CSRF Secret must be at least 32 bytes")
	}
	if c.CSRF.TTL <= 0 {
		return errors.New("CSRF TTL must be > 0")
	}

	// TOTP
	if c.TOTP.Period == 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Skew > 3 {
		return errors.New("TOTP Skew must be <= 3")
	}
	if c.TOTP.PendingTTL <= 0 {
		return errors.New("TOTP PendingTTL must be > 0")
	}

	// Third factor
	if c.ThirdFactor.CodeTTL <= 0 || c.ThirdFactor.ChallengeTTL <= 0 {
		return errors.New("ThirdFactor TTLs must be > 0")
	}
	if c.ThirdFactor.MaxAttempts <= 0 {
		return errors.New("ThirdFactor MaxAttempts must be > 0")
	}
	if c.ThirdFactor.Digits < 6 || c.ThirdFactor.Digits > 10 {
		return errors.New("ThirdFactor Digits must be between 6 and 10")
	}

	// Password reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

func validateBudget(b session.Budget) error {
	if b.Idle <= 0 || b.Absolute <= 0 {
		return errors.New("Session budgets must be > 0")
	}
	if b.Idle > b.Absolute {
		return errors.New("Session idle budget must not exceed the absolute budget")
	}
	return nil
}
