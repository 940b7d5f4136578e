package goAccount

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	return &totpManager{config: cfg}
}

func (m *totpManager) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    m.config.Period,
		Skew:      m.config.Skew,
		Digits:    otp.Digits(m.config.Digits),
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Generate returns a base32 secret and its otpauth:// provisioning URL.
func (m *totpManager) Generate(accountName string) (string, string, error) {
	if m == nil {
		return "", "", ErrEngineNotReady
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: accountName,
		Period:      m.config.Period,
		Digits:      otp.Digits(m.config.Digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Validate checks code against secret within the configured skew. Malformed codes
// are a mismatch, not an error.
func (m *totpManager) Validate(secret, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}
	code = strings.TrimSpace(code)
	if len(code) != m.config.Digits {
		return false, nil
	}
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), m.opts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// replayWindow is how long an accepted code stays burned: every step the skew
// admits around the step it was issued in.
func (m *totpManager) replayWindow() time.Duration {
	steps := 2*m.config.Skew + 1
	return time.Duration(steps*m.config.Period) * time.Second
}
