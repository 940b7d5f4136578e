package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
)

type PasswordResetMetrics struct {
	RequestIssued  int
	RequestLimited int
	ConfirmSuccess int
	ConfirmFailure int
}

type PasswordResetEvents struct {
	Request string
	Confirm string
	Failure string
}

type PasswordResetErrors struct {
	EngineNotReady error
	InvalidInput   error
	OTPRateLimited error
	InvalidToken   error
}

// PasswordResetDeps captures the collaborators of the recovery flows.
type PasswordResetDeps struct {
	Hooks

	TokenTTL time.Duration

	AllowOTP          func(ctx context.Context, identity string) (bool, time.Duration, error)
	NotifyRateLimited func(ctx context.Context, identity, action string)

	FindByEmail          func(ctx context.Context, email string) (*account.Principal, error)
	FindByResetTokenHash func(ctx context.Context, hash string) (*account.Principal, error)
	SetResetToken        func(ctx context.Context, p *account.Principal, hash string, expiresAt time.Time) error
	UpdatePassword       func(ctx context.Context, p *account.Principal, digest string) error
	RevokeTokens         func(ctx context.Context, accountID string) error

	NewToken     func() (string, error)
	HashToken    func(token string) string
	SendLink     func(ctx context.Context, email, token string) error
	Validate     func(ctx context.Context, plaintext string, info password.PersonalInfo) []password.Violation
	PolicyError  func(violations []password.Violation) error
	HashPassword func(plaintext string) (string, error)
	AttemptError AttemptErrorFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunRequestPasswordReset mails a single-use reset link when email resolves to a
// principal. The caller sees the same result either way.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	deps.Hooks = deps.Hooks.withDefaults()
	if deps.FindByEmail == nil || deps.SetResetToken == nil || deps.NewToken == nil || deps.HashToken == nil || deps.SendLink == nil {
		return deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return deps.Errors.InvalidInput
	}
	identity := account.EmailKey(email)

	if deps.AllowOTP != nil {
		allowed, retryAfter, err := deps.AllowOTP(ctx, identity)
		if err != nil {
			return err
		}
		if !allowed {
			deps.MetricInc(deps.Metrics.RequestLimited)
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", deps.Errors.OTPRateLimited, func() map[string]string {
				return map[string]string{"identifier": identity, "reason": "rate_limited"}
			})
			if deps.NotifyRateLimited != nil {
				deps.NotifyRateLimited(ctx, identity, "password recovery")
			}
			return attemptErrorOrPlain(deps.AttemptError, deps.Errors.OTPRateLimited, 0, retryAfter)
		}
	}

	p, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := deps.NewToken()
	if err != nil {
		return err
	}
	if err := deps.SetResetToken(ctx, p, deps.HashToken(token), deps.Now().Add(deps.TokenTTL)); err != nil {
		return err
	}
	if err := deps.SendLink(ctx, p.Email, token); err != nil {
		deps.Warn("password reset delivery failed", map[string]any{"account_id": p.ID, "error": err.Error()})
	}

	deps.MetricInc(deps.Metrics.RequestIssued)
	deps.EmitAudit(ctx, deps.Events.Request, true, p.ID, nil, nil)
	return nil
}

// RunConfirmPasswordReset consumes a reset token and installs a new password. Every
// live bearer token of the account is revoked afterwards.
func RunConfirmPasswordReset(ctx context.Context, token, plaintext string, deps PasswordResetDeps) error {
	deps.Hooks = deps.Hooks.withDefaults()
	if deps.FindByResetTokenHash == nil || deps.HashToken == nil || deps.UpdatePassword == nil || deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return deps.Errors.InvalidToken
	}

	p, err := deps.FindByResetTokenHash(ctx, deps.HashToken(token))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return failReset(ctx, deps, "", "unknown_token")
		}
		return err
	}
	if p.ResetExpiresAt == nil || !deps.Now().Before(*p.ResetExpiresAt) {
		return failReset(ctx, deps, p.ID, "expired_token")
	}

	if deps.Validate != nil {
		violations := deps.Validate(ctx, plaintext, password.PersonalInfo{
			Email:   p.Email,
			Name:    p.Name,
			Surname: p.Surname,
			Alias:   p.Alias,
		})
		if len(violations) > 0 {
			deps.MetricInc(deps.Metrics.ConfirmFailure)
			if deps.PolicyError != nil {
				return deps.PolicyError(violations)
			}
			return deps.Errors.InvalidInput
		}
	}

	digest, err := deps.HashPassword(plaintext)
	if err != nil {
		return err
	}
	if err := deps.UpdatePassword(ctx, p, digest); err != nil {
		return err
	}
	if deps.RevokeTokens != nil {
		if err := deps.RevokeTokens(ctx, p.ID); err != nil {
			deps.Warn("token revocation after reset failed", map[string]any{"account_id": p.ID, "error": err.Error()})
		}
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, p.ID, nil, nil)
	return nil
}

func failReset(ctx context.Context, deps PasswordResetDeps, accountID, reason string) error {
	deps.MetricInc(deps.Metrics.ConfirmFailure)
	deps.EmitAudit(ctx, deps.Events.Failure, false, accountID, deps.Errors.InvalidToken, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return deps.Errors.InvalidToken
}
