package goAccount

import (
	"context"
	"net/url"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/mail"
)

// RequestPasswordReset mails a single-use reset link to the owner of email.
// Unknown addresses succeed silently.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return backendErr(e.flows.RequestPasswordReset(ctx, email))
}

// ConfirmPasswordReset consumes resetToken and installs newPassword after the
// policy check. All bearer tokens of the account are revoked on success.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return backendErr(e.flows.ConfirmPasswordReset(ctx, resetToken, newPassword))
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	cfg := e.config.PasswordReset

	return internalflows.PasswordResetDeps{
		Hooks:                e.hooks(),
		TokenTTL:             cfg.TokenTTL,
		AllowOTP:             e.allowOTP,
		NotifyRateLimited:    e.notifyRateLimited,
		FindByEmail:          e.directory.FindByEmailCI,
		FindByResetTokenHash: e.directory.FindByResetTokenHash,
		SetResetToken: func(ctx context.Context, p *account.Principal, hash string, expiresAt time.Time) error {
			return e.directory.SetResetToken(ctx, p.Kind, p.ID, hash, expiresAt)
		},
		UpdatePassword: e.updatePasswordHash,
		RevokeTokens: func(ctx context.Context, accountID string) error {
			return backendErr(e.tokens.DeleteByAccount(ctx, accountID))
		},
		NewToken:  internal.NewResetToken,
		HashToken: internal.Fingerprint,
		SendLink: func(ctx context.Context, email, resetToken string) error {
			link := cfg.LinkBaseURL + url.QueryEscape(resetToken)
			return e.mailer.Send(ctx, mail.PasswordReset(email, link, cfg.TokenTTL))
		},
		Validate:     e.policy.Validate,
		PolicyError:  newPolicyError,
		HashPassword: e.hasher.Hash,
		AttemptError: newAttemptError,
		Metrics: internalflows.PasswordResetMetrics{
			RequestIssued:  int(MetricPasswordResetRequest),
			RequestLimited: int(MetricPasswordResetRateLimited),
			ConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			ConfirmFailure: int(MetricPasswordResetConfirmFailure),
		},
		Events: internalflows.PasswordResetEvents{
			Request: auditEventPasswordResetRequest,
			Confirm: auditEventPasswordResetConfirm,
			Failure: auditEventPasswordResetFailure,
		},
		Errors: internalflows.PasswordResetErrors{
			EngineNotReady: ErrEngineNotReady,
			InvalidInput:   ErrInvalidInput,
			OTPRateLimited: ErrOTPRateLimited,
			InvalidToken:   ErrResetTokenInvalid,
		},
	}
}
