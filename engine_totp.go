package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/account"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/stores"
)

// SetupTOTP generates a secret for the principal and keeps it pending until
// ConfirmTOTP proves the authenticator holds it.
func (e *Engine) SetupTOTP(ctx context.Context, kind account.Kind, accountID string) (*TOTPSetup, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	setup, err := e.flows.SetupTOTP(ctx, kind, accountID)
	if err != nil {
		return nil, backendErr(err)
	}
	return &TOTPSetup{Secret: setup.Secret, URL: setup.URL}, nil
}

// ConfirmTOTP activates the pending secret.
func (e *Engine) ConfirmTOTP(ctx context.Context, kind account.Kind, accountID, code string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return backendErr(e.flows.ConfirmTOTP(ctx, kind, accountID, code))
}

// DisableTOTP removes the secret. The current code is required.
func (e *Engine) DisableTOTP(ctx context.Context, kind account.Kind, accountID, code string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return backendErr(e.flows.DisableTOTP(ctx, kind, accountID, code))
}

func (e *Engine) totpFlowDeps() internalflows.TOTPDeps {
	return internalflows.TOTPDeps{
		Hooks:          e.hooks(),
		FindByID:       e.findByID,
		GenerateSecret: e.totp.Generate,
		SavePending: func(ctx context.Context, accountID, secret string) error {
			return backendErr(e.totpStore.SavePendingSecret(ctx, accountID, secret, e.config.TOTP.PendingTTL))
		},
		PendingSecret: func(ctx context.Context, accountID string) (string, error) {
			secret, err := e.totpStore.PendingSecret(ctx, accountID)
			if errors.Is(err, stores.ErrPendingSecretNotFound) {
				return "", ErrTOTPSetupExpired
			}
			return secret, backendErr(err)
		},
		DeletePending: func(ctx context.Context, accountID string) error {
			return backendErr(e.totpStore.DeletePendingSecret(ctx, accountID))
		},
		Verify: e.verifyTOTP,
		SetSecret: func(ctx context.Context, p *account.Principal, secret string) error {
			return e.directory.SetTOTPSecret(ctx, p.Kind, p.ID, secret)
		},
		Metrics: internalflows.TOTPMetrics{
			SetupRequested: int(MetricTOTPSetupRequested),
			Enabled:        int(MetricTOTPEnabled),
			Disabled:       int(MetricTOTPDisabled),
			Failure:        int(MetricTOTPFailure),
		},
		Events: internalflows.TOTPEvents{
			SetupRequested: auditEventTOTPSetupRequested,
			Enabled:        auditEventTOTPEnabled,
			Disabled:       auditEventTOTPDisabled,
			Failure:        auditEventTOTPFailure,
		},
		Errors: internalflows.TOTPErrors{
			EngineNotReady: ErrEngineNotReady,
			AlreadyEnabled: ErrTOTPAlreadyEnabled,
			NotConfigured:  ErrTOTPNotConfigured,
			CodeFormat:     ErrTOTPCodeFormat,
			Invalid:        ErrTOTPInvalid,
			SetupExpired:   ErrTOTPSetupExpired,
		},
	}
}

func (e *Engine) findByID(ctx context.Context, kind account.Kind, id string) (*account.Principal, error) {
	p, err := e.directory.FindByID(ctx, kind, id)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return p, err
}
