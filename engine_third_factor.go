package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/mail"
)

// RequestThirdFactorCode mails a verification code when email has a login
// parked on the out-of-band factor. The result does not reveal whether one
// was pending; only rate limiting and backend failures are reported.
func (e *Engine) RequestThirdFactorCode(ctx context.Context, email string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	return backendErr(e.flows.RequestThirdFactorCode(ctx, email))
}

// VerifyThirdFactor completes a parked login with the mailed code and issues
// credentials exactly like a single-step login.
func (e *Engine) VerifyThirdFactor(ctx context.Context, email, code string, cookie bool) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	outcome, err := e.flows.VerifyThirdFactor(ctx, email, code, cookie)
	if err != nil {
		return nil, backendErr(err)
	}
	return loginResultFrom(outcome), nil
}

// SetThirdFactor turns the out-of-band factor on or off for one principal.
func (e *Engine) SetThirdFactor(ctx context.Context, kind account.Kind, accountID string, enabled bool) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrInvalidInput
	}

	if err := e.directory.SetThirdFactor(ctx, kind, accountID, enabled); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	e.emitAudit(ctx, auditEventThirdFactorToggled, true, accountID, nil, func() map[string]string {
		if enabled {
			return map[string]string{"enabled": "true"}
		}
		return map[string]string{"enabled": "false"}
	})
	return nil
}

func (e *Engine) thirdFactorFlowDeps() internalflows.ThirdFactorDeps {
	cfg := e.config.ThirdFactor

	return internalflows.ThirdFactorDeps{
		Hooks:             e.hooks(),
		AllowOTP:          e.allowOTP,
		NotifyRateLimited: e.notifyRateLimited,
		HasChallenge: func(ctx context.Context, identity string) (bool, error) {
			ok, err := e.thirdFactor.HasChallenge(ctx, identity)
			return ok, backendErr(err)
		},
		CloseChallenge: func(ctx context.Context, identity string) error {
			return backendErr(e.thirdFactor.CloseChallenge(ctx, identity))
		},
		NewCode: func() (string, error) {
			return internal.NewOTP(cfg.Digits)
		},
		SaveCode: func(ctx context.Context, identity, code string) error {
			return backendErr(e.thirdFactor.SaveCode(ctx, identity, internal.HashCode(code), cfg.CodeTTL))
		},
		ConsumeCode: e.consumeThirdFactorCode,
		SendCode: func(ctx context.Context, email, code string) error {
			return e.mailer.Send(ctx, mail.ThirdFactorCode(email, code, cfg.CodeTTL))
		},
		IsLocked:          e.attempts.IsLocked,
		LockoutRemaining:  e.attempts.LockoutRemaining,
		RecordFailure:     e.recordFailure,
		RemainingAttempts: e.attempts.RemainingAttempts,
		ResetAttempts:     e.attempts.Reset,
		FindByEmail:       e.directory.FindByEmailCI,
		IssueSession:      e.issueSession,
		AttemptError:      newAttemptError,
		Metrics: internalflows.ThirdFactorMetrics{
			CodeIssued:      int(MetricThirdFactorCodeIssued),
			CodeRateLimited: int(MetricThirdFactorRateLimited),
			VerifySuccess:   int(MetricThirdFactorSuccess),
			VerifyFailure:   int(MetricThirdFactorFailure),
			SessionCreated:  int(MetricSessionCreated),
		},
		Events: internalflows.ThirdFactorEvents{
			CodeIssued:      auditEventThirdFactorCodeIssued,
			CodeRateLimited: auditEventThirdFactorLimited,
			VerifySuccess:   auditEventThirdFactorSuccess,
			VerifyFailure:   auditEventThirdFactorFailure,
		},
		Errors: internalflows.ThirdFactorErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidInput:     ErrInvalidInput,
			OTPRateLimited:   ErrOTPRateLimited,
			AccountLocked:    ErrAccountLocked,
			AccountInactive:  ErrAccountInactive,
			CodeFormat:       ErrTOTPCodeFormat,
			CodeInvalid:      ErrThirdFactorInvalid,
			CodeExpired:      ErrThirdFactorExpired,
			AttemptsExceeded: ErrThirdFactorAttempts,
		},
	}
}

func (e *Engine) consumeThirdFactorCode(ctx context.Context, identity, code string) error {
	err := e.thirdFactor.ConsumeCode(ctx, identity, internal.HashCode(code), e.config.ThirdFactor.MaxAttempts)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrCodeNotFound):
		return ErrThirdFactorExpired
	case errors.Is(err, stores.ErrCodeMismatch):
		return ErrThirdFactorInvalid
	case errors.Is(err, stores.ErrCodeAttemptsExceeded):
		return ErrThirdFactorAttempts
	default:
		return backendErr(err)
	}
}
