package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal"
)

// ThirdFactorMetrics carries metric IDs for the out-of-band factor.
type ThirdFactorMetrics struct {
	CodeIssued      int
	CodeRateLimited int
	VerifySuccess   int
	VerifyFailure   int
	SessionCreated  int
}

// ThirdFactorEvents carries audit event names for the out-of-band factor.
type ThirdFactorEvents struct {
	CodeIssued      string
	CodeRateLimited string
	VerifySuccess   string
	VerifyFailure   string
}

// ThirdFactorErrors carries host-level sentinels for the out-of-band factor.
type ThirdFactorErrors struct {
	EngineNotReady   error
	InvalidInput     error
	OTPRateLimited   error
	AccountLocked    error
	AccountInactive  error
	CodeFormat       error
	CodeInvalid      error
	CodeExpired      error
	AttemptsExceeded error
}

// ThirdFactorDeps captures the collaborators of the mailed-code factor.
type ThirdFactorDeps struct {
	Hooks

	AllowOTP          func(ctx context.Context, identity string) (bool, time.Duration, error)
	NotifyRateLimited func(ctx context.Context, identity, action string)

	HasChallenge   func(ctx context.Context, identity string) (bool, error)
	CloseChallenge func(ctx context.Context, identity string) error
	NewCode        func() (string, error)
	SaveCode       func(ctx context.Context, identity, code string) error
	// ConsumeCode returns one of CodeInvalid, CodeExpired or AttemptsExceeded on
	// rejection.
	ConsumeCode func(ctx context.Context, identity, code string) error
	SendCode    func(ctx context.Context, email, code string) error

	IsLocked          func(identity, address string) bool
	LockoutRemaining  func(identity, address string) time.Duration
	RecordFailure     func(identity, address string)
	RemainingAttempts func(identity, address string) int
	ResetAttempts     func(identity, address string)

	FindByEmail  func(ctx context.Context, email string) (*account.Principal, error)
	IssueSession func(ctx context.Context, p *account.Principal, cookie bool) (*IssuedSession, error)
	AttemptError AttemptErrorFunc

	Metrics ThirdFactorMetrics
	Events  ThirdFactorEvents
	Errors  ThirdFactorErrors
}

// RunRequestThirdFactorCode mails a fresh code when identity holds a pending
// challenge. Without one it does nothing and still reports success, so callers
// learn nothing about the account.
func RunRequestThirdFactorCode(ctx context.Context, email string, deps ThirdFactorDeps) error {
	deps.Hooks = deps.Hooks.withDefaults()
	if deps.HasChallenge == nil || deps.NewCode == nil || deps.SaveCode == nil || deps.SendCode == nil {
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
			deps.MetricInc(deps.Metrics.CodeRateLimited)
			deps.EmitAudit(ctx, deps.Events.CodeRateLimited, false, "", deps.Errors.OTPRateLimited, func() map[string]string {
				return map[string]string{"identifier": identity}
			})
			if deps.NotifyRateLimited != nil {
				deps.NotifyRateLimited(ctx, identity, "verification code")
			}
			return attemptErrorOrPlain(deps.AttemptError, deps.Errors.OTPRateLimited, 0, retryAfter)
		}
	}

	pending, err := deps.HasChallenge(ctx, identity)
	if err != nil {
		return err
	}
	if !pending {
		return nil
	}

	code, err := deps.NewCode()
	if err != nil {
		return err
	}
	if err := deps.SaveCode(ctx, identity, code); err != nil {
		return err
	}
	if err := deps.SendCode(ctx, email, code); err != nil {
		deps.Warn("third factor code delivery failed", map[string]any{"identifier": identity, "error": err.Error()})
	}

	deps.MetricInc(deps.Metrics.CodeIssued)
	deps.EmitAudit(ctx, deps.Events.CodeIssued, true, "", nil, func() map[string]string {
		return map[string]string{"identifier": identity}
	})
	return nil
}

// RunVerifyThirdFactor completes a login parked on the out-of-band factor.
func RunVerifyThirdFactor(ctx context.Context, email, code string, cookie bool, deps ThirdFactorDeps) (*LoginOutcome, error) {
	deps.Hooks = deps.Hooks.withDefaults()
	if deps.ConsumeCode == nil ||
		deps.CloseChallenge == nil ||
		deps.IsLocked == nil ||
		deps.RecordFailure == nil ||
		deps.ResetAttempts == nil ||
		deps.FindByEmail == nil ||
		deps.IssueSession == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.RemainingAttempts == nil {
		deps.RemainingAttempts = func(string, string) int { return 0 }
	}
	if deps.LockoutRemaining == nil {
		deps.LockoutRemaining = func(string, string) time.Duration { return 0 }
	}

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, deps.Errors.InvalidInput
	}
	if !internal.IsNumeric(code) {
		return nil, deps.Errors.CodeFormat
	}

	identity := account.EmailKey(email)
	address := deps.ClientIPFromContext(ctx)

	if deps.IsLocked(identity, address) {
		return nil, attemptErrorOrPlain(deps.AttemptError, deps.Errors.AccountLocked, 0, deps.LockoutRemaining(identity, address))
	}

	if err := deps.ConsumeCode(ctx, identity, code); err != nil {
		switch {
		case errors.Is(err, deps.Errors.CodeInvalid), errors.Is(err, deps.Errors.AttemptsExceeded):
			deps.RecordFailure(identity, address)
			deps.MetricInc(deps.Metrics.VerifyFailure)
			deps.EmitAudit(ctx, deps.Events.VerifyFailure, false, "", err, func() map[string]string {
				return map[string]string{"identifier": identity}
			})
			return nil, attemptErrorOrPlain(deps.AttemptError, err, deps.RemainingAttempts(identity, address), 0)
		case errors.Is(err, deps.Errors.CodeExpired):
			deps.MetricInc(deps.Metrics.VerifyFailure)
			return nil, err
		default:
			return nil, err
		}
	}

	p, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, deps.Errors.CodeInvalid
		}
		return nil, err
	}
	if !p.Active {
		return nil, deps.Errors.AccountInactive
	}

	if err := deps.CloseChallenge(ctx, identity); err != nil {
		return nil, err
	}
	deps.ResetAttempts(identity, address)

	issued, err := deps.IssueSession(ctx, p, cookie)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.VerifySuccess)
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.VerifySuccess, true, p.ID, nil, func() map[string]string {
		return map[string]string{"role": string(p.Kind)}
	})
	return &LoginOutcome{Principal: p, Session: issued}, nil
}
