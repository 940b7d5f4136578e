package goAccount

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/account"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/token"
)

// Login authenticates one credential submission.
//
// A nil error with a pending result (see [LoginResult.Pending]) means the
// password was accepted and another factor is outstanding. Rate limiting,
// lockout and bad credentials are reported as errors; the latter two wrap an
// [*AttemptError] with the remaining budget or retry delay.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	outcome, err := e.flows.Login(ctx, internalflows.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
		Cookie:   req.Cookie,
	})
	if err != nil {
		return nil, backendErr(err)
	}
	return loginResultFrom(outcome), nil
}

func loginResultFrom(outcome *internalflows.LoginOutcome) *LoginResult {
	if outcome == nil {
		return nil
	}
	result := &LoginResult{
		TwoFactorRequired:   outcome.TwoFactorRequired,
		ThirdFactorRequired: outcome.ThirdFactorRequired,
	}
	if outcome.Principal != nil {
		result.Profile = outcome.Principal.Profile()
	}
	if outcome.Session != nil {
		result.Token = outcome.Session.Token
		result.CSRFToken = outcome.Session.CSRFToken
		result.ExpiresAt = outcome.Session.ExpiresAt
	}
	return result
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		Hooks:             e.hooks(),
		AllowLogin:        e.allowLogin,
		NotifyRateLimited: e.notifyRateLimited,
		IsLocked:          e.attempts.IsLocked,
		LockoutRemaining:  e.attempts.LockoutRemaining,
		RecordFailure:     e.recordFailure,
		RemainingAttempts: e.attempts.RemainingAttempts,
		ResetAttempts:     e.attempts.Reset,
		FindByEmail:       e.directory.FindByEmailCI,
		VerifyPassword:    e.hasher.Verify,
		DummyVerify: func(plaintext string) {
			_, _ = e.hasher.Verify(plaintext, e.dummyDigest)
		},
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.updatePasswordHash,
		ValidateTOTP: func(ctx context.Context, p *account.Principal, code string) (bool, error) {
			return e.verifyTOTP(ctx, p.ID, p.TOTPSecret, code)
		},
		OpenChallenge: func(ctx context.Context, identity string) error {
			return backendErr(e.thirdFactor.OpenChallenge(ctx, identity, e.config.ThirdFactor.ChallengeTTL))
		},
		IssueSession: e.issueSession,
		AttemptError: newAttemptError,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:        int(MetricLoginSuccess),
			LoginFailure:        int(MetricLoginFailure),
			LoginRateLimited:    int(MetricLoginRateLimited),
			LoginLocked:         int(MetricLoginLocked),
			TOTPRequired:        int(MetricTOTPRequired),
			TOTPFailure:         int(MetricTOTPFailure),
			ThirdFactorRequired: int(MetricThirdFactorRequired),
			PasswordRehashed:    int(MetricPasswordRehashed),
			SessionCreated:      int(MetricSessionCreated),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:        auditEventLoginSuccess,
			LoginFailure:        auditEventLoginFailure,
			LoginRateLimited:    auditEventLoginRateLimited,
			LoginLocked:         auditEventLoginLocked,
			TOTPRequired:        auditEventTOTPRequired,
			TOTPFailure:         auditEventTOTPFailure,
			ThirdFactorRequired: auditEventThirdFactorRequired,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidInput:       ErrInvalidInput,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
			AccountLocked:      ErrAccountLocked,
			AccountInactive:    ErrAccountInactive,
			TOTPCodeFormat:     ErrTOTPCodeFormat,
			TOTPInvalid:        ErrTOTPInvalid,
		},
	}
	if e.config.Password.UpgradeOnLogin {
		deps.PasswordNeedsUpgrade = e.hasher.NeedsUpgrade
	}
	return deps
}

func (e *Engine) allowLogin(ctx context.Context, address, identity string) (bool, time.Duration, error) {
	decision, err := e.limiter.AllowLogin(ctx, address, identity)
	if err != nil {
		return false, 0, backendErr(err)
	}
	return decision.Allowed, decision.RetryAfter, nil
}

// allowOTP charges one code against the hourly and then the daily budget.
func (e *Engine) allowOTP(ctx context.Context, identity string) (bool, time.Duration, error) {
	decision, err := e.limiter.AllowOTPHourly(ctx, identity)
	if err != nil {
		return false, 0, backendErr(err)
	}
	if !decision.Allowed {
		return false, decision.RetryAfter, nil
	}

	decision, err = e.limiter.AllowOTPDaily(ctx, identity)
	if err != nil {
		return false, 0, backendErr(err)
	}
	return decision.Allowed, decision.RetryAfter, nil
}

func (e *Engine) recordFailure(identity, address string) {
	if e.attempts.RecordFailure(identity, address) {
		e.log.WithField("identifier", identity).Info("login pair locked")
	}
}

func (e *Engine) updatePasswordHash(ctx context.Context, p *account.Principal, digest string) error {
	return e.directory.UpdatePassword(ctx, p.Kind, p.ID, digest)
}

// verifyTOTP validates code and burns it for the replay window. A code seen
// before is rejected like a wrong one.
func (e *Engine) verifyTOTP(ctx context.Context, accountID, secret, code string) (bool, error) {
	ok, err := e.totp.Validate(secret, code, e.now())
	if err != nil || !ok {
		return false, err
	}
	fresh, err := e.totpStore.MarkCodeUsed(ctx, accountID, code, e.totp.replayWindow())
	if err != nil {
		return false, backendErr(err)
	}
	return fresh, nil
}

// issueSession mints a bearer token. Cookie clients also get a session registry
// entry keyed by the token fingerprint and a CSRF token bound to it.
func (e *Engine) issueSession(ctx context.Context, p *account.Principal, cookie bool) (*internalflows.IssuedSession, error) {
	tok, err := e.tokens.Create(ctx, p.ID, string(p.Kind))
	if err != nil {
		return nil, backendErr(err)
	}

	issued := &internalflows.IssuedSession{
		Token:     tok.ID,
		ExpiresAt: tok.ExpiresAt,
	}
	if !cookie {
		return issued, nil
	}

	fingerprint := token.Fingerprint(tok.ID)
	e.sessions.GetOrCreate(fingerprint, string(p.Kind))
	issued.CSRFToken, err = e.csrf.Issue(fingerprint)
	if err != nil {
		return nil, err
	}
	return issued, nil
}
