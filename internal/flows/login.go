package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal"
)

// LoginInput is a single credential submission.
type LoginInput struct {
	Email    string
	Password string
	OTP      string
	Cookie   bool
}

// IssuedSession is the credential material minted on success.
type IssuedSession struct {
	Token     string
	CSRFToken string
	ExpiresAt time.Time
}

// LoginOutcome is either a pending factor or an issued session.
type LoginOutcome struct {
	Principal           *account.Principal
	TwoFactorRequired   bool
	ThirdFactorRequired bool
	Session             *IssuedSession
}

// LoginMetrics carries metric IDs needed by the login flows.
type LoginMetrics struct {
	LoginSuccess        int
	LoginFailure        int
	LoginRateLimited    int
	LoginLocked         int
	TOTPRequired        int
	TOTPFailure         int
	ThirdFactorRequired int
	PasswordRehashed    int
	SessionCreated      int
}

// LoginEvents carries audit event names used by the login flows.
type LoginEvents struct {
	LoginSuccess        string
	LoginFailure        string
	LoginRateLimited    string
	LoginLocked         string
	TOTPRequired        string
	TOTPFailure         string
	ThirdFactorRequired string
}

// LoginErrors carries host-level sentinel errors used by the login flows.
type LoginErrors struct {
	EngineNotReady     error
	InvalidInput       error
	InvalidCredentials error
	LoginRateLimited   error
	AccountLocked      error
	AccountInactive    error
	TOTPCodeFormat     error
	TOTPInvalid        error
}

// LoginDeps captures the collaborators of the login sequencer.
type LoginDeps struct {
	Hooks

	AllowLogin        func(ctx context.Context, address, identity string) (bool, time.Duration, error)
	NotifyRateLimited func(ctx context.Context, identity, action string)

	IsLocked          func(identity, address string) bool
	LockoutRemaining  func(identity, address string) time.Duration
	RecordFailure     func(identity, address string)
	RemainingAttempts func(identity, address string) int
	ResetAttempts     func(identity, address string)

	FindByEmail          func(ctx context.Context, email string) (*account.Principal, error)
	VerifyPassword       func(plaintext, digest string) (bool, error)
	DummyVerify          func(plaintext string)
	PasswordNeedsUpgrade func(digest string) (bool, error)
	HashPassword         func(plaintext string) (string, error)
	UpdatePasswordHash   func(ctx context.Context, p *account.Principal, digest string) error

	ValidateTOTP  func(ctx context.Context, p *account.Principal, code string) (bool, error)
	OpenChallenge func(ctx context.Context, identity string) error
	IssueSession  func(ctx context.Context, p *account.Principal, cookie bool) (*IssuedSession, error)
	AttemptError  AttemptErrorFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (d LoginDeps) ready() bool {
	return d.IsLocked != nil &&
		d.RecordFailure != nil &&
		d.ResetAttempts != nil &&
		d.FindByEmail != nil &&
		d.VerifyPassword != nil &&
		d.IssueSession != nil
}

// RunLogin drives one login request through the factor sequence: rate limit,
// lockout, lookup, password, TOTP, account activity, out-of-band factor and
// finally session issuance. The order is fixed; each gate can stop the request.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) (*LoginOutcome, error) {
	deps.Hooks = deps.Hooks.withDefaults()
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.DummyVerify == nil {
		deps.DummyVerify = func(string) {}
	}
	if deps.RemainingAttempts == nil {
		deps.RemainingAttempts = func(string, string) int { return 0 }
	}
	if deps.LockoutRemaining == nil {
		deps.LockoutRemaining = func(string, string) time.Duration { return 0 }
	}

	email := strings.TrimSpace(in.Email)
	plaintext := strings.TrimSpace(in.Password)
	code := strings.TrimSpace(in.OTP)
	if email == "" || plaintext == "" {
		return nil, deps.Errors.InvalidInput
	}

	identity := account.EmailKey(email)
	address := deps.ClientIPFromContext(ctx)

	// Follow-up submissions carrying a code are not charged against the login budget.
	if code == "" && deps.AllowLogin != nil {
		allowed, retryAfter, err := deps.AllowLogin(ctx, address, identity)
		if err != nil {
			return nil, err
		}
		if !allowed {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", deps.Errors.LoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": identity}
			})
			if deps.NotifyRateLimited != nil {
				deps.NotifyRateLimited(ctx, identity, "sign-in")
			}
			return nil, attemptErrorOrPlain(deps.AttemptError, deps.Errors.LoginRateLimited, 0, retryAfter)
		}
	}

	if deps.IsLocked(identity, address) {
		deps.MetricInc(deps.Metrics.LoginLocked)
		deps.EmitAudit(ctx, deps.Events.LoginLocked, false, "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{"identifier": identity}
		})
		return nil, attemptErrorOrPlain(deps.AttemptError, deps.Errors.AccountLocked, 0, deps.LockoutRemaining(identity, address))
	}

	p, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return nil, err
		}
		deps.DummyVerify(plaintext)
		return nil, failCredentials(ctx, deps, identity, address, "", "unknown_account", deps.Errors.InvalidCredentials)
	}

	if p.Kind != account.KindUser && !p.Active {
		return nil, rejectInactive(ctx, deps, p, "inactive_before_password")
	}

	ok, err := deps.VerifyPassword(plaintext, p.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, failCredentials(ctx, deps, identity, address, p.ID, "password_mismatch", deps.Errors.InvalidCredentials)
	}
	upgradeDigest(ctx, deps, p, plaintext)
	plaintext = ""

	if p.HasTOTP() {
		if code == "" {
			deps.MetricInc(deps.Metrics.TOTPRequired)
			deps.EmitAudit(ctx, deps.Events.TOTPRequired, true, p.ID, nil, nil)
			return &LoginOutcome{Principal: p, TwoFactorRequired: true}, nil
		}
		if !internal.IsNumeric(code) {
			return nil, deps.Errors.TOTPCodeFormat
		}
		valid := false
		if deps.ValidateTOTP != nil {
			valid, err = deps.ValidateTOTP(ctx, p, code)
			if err != nil {
				return nil, err
			}
		}
		if !valid {
			deps.MetricInc(deps.Metrics.TOTPFailure)
			deps.EmitAudit(ctx, deps.Events.TOTPFailure, false, p.ID, deps.Errors.TOTPInvalid, nil)
			return nil, failCredentials(ctx, deps, identity, address, p.ID, "totp_invalid", deps.Errors.TOTPInvalid)
		}
	}

	if p.Kind == account.KindUser && !p.Active {
		return nil, rejectInactive(ctx, deps, p, "inactive_after_factors")
	}

	if p.ThirdFactorEnabled {
		if deps.OpenChallenge == nil {
			return nil, deps.Errors.EngineNotReady
		}
		if err := deps.OpenChallenge(ctx, identity); err != nil {
			return nil, err
		}
		deps.MetricInc(deps.Metrics.ThirdFactorRequired)
		deps.EmitAudit(ctx, deps.Events.ThirdFactorRequired, true, p.ID, nil, nil)
		return &LoginOutcome{Principal: p, ThirdFactorRequired: true}, nil
	}

	deps.ResetAttempts(identity, address)
	issued, err := deps.IssueSession(ctx, p, in.Cookie)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, p.ID, nil, func() map[string]string {
		return map[string]string{"role": string(p.Kind)}
	})
	return &LoginOutcome{Principal: p, Session: issued}, nil
}

func failCredentials(ctx context.Context, deps LoginDeps, identity, address, accountID, reason string, sentinel error) error {
	deps.RecordFailure(identity, address)
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, accountID, sentinel, func() map[string]string {
		return map[string]string{
			"identifier": identity,
			"reason":     reason,
		}
	})
	return attemptErrorOrPlain(deps.AttemptError, sentinel, deps.RemainingAttempts(identity, address), 0)
}

func rejectInactive(ctx context.Context, deps LoginDeps, p *account.Principal, reason string) error {
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, p.ID, deps.Errors.AccountInactive, func() map[string]string {
		return map[string]string{
			"role":   string(p.Kind),
			"reason": reason,
		}
	})
	return deps.Errors.AccountInactive
}

func upgradeDigest(ctx context.Context, deps LoginDeps, p *account.Principal, plaintext string) {
	if deps.PasswordNeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	needsUpgrade, err := deps.PasswordNeedsUpgrade(p.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	digest, err := deps.HashPassword(plaintext)
	if err != nil {
		deps.Warn("password rehash failed", map[string]any{"account_id": p.ID, "error": err.Error()})
		return
	}
	if err := deps.UpdatePasswordHash(ctx, p, digest); err != nil {
		deps.Warn("password rehash update failed", map[string]any{"account_id": p.ID, "error": err.Error()})
		return
	}
	p.PasswordHash = digest
	deps.MetricInc(deps.Metrics.PasswordRehashed)
}
