package goAccount

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/password"
)

var (
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidInput covers missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for unknown accounts and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")

	ErrLoginRateLimited        = errors.New("too many login attempts")
	ErrOTPRateLimited          = errors.New("too many code requests")
	ErrRegistrationRateLimited = errors.New("too many registrations")

	ErrTOTPCodeFormat     = errors.New("code must be numeric")
	ErrTOTPInvalid        = errors.New("invalid two-factor code")
	ErrTOTPAlreadyEnabled = errors.New("two-factor authentication already enabled")
	ErrTOTPNotConfigured  = errors.New("two-factor authentication not configured")
	ErrTOTPSetupExpired   = errors.New("two-factor setup expired")

	ErrThirdFactorInvalid  = errors.New("invalid verification code")
	ErrThirdFactorExpired  = errors.New("verification code expired")
	ErrThirdFactorAttempts = errors.New("verification code attempts exceeded")

	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	// ErrPasswordPolicy is wrapped by every *PolicyError.
	ErrPasswordPolicy = errors.New("password policy violation")

	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrSessionIdleExpired     = errors.New("session expired due to inactivity")
	ErrSessionAbsoluteExpired = errors.New("session expired")
	ErrCSRFInvalid            = errors.New("invalid csrf token")

	// ErrRedisUnavailable wraps failures of the shared Redis backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// AttemptError decorates a sentinel with attempt budget information.
type AttemptError struct {
	Err               error
	RemainingAttempts int
	RetryAfter        time.Duration
}

func (e *AttemptError) Error() string { return e.Err.Error() }
func (e *AttemptError) Unwrap() error { return e.Err }

func newAttemptError(err error, remaining int, retryAfter time.Duration) error {
	return &AttemptError{Err: err, RemainingAttempts: remaining, RetryAfter: retryAfter}
}

// PolicyError carries the violations of a rejected password. Its message is the
// first violation's message.
type PolicyError struct {
	Violations []password.Violation
}

func (e *PolicyError) Error() string {
	if msg := password.FirstMessage(e.Violations); msg != "" {
		return msg
	}
	return ErrPasswordPolicy.Error()
}

func (e *PolicyError) Unwrap() error { return ErrPasswordPolicy }

func newPolicyError(violations []password.Violation) error {
	return &PolicyError{Violations: violations}
}

// ErrorKind is the transport-neutral class of an engine error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUserInput
	KindAuthentication
	KindAuthorization
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Classify maps err onto an ErrorKind. Unknown errors are internal.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTOTPCodeFormat),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrResetTokenInvalid),
		errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrTOTPAlreadyEnabled),
		errors.Is(err, ErrTOTPNotConfigured),
		errors.Is(err, ErrTOTPSetupExpired),
		errors.Is(err, ErrThirdFactorExpired):
		return KindUserInput
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTOTPInvalid),
		errors.Is(err, ErrThirdFactorInvalid),
		errors.Is(err, ErrThirdFactorAttempts),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSessionIdleExpired),
		errors.Is(err, ErrSessionAbsoluteExpired):
		return KindAuthentication
	case errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrCSRFInvalid):
		return KindAuthorization
	case errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrOTPRateLimited),
		errors.Is(err, ErrRegistrationRateLimited):
		return KindRateLimit
	default:
		return KindInternal
	}
}

func wrapRedis(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
