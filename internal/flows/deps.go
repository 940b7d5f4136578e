package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. The root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login         LoginDeps
	ThirdFactor   ThirdFactorDeps
	PasswordReset PasswordResetDeps
	Register      RegisterDeps
	TOTP          TOTPDeps
	Validate      ValidateDeps
}

// Hooks carries the observability callbacks shared by every flow.
type Hooks struct {
	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time
	MetricInc           func(int)
	EmitAudit           func(ctx context.Context, event string, success bool, accountID string, err error, metadata func() map[string]string)
	Warn                func(msg string, fields map[string]any)
}

func (h Hooks) withDefaults() Hooks {
	if h.ClientIPFromContext == nil {
		h.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, map[string]any) {}
	}
	return h
}

// AttemptErrorFunc decorates a sentinel with the remaining attempt count or a
// retry delay. Zero values mean "not applicable".
type AttemptErrorFunc func(err error, remaining int, retryAfter time.Duration) error

func attemptErrorOrPlain(fn AttemptErrorFunc, err error, remaining int, retryAfter time.Duration) error {
	if fn == nil || (remaining <= 0 && retryAfter <= 0) {
		return err
	}
	return fn(err, remaining, retryAfter)
}
