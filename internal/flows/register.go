package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
)

// RegisterInput describes a new principal.
type RegisterInput struct {
	Kind     account.Kind
	Email    string
	Password string
	Name     string
	Surname  string
	Alias    string
	// SkipRateLimit is set by operator tooling that creates accounts out of band.
	SkipRateLimit bool
}

type RegisterMetrics struct {
	Success     int
	Duplicate   int
	RateLimited int
}

type RegisterEvents struct {
	Success   string
	Duplicate string
	Failure   string
}

type RegisterErrors struct {
	EngineNotReady          error
	InvalidInput            error
	RegistrationRateLimited error
	AccountExists           error
}

// RegisterDeps captures the collaborators of account creation.
type RegisterDeps struct {
	Hooks

	AllowRegistration func(ctx context.Context, address string) (bool, time.Duration, error)
	Validate          func(ctx context.Context, plaintext string, info password.PersonalInfo) []password.Violation
	PolicyError       func(violations []password.Violation) error
	HashPassword      func(plaintext string) (string, error)
	Create            func(ctx context.Context, p *account.Principal) error
	AttemptError      AttemptErrorFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates and stores a new principal. The email is claimed across
// every principal store.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (*account.Principal, error) {
	deps.Hooks = deps.Hooks.withDefaults()
	if deps.HashPassword == nil || deps.Create == nil {
		return nil, deps.Errors.EngineNotReady
	}

	kind := in.Kind
	if kind == "" {
		kind = account.KindUser
	}
	if _, err := account.ParseKind(string(kind)); err != nil {
		return nil, deps.Errors.InvalidInput
	}

	email := account.NormalizeEmail(in.Email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t\r\n") {
		return nil, deps.Errors.InvalidInput
	}

	if !in.SkipRateLimit && deps.AllowRegistration != nil {
		allowed, retryAfter, err := deps.AllowRegistration(ctx, deps.ClientIPFromContext(ctx))
		if err != nil {
			return nil, err
		}
		if !allowed {
			deps.MetricInc(deps.Metrics.RateLimited)
			return nil, attemptErrorOrPlain(deps.AttemptError, deps.Errors.RegistrationRateLimited, 0, retryAfter)
		}
	}

	info := password.PersonalInfo{
		Email:   email,
		Name:    strings.TrimSpace(in.Name),
		Surname: strings.TrimSpace(in.Surname),
		Alias:   strings.TrimSpace(in.Alias),
	}
	if deps.Validate != nil {
		if violations := deps.Validate(ctx, in.Password, info); len(violations) > 0 {
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", nil, func() map[string]string {
				return map[string]string{"reason": violations[0].Code}
			})
			if deps.PolicyError != nil {
				return nil, deps.PolicyError(violations)
			}
			return nil, deps.Errors.InvalidInput
		}
	}

	digest, err := deps.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	p := &account.Principal{
		Kind:         kind,
		Email:        email,
		Name:         info.Name,
		Surname:      info.Surname,
		Alias:        info.Alias,
		PasswordHash: digest,
		Active:       true,
	}
	if err := deps.Create(ctx, p); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Duplicate, false, "", deps.Errors.AccountExists, nil)
			return nil, deps.Errors.AccountExists
		}
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, p.ID, nil, func() map[string]string {
		return map[string]string{"role": string(p.Kind)}
	})
	return p, nil
}
