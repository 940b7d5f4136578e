package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/account"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
)

// Register creates an end-user account. The registration budget of the
// caller's address applies.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*account.Profile, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if !e.config.Registration.Enabled {
		return nil, ErrForbidden
	}

	p, err := e.flows.Register(ctx, internalflows.RegisterInput{
		Kind:     account.KindUser,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Surname:  req.Surname,
		Alias:    req.Alias,
	})
	if err != nil {
		return nil, backendErr(err)
	}
	profile := p.Profile()
	return &profile, nil
}

// CreateAccount creates a principal of any kind without the registration rate
// limit. The password policy and the email claim still apply.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*account.Profile, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	p, err := e.flows.Register(ctx, internalflows.RegisterInput{
		Kind:          req.Kind,
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		Surname:       req.Surname,
		Alias:         req.Alias,
		SkipRateLimit: true,
	})
	if err != nil {
		return nil, backendErr(err)
	}
	profile := p.Profile()
	return &profile, nil
}

// SetActive activates or deactivates a principal. Deactivation revokes every
// bearer token of the account.
func (e *Engine) SetActive(ctx context.Context, kind account.Kind, accountID string, active bool) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrInvalidInput
	}

	if err := e.directory.SetActive(ctx, kind, accountID, active); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !active {
		if err := e.tokens.DeleteByAccount(ctx, accountID); err != nil {
			return backendErr(err)
		}
	}

	e.emitAudit(ctx, auditEventAccountStatusChange, true, accountID, nil, func() map[string]string {
		status := "inactive"
		if active {
			status = "active"
		}
		return map[string]string{"role": string(kind), "status": status}
	})
	return nil
}

// Profile returns the public view of a principal.
func (e *Engine) Profile(ctx context.Context, kind account.Kind, accountID string) (*account.Profile, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}
	p, err := e.directory.FindByID(ctx, kind, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	profile := p.Profile()
	return &profile, nil
}

// HashPassword returns a digest with the configured primary algorithm.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plaintext)
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		Hooks:             e.hooks(),
		AllowRegistration: e.allowRegistration,
		Validate:          e.policy.Validate,
		PolicyError:       newPolicyError,
		HashPassword:      e.hasher.Hash,
		Create:            e.directory.Create,
		AttemptError:      newAttemptError,
		Metrics: internalflows.RegisterMetrics{
			Success:     int(MetricAccountCreationSuccess),
			Duplicate:   int(MetricAccountCreationDuplicate),
			RateLimited: int(MetricAccountCreationRateLimited),
		},
		Events: internalflows.RegisterEvents{
			Success:   auditEventAccountCreated,
			Duplicate: auditEventAccountDuplicate,
			Failure:   auditEventAccountFailure,
		},
		Errors: internalflows.RegisterErrors{
			EngineNotReady:          ErrEngineNotReady,
			InvalidInput:            ErrInvalidInput,
			RegistrationRateLimited: ErrRegistrationRateLimited,
			AccountExists:           ErrAccountExists,
		},
	}
}

func (e *Engine) allowRegistration(ctx context.Context, address string) (bool, time.Duration, error) {
	decision, err := e.limiter.AllowRegistration(ctx, address)
	if err != nil {
		return false, 0, backendErr(err)
	}
	return decision.Allowed, decision.RetryAfter, nil
}
