package goAccount

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/account"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
)

// Authenticate resolves a bearer token to its principal. Absent, unknown and
// expired tokens all report ErrUnauthorized; backend failures are returned
// wrapped.
func (e *Engine) Authenticate(ctx context.Context, rawToken string) (*AuthResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer e.metricObserve(MetricAuthenticateLatency, started)

	res := e.flows.Validate(ctx, rawToken)
	switch res.Failure {
	case internalflows.ValidateFailureNone:
	case internalflows.ValidateFailureAnonymous:
		return nil, ErrUnauthorized
	default:
		return nil, backendErr(res.Err)
	}

	tok := res.Token
	return &AuthResult{
		AccountID:  tok.AccountID,
		Role:       account.Kind(tok.Role),
		TokenID:    tok.ID,
		SessionKey: token.Fingerprint(tok.ID),
		ExpiresAt:  tok.ExpiresAt,
	}, nil
}

// CheckSession applies the idle and absolute budgets of auth's role and records
// activity. fallbackKey is only used when auth carries no session key. A breach
// evicts the session, revokes the token and returns ErrSessionIdleExpired or
// ErrSessionAbsoluteExpired.
func (e *Engine) CheckSession(ctx context.Context, auth *AuthResult, fallbackKey string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if auth == nil {
		return ErrUnauthorized
	}

	key := auth.SessionKey
	if key == "" {
		key = fallbackKey
	}
	if key == "" {
		return ErrUnauthorized
	}

	res := e.flows.CheckSession(ctx, &token.Token{
		ID:        auth.TokenID,
		AccountID: auth.AccountID,
		Role:      string(auth.Role),
		ExpiresAt: auth.ExpiresAt,
	}, key)
	if res.Failure == internalflows.ValidateFailureNone {
		return nil
	}
	if res.Err == nil {
		return ErrUnauthorized
	}
	return backendErr(res.Err)
}

// Logout revokes auth's token and forgets its session. Repeated calls succeed.
func (e *Engine) Logout(ctx context.Context, auth *AuthResult) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if auth == nil || auth.TokenID == "" {
		return ErrUnauthorized
	}

	if err := e.tokens.Delete(ctx, auth.TokenID); err != nil {
		return backendErr(err)
	}
	if auth.SessionKey != "" {
		e.sessions.Remove(auth.SessionKey)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, auth.AccountID, nil, func() map[string]string {
		return map[string]string{"role": string(auth.Role)}
	})
	return nil
}

// VerifyCSRF checks the double-submitted CSRF pair against the credential in
// auth. Any failure is ErrCSRFInvalid.
func (e *Engine) VerifyCSRF(ctx context.Context, auth *AuthResult, header, cookie string) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	if auth == nil {
		return ErrUnauthorized
	}

	if err := e.csrf.Verify(header, cookie, auth.SessionKey); err != nil {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, auth.AccountID, ErrCSRFInvalid, nil)
		return fmt.Errorf("%w: %v", ErrCSRFInvalid, err)
	}
	return nil
}

// IssueCSRF mints a fresh CSRF token for auth's credential.
func (e *Engine) IssueCSRF(auth *AuthResult) (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}
	if auth == nil || auth.SessionKey == "" {
		return "", ErrUnauthorized
	}
	return e.csrf.Issue(auth.SessionKey)
}

func (e *Engine) validateFlowDeps() internalflows.ValidateDeps {
	return internalflows.ValidateDeps{
		Hooks:       e.hooks(),
		LookupToken: e.tokens.Lookup,
		DeleteToken: e.tokens.Delete,
		CheckSession: func(key, role string) error {
			_, err := e.sessions.Check(key, role)
			switch {
			case errors.Is(err, session.ErrIdleExpired):
				return ErrSessionIdleExpired
			case errors.Is(err, session.ErrAbsoluteExpired):
				return ErrSessionAbsoluteExpired
			}
			return err
		},
		RemoveSession:   e.sessions.Remove,
		IdleExpired:     ErrSessionIdleExpired,
		AbsoluteExpired: ErrSessionAbsoluteExpired,
		Metrics: internalflows.ValidateMetrics{
			IdleExpired:     int(MetricSessionIdleExpired),
			AbsoluteExpired: int(MetricSessionAbsoluteExpired),
		},
		Events: internalflows.ValidateEvents{
			SessionExpired: auditEventSessionExpired,
		},
	}
}
