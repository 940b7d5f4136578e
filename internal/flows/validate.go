package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/token"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureAnonymous
	ValidateFailureUnavailable
	ValidateFailureIdle
	ValidateFailureAbsolute
)

// ValidateResult returns either the resolved token or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Token   *token.Token
}

type ValidateMetrics struct {
	IdleExpired     int
	AbsoluteExpired int
}

type ValidateEvents struct {
	SessionExpired string
}

// ValidateDeps captures token resolution and session activity checks.
type ValidateDeps struct {
	Hooks

	LookupToken func(ctx context.Context, id string) (*token.Token, error)
	DeleteToken func(ctx context.Context, id string) error
	// CheckSession applies both expiry rules and touches the session. It
	// returns IdleExpired or AbsoluteExpired on a breach.
	CheckSession  func(key, role string) error
	RemoveSession func(key string)

	IdleExpired     error
	AbsoluteExpired error

	Metrics ValidateMetrics
	Events  ValidateEvents
}

// RunValidate resolves a bearer token. Absent, unknown and expired tokens all
// report ValidateFailureAnonymous.
func RunValidate(ctx context.Context, tokenID string, deps ValidateDeps) ValidateResult {
	if tokenID == "" || deps.LookupToken == nil {
		return ValidateResult{Failure: ValidateFailureAnonymous}
	}
	tok, err := deps.LookupToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return ValidateResult{Failure: ValidateFailureAnonymous}
		}
		return ValidateResult{Failure: ValidateFailureUnavailable, Err: err}
	}
	return ValidateResult{Token: tok}
}

// RunCheckSession enforces the idle and absolute budgets of the session keyed by
// key. A breach removes the session and revokes the token.
func RunCheckSession(ctx context.Context, tok *token.Token, key string, deps ValidateDeps) ValidateResult {
	deps.Hooks = deps.Hooks.withDefaults()
	if tok == nil {
		return ValidateResult{Failure: ValidateFailureAnonymous}
	}
	if deps.CheckSession == nil {
		return ValidateResult{Token: tok}
	}

	err := deps.CheckSession(key, tok.Role)
	if err == nil {
		return ValidateResult{Token: tok}
	}

	failure := ValidateFailureIdle
	reason := "idle"
	metric := deps.Metrics.IdleExpired
	if errors.Is(err, deps.AbsoluteExpired) {
		failure = ValidateFailureAbsolute
		reason = "absolute"
		metric = deps.Metrics.AbsoluteExpired
	} else if !errors.Is(err, deps.IdleExpired) {
		return ValidateResult{Failure: ValidateFailureUnavailable, Err: err}
	}

	if deps.RemoveSession != nil {
		deps.RemoveSession(key)
	}
	if deps.DeleteToken != nil {
		if delErr := deps.DeleteToken(ctx, tok.ID); delErr != nil {
			deps.Warn("token revocation after session expiry failed", map[string]any{"account_id": tok.AccountID, "error": delErr.Error()})
		}
	}

	deps.MetricInc(metric)
	deps.EmitAudit(ctx, deps.Events.SessionExpired, false, tok.AccountID, err, func() map[string]string {
		return map[string]string{"reason": reason, "role": tok.Role}
	})
	return ValidateResult{Failure: failure, Err: err, Token: tok}
}
