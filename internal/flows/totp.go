package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal"
)

// TOTPSetup is the material shown to the user during enrolment.
type TOTPSetup struct {
	Secret string
	URL    string
}

type TOTPMetrics struct {
	SetupRequested int
	Enabled        int
	Disabled       int
	Failure        int
}

type TOTPEvents struct {
	SetupRequested string
	Enabled        string
	Disabled       string
	Failure        string
}

type TOTPErrors struct {
	EngineNotReady error
	AlreadyEnabled error
	NotConfigured  error
	CodeFormat     error
	Invalid        error
	SetupExpired   error
}

// TOTPDeps captures the collaborators of TOTP enrolment.
type TOTPDeps struct {
	Hooks

	FindByID       func(ctx context.Context, kind account.Kind, id string) (*account.Principal, error)
	GenerateSecret func(accountName string) (secret, url string, err error)
	SavePending    func(ctx context.Context, accountID, secret string) error
	// PendingSecret returns Errors.SetupExpired when nothing is pending.
	PendingSecret func(ctx context.Context, accountID string) (string, error)
	DeletePending func(ctx context.Context, accountID string) error
	// Verify checks code against secret and marks it used.
	Verify    func(ctx context.Context, accountID, secret, code string) (bool, error)
	SetSecret func(ctx context.Context, p *account.Principal, secret string) error

	Metrics TOTPMetrics
	Events  TOTPEvents
	Errors  TOTPErrors
}

func (d TOTPDeps) ready() bool {
	return d.FindByID != nil &&
		d.GenerateSecret != nil &&
		d.SavePending != nil &&
		d.PendingSecret != nil &&
		d.DeletePending != nil &&
		d.Verify != nil &&
		d.SetSecret != nil
}

// RunSetupTOTP generates a secret and parks it until the user proves possession.
func RunSetupTOTP(ctx context.Context, kind account.Kind, accountID string, deps TOTPDeps) (*TOTPSetup, error) {
	deps.Hooks = deps.Hooks.withDefaults()
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	p, err := deps.FindByID(ctx, kind, accountID)
	if err != nil {
		return nil, err
	}
	if p.HasTOTP() {
		return nil, deps.Errors.AlreadyEnabled
	}

	secret, url, err := deps.GenerateSecret(p.Email)
	if err != nil {
		return nil, err
	}
	if err := deps.SavePending(ctx, p.ID, secret); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.SetupRequested)
	deps.EmitAudit(ctx, deps.Events.SetupRequested, true, p.ID, nil, nil)
	return &TOTPSetup{Secret: secret, URL: url}, nil
}

// RunConfirmTOTP activates the pending secret once code verifies against it.
func RunConfirmTOTP(ctx context.Context, kind account.Kind, accountID, code string, deps TOTPDeps) error {
	deps.Hooks = deps.Hooks.withDefaults()
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	code = strings.TrimSpace(code)
	if !internal.IsNumeric(code) {
		return deps.Errors.CodeFormat
	}

	p, err := deps.FindByID(ctx, kind, accountID)
	if err != nil {
		return err
	}
	if p.HasTOTP() {
		return deps.Errors.AlreadyEnabled
	}

	secret, err := deps.PendingSecret(ctx, p.ID)
	if err != nil {
		return err
	}
	ok, err := deps.Verify(ctx, p.ID, secret, code)
	if err != nil {
		return err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, p.ID, deps.Errors.Invalid, func() map[string]string {
			return map[string]string{"stage": "confirm"}
		})
		return deps.Errors.Invalid
	}

	if err := deps.SetSecret(ctx, p, secret); err != nil {
		return err
	}
	if err := deps.DeletePending(ctx, p.ID); err != nil {
		deps.Warn("pending totp secret cleanup failed", map[string]any{"account_id": p.ID, "error": err.Error()})
	}

	deps.MetricInc(deps.Metrics.Enabled)
	deps.EmitAudit(ctx, deps.Events.Enabled, true, p.ID, nil, nil)
	return nil
}

// RunDisableTOTP removes the secret after a final successful code.
func RunDisableTOTP(ctx context.Context, kind account.Kind, accountID, code string, deps TOTPDeps) error {
	deps.Hooks = deps.Hooks.withDefaults()
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	code = strings.TrimSpace(code)
	if !internal.IsNumeric(code) {
		return deps.Errors.CodeFormat
	}

	p, err := deps.FindByID(ctx, kind, accountID)
	if err != nil {
		return err
	}
	if !p.HasTOTP() {
		return deps.Errors.NotConfigured
	}

	ok, err := deps.Verify(ctx, p.ID, p.TOTPSecret, code)
	if err != nil {
		return err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, p.ID, deps.Errors.Invalid, func() map[string]string {
			return map[string]string{"stage": "disable"}
		})
		return deps.Errors.Invalid
	}

	if err := deps.SetSecret(ctx, p, ""); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Disabled)
	deps.EmitAudit(ctx, deps.Events.Disabled, true, p.ID, nil, nil)
	return nil
}
