package flows

import (
	"context"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/token"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.ready()
}

func (s Service) Login(ctx context.Context, in LoginInput) (*LoginOutcome, error) {
	return RunLogin(ctx, in, s.deps.Login)
}

func (s Service) RequestThirdFactorCode(ctx context.Context, email string) error {
	return RunRequestThirdFactorCode(ctx, email, s.deps.ThirdFactor)
}

func (s Service) VerifyThirdFactor(ctx context.Context, email, code string, cookie bool) (*LoginOutcome, error) {
	return RunVerifyThirdFactor(ctx, email, code, cookie, s.deps.ThirdFactor)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) error {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) ConfirmPasswordReset(ctx context.Context, resetToken, plaintext string) error {
	return RunConfirmPasswordReset(ctx, resetToken, plaintext, s.deps.PasswordReset)
}

func (s Service) Register(ctx context.Context, in RegisterInput) (*account.Principal, error) {
	return RunRegister(ctx, in, s.deps.Register)
}

func (s Service) SetupTOTP(ctx context.Context, kind account.Kind, accountID string) (*TOTPSetup, error) {
	return RunSetupTOTP(ctx, kind, accountID, s.deps.TOTP)
}

func (s Service) ConfirmTOTP(ctx context.Context, kind account.Kind, accountID, code string) error {
	return RunConfirmTOTP(ctx, kind, accountID, code, s.deps.TOTP)
}

func (s Service) DisableTOTP(ctx context.Context, kind account.Kind, accountID, code string) error {
	return RunDisableTOTP(ctx, kind, accountID, code, s.deps.TOTP)
}

func (s Service) Validate(ctx context.Context, tokenID string) ValidateResult {
	return RunValidate(ctx, tokenID, s.deps.Validate)
}

func (s Service) CheckSession(ctx context.Context, tok *token.Token, key string) ValidateResult {
	return RunCheckSession(ctx, tok, key, s.deps.Validate)
}
