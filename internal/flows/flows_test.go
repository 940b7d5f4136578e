package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errCodeInvalid  = errors.New("code invalid")
	errCodeExpired  = errors.New("code expired")
	errCodeExceeded = errors.New("attempts exceeded")
	errResetToken   = errors.New("reset token")
	errPolicy       = errors.New("policy")
	errExists       = errors.New("exists")
	errIdle         = errors.New("idle")
	errAbsolute     = errors.New("absolute")
)

type thirdFactorHarness struct {
	pending  map[string]bool
	codes    map[string]string
	sent     map[string]string
	failures int
	issued   int
	p        *account.Principal
}

func newThirdFactorHarness() *thirdFactorHarness {
	return &thirdFactorHarness{
		pending: map[string]bool{},
		codes:   map[string]string{},
		sent:    map[string]string{},
		p:       &account.Principal{Kind: account.KindUser, ID: "u1", Email: "ann@example.com", Active: true},
	}
}

func (h *thirdFactorHarness) deps() ThirdFactorDeps {
	return ThirdFactorDeps{
		HasChallenge:   func(_ context.Context, id string) (bool, error) { return h.pending[id], nil },
		CloseChallenge: func(_ context.Context, id string) error { delete(h.pending, id); return nil },
		NewCode:        func() (string, error) { return "424242", nil },
		SaveCode: func(_ context.Context, id, code string) error {
			h.codes[id] = code
			return nil
		},
		ConsumeCode: func(_ context.Context, id, code string) error {
			want, ok := h.codes[id]
			if !ok {
				return errCodeExpired
			}
			if want != code {
				return errCodeInvalid
			}
			delete(h.codes, id)
			return nil
		},
		SendCode: func(_ context.Context, email, code string) error {
			h.sent[email] = code
			return nil
		},
		IsLocked:      func(string, string) bool { return false },
		RecordFailure: func(string, string) { h.failures++ },
		ResetAttempts: func(string, string) {},
		FindByEmail: func(context.Context, string) (*account.Principal, error) {
			return h.p, nil
		},
		IssueSession: func(context.Context, *account.Principal, bool) (*IssuedSession, error) {
			h.issued++
			return &IssuedSession{Token: "tok"}, nil
		},
		Errors: ThirdFactorErrors{
			EngineNotReady:   errNotReady,
			InvalidInput:     errInput,
			OTPRateLimited:   errRateLimited,
			AccountLocked:    errLocked,
			AccountInactive:  errInactive,
			CodeFormat:       errCodeFormat,
			CodeInvalid:      errCodeInvalid,
			CodeExpired:      errCodeExpired,
			AttemptsExceeded: errCodeExceeded,
		},
	}
}

func TestRequestThirdFactorCodeWithoutChallengeIsSilent(t *testing.T) {
	h := newThirdFactorHarness()

	require.NoError(t, RunRequestThirdFactorCode(context.Background(), "ann@example.com", h.deps()))
	assert.Empty(t, h.sent)
	assert.Empty(t, h.codes)
}

func TestThirdFactorRoundTrip(t *testing.T) {
	h := newThirdFactorHarness()
	h.pending["ann@example.com"] = true
	deps := h.deps()

	require.NoError(t, RunRequestThirdFactorCode(context.Background(), "Ann@Example.com", deps))
	assert.Equal(t, "424242", h.sent["Ann@Example.com"])

	_, err := RunVerifyThirdFactor(context.Background(), "ann@example.com", "000000", false, deps)
	require.ErrorIs(t, err, errCodeInvalid)
	assert.Equal(t, 1, h.failures)

	out, err := RunVerifyThirdFactor(context.Background(), "ann@example.com", "424242", false, deps)
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Session.Token)
	assert.False(t, h.pending["ann@example.com"])

	_, err = RunVerifyThirdFactor(context.Background(), "ann@example.com", "424242", false, deps)
	require.ErrorIs(t, err, errCodeExpired)
	assert.Equal(t, 1, h.issued)
}

func TestVerifyThirdFactorRejectsNonNumeric(t *testing.T) {
	h := newThirdFactorHarness()
	_, err := RunVerifyThirdFactor(context.Background(), "ann@example.com", "12a", false, h.deps())
	require.ErrorIs(t, err, errCodeFormat)
}

func TestVerifyThirdFactorRechecksActivity(t *testing.T) {
	h := newThirdFactorHarness()
	h.codes["ann@example.com"] = "424242"
	h.p.Active = false

	_, err := RunVerifyThirdFactor(context.Background(), "ann@example.com", "424242", false, h.deps())
	require.ErrorIs(t, err, errInactive)
	assert.Zero(t, h.issued)
}

type resetHarness struct {
	now      time.Time
	p        *account.Principal
	links    map[string]string
	revoked  []string
	password string
}

func newResetHarness() *resetHarness {
	return &resetHarness{
		now:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		p:     &account.Principal{Kind: account.KindUser, ID: "u1", Email: "ann@example.com", Name: "Annabel", Active: true},
		links: map[string]string{},
	}
}

func (h *resetHarness) deps() PasswordResetDeps {
	return PasswordResetDeps{
		Hooks:    Hooks{Now: func() time.Time { return h.now }},
		TokenTTL: time.Hour,
		FindByEmail: func(_ context.Context, email string) (*account.Principal, error) {
			if account.EmailKey(email) != h.p.Email {
				return nil, account.ErrNotFound
			}
			return h.p, nil
		},
		FindByResetTokenHash: func(_ context.Context, hash string) (*account.Principal, error) {
			if hash == "" || hash != h.p.ResetTokenHash {
				return nil, account.ErrNotFound
			}
			return h.p, nil
		},
		SetResetToken: func(_ context.Context, p *account.Principal, hash string, expiresAt time.Time) error {
			p.ResetTokenHash = hash
			p.ResetExpiresAt = &expiresAt
			return nil
		},
		UpdatePassword: func(_ context.Context, p *account.Principal, digest string) error {
			h.password = digest
			p.ResetTokenHash = ""
			p.ResetExpiresAt = nil
			return nil
		},
		RevokeTokens: func(_ context.Context, id string) error {
			h.revoked = append(h.revoked, id)
			return nil
		},
		NewToken:  func() (string, error) { return "reset-token", nil },
		HashToken: func(tok string) string { return "h(" + tok + ")" },
		SendLink: func(_ context.Context, email, tok string) error {
			h.links[email] = tok
			return nil
		},
		Validate:     password.NewPolicy(nil).Validate,
		PolicyError:  func([]password.Violation) error { return errPolicy },
		HashPassword: func(p string) (string, error) { return "digest:" + p, nil },
		Errors: PasswordResetErrors{
			EngineNotReady: errNotReady,
			InvalidInput:   errInput,
			OTPRateLimited: errRateLimited,
			InvalidToken:   errResetToken,
		},
	}
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	h := newResetHarness()
	require.NoError(t, RunRequestPasswordReset(context.Background(), "ghost@example.com", h.deps()))
	assert.Empty(t, h.links)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	h := newResetHarness()
	deps := h.deps()

	require.NoError(t, RunRequestPasswordReset(context.Background(), "ann@example.com", deps))
	tok := h.links["ann@example.com"]
	require.Equal(t, "reset-token", tok)
	assert.Equal(t, "h(reset-token)", h.p.ResetTokenHash)

	err := RunConfirmPasswordReset(context.Background(), tok, "my-annabel-pass", deps)
	require.ErrorIs(t, err, errPolicy)

	require.NoError(t, RunConfirmPasswordReset(context.Background(), tok, "correct horse battery", deps))
	assert.Equal(t, "digest:correct horse battery", h.password)
	assert.Equal(t, []string{"u1"}, h.revoked)

	err = RunConfirmPasswordReset(context.Background(), tok, "another good one", deps)
	require.ErrorIs(t, err, errResetToken)
}

func TestConfirmPasswordResetExpiredToken(t *testing.T) {
	h := newResetHarness()
	deps := h.deps()

	require.NoError(t, RunRequestPasswordReset(context.Background(), "ann@example.com", deps))
	h.now = h.now.Add(time.Hour)

	err := RunConfirmPasswordReset(context.Background(), "reset-token", "correct horse battery", deps)
	require.ErrorIs(t, err, errResetToken)
	assert.Empty(t, h.password)
}

func registerDeps(created *[]*account.Principal) RegisterDeps {
	return RegisterDeps{
		Validate:     password.NewPolicy(nil).Validate,
		PolicyError:  func([]password.Violation) error { return errPolicy },
		HashPassword: func(p string) (string, error) { return "digest:" + p, nil },
		Create: func(_ context.Context, p *account.Principal) error {
			for _, existing := range *created {
				if account.EmailKey(existing.Email) == account.EmailKey(p.Email) {
					return account.ErrEmailTaken
				}
			}
			p.ID = "id-" + p.Email
			*created = append(*created, p)
			return nil
		},
		Errors: RegisterErrors{
			EngineNotReady:          errNotReady,
			InvalidInput:            errInput,
			RegistrationRateLimited: errRateLimited,
			AccountExists:           errExists,
		},
	}
}

func TestRunRegister(t *testing.T) {
	var created []*account.Principal
	deps := registerDeps(&created)

	p, err := RunRegister(context.Background(), RegisterInput{Email: " Ann@Example.com ", Password: "correct horse battery"}, deps)
	require.NoError(t, err)
	assert.Equal(t, account.KindUser, p.Kind)
	assert.Equal(t, "Ann@Example.com", p.Email, "stored as typed, matched case-insensitively")
	assert.True(t, p.Active)
	assert.Equal(t, "digest:correct horse battery", p.PasswordHash)

	_, err = RunRegister(context.Background(), RegisterInput{Kind: account.KindCreator, Email: "ann@example.com", Password: "another fine pass"}, deps)
	require.ErrorIs(t, err, errExists)
}

func TestRunRegisterRejects(t *testing.T) {
	var created []*account.Principal
	deps := registerDeps(&created)

	_, err := RunRegister(context.Background(), RegisterInput{Email: "not-an-email", Password: "x"}, deps)
	require.ErrorIs(t, err, errInput)

	_, err = RunRegister(context.Background(), RegisterInput{Kind: "root", Email: "a@b.c", Password: "x"}, deps)
	require.ErrorIs(t, err, errInput)

	_, err = RunRegister(context.Background(), RegisterInput{Email: "a@b.c", Password: "pw-for-Mallory", Name: "mallory"}, deps)
	require.ErrorIs(t, err, errPolicy)

	deps.AllowRegistration = func(context.Context, string) (bool, time.Duration, error) { return false, time.Hour, nil }
	_, err = RunRegister(context.Background(), RegisterInput{Email: "a@b.c", Password: "fine"}, deps)
	require.ErrorIs(t, err, errRateLimited)

	_, err = RunRegister(context.Background(), RegisterInput{Email: "a@b.c", Password: "fine", SkipRateLimit: true}, deps)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func totpDeps(p *account.Principal, pending map[string]string) TOTPDeps {
	return TOTPDeps{
		FindByID: func(context.Context, account.Kind, string) (*account.Principal, error) { return p, nil },
		GenerateSecret: func(name string) (string, string, error) {
			return "SECRET", "otpauth://totp/" + name, nil
		},
		SavePending: func(_ context.Context, id, secret string) error {
			pending[id] = secret
			return nil
		},
		PendingSecret: func(_ context.Context, id string) (string, error) {
			s, ok := pending[id]
			if !ok {
				return "", errCodeExpired
			}
			return s, nil
		},
		DeletePending: func(_ context.Context, id string) error {
			delete(pending, id)
			return nil
		},
		Verify: func(_ context.Context, _, secret, code string) (bool, error) {
			return secret == "SECRET" && code == "123456", nil
		},
		SetSecret: func(_ context.Context, p *account.Principal, secret string) error {
			p.TOTPSecret = secret
			return nil
		},
		Errors: TOTPErrors{
			EngineNotReady: errNotReady,
			AlreadyEnabled: errExists,
			NotConfigured:  errInput,
			CodeFormat:     errCodeFormat,
			Invalid:        errTOTP,
			SetupExpired:   errCodeExpired,
		},
	}
}

func TestTOTPEnrolmentLifecycle(t *testing.T) {
	ctx := context.Background()
	p := &account.Principal{Kind: account.KindUser, ID: "u1", Email: "ann@example.com"}
	pending := map[string]string{}
	deps := totpDeps(p, pending)

	require.ErrorIs(t, RunConfirmTOTP(ctx, p.Kind, p.ID, "123456", deps), errCodeExpired)

	setup, err := RunSetupTOTP(ctx, p.Kind, p.ID, deps)
	require.NoError(t, err)
	assert.Equal(t, "SECRET", setup.Secret)
	assert.Equal(t, "otpauth://totp/ann@example.com", setup.URL)

	require.ErrorIs(t, RunConfirmTOTP(ctx, p.Kind, p.ID, "999999", deps), errTOTP)
	require.NoError(t, RunConfirmTOTP(ctx, p.Kind, p.ID, "123456", deps))
	assert.True(t, p.HasTOTP())
	assert.Empty(t, pending)

	_, err = RunSetupTOTP(ctx, p.Kind, p.ID, deps)
	require.ErrorIs(t, err, errExists)

	require.ErrorIs(t, RunDisableTOTP(ctx, p.Kind, p.ID, "abc", deps), errCodeFormat)
	require.NoError(t, RunDisableTOTP(ctx, p.Kind, p.ID, "123456", deps))
	assert.False(t, p.HasTOTP())
	require.ErrorIs(t, RunDisableTOTP(ctx, p.Kind, p.ID, "123456", deps), errInput)
}

func TestRunValidate(t *testing.T) {
	tok := &token.Token{ID: "t1", AccountID: "u1", Role: "user"}
	boom := errors.New("redis down")
	deps := ValidateDeps{
		LookupToken: func(_ context.Context, id string) (*token.Token, error) {
			switch id {
			case "t1":
				return tok, nil
			case "broken":
				return nil, boom
			}
			return nil, token.ErrNotFound
		},
	}

	assert.Equal(t, ValidateFailureAnonymous, RunValidate(context.Background(), "", deps).Failure)
	assert.Equal(t, ValidateFailureAnonymous, RunValidate(context.Background(), "nope", deps).Failure)

	res := RunValidate(context.Background(), "broken", deps)
	assert.Equal(t, ValidateFailureUnavailable, res.Failure)
	assert.ErrorIs(t, res.Err, boom)

	res = RunValidate(context.Background(), "t1", deps)
	assert.Equal(t, ValidateFailureNone, res.Failure)
	assert.Same(t, tok, res.Token)
}

func TestRunCheckSessionExpiryRevokes(t *testing.T) {
	tok := &token.Token{ID: "t1", AccountID: "u1", Role: "user"}
	var removed, deleted []string
	verdict := error(nil)
	deps := ValidateDeps{
		CheckSession:    func(string, string) error { return verdict },
		RemoveSession:   func(key string) { removed = append(removed, key) },
		DeleteToken:     func(_ context.Context, id string) error { deleted = append(deleted, id); return nil },
		IdleExpired:     errIdle,
		AbsoluteExpired: errAbsolute,
	}

	res := RunCheckSession(context.Background(), tok, "k1", deps)
	assert.Equal(t, ValidateFailureNone, res.Failure)
	assert.Empty(t, deleted)

	verdict = errIdle
	res = RunCheckSession(context.Background(), tok, "k1", deps)
	assert.Equal(t, ValidateFailureIdle, res.Failure)

	verdict = errAbsolute
	res = RunCheckSession(context.Background(), tok, "k1", deps)
	assert.Equal(t, ValidateFailureAbsolute, res.Failure)
	assert.ErrorIs(t, res.Err, errAbsolute)

	assert.Equal(t, []string{"k1", "k1"}, removed)
	assert.Equal(t, []string{"t1", "t1"}, deleted)
}
