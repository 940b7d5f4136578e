package goAccount

import (
	"io"
	"time"

	"github.com/MrEthical07/goAccount/account"
	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	"github.com/sirupsen/logrus"
)

// LoginRequest is one credential submission. Cookie selects browser-style
// credentials: a session registry entry and a CSRF token are created with the
// bearer token.
type LoginRequest struct {
	Email    string
	Password string
	OTP      string
	Cookie   bool
}

// LoginResult is either a pending factor or an issued credential.
//
// When TwoFactorRequired or ThirdFactorRequired is set, Token is empty and the
// caller must complete the named factor.
type LoginResult struct {
	Profile             account.Profile
	TwoFactorRequired   bool
	ThirdFactorRequired bool

	Token     string
	CSRFToken string
	ExpiresAt time.Time
}

// Pending reports whether another factor is outstanding.
func (r *LoginResult) Pending() bool {
	return r != nil && (r.TwoFactorRequired || r.ThirdFactorRequired)
}

// AuthResult identifies the principal behind a bearer token.
type AuthResult struct {
	AccountID  string
	Role       account.Kind
	TokenID    string
	SessionKey string
	ExpiresAt  time.Time
}

// RegisterRequest is an end-user self registration.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Surname  string
	Alias    string
}

// CreateAccountRequest creates a principal of any kind, bypassing the
// registration rate limit. Operator tooling only.
type CreateAccountRequest struct {
	Kind     account.Kind
	Email    string
	Password string
	Name     string
	Surname  string
	Alias    string
}

// TOTPSetup is the enrolment material shown to the user once.
type TOTPSetup struct {
	Secret string
	URL    string
}

// AuditEvent is an alias of the internal audit event model.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type LogrusSink = internalaudit.LogrusSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLogrusSink(log logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(log)
}
