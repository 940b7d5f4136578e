package goAccount

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventLoginLocked           = "login_locked"
	auditEventDistributedAttack     = "distributed_attack_detected"
	auditEventTOTPRequired          = "totp_required"
	auditEventTOTPFailure           = "totp_failure"
	auditEventTOTPSetupRequested    = "totp_setup_requested"
	auditEventTOTPEnabled           = "totp_enabled"
	auditEventTOTPDisabled          = "totp_disabled"
	auditEventThirdFactorRequired   = "third_factor_required"
	auditEventThirdFactorCodeIssued = "third_factor_code_issued"
	auditEventThirdFactorLimited    = "third_factor_rate_limited"
	auditEventThirdFactorSuccess    = "third_factor_success"
	auditEventThirdFactorFailure    = "third_factor_failure"
	auditEventThirdFactorToggled    = "third_factor_toggled"
	auditEventSessionExpired        = "session_expired"
	auditEventLogout                = "logout"
	auditEventCSRFRejected          = "csrf_rejected"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventPasswordResetFailure  = "password_reset_failure"
	auditEventAccountCreated        = "account_created"
	auditEventAccountDuplicate      = "account_creation_duplicate"
	auditEventAccountFailure        = "account_creation_failure"
	auditEventAccountStatusChange   = "account_status_change"
)

// AuditErrorCode is the stable, non-sensitive error label written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrTOTPInvalid        AuditErrorCode = "totp_invalid"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrSessionIdle        AuditErrorCode = "session_idle"
	auditErrSessionAbsolute    AuditErrorCode = "session_absolute"
	auditErrCSRF               AuditErrorCode = "csrf"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTOTPCodeFormat):
		return auditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrOTPRateLimited),
		errors.Is(err, ErrRegistrationRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrTOTPInvalid):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrThirdFactorInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrThirdFactorExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrThirdFactorAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrResetTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrSessionIdleExpired):
		return auditErrSessionIdle
	case errors.Is(err, ErrSessionAbsoluteExpired):
		return auditErrSessionAbsolute
	case errors.Is(err, ErrCSRFInvalid):
		return auditErrCSRF
	case errors.Is(err, ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
