package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef maps one engine counter to its exported name.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef maps one engine histogram to its exported name.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "goaccount_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful logins that issued a session."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed login attempts."},
	{ID: goAccount.MetricLoginRateLimited, Name: "goaccount_login_rate_limited_total", Help: "Login attempts refused by the sliding-window limiter."},
	{ID: goAccount.MetricLoginLocked, Name: "goaccount_login_locked_total", Help: "Login attempts refused by an active lockout."},
	{ID: goAccount.MetricPasswordRehashed, Name: "goaccount_password_rehashed_total", Help: "Password digests upgraded on login."},
	{ID: goAccount.MetricDistributedAttack, Name: "goaccount_distributed_attack_total", Help: "Identities flagged for attempts from many addresses."},
	{ID: goAccount.MetricTOTPRequired, Name: "goaccount_totp_required_total", Help: "Logins paused for a TOTP code."},
	{ID: goAccount.MetricTOTPFailure, Name: "goaccount_totp_failure_total", Help: "Rejected TOTP codes."},
	{ID: goAccount.MetricTOTPSetupRequested, Name: "goaccount_totp_setup_requested_total", Help: "TOTP enrolments started."},
	{ID: goAccount.MetricTOTPEnabled, Name: "goaccount_totp_enabled_total", Help: "TOTP enrolments confirmed."},
	{ID: goAccount.MetricTOTPDisabled, Name: "goaccount_totp_disabled_total", Help: "TOTP secrets removed."},
	{ID: goAccount.MetricThirdFactorRequired, Name: "goaccount_third_factor_required_total", Help: "Logins paused for an out-of-band code."},
	{ID: goAccount.MetricThirdFactorCodeIssued, Name: "goaccount_third_factor_code_issued_total", Help: "Out-of-band codes mailed."},
	{ID: goAccount.MetricThirdFactorRateLimited, Name: "goaccount_third_factor_rate_limited_total", Help: "Out-of-band code requests refused by the limiter."},
	{ID: goAccount.MetricThirdFactorSuccess, Name: "goaccount_third_factor_success_total", Help: "Accepted out-of-band codes."},
	{ID: goAccount.MetricThirdFactorFailure, Name: "goaccount_third_factor_failure_total", Help: "Rejected out-of-band codes."},
	{ID: goAccount.MetricSessionCreated, Name: "goaccount_session_created_total", Help: "Sessions issued."},
	{ID: goAccount.MetricSessionIdleExpired, Name: "goaccount_session_idle_expired_total", Help: "Sessions evicted for inactivity."},
	{ID: goAccount.MetricSessionAbsoluteExpired, Name: "goaccount_session_absolute_expired_total", Help: "Sessions evicted for exceeding their lifetime."},
	{ID: goAccount.MetricLogout, Name: "goaccount_logout_total", Help: "Logouts."},
	{ID: goAccount.MetricCSRFRejected, Name: "goaccount_csrf_rejected_total", Help: "Requests rejected by CSRF verification."},
	{ID: goAccount.MetricPasswordResetRequest, Name: "goaccount_password_reset_request_total", Help: "Password recovery requests."},
	{ID: goAccount.MetricPasswordResetRateLimited, Name: "goaccount_password_reset_rate_limited_total", Help: "Password recovery requests refused by the limiter."},
	{ID: goAccount.MetricPasswordResetConfirmSuccess, Name: "goaccount_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: goAccount.MetricPasswordResetConfirmFailure, Name: "goaccount_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: goAccount.MetricAccountCreationSuccess, Name: "goaccount_account_creation_success_total", Help: "Accounts created."},
	{ID: goAccount.MetricAccountCreationDuplicate, Name: "goaccount_account_creation_duplicate_total", Help: "Account creations rejected for an existing email."},
	{ID: goAccount.MetricAccountCreationRateLimited, Name: "goaccount_account_creation_rate_limited_total", Help: "Registrations refused by the limiter."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricAuthenticateLatency, Name: "goaccount_authenticate_latency_seconds", Help: "Bearer and cookie credential resolution latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last engine
// bucket is the implicit +Inf bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBucketLabels holds the "le" label of each engine bucket, ending
// with the implicit +Inf bucket.
var HistogramBucketLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets pads or truncates raw engine buckets to the fixed layout.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
