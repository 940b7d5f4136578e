package goAccount

import "github.com/MrEthical07/goAccount/internal/security"

// SecurityReport summarizes the effective security posture of an engine. It
// holds no secret material and is safe to log.
type SecurityReport = security.Report

// SecurityReport returns the posture derived from the engine's configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	return security.BuildReport(security.ReportInput{
		Hash: security.HashReport{
			Algorithm:         cfg.Password.Algorithm,
			BcryptCost:        cfg.Password.BcryptCost,
			Argon2Memory:      cfg.Password.Argon2.Memory,
			Argon2Time:        cfg.Password.Argon2.Time,
			Argon2Parallelism: cfg.Password.Argon2.Parallelism,
			PepperConfigured:  cfg.Password.Pepper != "",
			UpgradeOnLogin:    cfg.Password.UpgradeOnLogin,
		},
		BreachEnabled:      cfg.Breach.Enabled,
		TokenBackend:       cfg.Token.Backend,
		TokenTTL:           cfg.Token.TTL,
		Sessions:           cfg.Session,
		CSRFTTL:            cfg.CSRF.TTL,
		AttemptThreshold:   cfg.Attempts.Threshold,
		LockoutDuration:    cfg.Attempts.LockoutDuration,
		DistributedFactor:  cfg.Attempts.DistributedFactor,
		LoginLimit:         cfg.RateLimit.LoginLimit,
		LoginWindow:        cfg.RateLimit.LoginWindow,
		OTPHourlyLimit:     cfg.RateLimit.OTPHourlyLimit,
		OTPDailyLimit:      cfg.RateLimit.OTPDailyLimit,
		RegistrationOpen:   cfg.Registration.Enabled,
		RegistrationLimit:  cfg.RateLimit.RegistrationLimit,
		RegistrationWindow: cfg.RateLimit.RegistrationWindow,
		ThirdFactorRetries: cfg.ThirdFactor.MaxAttempts,
		PasswordResetTTL:   cfg.PasswordReset.TokenTTL,
		AuditEnabled:       cfg.Audit.Enabled,
		MetricsEnabled:     cfg.Metrics.Enabled,
	})
}
