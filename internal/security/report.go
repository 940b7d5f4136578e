package security

import (
	"time"

	"github.com/MrEthical07/goAccount/session"
)

type HashReport struct {
	Algorithm         string
	BcryptCost        int
	Argon2Memory      uint32
	Argon2Time        uint32
	Argon2Parallelism uint8
	PepperConfigured  bool
	UpgradeOnLogin    bool
}

// Report is a read-only summary of the effective security posture. It never
// carries secret material.
type Report struct {
	Hash                     HashReport
	BreachCheckActive        bool
	TokenBackend             string
	TokenTTL                 time.Duration
	Sessions                 map[string]session.Budget
	CSRFTTL                  time.Duration
	LockoutActive            bool
	DistributedLockoutActive bool
	LoginRateLimitActive     bool
	OTPRateLimitActive       bool
	RegistrationOpen         bool
	RegistrationLimitActive  bool
	ThirdFactorMaxAttempts   int
	PasswordResetTTL         time.Duration
	AuditActive              bool
	MetricsActive            bool
}

type ReportInput struct {
	Hash               HashReport
	BreachEnabled      bool
	TokenBackend       string
	TokenTTL           time.Duration
	Sessions           session.Budgets
	CSRFTTL            time.Duration
	AttemptThreshold   int
	LockoutDuration    time.Duration
	DistributedFactor  int
	LoginLimit         int
	LoginWindow        time.Duration
	OTPHourlyLimit     int
	OTPDailyLimit      int
	RegistrationOpen   bool
	RegistrationLimit  int
	RegistrationWindow time.Duration
	ThirdFactorRetries int
	PasswordResetTTL   time.Duration
	AuditEnabled       bool
	MetricsEnabled     bool
}

// BuildReport derives the posture from input. Sessions lists the effective
// budget per role plus the "default" entry.
func BuildReport(input ReportInput) Report {
	sessions := make(map[string]session.Budget, len(input.Sessions.Roles)+1)
	sessions["default"] = input.Sessions.Default
	for role := range input.Sessions.Roles {
		sessions[role] = input.Sessions.For(role)
	}

	lockout := input.AttemptThreshold > 0 && input.LockoutDuration > 0

	return Report{
		Hash:                     input.Hash,
		BreachCheckActive:        input.BreachEnabled,
		TokenBackend:             input.TokenBackend,
		TokenTTL:                 input.TokenTTL,
		Sessions:                 sessions,
		CSRFTTL:                  input.CSRFTTL,
		LockoutActive:            lockout,
		DistributedLockoutActive: lockout && input.DistributedFactor > 0,
		LoginRateLimitActive:     input.LoginLimit > 0 && input.LoginWindow > 0,
		OTPRateLimitActive:       input.OTPHourlyLimit > 0 && input.OTPDailyLimit > 0,
		RegistrationOpen:         input.RegistrationOpen,
		RegistrationLimitActive:  input.RegistrationOpen && input.RegistrationLimit > 0 && input.RegistrationWindow > 0,
		ThirdFactorMaxAttempts:   input.ThirdFactorRetries,
		PasswordResetTTL:         input.PasswordResetTTL,
		AuditActive:              input.AuditEnabled,
		MetricsActive:            input.MetricsEnabled,
	}
}
