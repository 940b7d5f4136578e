// Package goAccount is the authentication and session-security core of an
// account platform: multi-step credential verification, brute-force defense,
// multi-factor sequencing and time-bounded sessions for administrators,
// creators and end users.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (LoginResult, AuthResult, MetricsSnapshot). Flow sequencing,
// attempt tracking, rate limiting, factor stores and audit dispatch live under
// internal/ and are never exported.
//
// # Login sequence
//
// Every login runs the same gates in the same order: rate limit, lockout,
// lookup, password, TOTP, account activity, mailed code, then token issuance.
// A pending factor is not an error; see [LoginResult.Pending].
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores or encoding details in its public API.
//   - Persist raw bearer or reset tokens; only their SHA-256 fingerprints are stored.
//   - Import any sub-package that re-imports goAccount (no import cycles).
package goAccount
