// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunVerifyThirdFactor, RunConfirmPasswordReset, etc.)
// accepts a typed dependency struct of function fields and returns results without
// side effects beyond those dependencies. Host sentinels, metric IDs and audit event
// names are injected, so the package never imports the root module.
//
// # Login sequence
//
// RunLogin applies its gates in a fixed order and stops at the first that fails:
//
//	rate limit -> lockout -> lookup -> (admin/creator active) -> password
//	  -> TOTP -> (user active) -> out-of-band factor -> session
//
// Unknown accounts still pay for a password verification against a dummy digest.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAccount (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
