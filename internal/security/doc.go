// Package security summarizes the effective security posture of an engine
// configuration for operators.
//
// # What this package must NOT do
//
//   - Include secrets (peppers, CSRF keys, tokens) in a report.
//   - Perform I/O.
package security
