// Package internal holds helpers private to goAccount: bearer token and
// one-time code generation, and SHA-256 fingerprints of secrets.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - cli: the accountd command tree
//   - config: viper-backed process configuration
//   - db: gorm connection and migrations for PostgreSQL and SQLite
//   - flows: flow orchestrators for every Engine operation
//   - limiters: in-memory failed-attempt tracking and lockouts
//   - logging: logrus setup with optional lumberjack rotation
//   - rate: Redis-backed fixed-window rate limits
//   - security: read-only security posture reports
//   - stores: Redis stores for pending TOTP secrets and mailed codes
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API, except through
//     type aliases declared there.
//   - Be imported by any package outside the goAccount module.
package internal
