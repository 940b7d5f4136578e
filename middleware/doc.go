// Package middleware adapts goAccount.Engine to gin.
//
// # Handlers
//
//   - [RequestContext] assigns a request id and carries it, with the client
//     address, into the request context.
//   - [Gate] resolves the bearer header or session cookie into an [Identity].
//     It never rejects a request.
//   - [RequireSession] rejects anonymous callers and enforces the idle and
//     absolute session budgets.
//   - [RequireRole] restricts a route to some principal kinds.
//   - [AccessLog] and [Recovery] log through logrus.
//
// Recommended order: Recovery, RequestContext, AccessLog, Gate, then
// RequireSession and RequireRole on protected groups.
//
// # Architecture boundaries
//
// Authentication decisions are delegated to the engine. This package only
// translates HTTP credentials and outcomes.
//
// # What this package must NOT do
//
//   - Read Redis or the database directly.
//   - Create or verify tokens itself.
package middleware
