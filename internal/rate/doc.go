// Package rate implements Redis-backed sliding-window limiters for login attempts,
// one-time-code issuance and self-registration.
//
// # Window semantics
//
// Each key is a sorted set of hits scored in Unix milliseconds. A single Lua script
// trims expired members, counts, and either records the hit or reports how long until
// the oldest member leaves the window. Key prefixes:
//   - rl:login:: login per identity+address
//   - rl:otph: : one-time codes per identity, hourly
//   - rl:otpd: : one-time codes per identity, daily
//   - rl:reg:  : self-registration per address
//
// # What this package must NOT do
//
//   - Decide what happens when a budget is exhausted; flow functions do that.
//   - Be imported outside the goAccount module.
package rate
