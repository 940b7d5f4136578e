// Package limiters provides the in-memory failure tracking used by the login
// sequencer.
//
// # AttemptTracker
//
// Failures are counted per identity+address pair inside a sliding attempt window.
// Reaching the threshold locks the pair for the lockout duration; a lockout is never
// lifted early by later attempts. A second, identity-wide counter spanning every
// address flags distributed attacks once it exceeds DistributedFactor x Threshold.
// The flag is advisory and never blocks on its own.
//
// State is sharded by identity hash with one mutex per shard. Nothing here performs
// I/O, so no lock is ever held across a network call. A process restart clears all
// records.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package.
//   - Decide consequences of a lockout; flow functions do that.
package limiters
