// Package session tracks activity of authenticated sessions in process memory and
// enforces per-role idle and absolute timeouts.
//
// A session is keyed by the fingerprint of the credential that carries it. The
// [Registry] shards entries by xxhash of the key; the last-activity instant is
// updated atomically so concurrent requests on one session never contend on the
// shard lock once the entry exists.
//
// Idle and absolute age are evaluated independently. [Registry.Check] checks the
// absolute budget first, so a session that is both too old and idle reports
// [ErrAbsoluteExpired].
//
// # What this package must NOT do
//
//   - Persist sessions; a restart forgets every entry.
//   - Delete bearer tokens. The caller revokes the token after an expiry.
package session
