// Package stores provides Redis-backed, short-lived records for the login
// factors: mailed out-of-band codes with their pending challenges, TOTP
// enrolment secrets and TOTP replay markers.
//
// # Design
//
// Code records are versioned, binary-encoded and carry a TTL. ConsumeCode uses a
// WATCH/MULTI optimistic transaction with retry on contention, compares hashes in
// constant time, counts failed attempts and deletes the record on success or once
// attempts run out. Saving a code overwrites the previous one, so at most one code
// per identity is ever live.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package.
//   - Store plaintext codes.
//   - Make authentication decisions; flow functions do that.
package stores
