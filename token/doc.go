// Package token issues and resolves opaque bearer tokens.
//
// A token id is 32 random bytes, base64url encoded. It is returned to the client
// once; stores key records by its SHA-256 fingerprint so a leaked table or keyspace
// cannot be replayed. Tokens live for [DefaultTTL] and are never extended.
//
// Two [Store] implementations are provided:
//
//   - [RedisStore] writes "tk:<fingerprint>" with a native TTL and indexes the
//     fingerprint in "tka:<account>" for bulk revocation.
//   - [GormStore] writes rows into the auth_tokens table.
//
// Both treat an expired record as absent and delete it on lookup.
package token
