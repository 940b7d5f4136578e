// Package password implements credential hashing, breach lookups and the password
// policy applied at registration and reset.
//
// # Hashing
//
// Every hasher appends the server-held pepper to the plaintext and reduces it with
// SHA-256 before the slow step, so input length never reaches the adaptive
// algorithm's limits (bcrypt truncates at 72 bytes). Supported digests:
//
//	$2b$<cost>$<salt+hash>                               bcrypt (default)
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Chain] hashes with the configured algorithm and verifies any supported digest.
// [Chain.NeedsUpgrade] reports digests produced by another algorithm or weaker
// parameters so the caller can rehash after a successful login.
//
// # Breach lookups
//
// [BreachChecker] speaks the k-anonymity range protocol: only the first five hex
// characters of the SHA-1 digest leave the process. Every failure is fail-open.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive digests.
//   - Import any other goAccount package.
//   - Log plaintext passwords or digests.
package password
