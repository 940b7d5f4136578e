// Package csrf implements double-submit CSRF tokens for cookie-authenticated
// clients. A token is an HS256 JWT whose subject is the fingerprint of the bearer
// token it accompanies, so a CSRF token lifted from one session is useless in another.
package csrf
