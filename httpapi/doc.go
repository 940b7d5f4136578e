// Package httpapi serves the goAccount authentication routes over gin.
//
// Browser clients receive an HttpOnly session cookie and a readable CSRF
// cookie; state-changing requests made with the cookie must echo the CSRF
// token in the configured header. Clients sending "X-Client-Type: native"
// receive the bearer token in the response body and authenticate with the
// Authorization header instead.
//
// Engine errors are mapped by [goAccount.Classify]: user input 400, failed
// authentication 401 with a generic message, authorization 403 and rate
// limits 429 with retry information. Anything else is logged and answered
// with a bare 500.
package httpapi
