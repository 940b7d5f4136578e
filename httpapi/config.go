package httpapi

import (
	"errors"
	"net/http"
	"strings"
)

// Config shapes the HTTP surface: cookie attributes, the CSRF header and the
// routes that skip credential resolution.
type Config struct {
	SessionCookie  string   `mapstructure:"session_cookie"`
	CSRFCookie     string   `mapstructure:"csrf_cookie"`
	CSRFHeader     string   `mapstructure:"csrf_header"`
	CookieDomain   string   `mapstructure:"cookie_domain"`
	CookiePath     string   `mapstructure:"cookie_path"`
	CookieSecure   bool     `mapstructure:"cookie_secure"`
	CookieSameSite string   `mapstructure:"cookie_same_site"`
	PublicPrefixes []string `mapstructure:"public_prefixes"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
}

// ClientTypeHeader set to NativeClient selects body-borne tokens instead of cookies.
const (
	ClientTypeHeader = "X-Client-Type"
	NativeClient     = "native"
)

// DefaultConfig returns secure cookie defaults.
func DefaultConfig() Config {
	return Config{
		SessionCookie:  "goaccount_session",
		CSRFCookie:     "goaccount_csrf",
		CSRFHeader:     "X-CSRF-Token",
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: "lax",
		PublicPrefixes: []string{
			"/auth/login",
			"/auth/register",
			"/auth/recover",
			"/auth/reset-password",
			"/auth/request-third-factor-code",
			"/auth/verify-third-factor-code",
			"/healthz",
			"/metrics",
		},
		MaxBodyBytes: 1 << 20,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SessionCookie) == "" || strings.TrimSpace(c.CSRFCookie) == "" {
		return errors.New("http cookie names must not be empty")
	}
	if c.SessionCookie == c.CSRFCookie {
		return errors.New("http session and csrf cookies must differ")
	}
	if strings.TrimSpace(c.CSRFHeader) == "" {
		return errors.New("http csrf header must not be empty")
	}
	sameSite, err := parseSameSite(c.CookieSameSite)
	if err != nil {
		return err
	}
	if sameSite == http.SameSiteNoneMode && !c.CookieSecure {
		return errors.New("http same site none requires secure cookies")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("http max body bytes must be > 0")
	}
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, errors.New("http cookie same site must be lax, strict or none")
}
