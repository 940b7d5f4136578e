package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setSessionCookies writes the HttpOnly bearer cookie and the script-readable
// CSRF cookie that clients echo in the CSRF header.
func (s *Server) setSessionCookies(c *gin.Context, token, csrfToken string, expiresAt time.Time) {
	http.SetCookie(c.Writer, s.cookie(s.cfg.SessionCookie, token, expiresAt, true))
	s.setCSRFCookie(c, csrfToken, expiresAt)
}

func (s *Server) setCSRFCookie(c *gin.Context, csrfToken string, expiresAt time.Time) {
	if csrfToken == "" {
		return
	}
	http.SetCookie(c.Writer, s.cookie(s.cfg.CSRFCookie, csrfToken, expiresAt, false))
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	for _, name := range []string{s.cfg.SessionCookie, s.cfg.CSRFCookie} {
		ck := s.cookie(name, "", time.Unix(0, 0), name == s.cfg.SessionCookie)
		ck.MaxAge = -1
		http.SetCookie(c.Writer, ck)
	}
}

func (s *Server) cookie(name, value string, expiresAt time.Time, httpOnly bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cfg.CookiePath,
		Domain:   s.cfg.CookieDomain,
		Expires:  expiresAt.UTC(),
		Secure:   s.cfg.CookieSecure,
		HttpOnly: httpOnly,
		SameSite: s.sameSite,
	}
	if ttl := time.Until(expiresAt); ttl > 0 {
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}
