package middleware

import (
	"context"
	"errors"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/account"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const identityKey = "goaccount.identity"

// CredentialSource records where the bearer credential was read from.
type CredentialSource string

const (
	SourceHeader CredentialSource = "header"
	SourceCookie CredentialSource = "cookie"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	AccountID string
	Role      account.Kind
	TokenID   string
	Source    CredentialSource

	// Auth is the engine view of the credential, passed back for session and
	// CSRF checks.
	Auth *goAccount.AuthResult
}

// Authenticator resolves raw bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*goAccount.AuthResult, error)
}

// GateConfig controls credential extraction.
type GateConfig struct {
	// CookieName carries the token for browser clients.
	CookieName string
	// PublicPrefixes skip the gate entirely.
	PublicPrefixes []string
}

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by Gate.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok
}

// IdentityFrom returns the identity attached to c by Gate.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

// Gate resolves the inbound credential and attaches an Identity when it is
// valid. It never rejects: absent, unknown and expired credentials continue
// anonymously so public routes can decide for themselves.
func Gate(auth Authenticator, cfg GateConfig, log logrus.FieldLogger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		if auth == nil || isPublic(c.Request.URL.Path, cfg.PublicPrefixes) {
			c.Next()
			return
		}

		raw, source := credential(c, cfg.CookieName)
		if raw == "" {
			c.Next()
			return
		}

		res, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if !errors.Is(err, goAccount.ErrUnauthorized) {
				log.WithError(err).WithFields(logrus.Fields{
					"component":  "gate",
					"request_id": RequestID(c),
				}).Warn("credential lookup failed, continuing anonymously")
			}
			c.Next()
			return
		}

		id := &Identity{
			AccountID: res.AccountID,
			Role:      res.Role,
			TokenID:   res.TokenID,
			Source:    source,
			Auth:      res,
		}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityContextKey{}, id))
		c.Next()
	}
}

// credential prefers the Authorization header over the session cookie.
func credential(c *gin.Context, cookieName string) (string, CredentialSource) {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		return token, SourceHeader
	}
	if cookieName == "" {
		return "", ""
	}
	value, err := c.Cookie(cookieName)
	if err != nil || strings.TrimSpace(value) == "" {
		return "", ""
	}
	return strings.TrimSpace(value), SourceCookie
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func isPublic(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
