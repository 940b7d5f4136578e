package middleware

import (
	"context"
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/account"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionKeyHeader supplies a session key when the credential carries none.
const SessionKeyHeader = "X-Session-Key"

// SessionChecker enforces idle and absolute session budgets.
type SessionChecker interface {
	CheckSession(ctx context.Context, auth *goAccount.AuthResult, fallbackKey string) error
}

// RequireSession rejects anonymous requests with 401, then applies the
// session budgets of the caller's role. An expired session answers 401 with
// reason "idle" or "absolute".
func RequireSession(sessions SessionChecker, log logrus.FieldLogger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || id.Auth == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		err := sessions.CheckSession(c.Request.Context(), id.Auth, c.GetHeader(SessionKeyHeader))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, goAccount.ErrSessionIdleExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "reason": "idle"})
		case errors.Is(err, goAccount.ErrSessionAbsoluteExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "reason": "absolute"})
		case errors.Is(err, goAccount.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		default:
			log.WithError(err).WithFields(logrus.Fields{
				"component":  "session",
				"request_id": RequestID(c),
			}).Error("session check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
	}
}

// RequireRole answers 403 unless the caller holds one of roles. It must run
// after RequireSession.
func RequireRole(roles ...account.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
