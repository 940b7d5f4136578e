package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// publicSentinels are the errors whose message may reach a client. Wrapped
// detail is never echoed; the matching sentinel's own text is used instead.
var publicSentinels = []error{
	goAccount.ErrInvalidInput,
	goAccount.ErrTOTPCodeFormat,
	goAccount.ErrResetTokenInvalid,
	goAccount.ErrAccountExists,
	goAccount.ErrAccountNotFound,
	goAccount.ErrTOTPAlreadyEnabled,
	goAccount.ErrTOTPNotConfigured,
	goAccount.ErrTOTPSetupExpired,
	goAccount.ErrThirdFactorExpired,
	goAccount.ErrAccountInactive,
	goAccount.ErrCSRFInvalid,
	goAccount.ErrForbidden,
	goAccount.ErrAccountLocked,
	goAccount.ErrLoginRateLimited,
	goAccount.ErrOTPRateLimited,
	goAccount.ErrRegistrationRateLimited,
}

func publicMessage(err error) string {
	var policy *goAccount.PolicyError
	if errors.As(err, &policy) {
		return policy.Error()
	}
	for _, sentinel := range publicSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "request failed"
}

// writeError maps an engine error onto the response. Unclassified errors are
// logged with the request id and answered with a bare 500.
func (s *Server) writeError(c *gin.Context, err error) {
	var attempt *goAccount.AttemptError
	hasAttempt := errors.As(err, &attempt)

	switch goAccount.Classify(err) {
	case goAccount.KindUserInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err)})

	case goAccount.KindAuthentication:
		msg := "invalid credentials"
		if errors.Is(err, goAccount.ErrUnauthorized) {
			msg = "unauthorized"
		}
		body := gin.H{"error": msg}
		if hasAttempt && attempt.RemainingAttempts > 0 {
			body["remainingAttempts"] = attempt.RemainingAttempts
		}
		c.JSON(http.StatusUnauthorized, body)

	case goAccount.KindAuthorization:
		c.JSON(http.StatusForbidden, gin.H{"error": publicMessage(err)})

	case goAccount.KindRateLimit:
		var wait time.Duration
		if hasAttempt {
			wait = attempt.RetryAfter
		}
		secs := retrySeconds(wait)
		if secs > 0 {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
		body := gin.H{"error": publicMessage(err)}
		if errors.Is(err, goAccount.ErrAccountLocked) {
			body["locked"] = true
			body["lockoutTime"] = secs
		} else if secs > 0 {
			body["retryAfter"] = secs
		}
		c.JSON(http.StatusTooManyRequests, body)

	default:
		_ = c.Error(err)
		s.log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.RequestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// retrySeconds rounds d up to whole seconds.
func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
