package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader is read from and echoed to every request.
const RequestIDHeader = "X-Request-Id"

const requestIDKey = "goaccount.request_id"

// RequestID returns the id assigned by RequestContext, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestContext assigns a request id and copies it, with the client address,
// into the request context for the engine. The address comes from gin's
// ClientIP, so forwarded headers are honoured only from trusted proxies.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		ctx := goAccount.WithRequestID(c.Request.Context(), rid)
		ctx = goAccount.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog writes one entry per request after the handler chain returns.
func AccessLog(log logrus.FieldLogger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"request_id":  RequestID(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   c.ClientIP(),
		})
		if id, ok := IdentityFrom(c); ok {
			entry = entry.WithFields(logrus.Fields{"account_id": id.AccountID, "role": id.Role})
		}
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("http_request")
			return
		}
		entry.Info("http_request")
	}
}

// Recovery turns a panic into a logged 500 with a generic body.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(logrus.Fields{
					"request_id": RequestID(c),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
				}).Error("panic_recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
