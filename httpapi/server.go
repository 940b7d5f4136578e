package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck probes one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

// Server owns the HTTP handlers for the authentication routes.
type Server struct {
	engine   *goAccount.Engine
	cfg      Config
	sameSite http.SameSite
	log      logrus.FieldLogger
	metrics  http.Handler
	checks   map[string]HealthCheck
}

// Option customizes a Server.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck adds a named probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		if check != nil {
			s.checks[name] = check
		}
	}
}

// NewServer validates cfg and returns a Server bound to engine.
func NewServer(engine *goAccount.Engine, cfg Config, log logrus.FieldLogger, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, goAccount.ErrEngineNotReady
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sameSite, _ := parseSameSite(cfg.CookieSameSite)
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		engine:   engine,
		cfg:      cfg,
		sameSite: sameSite,
		log:      log.WithField("component", "http"),
		checks:   map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the gin engine with the full middleware chain.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("httpapi: trusted proxies: %w", err)
	}

	r.Use(
		middleware.Recovery(s.log),
		middleware.RequestContext(),
		middleware.AccessLog(s.log),
		s.limitBody(),
		middleware.Gate(s.engine, middleware.GateConfig{
			CookieName:     s.cfg.SessionCookie,
			PublicPrefixes: s.cfg.PublicPrefixes,
		}, s.log),
	)

	r.GET("/healthz", s.healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	auth := r.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/register", s.register)
	auth.POST("/recover", s.recoverPassword)
	auth.POST("/reset-password", s.resetPassword)
	auth.POST("/request-third-factor-code", s.requestThirdFactorCode)
	auth.POST("/verify-third-factor-code", s.verifyThirdFactorCode)

	authed := auth.Group("", middleware.RequireSession(s.engine, s.log), s.requireCSRF())
	authed.POST("/logout", s.logout)
	authed.GET("/validate-token", s.validateToken)
	authed.POST("/totp/setup", s.setupTOTP)
	authed.POST("/totp/confirm", s.confirmTOTP)
	authed.POST("/totp/disable", s.disableTOTP)
	authed.PUT("/third-factor", s.toggleThirdFactor)

	return r, nil
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		}
		c.Next()
	}
}

// requireCSRF protects state-changing requests made with cookie credentials.
// Header credentials are not sent ambiently by browsers and skip the check.
func (s *Server) requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		id, ok := middleware.IdentityFrom(c)
		if !ok || id.Source != middleware.SourceCookie {
			c.Next()
			return
		}

		header := c.GetHeader(s.cfg.CSRFHeader)
		cookie, _ := c.Cookie(s.cfg.CSRFCookie)
		if err := s.engine.VerifyCSRF(c.Request.Context(), id.Auth, header, cookie); err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{}
	healthy := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			healthy = false
			status[name] = "down"
			s.log.WithError(err).WithField("check", name).Warn("health check failed")
			continue
		}
		status[name] = "up"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ok": healthy, "checks": status})
}
