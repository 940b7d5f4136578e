package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otpCode"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

const codeSentMessage = "If the account exists, a verification code has been sent."

func isNative(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.GetHeader(ClientTypeHeader)), NativeClient)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

// login handles POST /auth/login.
func (s *Server) login(c *gin.Context) {
	var body loginRequest
	if !bindJSON(c, &body) {
		return
	}
	if strings.TrimSpace(body.Email) == "" || strings.TrimSpace(body.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	native := isNative(c)
	res, err := s.engine.Login(c.Request.Context(), goAccount.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
		OTP:      body.OTPCode,
		Cookie:   !native,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeLoginResult(c, res, native)
}

// verifyThirdFactorCode handles POST /auth/verify-third-factor-code.
func (s *Server) verifyThirdFactorCode(c *gin.Context) {
	var body verifyCodeRequest
	if !bindJSON(c, &body) {
		return
	}
	if strings.TrimSpace(body.Email) == "" || strings.TrimSpace(body.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and code are required"})
		return
	}

	native := isNative(c)
	res, err := s.engine.VerifyThirdFactor(c.Request.Context(), body.Email, body.Code, !native)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeLoginResult(c, res, native)
}

// requestThirdFactorCode handles POST /auth/request-third-factor-code. The
// answer does not reveal whether a challenge was pending.
func (s *Server) requestThirdFactorCode(c *gin.Context) {
	var body emailRequest
	if !bindJSON(c, &body) {
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	if err := s.engine.RequestThirdFactorCode(c.Request.Context(), body.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": codeSentMessage})
}

func (s *Server) writeLoginResult(c *gin.Context, res *goAccount.LoginResult, native bool) {
	if res.TwoFactorRequired {
		c.JSON(http.StatusPreconditionRequired, gin.H{
			"requiresTwoFactor": true,
			"email":             res.Profile.Email,
			"role":              res.Profile.Role,
		})
		return
	}
	if res.ThirdFactorRequired {
		c.JSON(http.StatusPreconditionRequired, gin.H{
			"thirdFactorRequired": true,
			"email":               res.Profile.Email,
			"role":                res.Profile.Role,
		})
		return
	}

	body := gin.H{
		"user":      res.Profile,
		"role":      res.Profile.Role,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if native {
		body["token"] = res.Token
	} else {
		s.setSessionCookies(c, res.Token, res.CSRFToken, res.ExpiresAt)
		body["csrfToken"] = res.CSRFToken
	}
	c.JSON(http.StatusOK, body)
}

// logout handles POST /auth/logout. CSRF has already been verified for cookie
// credentials.
func (s *Server) logout(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := s.engine.Logout(c.Request.Context(), id.Auth); err != nil {
		s.writeError(c, err)
		return
	}
	s.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// validateToken handles GET /auth/validate-token. Cookie clients missing their
// CSRF cookie get a fresh one.
func (s *Server) validateToken(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	profile, err := s.engine.Profile(c.Request.Context(), id.Role, id.AccountID)
	if err != nil {
		if errors.Is(err, goAccount.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		s.writeError(c, err)
		return
	}

	if id.Source == middleware.SourceCookie {
		if v, err := c.Cookie(s.cfg.CSRFCookie); err != nil || v == "" {
			csrfToken, err := s.engine.IssueCSRF(id.Auth)
			if err != nil {
				s.writeError(c, err)
				return
			}
			s.setCSRFCookie(c, csrfToken, id.Auth.ExpiresAt)
		}
	}

	c.JSON(http.StatusOK, gin.H{"role": profile.Role, "email": profile.Email})
}
