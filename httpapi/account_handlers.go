package httpapi

import (
	"net/http"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-gonic/gin"
)

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Alias    string `json:"alias"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type thirdFactorToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

const recoverMessage = "If an account exists for that email, a password reset link has been sent."

// recoverPassword handles POST /auth/recover. Known and unknown emails get the
// same answer.
func (s *Server) recoverPassword(c *gin.Context) {
	var body emailRequest
	if !bindJSON(c, &body) {
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	if err := s.engine.RequestPasswordReset(c.Request.Context(), body.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": recoverMessage})
}

// resetPassword handles POST /auth/reset-password.
func (s *Server) resetPassword(c *gin.Context) {
	var body resetPasswordRequest
	if !bindJSON(c, &body) {
		return
	}
	if strings.TrimSpace(body.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": goAccount.ErrResetTokenInvalid.Error()})
		return
	}

	if err := s.engine.ConfirmPasswordReset(c.Request.Context(), body.Token, body.Password); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// register handles POST /auth/register.
func (s *Server) register(c *gin.Context) {
	var body registerRequest
	if !bindJSON(c, &body) {
		return
	}

	profile, err := s.engine.Register(c.Request.Context(), goAccount.RegisterRequest{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
		Surname:  body.Surname,
		Alias:    body.Alias,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// setupTOTP handles POST /auth/totp/setup.
func (s *Server) setupTOTP(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	setup, err := s.engine.SetupTOTP(c.Request.Context(), id.Role, id.AccountID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": setup.Secret, "url": setup.URL})
}

// confirmTOTP handles POST /auth/totp/confirm.
func (s *Server) confirmTOTP(c *gin.Context) {
	var body codeRequest
	if !bindJSON(c, &body) {
		return
	}
	id, _ := middleware.IdentityFrom(c)
	if err := s.engine.ConfirmTOTP(c.Request.Context(), id.Role, id.AccountID, body.Code); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totpEnabled": true})
}

// disableTOTP handles POST /auth/totp/disable.
func (s *Server) disableTOTP(c *gin.Context) {
	var body codeRequest
	if !bindJSON(c, &body) {
		return
	}
	id, _ := middleware.IdentityFrom(c)
	if err := s.engine.DisableTOTP(c.Request.Context(), id.Role, id.AccountID, body.Code); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totpEnabled": false})
}

// toggleThirdFactor handles PUT /auth/third-factor.
func (s *Server) toggleThirdFactor(c *gin.Context) {
	var body thirdFactorToggleRequest
	if !bindJSON(c, &body) {
		return
	}
	if body.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}
	id, _ := middleware.IdentityFrom(c)
	if err := s.engine.SetThirdFactor(c.Request.Context(), id.Role, id.AccountID, *body.Enabled); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thirdFactorEnabled": *body.Enabled})
}
