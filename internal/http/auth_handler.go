package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bedding-api/internal/domain"
	"bedding-api/internal/service"
)

// resetRequestedMessage es idéntico exista o no la cuenta: nada de
// enumeración de emails.
const resetRequestedMessage = "if this email is registered, a password reset message has been sent"

// AuthHandler mantiene dependencias para los endpoints de auth.
type AuthHandler struct {
	logger     *zap.Logger
	authSvc    *service.AuthService
	accountSvc *service.AccountService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authSvc *service.AuthService, accountSvc *service.AccountService) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		authSvc:    authSvc,
		accountSvc: accountSvc,
	}
}

// Login maneja POST /auth/token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		case errors.Is(err, service.ErrAccountInactive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "account is not active"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email          string `json:"email" binding:"required,email"`
		PhoneNumber    string `json:"phone_number" binding:"required"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		Role           string `json:"role"`
		Password       string `json:"password" binding:"required"`
		RepeatPassword string `json:"repeat_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// El token es opcional acá: sólo hace falta para registrar roles
	// privilegiados.
	var caller *domain.User
	if user, ok := h.authSvc.CurrentUser(c.Request.Context(), BearerToken(c)); ok {
		caller = &user
	}

	user, err := h.accountSvc.Register(c.Request.Context(), service.RegisterInput{
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           domain.Role(req.Role),
		Password:       req.Password,
		RepeatPassword: req.RepeatPassword,
	}, caller)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminRequired):
			c.Header("WWW-Authenticate", `Bearer scope="user:create"`)
			c.JSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Me maneja GET /auth/users/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := h.authSvc.CurrentUser(c.Request.Context(), BearerToken(c))
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(BearerToken(c)); err != nil {
		if errors.Is(err, service.ErrNoActiveToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token missing or already revoked"})
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

// ConfirmEmail maneja GET /auth/confirm_email (enlace del correo).
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	token := c.Query("token")
	if err := h.accountSvc.ConfirmEmail(c.Request.Context(), token); err != nil {
		if errors.Is(err, service.ErrConfirmTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
			return
		}
		h.logger.Error("confirm email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not confirm email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email confirmed"})
}

// ResendConfirmation maneja POST /auth/resend_email_confirmation.
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	user, ok := h.authSvc.CurrentUser(c.Request.Context(), BearerToken(c))
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.accountSvc.ResendConfirmation(c.Request.Context(), user); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyConfirmed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already confirmed"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		default:
			h.logger.Error("resend confirmation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resend confirmation"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "confirmation email sent"})
}

// ChangePassword maneja POST /auth/change_password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := h.authSvc.CurrentUser(c.Request.Context(), BearerToken(c))
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		OldPassword    string `json:"old_password" binding:"required"`
		NewPassword    string `json:"new_password" binding:"required"`
		RepeatPassword string `json:"repeat_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid change password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	newToken, err := h.accountSvc.ChangePassword(
		c.Request.Context(), user, BearerToken(c),
		req.OldPassword, req.NewPassword, req.RepeatPassword,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password incorrect"})
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		case errors.Is(err, service.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		case errors.Is(err, service.ErrSamePassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "new password must differ from current"})
		default:
			h.logger.Error("change password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not change password"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "password changed",
		"access_token": newToken,
		"token_type":   "bearer",
	})
}

// RequestPasswordReset maneja POST /auth/password-reset.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid password reset request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.accountSvc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		h.logger.Error("password reset request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": resetRequestedMessage})
}

// ResetPasswordConfirm maneja GET /auth/reset_password_confirm.
func (h *AuthHandler) ResetPasswordConfirm(c *gin.Context) {
	emailAddr := c.Query("email")
	token := c.Query("token")

	if err := h.accountSvc.ConfirmPasswordResetToken(c.Request.Context(), emailAddr, token); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrResetTokenNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password reset token not found"})
		case errors.Is(err, service.ErrResetTokenInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password reset token invalid"})
		case errors.Is(err, service.ErrResetTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password reset token expired"})
		default:
			h.logger.Error("reset token confirm failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not confirm token"})
		}
		return
	}
	// El token sigue vigente: el paso final lo necesita.
	c.JSON(http.StatusOK, gin.H{
		"message": "token confirmed, a new password can be set",
		"email":   emailAddr,
		"token":   token,
	})
}

// SetPassword maneja POST /auth/set_password.
func (h *AuthHandler) SetPassword(c *gin.Context) {
	var req struct {
		Email          string `json:"email" binding:"required,email"`
		Token          string `json:"token" binding:"required"`
		Password       string `json:"password" binding:"required"`
		RepeatPassword string `json:"repeat_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.accountSvc.SetPassword(
		c.Request.Context(), req.Email, req.Token,
		req.Password, req.RepeatPassword, BearerToken(c),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrResetTokenInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password reset token invalid"})
		case errors.Is(err, service.ErrResetTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password reset token expired"})
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		case errors.Is(err, service.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		default:
			h.logger.Error("set password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not set password"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "password set",
		"access_token": token,
		"token_type":   "bearer",
	})
}
