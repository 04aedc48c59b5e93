package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bedding-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas de auth.
func NewRouter(
	logger *zap.Logger,
	authSvc *service.AuthService,
	authH *AuthHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, JSON content-type e identidad.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware(), AuthContext(authSvc))

	auth := r.Group("/auth")
	auth.POST("/token", authH.Login)
	auth.POST("/register", authH.Register)
	auth.GET("/users/me", RequireScopes("me:read"), authH.Me)
	auth.POST("/logout", authH.Logout)
	auth.GET("/confirm_email", authH.ConfirmEmail)
	auth.POST("/resend_email_confirmation", authH.ResendConfirmation)
	auth.POST("/change_password", authH.ChangePassword)
	auth.POST("/password-reset", authH.RequestPasswordReset)
	auth.GET("/reset_password_confirm", authH.ResetPasswordConfirm)
	auth.POST("/set_password", authH.SetPassword)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
