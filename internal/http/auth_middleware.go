package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bedding-api/internal/service"
)

const (
	bearerTokenKey  = "bearer_token"
	authSubjectKey  = "auth_subject"
	callerScopesKey = "caller_scopes"
)

// AuthContext resuelve la identidad efectiva del request y la deja en el
// contexto. Nunca corta el request: sin token (o con token inválido o
// revocado) el llamador sigue como invitado con los scopes de guest.
func AuthContext(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		subject, scopes := authSvc.Identity(token)
		c.Set(bearerTokenKey, token)
		c.Set(authSubjectKey, subject)
		c.Set(callerScopesKey, scopes)
		c.Next()
	}
}

// RequireScopes corta con 403 si al llamador le falta alguno de los scopes
// requeridos. Debe montarse después de AuthContext.
func RequireScopes(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.CheckScopes(CallerScopes(c), required); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// BearerToken devuelve el token crudo del request, o cadena vacía.
func BearerToken(c *gin.Context) string {
	if val, ok := c.Get(bearerTokenKey); ok {
		if token, ok := val.(string); ok {
			return token
		}
	}
	return ""
}

// CallerScopes devuelve los scopes efectivos del llamador.
func CallerScopes(c *gin.Context) []string {
	if val, ok := c.Get(callerScopesKey); ok {
		if scopes, ok := val.([]string); ok {
			return scopes
		}
	}
	return nil
}

// CallerSubject devuelve el subject del token, o cadena vacía para invitados.
func CallerSubject(c *gin.Context) string {
	if val, ok := c.Get(authSubjectKey); ok {
		if subject, ok := val.(string); ok {
			return subject
		}
	}
	return ""
}

func extractBearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
