package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bedding-api/internal/domain"
	"bedding-api/internal/repository"
)

// AuthService verifica credenciales, emite tokens y orquesta la revocación.
type AuthService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	tokens    *TokenService
	scopes    *ScopeResolver
	blacklist BlacklistStore
}

var (
	// ErrInvalidCredentials no distingue "email inexistente" de "password
	// incorrecto" a propósito.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrNoActiveToken      = errors.New("no active token")
	ErrInsufficientScope  = errors.New("insufficient permissions")
)

func NewAuthService(logger *zap.Logger, users repository.UserRepository, tokens *TokenService, scopes *ScopeResolver, blacklist BlacklistStore) *AuthService {
	if blacklist == nil {
		blacklist = NewMemoryBlacklistStore()
	}
	return &AuthService{
		logger:    logger,
		users:     users,
		tokens:    tokens,
		scopes:    scopes,
		blacklist: blacklist,
	}
}

// Login autentica por email y password y emite un access token con los
// scopes del rol del usuario.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (string, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !VerifyPassword(password, user.HashedPassword) {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrAccountInactive
	}

	token, err := s.tokens.Issue(user.Email, s.scopes.ScopesFor(user.Role))
	if err != nil {
		return "", err
	}
	s.logger.Info("access token issued", zap.String("email", user.Email))
	return token, nil
}

// Logout agrega el token presentado a la blacklist. El TTL de la entrada se
// calcula desde el vencimiento embebido del token, con la vigencia
// configurada como piso, para que la entrada nunca caduque antes que el
// token que bloquea.
func (s *AuthService) Logout(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoActiveToken
	}
	revoked, err := s.blacklist.IsRevoked(token)
	if err != nil || revoked {
		return ErrNoActiveToken
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return ErrNoActiveToken
	}
	if err := s.blacklist.Revoke(token, s.revocationTTL(claims)); err != nil {
		return err
	}
	s.logger.Info("access token revoked", zap.String("email", claims.Subject))
	return nil
}

// RevokeToken manda un token válido a la blacklist sin las comprobaciones de
// Logout; usado por los flujos de cambio de password.
func (s *AuthService) RevokeToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		// Un token ya inválido no necesita entrada en la blacklist.
		return nil
	}
	return s.blacklist.Revoke(token, s.revocationTTL(claims))
}

func (s *AuthService) revocationTTL(claims Claims) time.Duration {
	ttl := s.tokens.AccessTTL()
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > ttl {
			ttl = remaining
		}
	}
	return ttl
}

// Identity resuelve la identidad efectiva de un request. Sin token, con
// token inválido, revocado, o con blacklist inalcanzable (fail-closed), el
// llamador queda como invitado con los scopes de guest.
func (s *AuthService) Identity(token string) (subject string, scopes []string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", s.scopes.GuestScopes()
	}
	revoked, err := s.blacklist.IsRevoked(token)
	if err != nil {
		s.logger.Warn("blacklist lookup failed, treating token as revoked", zap.Error(err))
		return "", s.scopes.GuestScopes()
	}
	if revoked {
		return "", s.scopes.GuestScopes()
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return "", s.scopes.GuestScopes()
	}
	// Los scopes viajan en el token: un cambio de rol no altera tokens ya
	// emitidos hasta que venzan o se revoquen.
	return claims.Subject, claims.Scopes
}

// CurrentUser resuelve el usuario del token. Un token huérfano (usuario
// borrado o desactivado) degrada en silencio a "sin usuario", no a error.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (domain.User, bool) {
	subject, _ := s.Identity(token)
	if subject == "" {
		return domain.User{}, false
	}
	user, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		return domain.User{}, false
	}
	if !user.IsActive {
		return domain.User{}, false
	}
	return user, true
}

// CheckScopes verifica que todos los scopes requeridos estén presentes.
func CheckScopes(have []string, required []string) error {
	for _, scope := range required {
		if !HasScope(have, scope) {
			return ErrInsufficientScope
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
