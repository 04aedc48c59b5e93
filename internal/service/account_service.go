package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"bedding-api/internal/domain"
	"bedding-api/internal/email"
	"bedding-api/internal/repository"
)

// AccountService implementa los flujos de ciclo de vida de credenciales:
// registro, confirmación de email, cambio y reset de password.
type AccountService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	auth       *AuthService
	tokens     *TokenService
	scopes     *ScopeResolver
	dispatcher *email.Dispatcher
	limiter    MailRateLimiter

	confirmTokenTTL time.Duration
	resetTokenTTL   time.Duration
	minPasswordLen  int
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	// ErrAdminRequired: registrar un rol distinto de buyer exige un admin
	// autenticado.
	ErrAdminRequired      = errors.New("admin privileges required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrSamePassword       = errors.New("new password must differ from current")
	ErrWrongPassword      = errors.New("current password incorrect")
	ErrAlreadyConfirmed   = errors.New("email already confirmed")
	ErrRateLimited        = errors.New("rate limited")
	// ErrConfirmTokenInvalid es deliberadamente genérico: un llamador no
	// autenticado no debe poder distinguir "expirado" de "inexistente".
	ErrConfirmTokenInvalid = errors.New("invalid confirmation token")
	ErrResetTokenNotFound  = errors.New("password reset token not found")
	ErrResetTokenInvalid   = errors.New("password reset token invalid")
	ErrResetTokenExpired   = errors.New("password reset token expired")
)

func NewAccountService(
	logger *zap.Logger,
	users repository.UserRepository,
	auth *AuthService,
	tokens *TokenService,
	scopes *ScopeResolver,
	dispatcher *email.Dispatcher,
	limiter MailRateLimiter,
	confirmTokenTTL, resetTokenTTL time.Duration,
	minPasswordLen int,
) *AccountService {
	if limiter == nil {
		limiter = NewMailRateLimiter(10*time.Minute, 3)
	}
	if minPasswordLen < 1 {
		minPasswordLen = 8
	}
	return &AccountService{
		logger:          logger,
		users:           users,
		auth:            auth,
		tokens:          tokens,
		scopes:          scopes,
		dispatcher:      dispatcher,
		limiter:         limiter,
		confirmTokenTTL: confirmTokenTTL,
		resetTokenTTL:   resetTokenTTL,
		minPasswordLen:  minPasswordLen,
	}
}

type RegisterInput struct {
	Email          string
	PhoneNumber    string
	FirstName      string
	LastName       string
	Role           domain.Role
	Password       string
	RepeatPassword string
}

// Register crea un usuario con token de confirmación fresco y despacha el
// correo de bienvenida. Sólo un admin autenticado puede registrar un rol
// distinto del rol por defecto.
func (s *AccountService) Register(ctx context.Context, input RegisterInput, caller *domain.User) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	role := input.Role
	if role == "" {
		role = domain.RoleBuyer
	}
	if !role.Valid() {
		return domain.User{}, ErrAdminRequired
	}
	if role != domain.RoleBuyer {
		if caller == nil || caller.Role != domain.RoleAdmin {
			return domain.User{}, ErrAdminRequired
		}
	}
	if input.Password != input.RepeatPassword {
		return domain.User{}, ErrPasswordMismatch
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	confirmToken := generateOpaqueToken(emailAddr)
	user := domain.User{
		Email:             emailAddr,
		PhoneNumber:       input.PhoneNumber,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Role:              role,
		IsActive:          true,
		HashedPassword:    hash,
		EmailConfirmToken: confirmToken,
		EmailConfirmTime:  &now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.logger.Info("user registered", zap.String("email", created.Email), zap.String("role", string(created.Role)))
	s.dispatcher.Registration(created.Email, created.FirstName, confirmToken)
	return created, nil
}

// ConfirmEmail consume el token de confirmación. Cualquier falla, incluida
// la expiración, responde con el mismo error genérico.
func (s *AccountService) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrConfirmTokenInvalid
	}
	user, err := s.users.GetByConfirmToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConfirmTokenInvalid
		}
		return err
	}
	if user.EmailConfirmTime == nil {
		return ErrConfirmTokenInvalid
	}
	if s.isExpired(*user.EmailConfirmTime, s.confirmTokenTTL) {
		// Fail-closed: un token vencido se limpia activamente.
		if err := s.users.ClearConfirmToken(ctx, user.ID); err != nil {
			return err
		}
		return ErrConfirmTokenInvalid
	}
	ok, err := s.users.ConfirmEmail(ctx, user.ID, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConfirmTokenInvalid
	}
	s.logger.Info("email confirmed", zap.String("email", user.Email))
	return nil
}

// ResendConfirmation genera un token nuevo (el anterior queda invalidado en
// silencio) y reenvía el correo de confirmación.
func (s *AccountService) ResendConfirmation(ctx context.Context, user domain.User) error {
	if user.IsEmailConfirmed {
		return ErrAlreadyConfirmed
	}
	if !s.limiter.Allow("confirm:" + user.Email) {
		return ErrRateLimited
	}
	now := time.Now().UTC()
	token := generateOpaqueToken(user.Email)
	if err := s.users.SetConfirmToken(ctx, user.ID, token, now); err != nil {
		return err
	}
	s.logger.Info("confirmation email resent", zap.String("email", user.Email))
	s.dispatcher.ConfirmationResend(user.Email, user.FirstName, token)
	return nil
}

// ChangePassword cambia el password de un usuario autenticado, revoca el
// token presentado y emite uno nuevo para la sesión actual.
func (s *AccountService) ChangePassword(ctx context.Context, user domain.User, bearerToken, oldPassword, newPassword, repeatPassword string) (string, error) {
	if !VerifyPassword(oldPassword, user.HashedPassword) {
		return "", ErrWrongPassword
	}
	if newPassword != repeatPassword {
		return "", ErrPasswordMismatch
	}
	if len(newPassword) < s.minPasswordLen {
		return "", ErrPasswordTooShort
	}
	if VerifyPassword(newPassword, user.HashedPassword) {
		return "", ErrSamePassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return "", err
	}

	if err := s.auth.RevokeToken(bearerToken); err != nil {
		s.logger.Warn("revoke on password change failed", zap.Error(err), zap.String("email", user.Email))
	}
	newToken, err := s.tokens.Issue(user.Email, s.scopes.ScopesFor(user.Role))
	if err != nil {
		return "", err
	}

	s.logger.Info("password changed", zap.String("email", user.Email))
	s.dispatcher.PasswordChanged(user.Email, user.FirstName)
	return newToken, nil
}

// RequestPasswordReset nunca revela si el email existe: para un email
// desconocido o sin confirmar no hace nada y el handler responde el mismo
// mensaje genérico.
func (s *AccountService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return nil
	}
	// El límite se evalúa antes del lookup para que la respuesta sea
	// idéntica exista o no la cuenta.
	if !s.limiter.Allow("reset:" + emailAddr) {
		return ErrRateLimited
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if !user.IsEmailConfirmed {
		return nil
	}

	now := time.Now().UTC()
	token := generateOpaqueToken(emailAddr)
	if err := s.users.SetResetToken(ctx, user.ID, token, now); err != nil {
		return err
	}
	s.logger.Info("password reset requested", zap.String("email", emailAddr))
	s.dispatcher.PasswordReset(emailAddr, token)
	return nil
}

// ConfirmPasswordResetToken valida el token de reset sin consumirlo. Este
// paso puede ser específico en sus errores porque el llamador ya conoce el
// email. Cualquier falla limpia los campos de reset (fail-closed).
func (s *AccountService) ConfirmPasswordResetToken(ctx context.Context, emailAddr, token string) error {
	emailAddr = normalizeEmail(emailAddr)
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordResetToken == "" || user.PasswordResetTime == nil {
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			return err
		}
		return ErrResetTokenNotFound
	}
	if user.PasswordResetToken != token {
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			return err
		}
		return ErrResetTokenInvalid
	}
	if s.isExpired(*user.PasswordResetTime, s.resetTokenTTL) {
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			return err
		}
		return ErrResetTokenExpired
	}
	s.logger.Info("password reset token confirmed", zap.String("email", emailAddr))
	return nil
}

// SetPassword revalida el token de reset (el paso de confirmación no lo
// consumió) y lo consume atómicamente junto con la escritura del hash nuevo.
func (s *AccountService) SetPassword(ctx context.Context, emailAddr, token, password, repeatPassword, bearerToken string) (string, error) {
	emailAddr = normalizeEmail(emailAddr)
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if user.PasswordResetTime == nil || user.PasswordResetToken != token {
		return "", ErrResetTokenInvalid
	}
	if s.isExpired(*user.PasswordResetTime, s.resetTokenTTL) {
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			return "", err
		}
		return "", ErrResetTokenExpired
	}
	if password != repeatPassword {
		return "", ErrPasswordMismatch
	}
	if len(password) < s.minPasswordLen {
		return "", ErrPasswordTooShort
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	// La escritura condicional re-chequea el token: si un request
	// concurrente lo consumió entre la validación y acá, este pierde.
	ok, err := s.users.ConsumeResetToken(ctx, user.ID, token, hash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrResetTokenInvalid
	}

	if err := s.auth.RevokeToken(bearerToken); err != nil {
		s.logger.Warn("revoke on set password failed", zap.Error(err), zap.String("email", emailAddr))
	}
	newToken, err := s.tokens.Issue(user.Email, s.scopes.ScopesFor(user.Role))
	if err != nil {
		return "", err
	}

	s.logger.Info("password set", zap.String("email", emailAddr))
	s.dispatcher.PasswordSet(user.Email, user.FirstName)
	return newToken, nil
}

func (s *AccountService) isExpired(issuedAt time.Time, ttl time.Duration) bool {
	return issuedAt.Before(time.Now().UTC().Add(-ttl))
}

// generateOpaqueToken produce un token opaco de alta entropía: sha256 en hex
// sobre el email más un UUID fresco.
func generateOpaqueToken(email string) string {
	sum := sha256.Sum256([]byte(email + uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
