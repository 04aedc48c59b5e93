package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"bedding-api/internal/domain"
)

type recordingBlacklist struct {
	BlacklistStore
	lastToken string
	lastTTL   time.Duration
}

func (r *recordingBlacklist) Revoke(token string, ttl time.Duration) error {
	r.lastToken = token
	r.lastTTL = ttl
	return r.BlacklistStore.Revoke(token, ttl)
}

type failingBlacklist struct{}

func (failingBlacklist) Revoke(string, time.Duration) error { return errors.New("store down") }
func (failingBlacklist) IsRevoked(string) (bool, error)     { return false, errors.New("store down") }

func newTestAuthService(repo *mockUserRepo, blacklist BlacklistStore) *AuthService {
	tokens := NewTokenService("secret", "HS256", 15*time.Minute)
	return NewAuthService(zap.NewNop(), repo, tokens, NewScopeResolver(), blacklist)
}

func seedUser(t *testing.T, repo *mockUserRepo, email, password string, role domain.Role, active bool) domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return repo.add(domain.User{
		Email:          email,
		Role:           role,
		IsActive:       active,
		HashedPassword: hash,
	})
}

func TestAuthService_LoginIssuesTokenWithRoleScopes(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	svc := newTestAuthService(repo, NewMemoryBlacklistStore())

	token, err := svc.Login(context.Background(), "buyer@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.tokens.Decode(token)
	if err != nil {
		t.Fatalf("decode issued token: %v", err)
	}
	if claims.Subject != "buyer@example.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if !HasScope(claims.Scopes, "me:read") || !HasScope(claims.Scopes, "shop:read") {
		t.Fatalf("expected buyer scopes in token, got %v", claims.Scopes)
	}
	if HasScope(claims.Scopes, "user:delete") {
		t.Fatalf("buyer token must not carry admin scopes")
	}
}

func TestAuthService_LoginUnknownEmailAndWrongPasswordCollapse(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	svc := newTestAuthService(repo, NewMemoryBlacklistStore())

	_, errUnknown := svc.Login(context.Background(), "x@example.com", "whatever")
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", errUnknown)
	}
	_, errWrong := svc.Login(context.Background(), "buyer@example.com", "wrong-pass")
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrong)
	}
}

func TestAuthService_LoginInactiveAccount(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "off@example.com", "s3cret-pass", domain.RoleBuyer, false)
	svc := newTestAuthService(repo, NewMemoryBlacklistStore())

	if _, err := svc.Login(context.Background(), "off@example.com", "s3cret-pass"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthService_LogoutRevokesAndIsNotRepeatable(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	svc := newTestAuthService(repo, NewMemoryBlacklistStore())

	token, err := svc.Login(context.Background(), "buyer@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(token); !errors.Is(err, ErrNoActiveToken) {
		t.Fatalf("expected ErrNoActiveToken on second logout, got %v", err)
	}
	if err := svc.Logout(""); !errors.Is(err, ErrNoActiveToken) {
		t.Fatalf("expected ErrNoActiveToken for missing token, got %v", err)
	}
}

func TestAuthService_RevocationTTLCoversTokenLifetime(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	recorder := &recordingBlacklist{BlacklistStore: NewMemoryBlacklistStore()}
	svc := newTestAuthService(repo, recorder)

	token, err := svc.Login(context.Background(), "buyer@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// La entrada nunca puede caducar antes que el token que bloquea.
	if recorder.lastTTL < svc.tokens.AccessTTL() {
		t.Fatalf("blacklist ttl %v below configured access ttl %v", recorder.lastTTL, svc.tokens.AccessTTL())
	}
	if recorder.lastToken != token {
		t.Fatalf("expected whole token as blacklist key")
	}
}

func TestAuthService_IdentityGuestPaths(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	svc := newTestAuthService(repo, NewMemoryBlacklistStore())

	guest := svc.scopes.GuestScopes()

	subject, scopes := svc.Identity("")
	if subject != "" || !HasScope(scopes, "shop:read") || len(scopes) != len(guest) {
		t.Fatalf("missing token must resolve to guest, got %q %v", subject, scopes)
	}

	subject, scopes = svc.Identity("garbage.token.value")
	if subject != "" || len(scopes) != len(guest) {
		t.Fatalf("invalid token must resolve to guest, got %q %v", subject, scopes)
	}

	token, err := svc.Login(context.Background(), "buyer@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// Token firmado y vigente pero revocado: invitado igual.
	subject, scopes = svc.Identity(token)
	if subject != "" || len(scopes) != len(guest) {
		t.Fatalf("revoked token must resolve to guest, got %q %v", subject, scopes)
	}
}

func TestAuthService_IdentityFailsClosedOnStoreError(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	healthy := newTestAuthService(repo, NewMemoryBlacklistStore())

	token, err := healthy.Login(context.Background(), "buyer@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	broken := newTestAuthService(repo, failingBlacklist{})
	subject, scopes := broken.Identity(token)
	if subject != "" {
		t.Fatalf("unreachable blacklist must degrade to guest, got subject %q", subject)
	}
	if !HasScope(scopes, "shop:read") {
		t.Fatalf("expected guest scopes, got %v", scopes)
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	repo := newMockUserRepo()
	active := seedUser(t, repo, "buyer@example.com", "s3cret-pass", domain.RoleBuyer, true)
	svc := newTestAuthService(repo, NewMemoryBlacklistStore())

	token, err := svc.Login(context.Background(), "buyer@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, ok := svc.CurrentUser(context.Background(), token)
	if !ok || user.ID != active.ID {
		t.Fatalf("expected current user %d, got %v %v", active.ID, user.ID, ok)
	}

	// Cuenta desactivada después de emitir el token: sin usuario, sin error.
	deactivated := active
	deactivated.IsActive = false
	repo.add(deactivated)
	if _, ok := svc.CurrentUser(context.Background(), token); ok {
		t.Fatalf("deactivated account must resolve to no current user")
	}

	if _, ok := svc.CurrentUser(context.Background(), ""); ok {
		t.Fatalf("missing token must resolve to no current user")
	}
}
