package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"bedding-api/internal/domain"
)

type mockUserRepo struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		nextID:  1,
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (m *mockUserRepo) add(user domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user
}

func (m *mockUserRepo) get(id int64) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	return user, ok
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	return m.add(user), nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByConfirmToken(_ context.Context, token string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.EmailConfirmToken != "" && user.EmailConfirmToken == token {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) SetConfirmToken(_ context.Context, id int64, token string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailConfirmToken = token
	user.EmailConfirmTime = &issuedAt
	m.byID[id] = user
	return nil
}

func (m *mockUserRepo) ClearConfirmToken(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailConfirmToken = ""
	user.EmailConfirmTime = nil
	m.byID[id] = user
	return nil
}

func (m *mockUserRepo) ConfirmEmail(_ context.Context, id int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok || user.EmailConfirmToken != token {
		return false, nil
	}
	user.IsEmailConfirmed = true
	user.EmailConfirmToken = ""
	user.EmailConfirmTime = nil
	m.byID[id] = user
	return true, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.HashedPassword = hashedPassword
	m.byID[id] = user
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, id int64, token string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordResetToken = token
	user.PasswordResetTime = &issuedAt
	m.byID[id] = user
	return nil
}

func (m *mockUserRepo) ClearResetToken(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordResetToken = ""
	user.PasswordResetTime = nil
	m.byID[id] = user
	return nil
}

func (m *mockUserRepo) ConsumeResetToken(_ context.Context, id int64, token, hashedPassword string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok || user.PasswordResetToken == "" || user.PasswordResetToken != token {
		return false, nil
	}
	user.HashedPassword = hashedPassword
	user.PasswordResetToken = ""
	user.PasswordResetTime = nil
	m.byID[id] = user
	return true, nil
}

type mockSender struct {
	mu sync.Mutex

	registrations []string
	resends       []string
	changed       []string
	resets        []string
	sets          []string

	lastConfirmLink string
	lastResetLink   string
	err             error
}

func (m *mockSender) SendRegistration(_ context.Context, toEmail, _ string, confirmLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations = append(m.registrations, toEmail)
	m.lastConfirmLink = confirmLink
	return m.err
}

func (m *mockSender) SendConfirmationResend(_ context.Context, toEmail, _ string, confirmLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resends = append(m.resends, toEmail)
	m.lastConfirmLink = confirmLink
	return m.err
}

func (m *mockSender) SendPasswordChanged(_ context.Context, toEmail, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, toEmail)
	return m.err
}

func (m *mockSender) SendPasswordReset(_ context.Context, toEmail, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, toEmail)
	m.lastResetLink = resetLink
	return m.err
}

func (m *mockSender) SendPasswordSet(_ context.Context, toEmail, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, toEmail)
	return m.err
}
