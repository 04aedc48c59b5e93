package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bedding-api/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByConfirmToken(ctx context.Context, token string) (domain.User, error)
	SetConfirmToken(ctx context.Context, id int64, token string, issuedAt time.Time) error
	ClearConfirmToken(ctx context.Context, id int64) error
	ConfirmEmail(ctx context.Context, id int64, token string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	SetResetToken(ctx context.Context, id int64, token string, issuedAt time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	ConsumeResetToken(ctx context.Context, id int64, token, hashedPassword string) (bool, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, email, phone_number, first_name, last_name, role,
	is_active, is_email_confirmed, hashed_password,
	email_confirm_token, email_confirm_time,
	password_reset_token, password_reset_time,
	created_at, updated_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (
			email, phone_number, first_name, last_name, role,
			is_active, is_email_confirmed, hashed_password,
			email_confirm_token, email_confirm_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PhoneNumber,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsActive,
		user.IsEmailConfirmed,
		user.HashedPassword,
		user.EmailConfirmToken,
		user.EmailConfirmTime,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) GetByConfirmToken(ctx context.Context, token string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email_confirm_token = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, token))
}

func (r *PgUserRepository) SetConfirmToken(ctx context.Context, id int64, token string, issuedAt time.Time) error {
	const query = `
		UPDATE users
		SET email_confirm_token = $2, email_confirm_time = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, token, issuedAt)
	return err
}

func (r *PgUserRepository) ClearConfirmToken(ctx context.Context, id int64) error {
	const query = `
		UPDATE users
		SET email_confirm_token = NULL, email_confirm_time = NULL, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ConfirmEmail marca el email como confirmado y limpia el token en una sola
// escritura condicional; devuelve false si otro request ya consumió el token.
func (r *PgUserRepository) ConfirmEmail(ctx context.Context, id int64, token string) (bool, error) {
	const query = `
		UPDATE users
		SET is_email_confirmed = TRUE,
		    email_confirm_token = NULL,
		    email_confirm_time = NULL,
		    updated_at = now()
		WHERE id = $1 AND email_confirm_token = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	const query = `
		UPDATE users
		SET hashed_password = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, hashedPassword)
	return err
}

func (r *PgUserRepository) SetResetToken(ctx context.Context, id int64, token string, issuedAt time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_token = $2, password_reset_time = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, token, issuedAt)
	return err
}

func (r *PgUserRepository) ClearResetToken(ctx context.Context, id int64) error {
	const query = `
		UPDATE users
		SET password_reset_token = NULL, password_reset_time = NULL, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ConsumeResetToken fija el nuevo hash y limpia el token de reset en una sola
// escritura condicional sobre el valor del token; RowsAffected == 0 significa
// que el token ya fue consumido o reemplazado por otro request.
func (r *PgUserRepository) ConsumeResetToken(ctx context.Context, id int64, token, hashedPassword string) (bool, error) {
	const query = `
		UPDATE users
		SET hashed_password = $3,
		    password_reset_token = NULL,
		    password_reset_time = NULL,
		    updated_at = now()
		WHERE id = $1 AND password_reset_token = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, token, hashedPassword)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PgUserRepository) scanUser(row rowScanner) (domain.User, error) {
	var (
		u            domain.User
		hashed       *string
		confirmToken *string
		resetToken   *string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PhoneNumber,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.IsActive,
		&u.IsEmailConfirmed,
		&hashed,
		&confirmToken,
		&u.EmailConfirmTime,
		&resetToken,
		&u.PasswordResetTime,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if hashed != nil {
		u.HashedPassword = *hashed
	}
	if confirmToken != nil {
		u.EmailConfirmToken = *confirmToken
	}
	if resetToken != nil {
		u.PasswordResetToken = *resetToken
	}
	return u, nil
}
