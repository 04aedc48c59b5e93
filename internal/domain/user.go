package domain

import "time"

// Role define los roles conocidos del sistema.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	// RoleGuest nunca se persiste; representa a un llamador sin credencial.
	RoleGuest Role = "guest"
)

// Valid indica si el rol puede asignarse a un usuario.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	PhoneNumber        string     `json:"phone_number"`
	FirstName          string     `json:"first_name,omitempty"`
	LastName           string     `json:"last_name,omitempty"`
	Role               Role       `json:"role"`
	IsActive           bool       `json:"is_active"`
	IsEmailConfirmed   bool       `json:"is_email_confirmed"`
	HashedPassword     string     `json:"-"`
	EmailConfirmToken  string     `json:"-"`
	EmailConfirmTime   *time.Time `json:"-"`
	PasswordResetToken string     `json:"-"`
	PasswordResetTime  *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
