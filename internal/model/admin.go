package model

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleModerator }

type AdminUser struct {
	ID           string     `db:"id"            json:"id"`
	Name         string     `db:"name"          json:"name"`
	Email        string     `db:"email"         json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role"          json:"role"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	LastLogin    *time.Time `db:"last_login"    json:"last_login,omitempty"`
}
