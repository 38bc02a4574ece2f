package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

type AdminsRepository interface {
	Insert(ctx context.Context, a model.AdminUser) error
	GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	GetByID(ctx context.Context, id string) (*model.AdminUser, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type AdminsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAdminsRepository(db *sqlx.DB) *AdminsRepositoryImpl {
	return &AdminsRepositoryImpl{db: db}
}

var _ AdminsRepository = (*AdminsRepositoryImpl)(nil)

const adminColumns = `id, name, email, password_hash, role, created_at, last_login`

// Insert is used by the seed command; an existing email is left as is.
func (r *AdminsRepositoryImpl) Insert(ctx context.Context, a model.AdminUser) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE id = id
	`, a.ID, a.Name, a.Email, a.PasswordHash, a.Role)
	return err
}

func (r *AdminsRepositoryImpl) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	var a model.AdminUser
	err := r.db.GetContext(ctx, &a, `SELECT `+adminColumns+` FROM admin_users WHERE email = ? LIMIT 1`, email)
	return getOne(err, &a)
}

func (r *AdminsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.AdminUser, error) {
	var a model.AdminUser
	err := r.db.GetContext(ctx, &a, `SELECT `+adminColumns+` FROM admin_users WHERE id = ? LIMIT 1`, id)
	return getOne(err, &a)
}

func (r *AdminsRepositoryImpl) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admin_users SET last_login = ? WHERE id = ?`, at, id)
	return err
}
