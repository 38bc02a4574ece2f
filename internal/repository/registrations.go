package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

type RegistrationsRepository interface {
	Insert(ctx context.Context, r model.OfficerRegistration) error
	Get(ctx context.Context, id string) (*model.OfficerRegistration, error)
	List(ctx context.Context, status model.ReviewStatus) ([]model.OfficerRegistration, error)
	Review(ctx context.Context, tx *sqlx.Tx, id string, status model.ReviewStatus, adminID string, reason *string, at time.Time) error
}

type RegistrationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRegistrationsRepository(db *sqlx.DB) *RegistrationsRepositoryImpl {
	return &RegistrationsRepositoryImpl{db: db}
}

var _ RegistrationsRepository = (*RegistrationsRepositoryImpl)(nil)

const registrationColumns = `id, name, mobile, email, station, department, ` + "`rank`" + `, badge_number,
	additional_info, status, reviewed_by, reviewed_at, rejection_reason, created_at`

func (r *RegistrationsRepositoryImpl) Insert(ctx context.Context, reg model.OfficerRegistration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO officer_registrations
		    (id, name, mobile, email, station, department, `+"`rank`"+`, badge_number, additional_info, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`, reg.ID, reg.Name, reg.Mobile, reg.Email, reg.Station, reg.Department, reg.Rank, reg.BadgeNumber,
		reg.AdditionalInfo, reg.Status)
	return err
}

func (r *RegistrationsRepositoryImpl) Get(ctx context.Context, id string) (*model.OfficerRegistration, error) {
	var reg model.OfficerRegistration
	err := r.db.GetContext(ctx, &reg, `SELECT `+registrationColumns+` FROM officer_registrations WHERE id = ? LIMIT 1`, id)
	return getOne(err, &reg)
}

func (r *RegistrationsRepositoryImpl) List(ctx context.Context, status model.ReviewStatus) ([]model.OfficerRegistration, error) {
	q := `SELECT ` + registrationColumns + ` FROM officer_registrations`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`

	var rows []model.OfficerRegistration
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RegistrationsRepositoryImpl) Review(ctx context.Context, tx *sqlx.Tx, id string, status model.ReviewStatus, adminID string, reason *string, at time.Time) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE officer_registrations
			   SET status = ?, reviewed_by = ?, reviewed_at = ?, rejection_reason = ?
			 WHERE id = ?
		`, status, adminID, at, reason, id)
		return err
	})
}
