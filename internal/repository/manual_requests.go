package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ManualRequestsRepository interface {
	Insert(ctx context.Context, m model.ManualRequest) error
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*model.ManualRequest, error)
	List(ctx context.Context, officerID string, status model.ReviewStatus) ([]model.ManualRequest, error)
	Resolve(ctx context.Context, tx *sqlx.Tx, id string, status model.ReviewStatus, response string, credits decimal.Decimal, adminID string, at time.Time) error
}

type ManualRequestsRepositoryImpl struct {
	db *sqlx.DB
}

func NewManualRequestsRepository(db *sqlx.DB) *ManualRequestsRepositoryImpl {
	return &ManualRequestsRepositoryImpl{db: db}
}

var _ ManualRequestsRepository = (*ManualRequestsRepositoryImpl)(nil)

func (r *ManualRequestsRepositoryImpl) Insert(ctx context.Context, m model.ManualRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO manual_requests (id, officer_id, input_type, input_value, notes, status, credit_deducted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW())
	`, m.ID, m.OfficerID, m.InputType, m.InputValue, m.Notes, m.Status)
	return err
}

func (r *ManualRequestsRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*model.ManualRequest, error) {
	var m model.ManualRequest
	err := tx.GetContext(ctx, &m, `
		SELECT id, officer_id, input_type, input_value, notes, status, admin_response,
		       credit_deducted, approved_by, approved_at, created_at
		  FROM manual_requests
		 WHERE id = ?
		 FOR UPDATE
	`, id)
	return getOne(err, &m)
}

// List joins officer contact details. Empty officerID or status match everything.
func (r *ManualRequestsRepositoryImpl) List(ctx context.Context, officerID string, status model.ReviewStatus) ([]model.ManualRequest, error) {
	q := `
		SELECT m.id, m.officer_id, m.input_type, m.input_value, m.notes, m.status, m.admin_response,
		       m.credit_deducted, m.approved_by, m.approved_at, m.created_at,
		       o.name AS officer_name, o.email AS officer_email, o.mobile AS officer_mobile
		  FROM manual_requests m
		  LEFT JOIN officers o ON o.id = m.officer_id
		 WHERE 1 = 1
	`
	var args []any
	if officerID != "" {
		q += " AND m.officer_id = ?"
		args = append(args, officerID)
	}
	if status != "" {
		q += " AND m.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY m.created_at DESC, m.id DESC"

	var rows []model.ManualRequest
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ManualRequestsRepositoryImpl) Resolve(ctx context.Context, tx *sqlx.Tx, id string, status model.ReviewStatus, response string, credits decimal.Decimal, adminID string, at time.Time) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE manual_requests
			   SET status = ?, admin_response = ?, credit_deducted = ?, approved_by = ?, approved_at = ?
			 WHERE id = ?
		`, status, response, credits, adminID, at, id)
		return err
	})
}
