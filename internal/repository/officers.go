package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type OfficersRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, o model.Officer) error
	GetByID(ctx context.Context, id string) (*model.Officer, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*model.Officer, error)
	GetByLogin(ctx context.Context, email, mobile string) (*model.Officer, error)
	List(ctx context.Context) ([]model.Officer, error)
	Update(ctx context.Context, tx *sqlx.Tx, o model.Officer) error
	SetCredits(ctx context.Context, tx *sqlx.Tx, id string, remaining, total decimal.Decimal) error
	Deduct(ctx context.Context, tx *sqlx.Tx, id string, amount decimal.Decimal, countQuery bool) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	ListWithPlans(ctx context.Context) ([]model.OfficerWithPlan, error)
	Counts(ctx context.Context) (total, active int64, err error)
}

type OfficersRepositoryImpl struct {
	db *sqlx.DB
}

func NewOfficersRepository(db *sqlx.DB) *OfficersRepositoryImpl {
	return &OfficersRepositoryImpl{db: db}
}

var _ OfficersRepository = (*OfficersRepositoryImpl)(nil)

const officerColumns = `id, name, mobile, email, password_hash, telegram_id, department, ` +
	"`rank`" + `, badge_number, status, credits_remaining, total_credits, plan_id,
	plan_start_date, total_queries, registered_on, last_active, created_at, updated_at`

func (r *OfficersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, o model.Officer) error {
	q := `
		INSERT INTO officers (` + officerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			o.ID, o.Name, o.Mobile, o.Email, o.PasswordHash, o.TelegramID, o.Department,
			o.Rank, o.BadgeNumber, o.Status, o.CreditsRemaining, o.TotalCredits, o.PlanID,
			o.PlanStartDate, o.TotalQueries, o.RegisteredOn, o.LastActive,
		)
		return err
	})
}

func (r *OfficersRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Officer, error) {
	var o model.Officer
	err := r.db.GetContext(ctx, &o, `SELECT `+officerColumns+` FROM officers WHERE id = ? LIMIT 1`, id)
	return getOne(err, &o)
}

// GetForUpdate locks the officer row until tx ends. Every balance change goes through it.
func (r *OfficersRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*model.Officer, error) {
	var o model.Officer
	err := tx.GetContext(ctx, &o, `SELECT `+officerColumns+` FROM officers WHERE id = ? FOR UPDATE`, id)
	return getOne(err, &o)
}

// GetByLogin finds an officer by email or mobile, whichever matches first.
func (r *OfficersRepositoryImpl) GetByLogin(ctx context.Context, email, mobile string) (*model.Officer, error) {
	var o model.Officer
	err := r.db.GetContext(ctx, &o, `
		SELECT `+officerColumns+`
		  FROM officers
		 WHERE email = ? OR mobile = ?
		 LIMIT 1
	`, email, mobile)
	return getOne(err, &o)
}

func (r *OfficersRepositoryImpl) List(ctx context.Context) ([]model.Officer, error) {
	var rows []model.Officer
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+officerColumns+` FROM officers ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes every mutable column of o.
func (r *OfficersRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, o model.Officer) error {
	const q = `
		UPDATE officers
		   SET name = ?, mobile = ?, email = ?, password_hash = ?, telegram_id = ?,
		       department = ?, ` + "`rank`" + ` = ?, badge_number = ?, status = ?,
		       credits_remaining = ?, total_credits = ?, plan_id = ?, plan_start_date = ?,
		       total_queries = ?, updated_at = NOW()
		 WHERE id = ?
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			o.Name, o.Mobile, o.Email, o.PasswordHash, o.TelegramID,
			o.Department, o.Rank, o.BadgeNumber, o.Status,
			o.CreditsRemaining, o.TotalCredits, o.PlanID, o.PlanStartDate,
			o.TotalQueries, o.ID,
		)
		return err
	})
}

func (r *OfficersRepositoryImpl) SetCredits(ctx context.Context, tx *sqlx.Tx, id string, remaining, total decimal.Decimal) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE officers
			   SET credits_remaining = ?, total_credits = ?, updated_at = NOW()
			 WHERE id = ?
		`, remaining, total, id)
		return err
	})
}

// Deduct subtracts amount and marks the officer active. The caller holds the row lock
// and has already checked the balance; the GREATEST guard keeps the column non-negative regardless.
func (r *OfficersRepositoryImpl) Deduct(ctx context.Context, tx *sqlx.Tx, id string, amount decimal.Decimal, countQuery bool) error {
	inc := 0
	if countQuery {
		inc = 1
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE officers
		   SET credits_remaining = GREATEST(credits_remaining - ?, 0),
		       total_queries = total_queries + ?,
		       last_active = NOW(),
		       updated_at = NOW()
		 WHERE id = ?
	`, amount, inc, id)
	return err
}

func (r *OfficersRepositoryImpl) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE officers SET last_active = ? WHERE id = ?`, at, id)
	return err
}

func (r *OfficersRepositoryImpl) Delete(ctx context.Context, id string) (bool, error) {
	n, err := affected(r.db.ExecContext(ctx, `DELETE FROM officers WHERE id = ?`, id))
	return n > 0, err
}

// ListWithPlans returns every officer that has a plan, joined with the plan's expiry fields.
func (r *OfficersRepositoryImpl) ListWithPlans(ctx context.Context) ([]model.OfficerWithPlan, error) {
	var rows []model.OfficerWithPlan
	err := r.db.SelectContext(ctx, &rows, `
		SELECT o.id, o.name, o.credits_remaining, o.total_credits, o.plan_start_date,
		       p.validity_days, p.carry_forward_credits_on_renewal, p.default_credits
		  FROM officers o
		  JOIN rate_plans p ON p.id = o.plan_id
		 WHERE o.plan_id IS NOT NULL
		 ORDER BY o.id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OfficersRepositoryImpl) Counts(ctx context.Context) (int64, int64, error) {
	var c struct {
		Total  int64 `db:"total"`
		Active int64 `db:"active"`
	}
	err := r.db.GetContext(ctx, &c, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(status = 'Active'), 0) AS active
		  FROM officers
	`)
	return c.Total, c.Active, err
}
