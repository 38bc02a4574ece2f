package repository

import (
	"context"
	"strings"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

// PlansRepository persists rate_plans and their plan_apis rows.
type PlansRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, p model.RatePlan) error
	Get(ctx context.Context, id string) (*model.RatePlan, error)
	Update(ctx context.Context, tx *sqlx.Tx, p model.RatePlan) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.RatePlan, error)
	ReplaceAPIs(ctx context.Context, tx *sqlx.Tx, planID string, rows []model.PlanAPI) error
	ListAPIs(ctx context.Context, planID string) ([]model.PlanAPI, error)
}

type PlansRepositoryImpl struct {
	db *sqlx.DB
}

func NewPlansRepository(db *sqlx.DB) *PlansRepositoryImpl {
	return &PlansRepositoryImpl{db: db}
}

var _ PlansRepository = (*PlansRepositoryImpl)(nil)

const planColumns = `id, plan_name, user_type, monthly_fee, default_credits, validity_days,
	renewal_required, carry_forward_credits_on_renewal, status, created_at, updated_at`

func (r *PlansRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p model.RatePlan) error {
	const q = `
		INSERT INTO rate_plans
		    (id, plan_name, user_type, monthly_fee, default_credits, validity_days,
		     renewal_required, carry_forward_credits_on_renewal, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			p.ID, p.PlanName, p.UserType, p.MonthlyFee, p.DefaultCredits, p.ValidityDays,
			p.RenewalRequired, p.CarryForward, p.Status,
		)
		return err
	})
}

func (r *PlansRepositoryImpl) Get(ctx context.Context, id string) (*model.RatePlan, error) {
	var p model.RatePlan
	err := r.db.GetContext(ctx, &p, `SELECT `+planColumns+` FROM rate_plans WHERE id = ? LIMIT 1`, id)
	return getOne(err, &p)
}

func (r *PlansRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, p model.RatePlan) error {
	const q = `
		UPDATE rate_plans
		   SET plan_name = ?, user_type = ?, monthly_fee = ?, default_credits = ?, validity_days = ?,
		       renewal_required = ?, carry_forward_credits_on_renewal = ?, status = ?, updated_at = NOW()
		 WHERE id = ?
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			p.PlanName, p.UserType, p.MonthlyFee, p.DefaultCredits, p.ValidityDays,
			p.RenewalRequired, p.CarryForward, p.Status, p.ID,
		)
		return err
	})
}

// Delete removes the plan; plan_apis rows go with it (ON DELETE CASCADE) and
// officers on the plan keep their credits with plan_id set NULL.
func (r *PlansRepositoryImpl) Delete(ctx context.Context, id string) (bool, error) {
	n, err := affected(r.db.ExecContext(ctx, `DELETE FROM rate_plans WHERE id = ?`, id))
	return n > 0, err
}

func (r *PlansRepositoryImpl) List(ctx context.Context) ([]model.RatePlan, error) {
	var rows []model.RatePlan
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+planColumns+` FROM rate_plans ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceAPIs deletes the plan's plan_apis and inserts rows with a single multi-row statement.
func (r *PlansRepositoryImpl) ReplaceAPIs(ctx context.Context, tx *sqlx.Tx, planID string, rows []model.PlanAPI) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_apis WHERE plan_id = ?`, planID); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		var sb strings.Builder
		args := make([]any, 0, len(rows)*7)

		sb.WriteString(`INSERT INTO plan_apis (id, plan_id, api_id, enabled, credit_cost, buy_price, sell_price) VALUES `)
		for i, pa := range rows {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, pa.ID, planID, pa.APIID, pa.Enabled, pa.CreditCost, pa.BuyPrice, pa.SellPrice)
		}

		_, err := tx.ExecContext(ctx, sb.String(), args...)
		return err
	})
}

// ListAPIs returns plan_apis for one plan, or for all plans when planID is empty.
func (r *PlansRepositoryImpl) ListAPIs(ctx context.Context, planID string) ([]model.PlanAPI, error) {
	q := `SELECT id, plan_id, api_id, enabled, credit_cost, buy_price, sell_price FROM plan_apis`
	var args []any
	if planID != "" {
		q += ` WHERE plan_id = ?`
		args = append(args, planID)
	}
	q += ` ORDER BY plan_id, api_id`

	var rows []model.PlanAPI
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
