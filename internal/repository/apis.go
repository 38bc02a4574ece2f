package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

// APIsRepository persists the vendor API catalog.
type APIsRepository interface {
	Insert(ctx context.Context, a model.API) error
	Get(ctx context.Context, id string) (*model.API, error)
	Update(ctx context.Context, a model.API) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]model.API, error)
	RecordUsage(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error
	EnabledForPlan(ctx context.Context, planID string) ([]model.EnabledAPI, error)
}

type APIsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAPIsRepository(db *sqlx.DB) *APIsRepositoryImpl {
	return &APIsRepositoryImpl{db: db}
}

var _ APIsRepository = (*APIsRepositoryImpl)(nil)

const apiColumns = `id, name, type, service_provider, global_buy_price, global_sell_price,
	default_credit_charge, description, api_key, key_status, usage_count, last_used, created_at, updated_at`

func (r *APIsRepositoryImpl) Insert(ctx context.Context, a model.API) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO apis
		    (id, name, type, service_provider, global_buy_price, global_sell_price,
		     default_credit_charge, description, api_key, key_status, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NOW(), NOW())
	`, a.ID, a.Name, a.Type, a.ServiceProvider, a.GlobalBuyPrice, a.GlobalSellPrice,
		a.DefaultCreditCharge, a.Description, a.APIKey, a.KeyStatus)
	return err
}

func (r *APIsRepositoryImpl) Get(ctx context.Context, id string) (*model.API, error) {
	var a model.API
	err := r.db.GetContext(ctx, &a, `SELECT `+apiColumns+` FROM apis WHERE id = ? LIMIT 1`, id)
	return getOne(err, &a)
}

func (r *APIsRepositoryImpl) Update(ctx context.Context, a model.API) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE apis
		   SET name = ?, type = ?, service_provider = ?, global_buy_price = ?, global_sell_price = ?,
		       default_credit_charge = ?, description = ?, api_key = ?, key_status = ?, updated_at = NOW()
		 WHERE id = ?
	`, a.Name, a.Type, a.ServiceProvider, a.GlobalBuyPrice, a.GlobalSellPrice,
		a.DefaultCreditCharge, a.Description, a.APIKey, a.KeyStatus, a.ID)
	return err
}

func (r *APIsRepositoryImpl) Delete(ctx context.Context, id string) (bool, error) {
	n, err := affected(r.db.ExecContext(ctx, `DELETE FROM apis WHERE id = ?`, id))
	return n > 0, err
}

func (r *APIsRepositoryImpl) List(ctx context.Context) ([]model.API, error) {
	var rows []model.API
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+apiColumns+` FROM apis ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *APIsRepositoryImpl) RecordUsage(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE apis SET usage_count = usage_count + 1, last_used = ? WHERE id = ?
		`, at, id)
		return err
	})
}

// EnabledForPlan joins the plan's enabled plan_apis with the catalog.
func (r *APIsRepositoryImpl) EnabledForPlan(ctx context.Context, planID string) ([]model.EnabledAPI, error) {
	var rows []model.EnabledAPI
	err := r.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.name, a.type, a.service_provider, a.global_buy_price, a.global_sell_price,
		       a.default_credit_charge, a.description, a.api_key, a.key_status, a.usage_count,
		       a.last_used, a.created_at, a.updated_at,
		       pa.credit_cost, pa.buy_price, pa.sell_price
		  FROM plan_apis pa
		  JOIN apis a ON a.id = pa.api_id
		 WHERE pa.plan_id = ? AND pa.enabled = TRUE
		 ORDER BY a.name
	`, planID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
