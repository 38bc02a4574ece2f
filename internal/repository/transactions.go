package repository

import (
	"context"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// TransactionsRepository is the credit ledger (credit_transactions).
type TransactionsRepository interface {
	ExistsByIdem(ctx context.Context, tx *sqlx.Tx, idem string) (bool, error)
	Insert(ctx context.Context, tx *sqlx.Tx, t model.CreditTransaction) error
	List(ctx context.Context, officerID string, limit, offset int) ([]model.CreditTransaction, error)
	SumCredits(ctx context.Context, action model.Action) (decimal.Decimal, error)
}

type TransactionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionsRepository(db *sqlx.DB) *TransactionsRepositoryImpl {
	return &TransactionsRepositoryImpl{db: db}
}

var _ TransactionsRepository = (*TransactionsRepositoryImpl)(nil)

// ExistsByIdem checks if a ledger row with the given idempotency key already exists.
func (r *TransactionsRepositoryImpl) ExistsByIdem(ctx context.Context, tx *sqlx.Tx, idem string) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM credit_transactions WHERE idempotency_key = ?`, idem)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TransactionsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.CreditTransaction) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credit_transactions
			    (id, officer_id, officer_name, action, credits, payment_mode, remarks, idempotency_key, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())
			ON DUPLICATE KEY UPDATE id = id
		`, t.ID, t.OfficerID, t.OfficerName, t.Action, t.Credits.Abs(), t.PaymentMode, t.Remarks, t.IdempotencyKey)
		return err
	})
}

// List returns ledger rows newest first; officerID "" lists everyone.
func (r *TransactionsRepositoryImpl) List(ctx context.Context, officerID string, limit, offset int) ([]model.CreditTransaction, error) {
	limit, offset = clampPage(limit, offset, 100, 1000)

	q := `
		SELECT id, officer_id, officer_name, action, credits, payment_mode, remarks, idempotency_key, created_at
		  FROM credit_transactions
	`
	var args []any
	if officerID != "" {
		q += ` WHERE officer_id = ?`
		args = append(args, officerID)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []model.CreditTransaction
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TransactionsRepositoryImpl) SumCredits(ctx context.Context, action model.Action) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(ABS(credits)), 0) FROM credit_transactions WHERE action = ?
	`, action)
	return sum, err
}
