package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

// QueriesRepository persists lookup history (queries table).
type QueriesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, q model.Query) error
	List(ctx context.Context, f model.QueryFilter) ([]model.Query, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountByStatus(ctx context.Context, status model.QueryStatus) (int64, error)
}

type QueriesRepositoryImpl struct {
	db *sqlx.DB
}

func NewQueriesRepository(db *sqlx.DB) *QueriesRepositoryImpl {
	return &QueriesRepositoryImpl{db: db}
}

var _ QueriesRepository = (*QueriesRepositoryImpl)(nil)

func (r *QueriesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, q model.Query) error {
	const stmt = `
		INSERT INTO queries
		    (id, officer_id, officer_name, type, category, input_data, source,
		     result_summary, full_result, credits_used, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, stmt,
			q.ID, q.OfficerID, q.OfficerName, q.Type, q.Category, q.InputData, q.Source,
			q.ResultSummary, q.FullResult, q.CreditsUsed, q.Status,
		)
		return err
	})
}

func (r *QueriesRepositoryImpl) List(ctx context.Context, f model.QueryFilter) ([]model.Query, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 100, 1000)

	q := `
		SELECT id, officer_id, officer_name, type, category, input_data, source,
		       result_summary, full_result, credits_used, status, created_at
		  FROM queries
		 WHERE 1 = 1
	`
	var args []any
	if f.OfficerID != "" {
		q += " AND officer_id = ?"
		args = append(args, f.OfficerID)
	}
	if f.Category != "" {
		q += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Query
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *QueriesRepositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM queries WHERE created_at >= ?`, since)
	return n, err
}

func (r *QueriesRepositoryImpl) CountByStatus(ctx context.Context, status model.QueryStatus) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM queries WHERE status = ?`, status)
	return n, err
}
