package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

// QueryEventsFilter narrows ListEvents. Empty fields match everything.
type QueryEventsFilter struct {
	OfficerID string
	Category  string
	Status    string
	Limit     int
	Offset    int
}

// CHQueryEventsRepository reads and writes portal.query_events in ClickHouse.
type CHQueryEventsRepository interface {
	InsertBatch(ctx context.Context, events []model.QueryEvent) error
	ListEvents(ctx context.Context, f QueryEventsFilter) ([]model.QueryEvent, error)
	CategoryUsage(ctx context.Context, from, to time.Time) ([]model.CategoryUsage, error)
	AvgLatencySince(ctx context.Context, since time.Time) (float64, error)
}

type chQueryEventsRepository struct {
	ch *sqlx.DB
}

func NewCHQueryEventsRepository(ch *sqlx.DB) CHQueryEventsRepository {
	return &chQueryEventsRepository{ch: ch}
}

// InsertBatch sends all rows as one ClickHouse block: the std driver buffers
// prepared-statement execs until Commit.
func (r *chQueryEventsRepository) InsertBatch(ctx context.Context, events []model.QueryEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO portal.query_events
		    (id, officer_id, officer_name, category, source, status, credits_used, latency_ms, created_at)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.OfficerID, e.OfficerName, e.Category, e.Source, e.Status,
			e.CreditsUsed, e.LatencyMs, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("append %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func (r *chQueryEventsRepository) ListEvents(ctx context.Context, f QueryEventsFilter) ([]model.QueryEvent, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 50, 1000)

	q := `
		SELECT id, officer_id, officer_name, category, source, status, credits_used, latency_ms, created_at
		FROM portal.query_events
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
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.QueryEvent
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chQueryEventsRepository) CategoryUsage(ctx context.Context, from, to time.Time) ([]model.CategoryUsage, error) {
	var rows []model.CategoryUsage
	err := r.ch.SelectContext(ctx, &rows, `
		SELECT category,
		       count()                     AS total,
		       countIf(status = 'Success') AS successful,
		       sum(credits_used)           AS credits_used,
		       avg(latency_ms)             AS avg_latency_ms
		FROM portal.query_events
		WHERE created_at >= ? AND created_at < ?
		GROUP BY category
		ORDER BY total DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AvgLatencySince returns the mean latency in milliseconds, 0 when there are no rows.
func (r *chQueryEventsRepository) AvgLatencySince(ctx context.Context, since time.Time) (float64, error) {
	var avg float64
	err := r.ch.GetContext(ctx, &avg, `
		SELECT ifNotFinite(avg(latency_ms), 0) FROM portal.query_events WHERE created_at >= ?
	`, since)
	return avg, err
}
