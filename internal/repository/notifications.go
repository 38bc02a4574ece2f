package repository

import (
	"context"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
)

// NotificationsRepository stores per-recipient notifications. A nil recipient
// addresses the admin console (officer_id IS NULL).
type NotificationsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, n model.Notification) error
	List(ctx context.Context, officerID *string, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, officerID *string) (int64, error)
	MarkRead(ctx context.Context, officerID *string, id string) error
	MarkAllRead(ctx context.Context, officerID *string) (int64, error)
	Clear(ctx context.Context, officerID *string) (int64, error)
}

type NotificationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotificationsRepository(db *sqlx.DB) *NotificationsRepositoryImpl {
	return &NotificationsRepositoryImpl{db: db}
}

var _ NotificationsRepository = (*NotificationsRepositoryImpl)(nil)

func recipient(officerID *string) (string, []any) {
	if officerID == nil {
		return "officer_id IS NULL", nil
	}
	return "officer_id = ?", []any{*officerID}
}

func (r *NotificationsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, n model.Notification) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (id, officer_id, type, title, message, link, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, FALSE, NOW())
		`, n.ID, n.OfficerID, n.Type, n.Title, n.Message, n.Link)
		return err
	})
}

func (r *NotificationsRepositoryImpl) List(ctx context.Context, officerID *string, limit int) ([]model.Notification, error) {
	limit, _ = clampPage(limit, 0, 50, 500)
	where, args := recipient(officerID)

	var rows []model.Notification
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, officer_id, type, title, message, link, is_read, created_at
		  FROM notifications
		 WHERE `+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?
	`, append(args, limit)...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *NotificationsRepositoryImpl) CountUnread(ctx context.Context, officerID *string) (int64, error) {
	where, args := recipient(officerID)
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE is_read = FALSE AND `+where, args...)
	return n, err
}

// MarkRead only touches the row when it belongs to the recipient.
func (r *NotificationsRepositoryImpl) MarkRead(ctx context.Context, officerID *string, id string) error {
	where, args := recipient(officerID)
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = ? AND `+where,
		append([]any{id}, args...)...)
	return err
}

func (r *NotificationsRepositoryImpl) MarkAllRead(ctx context.Context, officerID *string) (int64, error) {
	where, args := recipient(officerID)
	return affected(r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE is_read = FALSE AND `+where, args...))
}

func (r *NotificationsRepositoryImpl) Clear(ctx context.Context, officerID *string) (int64, error) {
	where, args := recipient(officerID)
	return affected(r.db.ExecContext(ctx, `DELETE FROM notifications WHERE `+where, args...))
}
