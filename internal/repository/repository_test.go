package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "mysql"), mock
}

var officerCols = []string{
	"id", "name", "mobile", "email", "password_hash", "telegram_id", "department", "rank",
	"badge_number", "status", "credits_remaining", "total_credits", "plan_id", "plan_start_date",
	"total_queries", "registered_on", "last_active", "created_at", "updated_at",
}

func officerRow(id string, remaining, total string) []driver.Value {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, "Ravi", "9876543210", "ravi@example.com", "hash", nil, nil, nil,
		nil, "Active", remaining, total, nil, nil,
		int64(3), now, nil, now, now,
	}
}

func TestOfficersGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	rows := sqlmock.NewRows(officerCols).AddRow(officerRow("o1", "40.00", "100.00")...)
	mock.ExpectQuery(`FROM officers WHERE id = \? LIMIT 1`).WithArgs("o1").WillReturnRows(rows)

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "Ravi", o.Name)
	assert.True(t, o.CreditsRemaining.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, model.OfficerActive, o.Status)
	assert.Equal(t, int64(3), o.TotalQueries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficersGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	mock.ExpectQuery(`FROM officers WHERE id = \?`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(officerCols))

	o, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestOfficersInsertOwnTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO officers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Insert(context.Background(), nil, model.Officer{ID: "o1", Name: "Ravi", Status: model.OfficerActive})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficersInsertDuplicateRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO officers`).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := repo.Insert(context.Background(), nil, model.Officer{ID: "o1"})
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficersDeductInTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SET credits_remaining = GREATEST\(credits_remaining - \?, 0\)`).
		WithArgs("5", 1, "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.Deduct(context.Background(), tx, "o1", decimal.NewFromInt(5), true))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficersCounts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(int64(7), int64(5)))

	total, active, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, int64(5), active)
}

func TestOfficersListWithPlans(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfficersRepository(db)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`JOIN rate_plans p ON p.id = o.plan_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "credits_remaining", "total_credits", "plan_start_date",
			"validity_days", "carry_forward_credits_on_renewal", "default_credits",
		}).
			AddRow("o1", "Ravi", "12.00", "100.00", start, int64(30), false, "100.00").
			AddRow("o2", "Asha", "0.00", "0.00", nil, nil, true, nil))

	rows, err := repo.ListWithPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].ValidityDays)
	assert.Equal(t, 30, *rows[0].ValidityDays)
	assert.True(t, rows[0].PlanDefaultCredits.Valid)
	assert.Nil(t, rows[1].ValidityDays)
	assert.False(t, rows[1].PlanDefaultCredits.Valid)
}

func TestPlansReplaceAPIs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlansRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM plan_apis WHERE plan_id = \?`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO plan_apis .* VALUES \(\?, \?, \?, \?, \?, \?, \?\),\(\?, \?, \?, \?, \?, \?, \?\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ReplaceAPIs(context.Background(), nil, "p1", []model.PlanAPI{
		{ID: "pa1", APIID: "a1", Enabled: true, CreditCost: decimal.NewFromInt(5)},
		{ID: "pa2", APIID: "a2", Enabled: false},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlansReplaceAPIsEmptyOnlyDeletes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlansRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM plan_apis`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAPIs(context.Background(), nil, "p1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlansGetScansNullableValidity(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlansRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM rate_plans WHERE id = \?`).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "plan_name", "user_type", "monthly_fee", "default_credits", "validity_days",
			"renewal_required", "carry_forward_credits_on_renewal", "status", "created_at", "updated_at",
		}).AddRow("p1", "Basic", "Police", "999.00", "100.00", nil, true, false, "Active", now, now))

	p, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.Expires())
	assert.True(t, p.DefaultCredits.Equal(decimal.NewFromInt(100)))
}

func TestAPIsEnabledForPlan(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIsRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM plan_apis pa\s+JOIN apis a ON a.id = pa.api_id\s+WHERE pa.plan_id = \? AND pa.enabled = TRUE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "type", "service_provider", "global_buy_price", "global_sell_price",
			"default_credit_charge", "description", "api_key", "key_status", "usage_count",
			"last_used", "created_at", "updated_at", "credit_cost", "buy_price", "sell_price",
		}).AddRow("a1", "PAN to TAN Search", "PRO", "Signzy", "1.00", "2.00",
			"3.00", nil, "secret", "Active", int64(9), nil, now, now, "4.00", "1.50", "2.50"))

	rows, err := repo.EnabledForPlan(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PAN to TAN Search", rows[0].Name)
	assert.True(t, rows[0].Active())
	assert.True(t, rows[0].CreditCost.Equal(decimal.NewFromInt(4)))
	assert.True(t, rows[0].DefaultCreditCharge.Equal(decimal.NewFromInt(3)))
}

func TestAPIsDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIsRepository(db)

	mock.ExpectExec(`DELETE FROM apis WHERE id = \?`).WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionsListFiltersByOfficer(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTransactionsRepository(db)

	mock.ExpectQuery(`FROM credit_transactions\s+WHERE officer_id = \?\s+ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs("o1", 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "officer_id", "officer_name", "action", "credits", "payment_mode", "remarks", "idempotency_key", "created_at",
		}).AddRow("t1", "o1", "Ravi", "Deduction", "5.00", "Query Usage", "PAN for X", nil, time.Now()))

	rows, err := repo.List(context.Background(), "o1", 0, -3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.ActionDeduction, rows[0].Action)
}

func TestTransactionsInsertStoresAbsoluteCredits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTransactionsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credit_transactions`).
		WithArgs("t1", "o1", "Ravi", model.ActionDeduction, "5", "Query Usage", "r", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Insert(context.Background(), nil, model.CreditTransaction{
		ID: "t1", OfficerID: "o1", OfficerName: "Ravi", Action: model.ActionDeduction,
		Credits: decimal.NewFromInt(-5), PaymentMode: "Query Usage", Remarks: "r",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueriesListBuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQueriesRepository(db)

	mock.ExpectQuery(`AND officer_id = \? AND status = \? ORDER BY`).
		WithArgs("o1", model.QueryFailed, 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), model.QueryFilter{OfficerID: "o1", Status: model.QueryFailed, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationsRecipientClause(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationsRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE is_read = FALSE AND officer_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)))
	n, err := repo.CountUnread(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	id := "o1"
	mock.ExpectExec(`DELETE FROM notifications WHERE officer_id = \?`).WithArgs("o1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	cleared, err := repo.Clear(context.Background(), &id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cleared)

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE id = \? AND officer_id = \?`).
		WithArgs("n1", "o1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRead(context.Background(), &id, "n1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRequestsListJoinsOfficer(t *testing.T) {
	db, mock := newMock(t)
	repo := NewManualRequestsRepository(db)

	mock.ExpectQuery(`LEFT JOIN officers o ON o.id = m.officer_id\s+WHERE 1 = 1 AND m.status = \?`).
		WithArgs(model.ReviewPending).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "officer_id", "input_type", "input_value", "notes", "status", "admin_response",
			"credit_deducted", "approved_by", "approved_at", "created_at",
			"officer_name", "officer_email", "officer_mobile",
		}).AddRow("m1", "o1", "PAN", "ABCDE1234F", nil, "pending", nil, "0.00", nil, nil, time.Now(),
			"Ravi", "ravi@example.com", "9876543210"))

	rows, err := repo.List(context.Background(), "", model.ReviewPending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].OfficerName)
	assert.Equal(t, "Ravi", *rows[0].OfficerName)
	assert.Equal(t, model.InputPAN, rows[0].InputType)
}

func TestOutboxInsertMarshalsPayload(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO outbox`).
		WithArgs("query", "q1", model.TopicQueryEvents, []byte(`{"id":"q1"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Insert(context.Background(), nil, "query", "q1", model.TopicQueryEvents, map[string]string{"id": "q1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxInsertRejectsUnmarshalable(t *testing.T) {
	db, _ := newMock(t)
	repo := NewOutboxRepository(db)

	err := repo.Insert(context.Background(), nil, "query", "q1", model.TopicQueryEvents, make(chan int))
	require.Error(t, err)
}

func TestAdminsGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminsRepository(db)

	mock.ExpectQuery(`FROM admin_users WHERE email = \?`).WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at", "last_login"}).
			AddRow("ad1", "Root", "root@example.com", "h", "moderator", time.Now(), nil))

	a, err := repo.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, model.RoleModerator, a.Role)
}

func TestCHQueryEventsInsertBatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCHQueryEventsRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO portal.query_events`)
	prep.ExpectExec().WithArgs("q1", "o1", "Ravi", "PAN to TAN Search", "Signzy API", "Success", 5.0, int64(120), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InsertBatch(context.Background(), []model.QueryEvent{
		{ID: "q1", OfficerID: "o1", OfficerName: "Ravi", Category: "PAN to TAN Search", Source: "Signzy API", Status: "Success", CreditsUsed: 5, LatencyMs: 120, CreatedAt: now},
		{ID: "q2", OfficerID: "o1", Status: "Failed", CreatedAt: now},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHQueryEventsInsertBatchEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCHQueryEventsRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClampPage(t *testing.T) {
	l, o := clampPage(0, -1, 50, 100)
	assert.Equal(t, 50, l)
	assert.Equal(t, 0, o)

	l, o = clampPage(500, 5, 50, 100)
	assert.Equal(t, 50, l)
	assert.Equal(t, 5, o)
}
