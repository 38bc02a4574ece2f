// Package repotest provides function-field fakes of the repository interfaces
// for service tests. A nil func field makes the method a no-op returning zero values.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Officers struct {
	InsertFunc          func(o model.Officer) error
	GetByIDFunc         func(id string) (*model.Officer, error)
	GetForUpdateFunc    func(id string) (*model.Officer, error)
	GetByLoginFunc      func(email, mobile string) (*model.Officer, error)
	ListFunc            func() ([]model.Officer, error)
	UpdateFunc          func(o model.Officer) error
	SetCreditsFunc      func(id string, remaining, total decimal.Decimal) error
	DeductFunc          func(id string, amount decimal.Decimal, countQuery bool) error
	TouchLastActiveFunc func(id string, at time.Time) error
	DeleteFunc          func(id string) (bool, error)
	ListWithPlansFunc   func() ([]model.OfficerWithPlan, error)
	CountsFunc          func() (int64, int64, error)
}

var _ repository.OfficersRepository = (*Officers)(nil)

func (f *Officers) Insert(_ context.Context, _ *sqlx.Tx, o model.Officer) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(o)
	}
	return nil
}

func (f *Officers) GetByID(_ context.Context, id string) (*model.Officer, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(id)
	}
	return nil, nil
}

func (f *Officers) GetForUpdate(_ context.Context, _ *sqlx.Tx, id string) (*model.Officer, error) {
	if f.GetForUpdateFunc != nil {
		return f.GetForUpdateFunc(id)
	}
	return nil, nil
}

func (f *Officers) GetByLogin(_ context.Context, email, mobile string) (*model.Officer, error) {
	if f.GetByLoginFunc != nil {
		return f.GetByLoginFunc(email, mobile)
	}
	return nil, nil
}

func (f *Officers) List(context.Context) ([]model.Officer, error) {
	if f.ListFunc != nil {
		return f.ListFunc()
	}
	return nil, nil
}

func (f *Officers) Update(_ context.Context, _ *sqlx.Tx, o model.Officer) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(o)
	}
	return nil
}

func (f *Officers) SetCredits(_ context.Context, _ *sqlx.Tx, id string, remaining, total decimal.Decimal) error {
	if f.SetCreditsFunc != nil {
		return f.SetCreditsFunc(id, remaining, total)
	}
	return nil
}

func (f *Officers) Deduct(_ context.Context, _ *sqlx.Tx, id string, amount decimal.Decimal, countQuery bool) error {
	if f.DeductFunc != nil {
		return f.DeductFunc(id, amount, countQuery)
	}
	return nil
}

func (f *Officers) TouchLastActive(_ context.Context, id string, at time.Time) error {
	if f.TouchLastActiveFunc != nil {
		return f.TouchLastActiveFunc(id, at)
	}
	return nil
}

func (f *Officers) Delete(_ context.Context, id string) (bool, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(id)
	}
	return true, nil
}

func (f *Officers) ListWithPlans(context.Context) ([]model.OfficerWithPlan, error) {
	if f.ListWithPlansFunc != nil {
		return f.ListWithPlansFunc()
	}
	return nil, nil
}

func (f *Officers) Counts(context.Context) (int64, int64, error) {
	if f.CountsFunc != nil {
		return f.CountsFunc()
	}
	return 0, 0, nil
}

type Plans struct {
	InsertFunc      func(p model.RatePlan) error
	GetFunc         func(id string) (*model.RatePlan, error)
	UpdateFunc      func(p model.RatePlan) error
	DeleteFunc      func(id string) (bool, error)
	ListFunc        func() ([]model.RatePlan, error)
	ReplaceAPIsFunc func(planID string, rows []model.PlanAPI) error
	ListAPIsFunc    func(planID string) ([]model.PlanAPI, error)
}

var _ repository.PlansRepository = (*Plans)(nil)

func (f *Plans) Insert(_ context.Context, _ *sqlx.Tx, p model.RatePlan) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(p)
	}
	return nil
}

func (f *Plans) Get(_ context.Context, id string) (*model.RatePlan, error) {
	if f.GetFunc != nil {
		return f.GetFunc(id)
	}
	return nil, nil
}

func (f *Plans) Update(_ context.Context, _ *sqlx.Tx, p model.RatePlan) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(p)
	}
	return nil
}

func (f *Plans) Delete(_ context.Context, id string) (bool, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(id)
	}
	return true, nil
}

func (f *Plans) List(context.Context) ([]model.RatePlan, error) {
	if f.ListFunc != nil {
		return f.ListFunc()
	}
	return nil, nil
}

func (f *Plans) ReplaceAPIs(_ context.Context, _ *sqlx.Tx, planID string, rows []model.PlanAPI) error {
	if f.ReplaceAPIsFunc != nil {
		return f.ReplaceAPIsFunc(planID, rows)
	}
	return nil
}

func (f *Plans) ListAPIs(_ context.Context, planID string) ([]model.PlanAPI, error) {
	if f.ListAPIsFunc != nil {
		return f.ListAPIsFunc(planID)
	}
	return nil, nil
}

type APIs struct {
	InsertFunc         func(a model.API) error
	GetFunc            func(id string) (*model.API, error)
	UpdateFunc         func(a model.API) error
	DeleteFunc         func(id string) (bool, error)
	ListFunc           func() ([]model.API, error)
	RecordUsageFunc    func(id string, at time.Time) error
	EnabledForPlanFunc func(planID string) ([]model.EnabledAPI, error)
}

var _ repository.APIsRepository = (*APIs)(nil)

func (f *APIs) Insert(_ context.Context, a model.API) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(a)
	}
	return nil
}

func (f *APIs) Get(_ context.Context, id string) (*model.API, error) {
	if f.GetFunc != nil {
		return f.GetFunc(id)
	}
	return nil, nil
}

func (f *APIs) Update(_ context.Context, a model.API) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(a)
	}
	return nil
}

func (f *APIs) Delete(_ context.Context, id string) (bool, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(id)
	}
	return true, nil
}

func (f *APIs) List(context.Context) ([]model.API, error) {
	if f.ListFunc != nil {
		return f.ListFunc()
	}
	return nil, nil
}

func (f *APIs) RecordUsage(_ context.Context, _ *sqlx.Tx, id string, at time.Time) error {
	if f.RecordUsageFunc != nil {
		return f.RecordUsageFunc(id, at)
	}
	return nil
}

func (f *APIs) EnabledForPlan(_ context.Context, planID string) ([]model.EnabledAPI, error) {
	if f.EnabledForPlanFunc != nil {
		return f.EnabledForPlanFunc(planID)
	}
	return nil, nil
}

type Transactions struct {
	ExistsByIdemFunc func(idem string) (bool, error)
	InsertFunc       func(t model.CreditTransaction) error
	ListFunc         func(officerID string, limit, offset int) ([]model.CreditTransaction, error)
	SumCreditsFunc   func(action model.Action) (decimal.Decimal, error)
}

var _ repository.TransactionsRepository = (*Transactions)(nil)

func (f *Transactions) ExistsByIdem(_ context.Context, _ *sqlx.Tx, idem string) (bool, error) {
	if f.ExistsByIdemFunc != nil {
		return f.ExistsByIdemFunc(idem)
	}
	return false, nil
}

func (f *Transactions) Insert(_ context.Context, _ *sqlx.Tx, t model.CreditTransaction) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(t)
	}
	return nil
}

func (f *Transactions) List(_ context.Context, officerID string, limit, offset int) ([]model.CreditTransaction, error) {
	if f.ListFunc != nil {
		return f.ListFunc(officerID, limit, offset)
	}
	return nil, nil
}

func (f *Transactions) SumCredits(_ context.Context, action model.Action) (decimal.Decimal, error) {
	if f.SumCreditsFunc != nil {
		return f.SumCreditsFunc(action)
	}
	return decimal.Zero, nil
}

type Queries struct {
	InsertFunc        func(q model.Query) error
	ListFunc          func(f model.QueryFilter) ([]model.Query, error)
	CountSinceFunc    func(since time.Time) (int64, error)
	CountByStatusFunc func(status model.QueryStatus) (int64, error)
}

var _ repository.QueriesRepository = (*Queries)(nil)

func (f *Queries) Insert(_ context.Context, _ *sqlx.Tx, q model.Query) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(q)
	}
	return nil
}

func (f *Queries) List(_ context.Context, filter model.QueryFilter) ([]model.Query, error) {
	if f.ListFunc != nil {
		return f.ListFunc(filter)
	}
	return nil, nil
}

func (f *Queries) CountSince(_ context.Context, since time.Time) (int64, error) {
	if f.CountSinceFunc != nil {
		return f.CountSinceFunc(since)
	}
	return 0, nil
}

func (f *Queries) CountByStatus(_ context.Context, status model.QueryStatus) (int64, error) {
	if f.CountByStatusFunc != nil {
		return f.CountByStatusFunc(status)
	}
	return 0, nil
}

type ManualRequests struct {
	InsertFunc       func(m model.ManualRequest) error
	GetForUpdateFunc func(id string) (*model.ManualRequest, error)
	ListFunc         func(officerID string, status model.ReviewStatus) ([]model.ManualRequest, error)
	ResolveFunc      func(id string, status model.ReviewStatus, response string, credits decimal.Decimal, adminID string, at time.Time) error
}

var _ repository.ManualRequestsRepository = (*ManualRequests)(nil)

func (f *ManualRequests) Insert(_ context.Context, m model.ManualRequest) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(m)
	}
	return nil
}

func (f *ManualRequests) GetForUpdate(_ context.Context, _ *sqlx.Tx, id string) (*model.ManualRequest, error) {
	if f.GetForUpdateFunc != nil {
		return f.GetForUpdateFunc(id)
	}
	return nil, nil
}

func (f *ManualRequests) List(_ context.Context, officerID string, status model.ReviewStatus) ([]model.ManualRequest, error) {
	if f.ListFunc != nil {
		return f.ListFunc(officerID, status)
	}
	return nil, nil
}

func (f *ManualRequests) Resolve(_ context.Context, _ *sqlx.Tx, id string, status model.ReviewStatus, response string, credits decimal.Decimal, adminID string, at time.Time) error {
	if f.ResolveFunc != nil {
		return f.ResolveFunc(id, status, response, credits, adminID, at)
	}
	return nil
}

type Registrations struct {
	InsertFunc func(r model.OfficerRegistration) error
	GetFunc    func(id string) (*model.OfficerRegistration, error)
	ListFunc   func(status model.ReviewStatus) ([]model.OfficerRegistration, error)
	ReviewFunc func(id string, status model.ReviewStatus, adminID string, reason *string, at time.Time) error
}

var _ repository.RegistrationsRepository = (*Registrations)(nil)

func (f *Registrations) Insert(_ context.Context, r model.OfficerRegistration) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(r)
	}
	return nil
}

func (f *Registrations) Get(_ context.Context, id string) (*model.OfficerRegistration, error) {
	if f.GetFunc != nil {
		return f.GetFunc(id)
	}
	return nil, nil
}

func (f *Registrations) List(_ context.Context, status model.ReviewStatus) ([]model.OfficerRegistration, error) {
	if f.ListFunc != nil {
		return f.ListFunc(status)
	}
	return nil, nil
}

func (f *Registrations) Review(_ context.Context, _ *sqlx.Tx, id string, status model.ReviewStatus, adminID string, reason *string, at time.Time) error {
	if f.ReviewFunc != nil {
		return f.ReviewFunc(id, status, adminID, reason, at)
	}
	return nil
}

type Notifications struct {
	InsertFunc      func(n model.Notification) error
	ListFunc        func(officerID *string, limit int) ([]model.Notification, error)
	CountUnreadFunc func(officerID *string) (int64, error)
	MarkReadFunc    func(officerID *string, id string) error
	MarkAllReadFunc func(officerID *string) (int64, error)
	ClearFunc       func(officerID *string) (int64, error)
}

var _ repository.NotificationsRepository = (*Notifications)(nil)

func (f *Notifications) Insert(_ context.Context, _ *sqlx.Tx, n model.Notification) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(n)
	}
	return nil
}

func (f *Notifications) List(_ context.Context, officerID *string, limit int) ([]model.Notification, error) {
	if f.ListFunc != nil {
		return f.ListFunc(officerID, limit)
	}
	return nil, nil
}

func (f *Notifications) CountUnread(_ context.Context, officerID *string) (int64, error) {
	if f.CountUnreadFunc != nil {
		return f.CountUnreadFunc(officerID)
	}
	return 0, nil
}

func (f *Notifications) MarkRead(_ context.Context, officerID *string, id string) error {
	if f.MarkReadFunc != nil {
		return f.MarkReadFunc(officerID, id)
	}
	return nil
}

func (f *Notifications) MarkAllRead(_ context.Context, officerID *string) (int64, error) {
	if f.MarkAllReadFunc != nil {
		return f.MarkAllReadFunc(officerID)
	}
	return 0, nil
}

func (f *Notifications) Clear(_ context.Context, officerID *string) (int64, error) {
	if f.ClearFunc != nil {
		return f.ClearFunc(officerID)
	}
	return 0, nil
}

type Admins struct {
	InsertFunc         func(a model.AdminUser) error
	GetByEmailFunc     func(email string) (*model.AdminUser, error)
	GetByIDFunc        func(id string) (*model.AdminUser, error)
	TouchLastLoginFunc func(id string, at time.Time) error
}

var _ repository.AdminsRepository = (*Admins)(nil)

func (f *Admins) Insert(_ context.Context, a model.AdminUser) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(a)
	}
	return nil
}

func (f *Admins) GetByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	if f.GetByEmailFunc != nil {
		return f.GetByEmailFunc(email)
	}
	return nil, nil
}

func (f *Admins) GetByID(_ context.Context, id string) (*model.AdminUser, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(id)
	}
	return nil, nil
}

func (f *Admins) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if f.TouchLastLoginFunc != nil {
		return f.TouchLastLoginFunc(id, at)
	}
	return nil
}

// Outbox records every inserted event.
type Outbox struct {
	Events     []Event
	InsertFunc func(aggregate, aggregateID, topic string, payload any) error
}

type Event struct {
	Aggregate   string
	AggregateID string
	Topic       string
	Payload     any
}

var _ repository.OutboxRepository = (*Outbox)(nil)

func (f *Outbox) Insert(_ context.Context, _ *sqlx.Tx, aggregate, aggregateID, topic string, payload any) error {
	if f.InsertFunc != nil {
		if err := f.InsertFunc(aggregate, aggregateID, topic, payload); err != nil {
			return err
		}
	}
	f.Events = append(f.Events, Event{aggregate, aggregateID, topic, payload})
	return nil
}

type CHQueryEvents struct {
	InsertBatchFunc     func(events []model.QueryEvent) error
	ListEventsFunc      func(f repository.QueryEventsFilter) ([]model.QueryEvent, error)
	CategoryUsageFunc   func(from, to time.Time) ([]model.CategoryUsage, error)
	AvgLatencySinceFunc func(since time.Time) (float64, error)
}

var _ repository.CHQueryEventsRepository = (*CHQueryEvents)(nil)

func (f *CHQueryEvents) InsertBatch(_ context.Context, events []model.QueryEvent) error {
	if f.InsertBatchFunc != nil {
		return f.InsertBatchFunc(events)
	}
	return nil
}

func (f *CHQueryEvents) ListEvents(_ context.Context, filter repository.QueryEventsFilter) ([]model.QueryEvent, error) {
	if f.ListEventsFunc != nil {
		return f.ListEventsFunc(filter)
	}
	return nil, nil
}

func (f *CHQueryEvents) CategoryUsage(_ context.Context, from, to time.Time) ([]model.CategoryUsage, error) {
	if f.CategoryUsageFunc != nil {
		return f.CategoryUsageFunc(from, to)
	}
	return nil, nil
}

func (f *CHQueryEvents) AvgLatencySince(_ context.Context, since time.Time) (float64, error) {
	if f.AvgLatencySinceFunc != nil {
		return f.AvgLatencySinceFunc(since)
	}
	return 0, nil
}

// NewDB returns an sqlx handle over sqlmock for services that open transactions.
func NewDB(t testing.TB) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}
