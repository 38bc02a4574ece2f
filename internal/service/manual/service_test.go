package manual

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository/repotest"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmehdipour/officer-portal/internal/service/notification"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeLedger struct {
	officer  model.Officer
	deducted []credits.DeductRequest
	err      error
}

func (l *fakeLedger) GetOfficer(context.Context, string) (*model.Officer, error) {
	o := l.officer
	return &o, nil
}

func (l *fakeLedger) DeductTx(_ context.Context, _ *sqlx.Tx, req credits.DeductRequest) (*credits.Deduction, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.deducted = append(l.deducted, req)
	return &credits.Deduction{}, nil
}

type fakeNotifier struct{ sent []notification.Message }

func (n *fakeNotifier) Add(_ context.Context, _ *sqlx.Tx, m notification.Message) (*model.Notification, error) {
	n.sent = append(n.sent, m)
	return &model.Notification{}, nil
}

type fixture struct {
	svc      *Service
	mock     sqlmock.Sqlmock
	repo     *repotest.ManualRequests
	ledger   *fakeLedger
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	db, mock := repotest.NewDB(t)
	f := &fixture{
		mock:     mock,
		repo:     &repotest.ManualRequests{},
		ledger:   &fakeLedger{officer: model.Officer{ID: "o1", Name: "Ravi"}},
		notifier: &fakeNotifier{},
	}
	f.svc = New(db, f.repo, f.ledger, f.notifier)
	f.svc.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })
	return f
}

func pending() *model.ManualRequest {
	return &model.ManualRequest{
		ID: "m1", OfficerID: "o1", InputType: model.InputPAN, InputValue: "ABCDE1234F", Status: model.ReviewPending,
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	var stored model.ManualRequest
	f.repo.InsertFunc = func(m model.ManualRequest) error {
		stored = m
		return nil
	}

	m, err := f.svc.Create(context.Background(), "o1", CreateInput{InputType: "pan", InputValue: " ABCDE1234F "})
	require.NoError(t, err)
	assert.Equal(t, model.InputPAN, m.InputType)
	assert.Equal(t, "ABCDE1234F", stored.InputValue)
	assert.Equal(t, model.ReviewPending, stored.Status)

	require.Len(t, f.notifier.sent, 1)
	assert.Nil(t, f.notifier.sent[0].OfficerID)
	assert.Equal(t, "New Manual Request", f.notifier.sent[0].Title)

	_, err = f.svc.Create(context.Background(), "o1", CreateInput{InputType: "Vehicle", InputValue: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Create(context.Background(), "o1", CreateInput{InputType: "Mobile"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	f.repo.GetForUpdateFunc = func(string) (*model.ManualRequest, error) { return pending(), nil }
	var resolved struct {
		status   model.ReviewStatus
		response string
		credits  decimal.Decimal
	}
	f.repo.ResolveFunc = func(id string, status model.ReviewStatus, response string, c decimal.Decimal, adminID string, at time.Time) error {
		resolved.status, resolved.response, resolved.credits = status, response, c
		return nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	m, err := f.svc.Approve(context.Background(), "m1", "admin-1", decimal.NewFromInt(10), "")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewApproved, m.Status)
	assert.Equal(t, "Approved. 10 credits deducted.", resolved.response)
	assert.True(t, resolved.credits.Equal(decimal.NewFromInt(10)))

	require.Len(t, f.ledger.deducted, 1)
	assert.Equal(t, "Manual Request", f.ledger.deducted[0].PaymentMode)
	assert.Equal(t, "Manual request approved: PAN - ABCDE1234F", f.ledger.deducted[0].Remarks)
	assert.True(t, f.ledger.deducted[0].CountQuery)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "o1", *n.OfficerID)
	assert.Equal(t, model.NotifySuccess, n.Type)
	assert.Equal(t, "Manual Request Approved!", n.Title)
	assert.Equal(t, "/officer/dashboard/history", *n.Link)
	assert.Contains(t, n.Message, `"PAN: ABCDE1234F" has been approved. 10 credits deducted.`)
}

func TestApproveInsufficientCreditsRollsBack(t *testing.T) {
	f := newFixture(t)
	f.repo.GetForUpdateFunc = func(string) (*model.ManualRequest, error) { return pending(), nil }
	f.ledger.err = &credits.InsufficientError{Required: decimal.NewFromInt(10), Available: decimal.NewFromInt(2)}
	f.repo.ResolveFunc = func(string, model.ReviewStatus, string, decimal.Decimal, string, time.Time) error {
		t.Fatal("must not resolve")
		return nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), "m1", "admin-1", decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, credits.ErrInsufficientCredits)
	assert.Empty(t, f.notifier.sent)
}

func TestApproveGuards(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), "m1", "a", decimal.Zero, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	done := pending()
	done.Status = model.ReviewApproved
	f.repo.GetForUpdateFunc = func(string) (*model.ManualRequest, error) { return done, nil }
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Approve(context.Background(), "m1", "a", decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, ErrNotPending)

	f.repo.GetForUpdateFunc = func(string) (*model.ManualRequest, error) { return nil, nil }
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Reject(context.Background(), "m1", "a", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.repo.GetForUpdateFunc = func(string) (*model.ManualRequest, error) { return pending(), nil }
	var status model.ReviewStatus
	f.repo.ResolveFunc = func(_ string, s model.ReviewStatus, response string, c decimal.Decimal, _ string, _ time.Time) error {
		status = s
		assert.Equal(t, "Rejected.", response)
		assert.True(t, c.IsZero())
		return nil
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	m, err := f.svc.Reject(context.Background(), "m1", "admin-1", " ")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, status)
	assert.Equal(t, model.ReviewRejected, m.Status)
	assert.Empty(t, f.ledger.deducted)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, model.NotifyError, f.notifier.sent[0].Type)
	assert.Equal(t, "Manual Request Rejected!", f.notifier.sent[0].Title)
}
