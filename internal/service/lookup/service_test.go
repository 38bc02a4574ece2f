package lookup

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/officer-portal/internal/dispatcher"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository/repotest"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	officer  *model.Officer
	deducted []credits.DeductRequest
	deductFn func(req credits.DeductRequest) error
}

func (l *fakeLedger) GetOfficer(context.Context, string) (*model.Officer, error) {
	if l.officer == nil {
		return nil, credits.ErrOfficerNotFound
	}
	o := *l.officer
	return &o, nil
}

func (l *fakeLedger) DeductTx(_ context.Context, _ *sqlx.Tx, req credits.DeductRequest) (*credits.Deduction, error) {
	if l.deductFn != nil {
		if err := l.deductFn(req); err != nil {
			return nil, err
		}
	}
	l.deducted = append(l.deducted, req)
	return &credits.Deduction{Officer: *l.officer, CreditsRemaining: l.officer.CreditsRemaining.Sub(req.Cost)}, nil
}

type fakeCatalog struct {
	apis      []model.EnabledAPI
	officerID string
}

func (c *fakeCatalog) EnabledAPIsForOfficer(_ context.Context, officerID string) ([]model.EnabledAPI, error) {
	c.officerID = officerID
	return c.apis, nil
}

type fakeVendor struct {
	calls []dispatcher.Call
	do    func(c dispatcher.Call) (*dispatcher.Response, error)
}

func (v *fakeVendor) Do(_ context.Context, c dispatcher.Call) (*dispatcher.Response, error) {
	v.calls = append(v.calls, c)
	return v.do(c)
}

type fakeTokens struct {
	issued      int
	invalidated int
}

func (t *fakeTokens) Token(string, string) (string, error) {
	t.issued++
	return "tok", nil
}

func (t *fakeTokens) Invalidate(string, string) { t.invalidated++ }

type fixture struct {
	svc     *Service
	mock    sqlmock.Sqlmock
	ledger  *fakeLedger
	catalog *fakeCatalog
	queries *repotest.Queries
	apis    *repotest.APIs
	outbox  *repotest.Outbox
	signzy  *fakeVendor
	deepvue *fakeVendor
	tokens  *fakeTokens
	stored  []model.Query
}

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func ok(body string) func(dispatcher.Call) (*dispatcher.Response, error) {
	return func(dispatcher.Call) (*dispatcher.Response, error) {
		return &dispatcher.Response{Status: 200, Body: []byte(body)}, nil
	}
}

func newFixture(t *testing.T) *fixture {
	db, mock := repotest.NewDB(t)
	planID := "plan-1"
	f := &fixture{
		mock: mock,
		ledger: &fakeLedger{officer: &model.Officer{
			ID: "o1", Name: "Ravi", Email: "ravi@example.com", Status: model.OfficerActive,
			CreditsRemaining: decimal.NewFromInt(20), TotalCredits: decimal.NewFromInt(100), PlanID: &planID,
		}},
		catalog: &fakeCatalog{},
		queries: &repotest.Queries{},
		apis:    &repotest.APIs{},
		outbox:  &repotest.Outbox{},
		signzy:  &fakeVendor{do: ok(`{"result":{}}`)},
		deepvue: &fakeVendor{do: ok(`{"code":200}`)},
		tokens:  &fakeTokens{},
	}
	f.queries.InsertFunc = func(q model.Query) error {
		f.stored = append(f.stored, q)
		return nil
	}
	f.svc = New(db, f.ledger, f.catalog, f.queries, f.apis, f.outbox,
		map[string]Vendor{VendorSignzy: f.signzy, VendorDeepvue: f.deepvue}, f.tokens, decimal.NewFromInt(5))
	f.svc.now = func() time.Time { return fixedNow }

	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })
	return f
}

func (f *fixture) enable(name, key string, charge int64) {
	f.catalog.apis = append(f.catalog.apis, model.EnabledAPI{API: model.API{
		ID: "api-" + name, Name: name, APIKey: key, KeyStatus: model.KeyActive,
		DefaultCreditCharge: decimal.NewFromInt(charge),
	}})
}

func (f *fixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func TestRunRejectsBeforeCharging(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown lookup", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Run(ctx, "o1", "nope", Input{})
		assert.ErrorIs(t, err, ErrUnknownLookup)
	})

	t.Run("invalid pan", func(t *testing.T) {
		f := newFixture(t)
		f.enable("PAN to TAN Search", "k", 3)
		_, err := f.svc.Run(ctx, "o1", "pan-to-tan", Input{"panNumber": "ABC"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Empty(t, f.signzy.calls)
	})

	t.Run("api not in plan", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Run(ctx, "o1", "domain-verification", Input{"webDomain": "example.com"})
		assert.ErrorIs(t, err, ErrServiceUnavailable)
		assert.Contains(t, err.Error(), "Domain Verification service is currently unavailable")
	})

	t.Run("inactive key", func(t *testing.T) {
		f := newFixture(t)
		f.enable("Domain Verification", "k", 3)
		f.catalog.apis[0].KeyStatus = model.KeyInactive
		_, err := f.svc.Run(ctx, "o1", "domain-verification", Input{"webDomain": "example.com"})
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("insufficient credits", func(t *testing.T) {
		f := newFixture(t)
		f.enable("Domain Verification", "k", 50)
		_, err := f.svc.Run(ctx, "o1", "domain-verification", Input{"webDomain": "example.com"})
		assert.ErrorIs(t, err, credits.ErrInsufficientCredits)
		assert.EqualError(t, err, "Insufficient credits. Required: 50.00, Available: 20.00")
		assert.Empty(t, f.signzy.calls)
	})

	t.Run("suspended", func(t *testing.T) {
		f := newFixture(t)
		f.ledger.officer.Status = model.OfficerSuspended
		_, err := f.svc.Run(ctx, "o1", "domain-verification", Input{"webDomain": "example.com"})
		assert.ErrorIs(t, err, ErrOfficerSuspended)
	})
}

func TestRunSignzySuccess(t *testing.T) {
	f := newFixture(t)
	f.enable("PAN to TAN Search", "signzy-key", 0)
	f.signzy.do = ok(`{"result":{"data":[{"tanNumber":"DELA12345B"}]}}`)
	var usedAPI string
	f.apis.RecordUsageFunc = func(id string, at time.Time) error {
		usedAPI = id
		return nil
	}
	f.expectCommit()

	res, err := f.svc.Run(context.Background(), "o1", "pan-to-tan", Input{"panNumber": "abcde1234f"})
	require.NoError(t, err)

	require.Len(t, f.signzy.calls, 1)
	call := f.signzy.calls[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/api/v3/panToTan", call.Path)
	assert.Equal(t, "signzy-key", call.Header.Get("Authorization"))
	assert.Equal(t, "ravi@example.com", call.Header.Get("x-client-unique-id"))
	assert.Equal(t, map[string]any{"panNumber": "ABCDE1234F"}, call.Body)

	assert.Equal(t, model.QuerySuccess, res.Status)
	assert.True(t, res.CreditsUsed.Equal(decimal.NewFromInt(5)), "zero charge falls back to the default")
	assert.True(t, res.CreditsRemaining.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "TAN details found for PAN: DELA12345B", res.Summary)
	assert.JSONEq(t, `[{"tanNumber":"DELA12345B"}]`, string(res.Result))

	require.Len(t, f.ledger.deducted, 1)
	assert.Equal(t, model.PaymentQueryUsage, f.ledger.deducted[0].PaymentMode)
	assert.Equal(t, "PAN to TAN Search for PAN ABCDE1234F", f.ledger.deducted[0].Remarks)
	assert.True(t, f.ledger.deducted[0].CountQuery)

	require.Len(t, f.stored, 1)
	assert.Equal(t, "ABCDE1234F", f.stored[0].InputData)
	assert.Equal(t, "Signzy API", f.stored[0].Source)
	assert.Equal(t, model.QueryPRO, f.stored[0].Type)
	assert.Equal(t, "api-PAN to TAN Search", usedAPI)

	require.Len(t, f.outbox.Events, 1)
	assert.Equal(t, model.TopicQueryEvents, f.outbox.Events[0].Topic)
	ev := f.outbox.Events[0].Payload.(model.QueryEvent)
	assert.Equal(t, "Success", ev.Status)
	assert.Equal(t, 5.0, ev.CreditsUsed)
}

func TestRunVendorFailureRecordsWithoutCharge(t *testing.T) {
	f := newFixture(t)
	f.enable("Domain Verification", "k", 3)
	f.signzy.do = func(dispatcher.Call) (*dispatcher.Response, error) {
		return nil, &dispatcher.StatusError{Endpoint: "a", Status: 502, Body: "bad gateway"}
	}
	f.expectCommit()

	res, err := f.svc.Run(context.Background(), "o1", "domain-verification", Input{"webDomain": "example.com"})
	assert.ErrorIs(t, err, ErrLookupFailed)
	require.NotNil(t, res)
	assert.Equal(t, model.QueryFailed, res.Status)
	assert.True(t, res.CreditsUsed.IsZero())
	assert.True(t, res.CreditsRemaining.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "Search failed: API request failed: 502 bad gateway", res.Summary)

	assert.Empty(t, f.ledger.deducted)
	require.Len(t, f.stored, 1)
	assert.Equal(t, model.QueryFailed, f.stored[0].Status)
	assert.Equal(t, `{"webDomain":"example.com"}`, f.stored[0].InputData)
	require.Len(t, f.outbox.Events, 1)
}

func TestRunBodyErrorIsFailure(t *testing.T) {
	f := newFixture(t)
	f.enable("Check Dual Employment", "k", 3)
	f.signzy.do = ok(`{"error":{"message":"UAN not found"}}`)
	f.expectCommit()

	res, err := f.svc.Run(context.Background(), "o1", "check-dual-employment", Input{"uan": "1001", "employerName": "Acme"})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, "Search failed: UAN not found", res.Summary)
	assert.Empty(t, f.ledger.deducted)
}

func TestRunDeepvueRefreshesTokenOn401(t *testing.T) {
	f := newFixture(t)
	f.enable("Deepvue Mobile to PAN", "secret:client", 2)
	calls := 0
	f.deepvue.do = func(c dispatcher.Call) (*dispatcher.Response, error) {
		calls++
		if calls == 1 {
			return &dispatcher.Response{Status: 401}, &dispatcher.StatusError{Status: 401}
		}
		return &dispatcher.Response{Status: 200, Body: []byte(`{"code":200,"message":"ok"}`)}, nil
	}
	f.expectCommit()

	res, err := f.svc.Run(context.Background(), "o1", "mobile-to-pan", Input{"mobile_number": "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "PAN fetched: ok", res.Summary)
	assert.Equal(t, 1, f.tokens.invalidated)
	assert.Equal(t, 2, f.tokens.issued)

	last := f.deepvue.calls[1]
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "Bearer tok", last.Header.Get("Authorization"))
	assert.Equal(t, "9876543210", last.Query.Get("mobile_number"))
	assert.Equal(t, "Mobile Number: 9876543210", f.stored[0].InputData)
}

func TestRunDeepvueNon200CodeFails(t *testing.T) {
	f := newFixture(t)
	f.enable("Credit Report V2", "secret:client", 2)
	f.deepvue.do = ok(`{"code":422,"message":"No record found"}`)
	f.expectCommit()

	res, err := f.svc.Run(context.Background(), "o1", "credit-report", Input{
		"full_name": "Ravi Kumar", "id_number": "ABCDE1234F", "mobile_number": "9876543210", "gender": "male",
	})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, "Search failed: No record found", res.Summary)
	assert.Empty(t, f.ledger.deducted)

	q := f.deepvue.calls[0].Query
	assert.Equal(t, "Y", q.Get("consent"))
	assert.Equal(t, "For Loan Eligibility Check", q.Get("purpose"))
	assert.Equal(t, "false", q.Get("generate_pdf"))
}

func TestRunDrainedAfterVendorCallIsRecordedUncharged(t *testing.T) {
	f := newFixture(t)
	f.enable("Domain Verification", "k", 3)
	f.ledger.deductFn = func(req credits.DeductRequest) error {
		return &credits.InsufficientError{Required: req.Cost, Available: decimal.NewFromInt(1)}
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.expectCommit()

	res, err := f.svc.Run(context.Background(), "o1", "domain-verification", Input{"webDomain": "example.com"})
	assert.True(t, errors.Is(err, credits.ErrInsufficientCredits))
	assert.Len(t, f.signzy.calls, 1)
	assert.Empty(t, f.ledger.deducted)

	require.NotNil(t, res)
	assert.Equal(t, model.QueryFailed, res.Status)
	assert.True(t, res.CreditsUsed.IsZero())
	assert.True(t, res.CreditsRemaining.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "Search failed: Insufficient credits at charge time", res.Summary)

	require.Len(t, f.stored, 1)
	assert.Equal(t, model.QueryFailed, f.stored[0].Status)
	assert.True(t, f.stored[0].CreditsUsed.IsZero())
	assert.Len(t, f.outbox.Events, 1)
}

func TestListLookups(t *testing.T) {
	f := newFixture(t)
	f.enable("FSSAI Verification Search", "k", 7)

	list, err := f.svc.ListLookups(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", f.catalog.officerID)
	require.Len(t, list, len(registry))
	for _, l := range list {
		if l.Key == "fssai-verification" {
			assert.True(t, l.Available)
			assert.True(t, l.Cost.Equal(decimal.NewFromInt(7)))
		} else {
			assert.False(t, l.Available, l.Key)
		}
	}
}
