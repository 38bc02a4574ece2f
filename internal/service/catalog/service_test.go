package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository/repotest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *repotest.APIs, *repotest.Plans, *repotest.Officers, func(commit bool)) {
	db, mock := repotest.NewDB(t)
	apis, plans, officers := &repotest.APIs{}, &repotest.Plans{}, &repotest.Officers{}
	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })

	expectTx := func(commit bool) {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	return New(db, apis, plans, officers, 8, time.Minute), apis, plans, officers, expectTx
}

func TestCreateAPIDefaultsInactive(t *testing.T) {
	svc, apis, _, _, _ := newService(t)

	var got model.API
	apis.InsertFunc = func(a model.API) error {
		got = a
		return nil
	}

	a, err := svc.CreateAPI(context.Background(), APIInput{
		Name: " PAN to TAN Search ", ServiceProvider: "Signzy", APIKey: "k", DefaultCreditCharge: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "PAN to TAN Search", a.Name)
	assert.Equal(t, model.KeyInactive, got.KeyStatus)
	assert.Zero(t, got.UsageCount)
}

func TestCreateAPIDuplicateAndValidation(t *testing.T) {
	svc, apis, _, _, _ := newService(t)
	apis.InsertFunc = func(model.API) error { return &mysql.MySQLError{Number: 1062} }

	_, err := svc.CreateAPI(context.Background(), APIInput{Name: "X", ServiceProvider: "Signzy"})
	assert.ErrorIs(t, err, ErrDuplicateAPI)

	_, err = svc.CreateAPI(context.Background(), APIInput{ServiceProvider: "Signzy"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateAPI(context.Background(), APIInput{Name: "X", ServiceProvider: "Signzy", GlobalBuyPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateAPI(context.Background(), APIInput{Name: "X", ServiceProvider: "Signzy", KeyStatus: "On"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListAPIsMasksKeys(t *testing.T) {
	svc, apis, _, _, _ := newService(t)
	apis.ListFunc = func() ([]model.API, error) {
		return []model.API{{Name: "A", APIKey: "supersecretkey"}}, nil
	}

	rows, err := svc.ListAPIs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "****tkey", rows[0].APIKey)
}

func TestUpdateAPINotFound(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	_, err := svc.UpdateAPI(context.Background(), "a1", APIPatch{})
	assert.ErrorIs(t, err, ErrAPINotFound)
}

func TestCreatePlanWritesAPIsInOneTx(t *testing.T) {
	svc, _, plans, _, expectTx := newService(t)
	expectTx(true)

	var planID string
	var rows []model.PlanAPI
	plans.InsertFunc = func(p model.RatePlan) error {
		planID = p.ID
		assert.Equal(t, model.KeyActive, p.Status)
		return nil
	}
	plans.ReplaceAPIsFunc = func(id string, r []model.PlanAPI) error {
		assert.Equal(t, planID, id)
		rows = r
		return nil
	}

	days := 30
	p, err := svc.CreatePlan(context.Background(),
		PlanInput{PlanName: "Gold", UserType: "Police", DefaultCredits: decimal.NewFromInt(100), ValidityDays: &days},
		[]PlanAPIInput{{APIID: "a1", Enabled: true, CreditCost: decimal.NewFromInt(5)}, {APIID: "a2"}},
	)
	require.NoError(t, err)
	assert.Equal(t, planID, p.ID)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Enabled)
	assert.NotEmpty(t, rows[0].ID)
}

func TestCreatePlanDuplicate(t *testing.T) {
	svc, _, plans, _, expectTx := newService(t)
	expectTx(false)
	plans.InsertFunc = func(model.RatePlan) error { return &mysql.MySQLError{Number: 1062} }

	_, err := svc.CreatePlan(context.Background(), PlanInput{PlanName: "Gold", UserType: "Police"}, nil)
	assert.ErrorIs(t, err, ErrDuplicatePlan)
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	neg := -1

	_, err := svc.CreatePlan(context.Background(), PlanInput{PlanName: "Gold"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreatePlan(context.Background(), PlanInput{PlanName: "Gold", UserType: "Police", ValidityDays: &neg}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreatePlan(context.Background(), PlanInput{PlanName: "Gold", UserType: "Police"},
		[]PlanAPIInput{{APIID: "a1"}, {APIID: "a1"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdatePlanKeepsAPIsWhenSettingsNil(t *testing.T) {
	svc, _, plans, _, expectTx := newService(t)
	expectTx(true)

	days := 30
	plans.GetFunc = func(id string) (*model.RatePlan, error) {
		return &model.RatePlan{ID: id, PlanName: "Gold", UserType: "Police", Status: model.KeyActive, ValidityDays: &days}, nil
	}
	plans.ReplaceAPIsFunc = func(string, []model.PlanAPI) error {
		t.Fatal("settings were not supplied")
		return nil
	}

	p, err := svc.UpdatePlan(context.Background(), "p1", PlanPatch{ClearValidity: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, p.ValidityDays)
}

func TestEnabledAPIsCachedPerPlan(t *testing.T) {
	svc, apis, plans, officers, expectTx := newService(t)

	calls := 0
	apis.EnabledForPlanFunc = func(planID string) ([]model.EnabledAPI, error) {
		calls++
		return []model.EnabledAPI{{API: model.API{ID: "a1", Name: "Mobile to Pan"}, CreditCost: decimal.NewFromInt(2)}}, nil
	}
	planID := "p1"
	officers.GetByIDFunc = func(id string) (*model.Officer, error) {
		return &model.Officer{ID: id, PlanID: &planID}, nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rows, err := svc.EnabledAPIsForOfficer(ctx, "o1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
	assert.Equal(t, 1, calls)

	expectTx(true)
	plans.GetFunc = func(id string) (*model.RatePlan, error) {
		return &model.RatePlan{ID: id, PlanName: "Gold", UserType: "Police", Status: model.KeyActive}, nil
	}
	_, err := svc.UpdatePlan(ctx, "p1", PlanPatch{}, &[]PlanAPIInput{})
	require.NoError(t, err)

	_, err = svc.EnabledAPIs(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "plan write invalidates the cache")
}

func TestEnabledAPIsForOfficerWithoutPlan(t *testing.T) {
	svc, _, _, officers, _ := newService(t)
	officers.GetByIDFunc = func(id string) (*model.Officer, error) { return &model.Officer{ID: id}, nil }

	rows, err := svc.EnabledAPIsForOfficer(context.Background(), "o1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	officers.GetByIDFunc = nil
	_, err = svc.EnabledAPIsForOfficer(context.Background(), "o1")
	assert.ErrorIs(t, err, ErrOfficerNotFound)
}
