package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/jmehdipour/officer-portal/internal/repository/repotest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	now := time.Date(2026, 6, 1, 15, 30, 0, 0, time.UTC)
	officers := &repotest.Officers{CountsFunc: func() (int64, int64, error) { return 12, 9, nil }}
	queries := &repotest.Queries{
		CountSinceFunc: func(since time.Time) (int64, error) {
			assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), since)
			return 4, nil
		},
		CountByStatusFunc: func(s model.QueryStatus) (int64, error) {
			if s == model.QuerySuccess {
				return 30, nil
			}
			return 7, nil
		},
	}
	txns := &repotest.Transactions{SumCreditsFunc: func(a model.Action) (decimal.Decimal, error) {
		assert.Equal(t, model.ActionDeduction, a)
		return decimal.RequireFromString("152.50"), nil
	}}
	events := &repotest.CHQueryEvents{AvgLatencySinceFunc: func(time.Time) (float64, error) { return 1250, nil }}

	svc := New(officers, queries, txns, events)
	svc.now = func() time.Time { return now }

	s, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, s.TotalOfficers)
	assert.EqualValues(t, 9, s.ActiveOfficers)
	assert.EqualValues(t, 4, s.TotalQueriesToday)
	assert.EqualValues(t, 30, s.SuccessfulQueries)
	assert.EqualValues(t, 7, s.FailedQueries)
	assert.Equal(t, "152.5", s.TotalCreditsUsed.String())
	assert.True(t, s.RevenueToday.IsZero())
	assert.InDelta(t, 1.25, s.AverageResponseTime, 1e-9)
}

func TestDashboardLatencyDegrades(t *testing.T) {
	events := &repotest.CHQueryEvents{AvgLatencySinceFunc: func(time.Time) (float64, error) {
		return 0, errors.New("clickhouse down")
	}}
	svc := New(&repotest.Officers{}, &repotest.Queries{}, &repotest.Transactions{}, events)

	s, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.AverageResponseTime)

	s, err = New(&repotest.Officers{}, &repotest.Queries{}, &repotest.Transactions{}, nil).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.AverageResponseTime)
}

func TestDashboardFailsOnMySQLError(t *testing.T) {
	officers := &repotest.Officers{CountsFunc: func() (int64, int64, error) { return 0, 0, errors.New("boom") }}
	_, err := New(officers, &repotest.Queries{}, &repotest.Transactions{}, nil).Dashboard(context.Background())
	assert.EqualError(t, err, "boom")
}
