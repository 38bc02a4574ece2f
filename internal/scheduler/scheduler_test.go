package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetFunc func() (credits.ResetReport, error)

func (f resetFunc) ResetExpiredCredits(context.Context) (credits.ResetReport, error) { return f() }

func TestResetExpiredCreditsRecordsRuns(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobResetExpiredCredits, "ok"))
	errBefore := testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobResetExpiredCredits, "error"))
	resetBefore := testutil.ToFloat64(metrics.CreditsResetOfficers)

	report, err := ResetExpiredCredits(context.Background(), resetFunc(func() (credits.ResetReport, error) {
		return credits.ResetReport{Message: "Credit reset check completed.", UpdatedOfficersCount: 2, Checked: 5}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, report.UpdatedOfficersCount)

	_, err = ResetExpiredCredits(context.Background(), resetFunc(func() (credits.ResetReport, error) {
		return credits.ResetReport{}, errors.New("db down")
	}))
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobResetExpiredCredits, "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobResetExpiredCredits, "error")))
	assert.Equal(t, resetBefore+2, testutil.ToFloat64(metrics.CreditsResetOfficers))
}

func TestNewSchedulesConfiguredJobs(t *testing.T) {
	noop := resetFunc(func() (credits.ResetReport, error) { return credits.ResetReport{}, nil })

	s, err := New(config.SchedulerConfig{ResetExpiredCredits: "@every 1h"}, noop)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	s, err = New(config.SchedulerConfig{}, noop)
	require.NoError(t, err)
	assert.Zero(t, s.Entries())

	_, err = New(config.SchedulerConfig{ResetExpiredCredits: "every hour"}, noop)
	assert.Error(t, err)
}
