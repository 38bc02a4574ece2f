// Package scheduler runs the portal's periodic jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const JobResetExpiredCredits = "reset-expired-credits"

const jobTimeout = 5 * time.Minute

type CreditResetter interface {
	ResetExpiredCredits(ctx context.Context) (credits.ResetReport, error)
}

// ResetExpiredCredits runs one expiry pass and records it. The cron job and
// the admin endpoint both go through here.
func ResetExpiredCredits(ctx context.Context, r CreditResetter) (credits.ResetReport, error) {
	start := time.Now()
	report, err := r.ResetExpiredCredits(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues(JobResetExpiredCredits, "error").Inc()
		logger.Log.Error("job failed", zap.String("job", JobResetExpiredCredits), zap.Error(err))
		return report, err
	}

	metrics.JobRuns.WithLabelValues(JobResetExpiredCredits, "ok").Inc()
	metrics.CreditsResetOfficers.Add(float64(report.UpdatedOfficersCount))
	logger.Log.Info("job done",
		zap.String("job", JobResetExpiredCredits),
		zap.String("message", report.Message),
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.UpdatedOfficersCount),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

type Scheduler struct {
	c *cron.Cron
}

// New registers every job with a non-empty spec.
func New(cfg config.SchedulerConfig, resetter CreditResetter) (*Scheduler, error) {
	cl := cronLogger{z: logger.Log.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	if cfg.ResetExpiredCredits != "" {
		_, err := c.AddFunc(cfg.ResetExpiredCredits, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			_, _ = ResetExpiredCredits(ctx, resetter)
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", JobResetExpiredCredits, cfg.ResetExpiredCredits, err)
		}
	}
	return &Scheduler{c: c}, nil
}

func (s *Scheduler) Entries() int { return len(s.c.Entries()) }

func (s *Scheduler) Start() { s.c.Start() }

// Stop stops scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's logging into zap.
type cronLogger struct {
	z *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.z.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.z.Errorw(msg, append(keysAndValues, "error", err)...)
}
