package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run periodic jobs (reset-expired-credits)",
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics.MustRegister(prometheus.DefaultRegisterer)

		mysqlDB, err := openMySQL()
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		s, err := scheduler.New(cfg.Scheduler, creditsService(mysqlDB))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s.Start()
		logger.Log.Info("scheduler started",
			zap.Int("jobs", s.Entries()),
			zap.String(scheduler.JobResetExpiredCredits, cfg.Scheduler.ResetExpiredCredits),
		)
		<-ctx.Done()

		logger.Log.Info("scheduler stopping")
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Stop(stopCtx)
	},
}
