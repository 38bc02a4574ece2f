package worker

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/jmehdipour/officer-portal/internal/db"
	"github.com/jmehdipour/officer-portal/internal/kafka"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Consume lookup events from Kafka and batch them into ClickHouse",
	RunE:  runAnalytics,
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) ClickHouse
	chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer chDB.Close()

	// 3) Kafka consumer on the Debezium-routed topic
	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.QueryEventsTopic,
		GroupID:        cfg.Kafka.GroupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer func() { _ = consumer.Close() }()

	// 4) worker
	w := worker.NewAnalytics(consumer, repository.NewCHQueryEventsRepository(chDB), cfg.Analytics.BatchSize, cfg.Analytics.BatchWait)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("analytics worker started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.QueryEventsTopic),
		zap.String("group", cfg.Kafka.GroupID),
	)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Error("analytics worker stopped", zap.Error(err))
		return err
	}
	logger.Log.Info("analytics worker stopped")
	return nil
}
