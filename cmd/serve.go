package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/officer-portal/internal/app"
	httpSrv "github.com/jmehdipour/officer-portal/internal/http"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		mysqlDB, err := openMySQL()
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		redisClient := openRedis()
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		chDB := openClickHouse()
		if chDB != nil {
			defer func() { _ = chDB.Close() }()
		}

		svcs, err := app.New(cfg, mysqlDB, chDB, redisClient)
		if err != nil {
			return fmt.Errorf("wire services: %w", err)
		}
		server := httpSrv.NewServer(cfg, svcs, redisClient)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start(cfg.HTTP.Addr) }()

		select {
		case <-ctx.Done():
			logger.Log.Info("signal received, shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}
