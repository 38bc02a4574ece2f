package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/officer-portal/internal/db"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var withClickHouse bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE MySQL tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mysqlDB, err := openMySQL()
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		// the DSN enables multiStatements, so the schema runs in one Exec
		if _, err := mysqlDB.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
			return fmt.Errorf("disable fk checks: %w", err)
		}
		if _, err := mysqlDB.ExecContext(ctx, migrations.MySQL); err != nil {
			_, _ = mysqlDB.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
			return fmt.Errorf("exec mysql migration: %w", err)
		}
		if _, err := mysqlDB.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			return fmt.Errorf("enable fk checks: %w", err)
		}
		logger.Log.Info("mysql migration complete")

		if !withClickHouse {
			return nil
		}
		return migrateClickHouse(ctx)
	},
}

func migrateClickHouse(ctx context.Context) error {
	chDB, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer chDB.Close()

	stmts := migrations.Statements(migrations.ClickHouse)
	for i, stmt := range stmts {
		if _, err := chDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec clickhouse statement %d: %w", i+1, err)
		}
	}
	logger.Log.Info("clickhouse migration complete", zap.Int("statements", len(stmts)))
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&withClickHouse, "clickhouse", false, "also create the ClickHouse analytics schema")
}
