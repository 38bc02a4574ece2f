package cmd

import (
	"encoding/json"
	"os"

	"github.com/jmehdipour/officer-portal/internal/repository"
	"github.com/jmehdipour/officer-portal/internal/scheduler"
	"github.com/jmehdipour/officer-portal/internal/service/credits"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Credit maintenance commands",
}

var resetExpiredCmd = &cobra.Command{
	Use:   "reset-expired",
	Short: "Run the expired-credit reset once and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		mysqlDB, err := openMySQL()
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		report, err := scheduler.ResetExpiredCredits(cmd.Context(), creditsService(mysqlDB))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	creditsCmd.AddCommand(resetExpiredCmd)
}

func creditsService(mysqlDB *sqlx.DB) *credits.Service {
	return credits.New(
		mysqlDB,
		repository.NewOfficersRepository(mysqlDB),
		repository.NewPlansRepository(mysqlDB),
		repository.NewTransactionsRepository(mysqlDB),
		repository.NewOutboxRepository(mysqlDB),
		cfg.Auth.DefaultPassword,
		cfg.Auth.BcryptCost,
	)
}
