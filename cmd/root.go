package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/officer-portal/cmd/worker"
	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	cfg     config.Config

	rootCmd = &cobra.Command{
		Use:           "officer-portal",
		Short:         "Officer portal and admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Log.Level)
			return nil
		},
	}
)

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (merged over defaults)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}
