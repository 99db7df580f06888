package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trievops/fleet-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fleet-cli",
	Short: "Bulk reconciliation for fleet records",
	Long:  "Imports rider rosters and wallet-balance sheets, reconciles rows against the fleet record store with fuzzy owner matching, and notifies team leaders of changes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
