package main

import (
	"github.com/spf13/cobra"

	"github.com/trievops/fleet-cli/internal/model"
)

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "Import a wallet-balance sheet",
	Long:  "Reconciles a wallet-balance sheet against existing fleet records. Shares the roster pipeline but defaults to the wallet header profile, which accepts bare amount columns and accounting negatives.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, model.ImportKindWallets)
	},
}

func init() {
	// Shares the import command's flags; cobra binds them per command,
	// so re-register against this one.
	walletsCmd.Flags().StringVar(&importFile, "file", "", "path or ftp:// URL of the sheet (required)")
	walletsCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name (default first sheet)")
	walletsCmd.Flags().StringVar(&importSynonyms, "synonyms", "", "YAML header synonym profile")
	_ = walletsCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(walletsCmd)
}
