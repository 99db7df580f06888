package main

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trievops/fleet-cli/internal/fetcher"
	"github.com/trievops/fleet-cli/internal/importer"
	"github.com/trievops/fleet-cli/internal/model"
	"github.com/trievops/fleet-cli/internal/resilience"
)

var (
	importFile     string
	importSheet    string
	importSynonyms string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a rider roster sheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runImport(cmd, model.ImportKindRiders)
	},
}

// runImport is shared by the riders and wallets commands; only the
// kind (and with it the default header profile) differs.
func runImport(cmd *cobra.Command, kind model.ImportKind) error {
	ctx := cmd.Context()

	if err := cfg.Validate("import"); err != nil {
		return err
	}

	path := importFile
	if strings.HasPrefix(path, "ftp://") {
		tmp, err := os.MkdirTemp("", "fleet-import-*")
		if err != nil {
			return eris.Wrap(err, "create download dir")
		}
		defer os.RemoveAll(tmp)

		local, err := fetcher.DownloadFTP(ctx, path, tmp)
		if err != nil {
			return eris.Wrap(err, "download roster")
		}
		zap.L().Info("roster downloaded", zap.String("url", path), zap.String("local", local))
		path = local
	}

	tbl, err := fetcher.Open(path, importSheet)
	if err != nil {
		return eris.Wrap(err, "open sheet")
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := importer.Options{
		Kind:        kind,
		Source:      importFile,
		BadgePrefix: cfg.Import.BadgePrefix,
		OwnerRole:   cfg.Import.OwnerRole,
		RowTimeout:  time.Duration(cfg.Import.RowTimeoutSecs) * time.Second,
		RunTimeout:  time.Duration(cfg.Import.RunTimeoutSecs) * time.Second,
		NotifyRate:  rate.Limit(cfg.Notify.RatePerSec),
		NotifyBurst: cfg.Notify.Burst,
		Retry:       resilience.RetryConfig{MaxAttempts: cfg.Import.RetryAttempts},
	}
	if importSynonyms != "" {
		syn, err := importer.LoadSynonyms(importSynonyms)
		if err != nil {
			return err
		}
		opts.Synonyms = syn
	}

	summary, err := importer.New(st, opts).Run(ctx, tbl)
	if err != nil {
		return err
	}

	zap.L().Info("import finished",
		zap.String("file", importFile),
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int("unassigned", summary.Unassigned),
	)
	for _, e := range summary.Capped(10).Errors {
		zap.L().Warn("row failed",
			zap.Int("row", e.Row),
			zap.String("identifier", e.Identifier),
			zap.String("reason", e.Reason),
		)
	}
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path or ftp:// URL of the sheet (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name (default first sheet)")
	importCmd.Flags().StringVar(&importSynonyms, "synonyms", "", "YAML header synonym profile")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
