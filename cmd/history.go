package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/trievops/fleet-cli/internal/model"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent import runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListImports(ctx, historyLimit)
		if err != nil {
			return eris.Wrap(err, "list imports")
		}
		printRuns(runs)
		return nil
	},
}

func printRuns(runs []model.ImportRun) {
	for _, r := range runs {
		fmt.Printf("%s  %-8s %-30s total=%d success=%d failed=%d unassigned=%d\n",
			r.FinishedAt.Format("2006-01-02 15:04:05"),
			r.Kind, r.Source,
			r.Summary.Total, r.Summary.Success, r.Summary.Failed, r.Summary.Unassigned,
		)
	}
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max runs to show")
	rootCmd.AddCommand(historyCmd)
}
