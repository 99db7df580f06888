package importer

import "github.com/trievops/fleet-cli/internal/model"

// SummaryAggregator folds per-row outcomes into the run's
// ImportSummary. Every row lands in exactly one of Succeeded or
// Failed. State is per-run, threaded through the row loop.
type SummaryAggregator struct {
	total      int
	success    int
	failed     int
	unassigned int
	errors     []model.ImportError
}

// NewSummaryAggregator returns an empty aggregator.
func NewSummaryAggregator() *SummaryAggregator {
	return &SummaryAggregator{}
}

// Succeeded records one successfully written row.
func (a *SummaryAggregator) Succeeded() {
	a.total++
	a.success++
}

// Failed records one failed row and its error.
func (a *SummaryAggregator) Failed(e model.ImportError) {
	a.total++
	a.failed++
	a.errors = append(a.errors, e)
}

// Unassigned records that a successful row imported without a
// resolvable owner. It does not affect the success/failed split.
func (a *SummaryAggregator) Unassigned() {
	a.unassigned++
}

// Summary produces the final report with the full error list; callers
// persisting it externally apply model.PersistedErrorCap.
func (a *SummaryAggregator) Summary() model.ImportSummary {
	return model.ImportSummary{
		Total:      a.total,
		Success:    a.success,
		Failed:     a.failed,
		Unassigned: a.unassigned,
		Errors:     a.errors,
	}
}
