package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trievops/fleet-cli/internal/fetcher"
	"github.com/trievops/fleet-cli/internal/model"
	"github.com/trievops/fleet-cli/internal/resilience"
	"github.com/trievops/fleet-cli/internal/store"
)

// Options configure one import run.
type Options struct {
	Kind        model.ImportKind
	Source      string
	Synonyms    SynonymTable
	BadgePrefix string
	OwnerRole   string

	// RowTimeout bounds each row's store operations; a timed-out row
	// is an ImportError like any other and the batch continues.
	RowTimeout time.Duration

	// RunTimeout bounds the whole run. Zero means no deadline.
	RunTimeout time.Duration

	NotifyRate  rate.Limit
	NotifyBurst int

	Retry resilience.RetryConfig
}

// Importer runs the bulk reconciliation pipeline: one sequential pass
// over a tabular source, reconciling each row against the record
// store. Rows are processed in order because row N's duplicate lookup
// must observe row N-1's insert; two file rows sharing an external id
// become create-then-update, not two inserts.
//
// The record store is shared across concurrent runs and no inter-run
// locking is provided; two operators importing overlapping external
// ids at the same time is a known race.
type Importer struct {
	store store.Store
	opts  Options
	log   *zap.Logger
}

// New builds an Importer. Zero-value options fall back to the rider
// profile with default pacing.
func New(st store.Store, opts Options) *Importer {
	if opts.Kind == "" {
		opts.Kind = model.ImportKindRiders
	}
	if opts.Synonyms == nil {
		if opts.Kind == model.ImportKindWallets {
			opts.Synonyms = WalletSynonyms()
		} else {
			opts.Synonyms = RiderSynonyms()
		}
	}
	if opts.NotifyRate <= 0 {
		opts.NotifyRate = rate.Limit(10)
	}
	if opts.NotifyBurst <= 0 {
		opts.NotifyBurst = 1
	}
	return &Importer{
		store: st,
		opts:  opts,
		log:   zap.L().With(zap.String("component", "importer"), zap.String("kind", string(opts.Kind))),
	}
}

// rowOutcome is the per-row result folded into the aggregator.
// Exactly one of failure or success (ownerID/unassigned) applies.
type rowOutcome struct {
	failure    *model.ImportError
	ownerID    string
	unassigned bool
}

// Run executes the pipeline over tbl. Only the owner-directory
// pre-load can fail the run; every per-row failure is converted into
// an ImportError and the batch continues. Rows committed before an
// operator abort stay committed; the run is not transactional across
// rows.
func (imp *Importer) Run(ctx context.Context, tbl fetcher.Table) (model.ImportSummary, error) {
	if imp.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, imp.opts.RunTimeout)
		defer cancel()
	}

	started := time.Now().UTC()

	owners, err := imp.store.ListOwners(ctx, imp.opts.OwnerRole)
	if err != nil {
		return model.ImportSummary{}, eris.Wrap(err, "importer: pre-load owner directory")
	}
	resolver := NewResolver(owners, imp.opts.BadgePrefix)
	detector := NewDuplicateDetector(imp.store)
	agg := NewSummaryAggregator()
	batch := NewNotificationBatcher()

	imp.log.Info("import run started",
		zap.String("source", imp.opts.Source),
		zap.Int("rows", len(tbl.Rows)),
		zap.Int("owners", len(owners)),
	)

	for i, cells := range tbl.Rows {
		// Row numbers are 1-based and account for the header row.
		rowNum := i + 2
		raw := fetcher.RowMap(tbl.Headers, cells)

		outcome := imp.processRow(ctx, resolver, detector, rowNum, raw)
		if outcome.failure != nil {
			agg.Failed(*outcome.failure)
			continue
		}
		agg.Succeeded()
		if outcome.unassigned {
			agg.Unassigned()
		}
		batch.Add(outcome.ownerID)
	}

	limiter := rate.NewLimiter(imp.opts.NotifyRate, imp.opts.NotifyBurst)
	notified := batch.Flush(ctx, imp.store, limiter)

	summary := agg.Summary()
	run := model.ImportRun{
		ID:         uuid.New().String(),
		Kind:       imp.opts.Kind,
		Source:     imp.opts.Source,
		Summary:    summary,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err := imp.store.RecordImport(ctx, run); err != nil {
		imp.log.Error("import history write failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	imp.log.Info("import run complete",
		zap.String("run_id", run.ID),
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int("unassigned", summary.Unassigned),
		zap.Int("notified", notified),
	)
	return summary, nil
}

func (imp *Importer) processRow(ctx context.Context, resolver *Resolver, detector *DuplicateDetector, rowNum int, raw map[string]string) rowOutcome {
	fields := imp.opts.Synonyms.Normalize(raw)

	rec, err := BuildRecord(fields)
	if err != nil {
		return rowOutcome{failure: rowError(rowNum, rec, raw, err)}
	}

	ident := resolver.Resolve(rec.OwnerRef)
	if !ident.Assigned() && strings.TrimSpace(rec.OwnerRef) != "" {
		imp.log.Warn("owner reference unresolved; importing as unassigned",
			zap.Int("row", rowNum),
			zap.String("owner_ref", rec.OwnerRef),
		)
	}

	if imp.opts.RowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, imp.opts.RowTimeout)
		defer cancel()
	}

	existing, err := detector.Find(ctx, rec)
	if err != nil {
		return rowOutcome{failure: rowError(rowNum, rec, raw, err)}
	}

	payload := buildPayload(rec, ident)
	if existing != nil {
		err = resilience.Do(ctx, imp.opts.Retry, func(ctx context.Context) error {
			return imp.store.UpdateRecord(ctx, existing.ID, payload)
		})
	} else {
		_, err = resilience.DoVal(ctx, imp.opts.Retry, func(ctx context.Context) (store.RecordRef, error) {
			return imp.store.InsertRecord(ctx, payload)
		})
	}
	if err != nil {
		return rowOutcome{failure: rowError(rowNum, rec, raw, err)}
	}

	imp.log.Debug("row reconciled",
		zap.Int("row", rowNum),
		zap.Bool("updated", existing != nil),
		zap.String("owner_id", ident.OwnerID),
		zap.String("match_strategy", string(ident.Strategy)),
	)
	return rowOutcome{ownerID: ident.OwnerID, unassigned: !ident.Assigned()}
}

func buildPayload(rec model.NormalizedRecord, ident model.ResolvedIdentity) store.RecordPayload {
	return store.RecordPayload{
		Name:          rec.Name,
		Mobile:        rec.Mobile,
		ExternalID:    rec.ExternalID,
		ChassisID:     rec.ChassisID,
		ClientName:    rec.ClientName,
		WalletAmount:  rec.WalletAmount,
		OwnerID:       ident.OwnerID,
		OwnerRef:      rec.OwnerRef,
		OwnerMatch:    string(ident.Strategy),
		AllotmentDate: rec.AllotmentDate,
		Remarks:       rec.Remarks,
		Status:        rec.Status,
	}
}

func rowError(rowNum int, rec model.NormalizedRecord, raw map[string]string, err error) *model.ImportError {
	return &model.ImportError{
		Row:        rowNum,
		Identifier: rowIdentifier(rec, rowNum),
		Reason:     err.Error(),
		RawData:    raw,
	}
}

func rowIdentifier(rec model.NormalizedRecord, rowNum int) string {
	if name := strings.TrimSpace(rec.Name); name != "" {
		return name
	}
	return fmt.Sprintf("row %d", rowNum)
}
