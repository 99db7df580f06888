package importer

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/trievops/fleet-cli/internal/model"
	"github.com/trievops/fleet-cli/internal/store"
)

// DuplicateDetector decides insert vs update by probing the record
// store with a disjunction over the row's candidate keys.
type DuplicateDetector struct {
	store store.RecordStore
}

// NewDuplicateDetector wraps a record store.
func NewDuplicateDetector(st store.RecordStore) *DuplicateDetector {
	return &DuplicateDetector{store: st}
}

// Find returns the existing record matching any of the row's keys, or
// nil when the row is new. Fan-out across the three independent keys
// collapses to the store's first natural-order match.
func (d *DuplicateDetector) Find(ctx context.Context, rec model.NormalizedRecord) (*store.RecordRef, error) {
	ref, err := d.store.LookupRecord(ctx, store.LookupKeys{
		ExternalID: rec.ExternalID,
		Mobile:     rec.Mobile,
		ChassisID:  rec.ChassisID,
	})
	if err != nil {
		return nil, eris.Wrap(err, "importer: duplicate lookup")
	}
	return ref, nil
}
