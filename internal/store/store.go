// Package store persists fleet records and exposes the collaborator
// interfaces the import engine reconciles against: the keyed record
// store, the owner directory, the notification sink, and the
// import-history log.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trievops/fleet-cli/internal/model"
)

// ErrNotFound is returned when an update targets a record id that no
// longer exists.
var ErrNotFound = eris.New("store: not found")

// LookupKeys is the disjunctive duplicate-detection key set. Empty
// fields are omitted from the lookup; at least one must be present.
type LookupKeys struct {
	ExternalID string
	Mobile     string
	ChassisID  string
}

// Empty reports whether no key is present.
func (k LookupKeys) Empty() bool {
	return strings.TrimSpace(k.ExternalID) == "" &&
		strings.TrimSpace(k.Mobile) == "" &&
		strings.TrimSpace(k.ChassisID) == ""
}

// RecordPayload is the canonical write shape for a fleet record.
// OwnerRef keeps the raw reference string for audit display even when
// OwnerID resolved; OwnerMatch records which resolver strategy won.
type RecordPayload struct {
	Name          string
	Mobile        string
	ExternalID    string
	ChassisID     string
	ClientName    string
	WalletAmount  float64
	OwnerID       string
	OwnerRef      string
	OwnerMatch    string
	AllotmentDate string
	Remarks       string
	Status        string
}

// RecordRef points at an existing fleet record.
type RecordRef struct {
	ID string `json:"id"`
}

// RecordStore is the keyed record store.
type RecordStore interface {
	// LookupRecord returns the first record matching any present key,
	// in the store's natural insertion order, or nil when none match.
	// More than one candidate is a data-quality condition the import
	// tolerates; the first match is the defined result.
	LookupRecord(ctx context.Context, keys LookupKeys) (*RecordRef, error)
	InsertRecord(ctx context.Context, p RecordPayload) (RecordRef, error)
	UpdateRecord(ctx context.Context, id string, p RecordPayload) error
	ListOwners(ctx context.Context, role string) ([]model.OwnerDirectoryEntry, error)
	UpsertOwner(ctx context.Context, o model.OwnerDirectoryEntry, role string) error
}

// NotificationSink receives one aggregated notification per owner at
// the end of a run. Failures here must never fail the import.
type NotificationSink interface {
	EmitBatch(ctx context.Context, ownerID string, count int) error
}

// HistoryStore records one ImportRun per pipeline invocation. The
// persisted error list is capped at model.PersistedErrorCap.
type HistoryStore interface {
	RecordImport(ctx context.Context, run model.ImportRun) error
	ListImports(ctx context.Context, limit int) ([]model.ImportRun, error)
}

// Store combines every persistence concern behind one backend.
type Store interface {
	RecordStore
	NotificationSink
	HistoryStore

	Migrate(ctx context.Context) error
	Close() error
}
