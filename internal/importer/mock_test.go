package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/trievops/fleet-cli/internal/model"
	"github.com/trievops/fleet-cli/internal/store"
)

// mockStore is an in-memory store.Store with failure-injection hooks.
// Records keep insertion order so lookups mirror the natural-order
// semantics of the real backends.
type mockStore struct {
	mu sync.Mutex

	records []mockRecord
	owners  []model.OwnerDirectoryEntry
	emits   []mockEmit
	runs    []model.ImportRun

	nextID int

	ownersErr  error
	lookupErr  error
	insertErr  error
	updateErr  error
	emitErr    error
	historyErr error
}

type mockRecord struct {
	id      string
	payload store.RecordPayload
}

type mockEmit struct {
	ownerID string
	count   int
}

func newMockStore(owners ...model.OwnerDirectoryEntry) *mockStore {
	return &mockStore{owners: owners}
}

func (m *mockStore) LookupRecord(_ context.Context, keys store.LookupKeys) (*store.RecordRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if keys.Empty() {
		return nil, fmt.Errorf("lookup requires at least one key")
	}
	for _, r := range m.records {
		if matchKey(keys.ExternalID, r.payload.ExternalID) ||
			matchKey(keys.Mobile, r.payload.Mobile) ||
			matchKey(keys.ChassisID, r.payload.ChassisID) {
			ref := store.RecordRef{ID: r.id}
			return &ref, nil
		}
	}
	return nil, nil
}

func matchKey(want, have string) bool {
	want = strings.TrimSpace(want)
	return want != "" && want == strings.TrimSpace(have)
}

func (m *mockStore) InsertRecord(_ context.Context, p store.RecordPayload) (store.RecordRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return store.RecordRef{}, m.insertErr
	}
	m.nextID++
	id := fmt.Sprintf("rec-%d", m.nextID)
	m.records = append(m.records, mockRecord{id: id, payload: p})
	return store.RecordRef{ID: id}, nil
}

func (m *mockStore) UpdateRecord(_ context.Context, id string, p store.RecordPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.records {
		if m.records[i].id == id {
			m.records[i].payload = p
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockStore) ListOwners(_ context.Context, _ string) ([]model.OwnerDirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ownersErr != nil {
		return nil, m.ownersErr
	}
	out := make([]model.OwnerDirectoryEntry, len(m.owners))
	copy(out, m.owners)
	return out, nil
}

func (m *mockStore) UpsertOwner(_ context.Context, o model.OwnerDirectoryEntry, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.owners {
		if m.owners[i].ID == o.ID {
			m.owners[i] = o
			return nil
		}
	}
	m.owners = append(m.owners, o)
	return nil
}

func (m *mockStore) EmitBatch(_ context.Context, ownerID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emitErr != nil {
		return m.emitErr
	}
	m.emits = append(m.emits, mockEmit{ownerID: ownerID, count: count})
	return nil
}

func (m *mockStore) RecordImport(_ context.Context, run model.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return m.historyErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockStore) ListImports(_ context.Context, limit int) ([]model.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]model.ImportRun, limit)
	copy(out, m.runs[len(m.runs)-limit:])
	return out, nil
}

func (m *mockStore) Migrate(context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

func (m *mockStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockStore) recordByExternalID(id string) (store.RecordPayload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.payload.ExternalID == id {
			return r.payload, true
		}
	}
	return store.RecordPayload{}, false
}
