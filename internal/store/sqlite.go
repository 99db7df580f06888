package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/trievops/fleet-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the
// default backend for single-operator deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS fleet_records (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	mobile         TEXT NOT NULL DEFAULT '',
	external_id    TEXT NOT NULL DEFAULT '',
	chassis_id     TEXT NOT NULL DEFAULT '',
	client_name    TEXT NOT NULL DEFAULT '',
	wallet_amount  REAL NOT NULL DEFAULT 0,
	owner_id       TEXT NOT NULL DEFAULT '',
	owner_ref      TEXT NOT NULL DEFAULT '',
	owner_match    TEXT NOT NULL DEFAULT '',
	allotment_date TEXT NOT NULL DEFAULT '',
	remarks        TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS owners (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT 'team_leader'
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	affected   INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fleet_records_external_id ON fleet_records(external_id);
CREATE INDEX IF NOT EXISTS idx_fleet_records_mobile ON fleet_records(mobile);
CREATE INDEX IF NOT EXISTS idx_fleet_records_chassis_id ON fleet_records(chassis_id);
CREATE INDEX IF NOT EXISTS idx_owners_role ON owners(role);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LookupRecord probes the disjunction over the present keys. Natural
// order is insertion order (rowid), so two file rows sharing a key
// collapse onto the earlier insert.
func (s *SQLiteStore) LookupRecord(ctx context.Context, keys LookupKeys) (*RecordRef, error) {
	if keys.Empty() {
		return nil, eris.New("sqlite: lookup requires at least one key")
	}

	var conds []string
	var args []any
	if strings.TrimSpace(keys.ExternalID) != "" {
		conds = append(conds, "external_id = ?")
		args = append(args, keys.ExternalID)
	}
	if strings.TrimSpace(keys.Mobile) != "" {
		conds = append(conds, "mobile = ?")
		args = append(args, keys.Mobile)
	}
	if strings.TrimSpace(keys.ChassisID) != "" {
		conds = append(conds, "chassis_id = ?")
		args = append(args, keys.ChassisID)
	}

	query := `SELECT id FROM fleet_records WHERE ` + strings.Join(conds, " OR ") + ` ORDER BY rowid LIMIT 1`

	var id string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup record")
	}
	return &RecordRef{ID: id}, nil
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, p RecordPayload) (RecordRef, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fleet_records
		(id, name, mobile, external_id, chassis_id, client_name, wallet_amount,
		 owner_id, owner_ref, owner_match, allotment_date, remarks, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Name, p.Mobile, p.ExternalID, p.ChassisID, p.ClientName, p.WalletAmount,
		p.OwnerID, p.OwnerRef, p.OwnerMatch, p.AllotmentDate, p.Remarks, p.Status, now, now,
	)
	if err != nil {
		return RecordRef{}, eris.Wrap(err, "sqlite: insert record")
	}
	return RecordRef{ID: id}, nil
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, id string, p RecordPayload) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fleet_records SET
		 name = ?, mobile = ?, external_id = ?, chassis_id = ?, client_name = ?,
		 wallet_amount = ?, owner_id = ?, owner_ref = ?, owner_match = ?,
		 allotment_date = ?, remarks = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Mobile, p.ExternalID, p.ChassisID, p.ClientName,
		p.WalletAmount, p.OwnerID, p.OwnerRef, p.OwnerMatch,
		p.AllotmentDate, p.Remarks, p.Status, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update record %s", id)
	}
	return checkRowsAffected(res, "record", id)
}

func (s *SQLiteStore) ListOwners(ctx context.Context, role string) ([]model.OwnerDirectoryEntry, error) {
	query := `SELECT id, display_name, email FROM owners`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY display_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list owners")
	}
	defer rows.Close()

	var owners []model.OwnerDirectoryEntry
	for rows.Next() {
		var o model.OwnerDirectoryEntry
		if err := rows.Scan(&o.ID, &o.DisplayName, &o.Email); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan owner")
		}
		owners = append(owners, o)
	}
	return owners, eris.Wrap(rows.Err(), "sqlite: iterate owners")
}

func (s *SQLiteStore) UpsertOwner(ctx context.Context, o model.OwnerDirectoryEntry, role string) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if role == "" {
		role = "team_leader"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO owners (id, display_name, email, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email, role = excluded.role`,
		o.ID, o.DisplayName, o.Email, role,
	)
	return eris.Wrap(err, "sqlite: upsert owner")
}

func (s *SQLiteStore) EmitBatch(ctx context.Context, ownerID string, count int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, owner_id, affected, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), ownerID, count, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: emit notification")
}

func (s *SQLiteStore) RecordImport(ctx context.Context, run model.ImportRun) error {
	run.Summary = run.Summary.Capped(model.PersistedErrorCap)

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, kind, source, summary, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Source, string(summaryJSON), run.StartedAt, run.FinishedAt,
	)
	return eris.Wrap(err, "sqlite: insert import run")
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, source, summary, started_at, finished_at FROM import_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list import runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var kind, summaryJSON string
		if err := rows.Scan(&run.ID, &kind, &run.Source, &summaryJSON, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import run")
		}
		run.Kind = model.ImportKind(kind)
		if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate import runs")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kind, id)
	}
	return nil
}
