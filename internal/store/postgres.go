package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/trievops/fleet-cli/internal/db"
	"github.com/trievops/fleet-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Intended for shared
// deployments where several operators import against the same fleet.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS fleet_records (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	mobile         TEXT NOT NULL DEFAULT '',
	external_id    TEXT NOT NULL DEFAULT '',
	chassis_id     TEXT NOT NULL DEFAULT '',
	client_name    TEXT NOT NULL DEFAULT '',
	wallet_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
	owner_id       TEXT NOT NULL DEFAULT '',
	owner_ref      TEXT NOT NULL DEFAULT '',
	owner_match    TEXT NOT NULL DEFAULT '',
	allotment_date TEXT NOT NULL DEFAULT '',
	remarks        TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	seq            BIGINT GENERATED ALWAYS AS IDENTITY,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
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
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	summary     JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fleet_records_external_id ON fleet_records(external_id);
CREATE INDEX IF NOT EXISTS idx_fleet_records_mobile ON fleet_records(mobile);
CREATE INDEX IF NOT EXISTS idx_fleet_records_chassis_id ON fleet_records(chassis_id);
CREATE INDEX IF NOT EXISTS idx_owners_role ON owners(role);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// LookupRecord probes the disjunction over the present keys. Natural
// order is the insertion sequence, so two file rows sharing a key
// collapse onto the earlier insert.
func (s *PostgresStore) LookupRecord(ctx context.Context, keys LookupKeys) (*RecordRef, error) {
	if keys.Empty() {
		return nil, eris.New("postgres: lookup requires at least one key")
	}

	var conds []string
	var args []any
	if strings.TrimSpace(keys.ExternalID) != "" {
		args = append(args, keys.ExternalID)
		conds = append(conds, fmt.Sprintf("external_id = $%d", len(args)))
	}
	if strings.TrimSpace(keys.Mobile) != "" {
		args = append(args, keys.Mobile)
		conds = append(conds, fmt.Sprintf("mobile = $%d", len(args)))
	}
	if strings.TrimSpace(keys.ChassisID) != "" {
		args = append(args, keys.ChassisID)
		conds = append(conds, fmt.Sprintf("chassis_id = $%d", len(args)))
	}

	query := `SELECT id FROM fleet_records WHERE ` + strings.Join(conds, " OR ") + ` ORDER BY seq LIMIT 1`

	var id string
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup record")
	}
	return &RecordRef{ID: id}, nil
}

func (s *PostgresStore) InsertRecord(ctx context.Context, p RecordPayload) (RecordRef, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO fleet_records
		(id, name, mobile, external_id, chassis_id, client_name, wallet_amount,
		 owner_id, owner_ref, owner_match, allotment_date, remarks, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, p.Name, p.Mobile, p.ExternalID, p.ChassisID, p.ClientName, p.WalletAmount,
		p.OwnerID, p.OwnerRef, p.OwnerMatch, p.AllotmentDate, p.Remarks, p.Status, now, now,
	)
	if err != nil {
		return RecordRef{}, eris.Wrap(err, "postgres: insert record")
	}
	return RecordRef{ID: id}, nil
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, id string, p RecordPayload) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE fleet_records SET
		 name = $1, mobile = $2, external_id = $3, chassis_id = $4, client_name = $5,
		 wallet_amount = $6, owner_id = $7, owner_ref = $8, owner_match = $9,
		 allotment_date = $10, remarks = $11, status = $12, updated_at = $13
		 WHERE id = $14`,
		p.Name, p.Mobile, p.ExternalID, p.ChassisID, p.ClientName,
		p.WalletAmount, p.OwnerID, p.OwnerRef, p.OwnerMatch,
		p.AllotmentDate, p.Remarks, p.Status, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update record %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "record %s", id)
	}
	return nil
}

func (s *PostgresStore) ListOwners(ctx context.Context, role string) ([]model.OwnerDirectoryEntry, error) {
	query := `SELECT id, display_name, email FROM owners`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY display_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list owners")
	}
	defer rows.Close()

	var owners []model.OwnerDirectoryEntry
	for rows.Next() {
		var o model.OwnerDirectoryEntry
		if err := rows.Scan(&o.ID, &o.DisplayName, &o.Email); err != nil {
			return nil, eris.Wrap(err, "postgres: scan owner")
		}
		owners = append(owners, o)
	}
	return owners, eris.Wrap(rows.Err(), "postgres: iterate owners")
}

func (s *PostgresStore) UpsertOwner(ctx context.Context, o model.OwnerDirectoryEntry, role string) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if role == "" {
		role = "team_leader"
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO owners (id, display_name, email, role) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email, role = EXCLUDED.role`,
		o.ID, o.DisplayName, o.Email, role,
	)
	return eris.Wrap(err, "postgres: upsert owner")
}

func (s *PostgresStore) EmitBatch(ctx context.Context, ownerID string, count int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, owner_id, affected, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), ownerID, count, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: emit notification")
}

func (s *PostgresStore) RecordImport(ctx context.Context, run model.ImportRun) error {
	run.Summary = run.Summary.Capped(model.PersistedErrorCap)

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, kind, source, summary, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Kind), run.Source, summaryJSON, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrap(err, "postgres: insert import run")
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, source, summary, started_at, finished_at FROM import_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list import runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var kind string
		var summaryJSON []byte
		if err := rows.Scan(&run.ID, &kind, &run.Source, &summaryJSON, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import run")
		}
		run.Kind = model.ImportKind(kind)
		if err := json.Unmarshal(summaryJSON, &run.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate import runs")
}
