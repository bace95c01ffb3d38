package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rigforge/compat-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store on a PostgreSQL pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to PostgreSQL and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS compat_records (
	product_id             TEXT PRIMARY KEY,
	component_kind         TEXT NOT NULL,
	cpu_socket             TEXT,
	cpu_brand              TEXT,
	cpu_generation         TEXT,
	cpu_tdp_watts          INTEGER,
	canonical_cpu_name     TEXT,
	mobo_socket            TEXT,
	mobo_chipset           TEXT,
	mobo_form_factor       TEXT,
	canonical_mobo_name    TEXT,
	memory_type            TEXT,
	memory_slots           INTEGER,
	memory_max_speed_mhz   INTEGER,
	memory_max_capacity_gb INTEGER,
	memory_capacity_gb     INTEGER,
	memory_modules         INTEGER,
	memory_ecc_support     BOOLEAN,
	confidence             DOUBLE PRECISION NOT NULL DEFAULT 0,
	extraction_source      TEXT NOT NULL,
	extraction_warnings    JSONB NOT NULL DEFAULT '[]',
	extracted_at           TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id               UUID PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'running',
	products_total   INTEGER NOT NULL DEFAULT 0,
	products_updated INTEGER NOT NULL DEFAULT 0,
	products_skipped INTEGER NOT NULL DEFAULT 0,
	products_failed  INTEGER NOT NULL DEFAULT 0,
	error            TEXT,
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_compat_kind ON compat_records (component_kind);
CREATE INDEX IF NOT EXISTS idx_compat_cpu_socket ON compat_records (cpu_socket)
	WHERE component_kind = 'cpu';
CREATE INDEX IF NOT EXISTS idx_compat_mobo_socket ON compat_records (mobo_socket)
	WHERE component_kind = 'motherboard';
CREATE INDEX IF NOT EXISTS idx_compat_memory ON compat_records (memory_type, memory_max_speed_mhz);
CREATE INDEX IF NOT EXISTS idx_compat_cpu_name ON compat_records (canonical_cpu_name)
	WHERE component_kind = 'cpu';
CREATE INDEX IF NOT EXISTS idx_compat_mobo_name ON compat_records (canonical_mobo_name)
	WHERE component_kind = 'motherboard';
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON extraction_runs (started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// extracted_at is absent from the update set: existing rows keep their
// first extraction time, so identical re-extractions change only
// updated_at.
const postgresUpsertUpdateSet = `
	component_kind = EXCLUDED.component_kind,
	cpu_socket = EXCLUDED.cpu_socket,
	cpu_brand = EXCLUDED.cpu_brand,
	cpu_generation = EXCLUDED.cpu_generation,
	cpu_tdp_watts = EXCLUDED.cpu_tdp_watts,
	canonical_cpu_name = EXCLUDED.canonical_cpu_name,
	mobo_socket = EXCLUDED.mobo_socket,
	mobo_chipset = EXCLUDED.mobo_chipset,
	mobo_form_factor = EXCLUDED.mobo_form_factor,
	canonical_mobo_name = EXCLUDED.canonical_mobo_name,
	memory_type = EXCLUDED.memory_type,
	memory_slots = EXCLUDED.memory_slots,
	memory_max_speed_mhz = EXCLUDED.memory_max_speed_mhz,
	memory_max_capacity_gb = EXCLUDED.memory_max_capacity_gb,
	memory_capacity_gb = EXCLUDED.memory_capacity_gb,
	memory_modules = EXCLUDED.memory_modules,
	memory_ecc_support = EXCLUDED.memory_ecc_support,
	confidence = EXCLUDED.confidence,
	extraction_source = EXCLUDED.extraction_source,
	extraction_warnings = EXCLUDED.extraction_warnings,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) UpsertExtracted(ctx context.Context, rec *model.CompatRecord, force bool) (bool, error) {
	warningsJSON, err := marshalWarnings(rec.Warnings)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	rec.ExtractedAt = now
	rec.UpdatedAt = now

	query := `INSERT INTO compat_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (product_id) DO UPDATE SET` + postgresUpsertUpdateSet
	if !force {
		// Manual overrides are authoritative; automatic re-extraction
		// never reverts them.
		query += `
		WHERE compat_records.extraction_source <> 'manual'`
	}

	tag, err := s.pool.Exec(ctx, query, recordArgs(rec, warningsJSON)...)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: upsert record %s", rec.ProductID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ApplyManualOverride(ctx context.Context, productID string, fields map[string]any) (*model.CompatRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin override")
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM compat_records WHERE product_id = $1 FOR UPDATE`, productID)
	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "postgres: record %s", productID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s", productID)
	}

	if err := model.ApplyPatch(rec, fields, time.Now().UTC()); err != nil {
		return nil, err
	}

	warningsJSON, err := marshalWarnings(rec.Warnings)
	if err != nil {
		return nil, err
	}
	args := recordArgs(rec, warningsJSON)[1:] // all columns after product_id
	args = append(args, productID)
	_, err = tx.Exec(ctx, `UPDATE compat_records SET
		component_kind = $1, cpu_socket = $2, cpu_brand = $3, cpu_generation = $4,
		cpu_tdp_watts = $5, canonical_cpu_name = $6, mobo_socket = $7,
		mobo_chipset = $8, mobo_form_factor = $9, canonical_mobo_name = $10,
		memory_type = $11, memory_slots = $12, memory_max_speed_mhz = $13,
		memory_max_capacity_gb = $14, memory_capacity_gb = $15, memory_modules = $16,
		memory_ecc_support = $17, confidence = $18, extraction_source = $19,
		extraction_warnings = $20, extracted_at = $21, updated_at = $22
		WHERE product_id = $23`, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: apply override %s", productID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit override")
	}
	return rec, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, productID string) (*model.CompatRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM compat_records WHERE product_id = $1`, productID)
	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "postgres: record %s", productID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s", productID)
	}
	return rec, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter ListFilter) ([]model.CompatRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM compat_records WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += ` AND component_kind = $1`
	}
	query += ` ORDER BY updated_at DESC, product_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.CompatRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) ScanRecords(ctx context.Context, kind model.ComponentKind, afterID string, limit int) ([]model.CompatRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordColumns + ` FROM compat_records WHERE product_id > $1`
	args := []any{afterID}
	if kind != "" {
		args = append(args, string(kind))
		query += ` AND component_kind = $2`
	}
	args = append(args, limit)
	query += ` ORDER BY product_id LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan records")
	}
	defer rows.Close()

	var records []model.CompatRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: scan records iterate")
}

func (s *PostgresStore) CountByKind(ctx context.Context) (map[model.ComponentKind]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT component_kind, COUNT(*) FROM compat_records GROUP BY component_kind`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by kind")
	}
	defer rows.Close()

	counts := make(map[model.ComponentKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		counts[model.ComponentKind(kind)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count iterate")
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, productID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM compat_records WHERE product_id = $1`, productID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete record %s", productID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "record %s", productID)
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, total int) (*ExtractionRun, error) {
	run := &ExtractionRun{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO extraction_runs (id, status, products_total, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.Status), run.Total, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result RunResult) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extraction_runs SET status = $1, products_updated = $2, products_skipped = $3,
		 products_failed = $4, error = $5, finished_at = $6 WHERE id = $7`,
		string(result.Status), result.Updated, result.Skipped, result.Failed,
		result.Error, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]ExtractionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, products_total, products_updated, products_skipped,
		 products_failed, error, started_at, finished_at
		 FROM extraction_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LastRun(ctx context.Context) (*ExtractionRun, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func scanPgRun(row scannable) (*ExtractionRun, error) {
	var (
		r      ExtractionRun
		status string
		errMsg *string
	)
	err := row.Scan(&r.ID, &status, &r.Total, &r.Updated, &r.Skipped,
		&r.Failed, &errMsg, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}
	r.Status = RunStatus(status)
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
