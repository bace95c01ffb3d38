package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rigforge/compat-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	memory_ecc_support     INTEGER,
	confidence             REAL NOT NULL DEFAULT 0,
	extraction_source      TEXT NOT NULL,
	extraction_warnings    TEXT NOT NULL DEFAULT '[]',
	extracted_at           DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'running',
	products_total  INTEGER NOT NULL DEFAULT 0,
	products_updated INTEGER NOT NULL DEFAULT 0,
	products_skipped INTEGER NOT NULL DEFAULT 0,
	products_failed INTEGER NOT NULL DEFAULT 0,
	error           TEXT,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_compat_kind ON compat_records(component_kind);
CREATE INDEX IF NOT EXISTS idx_compat_cpu_socket ON compat_records(cpu_socket)
	WHERE component_kind = 'cpu';
CREATE INDEX IF NOT EXISTS idx_compat_mobo_socket ON compat_records(mobo_socket)
	WHERE component_kind = 'motherboard';
CREATE INDEX IF NOT EXISTS idx_compat_memory ON compat_records(memory_type, memory_max_speed_mhz);
CREATE INDEX IF NOT EXISTS idx_compat_cpu_name ON compat_records(canonical_cpu_name)
	WHERE component_kind = 'cpu';
CREATE INDEX IF NOT EXISTS idx_compat_mobo_name ON compat_records(canonical_mobo_name)
	WHERE component_kind = 'motherboard';
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON extraction_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// extracted_at is absent from the update set: existing rows keep their
// first extraction time, so identical re-extractions change only
// updated_at.
const sqliteUpsertUpdateSet = `
	component_kind = excluded.component_kind,
	cpu_socket = excluded.cpu_socket,
	cpu_brand = excluded.cpu_brand,
	cpu_generation = excluded.cpu_generation,
	cpu_tdp_watts = excluded.cpu_tdp_watts,
	canonical_cpu_name = excluded.canonical_cpu_name,
	mobo_socket = excluded.mobo_socket,
	mobo_chipset = excluded.mobo_chipset,
	mobo_form_factor = excluded.mobo_form_factor,
	canonical_mobo_name = excluded.canonical_mobo_name,
	memory_type = excluded.memory_type,
	memory_slots = excluded.memory_slots,
	memory_max_speed_mhz = excluded.memory_max_speed_mhz,
	memory_max_capacity_gb = excluded.memory_max_capacity_gb,
	memory_capacity_gb = excluded.memory_capacity_gb,
	memory_modules = excluded.memory_modules,
	memory_ecc_support = excluded.memory_ecc_support,
	confidence = excluded.confidence,
	extraction_source = excluded.extraction_source,
	extraction_warnings = excluded.extraction_warnings,
	updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertExtracted(ctx context.Context, rec *model.CompatRecord, force bool) (bool, error) {
	warningsJSON, err := marshalWarnings(rec.Warnings)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	rec.ExtractedAt = now
	rec.UpdatedAt = now

	query := `INSERT INTO compat_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_id) DO UPDATE SET` + sqliteUpsertUpdateSet
	if !force {
		// Manual overrides are authoritative; automatic re-extraction
		// never reverts them.
		query += `
		WHERE compat_records.extraction_source <> 'manual'`
	}

	res, err := s.db.ExecContext(ctx, query, recordArgs(rec, warningsJSON)...)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: upsert record %s", rec.ProductID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ApplyManualOverride(ctx context.Context, productID string, fields map[string]any) (*model.CompatRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin override")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM compat_records WHERE product_id = ?`, productID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: record %s", productID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s", productID)
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
	_, err = tx.ExecContext(ctx, `UPDATE compat_records SET
		component_kind = ?, cpu_socket = ?, cpu_brand = ?, cpu_generation = ?,
		cpu_tdp_watts = ?, canonical_cpu_name = ?, mobo_socket = ?,
		mobo_chipset = ?, mobo_form_factor = ?, canonical_mobo_name = ?,
		memory_type = ?, memory_slots = ?, memory_max_speed_mhz = ?,
		memory_max_capacity_gb = ?, memory_capacity_gb = ?, memory_modules = ?,
		memory_ecc_support = ?, confidence = ?, extraction_source = ?,
		extraction_warnings = ?, extracted_at = ?, updated_at = ?
		WHERE product_id = ?`, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: apply override %s", productID)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit override")
	}
	return rec, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, productID string) (*model.CompatRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM compat_records WHERE product_id = ?`, productID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: record %s", productID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s", productID)
	}
	return rec, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter ListFilter) ([]model.CompatRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM compat_records WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND component_kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY updated_at DESC, product_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []model.CompatRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) ScanRecords(ctx context.Context, kind model.ComponentKind, afterID string, limit int) ([]model.CompatRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordColumns + ` FROM compat_records WHERE product_id > ?`
	args := []any{afterID}
	if kind != "" {
		query += ` AND component_kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY product_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan records")
	}
	defer rows.Close()

	var records []model.CompatRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: scan records iterate")
}

func (s *SQLiteStore) CountByKind(ctx context.Context) (map[model.ComponentKind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT component_kind, COUNT(*) FROM compat_records GROUP BY component_kind`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by kind")
	}
	defer rows.Close()

	counts := make(map[model.ComponentKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[model.ComponentKind(kind)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count iterate")
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, productID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM compat_records WHERE product_id = ?`, productID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete record %s", productID)
	}
	return checkRowsAffected(res, "record", productID)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, total int) (*ExtractionRun, error) {
	run := &ExtractionRun{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, status, products_total, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Status), run.Total, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result RunResult) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_runs SET status = ?, products_updated = ?, products_skipped = ?,
		 products_failed = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(result.Status), result.Updated, result.Skipped, result.Failed,
		result.Error, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]ExtractionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, products_total, products_updated, products_skipped,
		 products_failed, error, started_at, finished_at
		 FROM extraction_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*ExtractionRun, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func scanRun(row scannable) (*ExtractionRun, error) {
	var (
		r      ExtractionRun
		status string
		errMsg sql.NullString
	)
	err := row.Scan(&r.ID, &status, &r.Total, &r.Updated, &r.Skipped,
		&r.Failed, &errMsg, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}
	r.Status = RunStatus(status)
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
