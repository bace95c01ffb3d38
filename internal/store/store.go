// Package store persists compatibility records, one per product id,
// with Postgres and SQLite backends behind a common interface.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rigforge/compat-cli/internal/model"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = eris.New("store: not found")

// ListFilter specifies criteria for listing compatibility records.
type ListFilter struct {
	Kind   model.ComponentKind `json:"kind,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// RunStatus tracks an extraction run's lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ExtractionRun is the audit row for one batch extraction.
type ExtractionRun struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	Total      int        `json:"products_total"`
	Updated    int        `json:"products_updated"`
	Skipped    int        `json:"products_skipped"`
	Failed     int        `json:"products_failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunResult carries the final counts of a batch extraction.
type RunResult struct {
	Status  RunStatus
	Updated int
	Skipped int
	Failed  int
	Error   string
}

// Store defines persistence for the compatibility engine.
//
// Writes for a single product id are serialized by the backend (single
// statement upserts, transactional overrides); writers of different
// products never contend on application-level locks.
type Store interface {
	// UpsertExtracted writes an automatically extracted record,
	// overwriting any previous automatic record for the product.
	// Records with manual provenance are left untouched unless force is
	// set (an explicit re-trigger). Reports whether the write applied.
	UpsertExtracted(ctx context.Context, rec *model.CompatRecord, force bool) (bool, error)

	// ApplyManualOverride validates and applies a partial attribute
	// payload as an authoritative manual edit: confidence 1.00,
	// provenance manual, no partial apply on validation failure.
	ApplyManualOverride(ctx context.Context, productID string, fields map[string]any) (*model.CompatRecord, error)

	// GetRecord returns the record for a product, or ErrNotFound.
	GetRecord(ctx context.Context, productID string) (*model.CompatRecord, error)

	// ListRecords returns records matching the filter, newest first.
	ListRecords(ctx context.Context, filter ListFilter) ([]model.CompatRecord, error)

	// ScanRecords returns up to limit records with product_id greater
	// than afterID, in product_id order, optionally narrowed to one
	// kind. Keyset paging on the immutable primary key gives full-table
	// walkers a stable view: concurrent rewrites move updated_at, never
	// product_id, so a record is visited exactly once per walk.
	ScanRecords(ctx context.Context, kind model.ComponentKind, afterID string, limit int) ([]model.CompatRecord, error)

	// CountByKind returns the number of records per component kind.
	CountByKind(ctx context.Context) (map[model.ComponentKind]int, error)

	// DeleteRecord removes a record when its owning product is removed.
	DeleteRecord(ctx context.Context, productID string) error

	// Extraction runs.
	CreateRun(ctx context.Context, total int) (*ExtractionRun, error)
	CompleteRun(ctx context.Context, runID string, result RunResult) error
	ListRuns(ctx context.Context, limit int) ([]ExtractionRun, error)
	LastRun(ctx context.Context) (*ExtractionRun, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// recordColumns is the column list shared by both drivers, in the order
// the scan helpers expect.
const recordColumns = `product_id, component_kind,
	cpu_socket, cpu_brand, cpu_generation, cpu_tdp_watts, canonical_cpu_name,
	mobo_socket, mobo_chipset, mobo_form_factor, canonical_mobo_name,
	memory_type, memory_slots, memory_max_speed_mhz, memory_max_capacity_gb,
	memory_capacity_gb, memory_modules, memory_ecc_support,
	confidence, extraction_source, extraction_warnings, extracted_at, updated_at`

// marshalWarnings encodes the warning list for storage; empty lists are
// stored as the canonical "[]".
func marshalWarnings(warnings []string) (string, error) {
	if len(warnings) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(warnings)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal warnings")
	}
	return string(b), nil
}

// recordArgs flattens a record into driver arguments matching
// recordColumns, with warnings pre-marshaled to JSON.
func recordArgs(rec *model.CompatRecord, warningsJSON string) []any {
	return []any{
		rec.ProductID, string(rec.Kind),
		rec.CPUSocket, rec.CPUBrand, rec.CPUGeneration, rec.CPUTDPWatts, rec.CanonicalCPUName,
		rec.MoboSocket, rec.MoboChipset, rec.MoboFormFactor, rec.CanonicalMoboName,
		rec.MemoryType, rec.MemorySlots, rec.MemoryMaxSpeedMHz, rec.MemoryMaxCapacityGB,
		rec.MemoryCapacityGB, rec.MemoryModules, rec.MemoryECCSupport,
		rec.Confidence, string(rec.Source), warningsJSON, rec.ExtractedAt, rec.UpdatedAt,
	}
}

// scannable matches both *sql.Row and *sql.Rows, and pgx rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRecord reads one row in recordColumns order.
func scanRecord(row scannable) (*model.CompatRecord, error) {
	var (
		r            model.CompatRecord
		kind, source string
		warningsJSON string
	)
	err := row.Scan(
		&r.ProductID, &kind,
		&r.CPUSocket, &r.CPUBrand, &r.CPUGeneration, &r.CPUTDPWatts, &r.CanonicalCPUName,
		&r.MoboSocket, &r.MoboChipset, &r.MoboFormFactor, &r.CanonicalMoboName,
		&r.MemoryType, &r.MemorySlots, &r.MemoryMaxSpeedMHz, &r.MemoryMaxCapacityGB,
		&r.MemoryCapacityGB, &r.MemoryModules, &r.MemoryECCSupport,
		&r.Confidence, &source, &warningsJSON, &r.ExtractedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = model.ComponentKind(kind)
	r.Source = model.Source(source)
	if warningsJSON != "" && warningsJSON != "[]" {
		if err := json.Unmarshal([]byte(warningsJSON), &r.Warnings); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal warnings")
		}
	}
	return &r, nil
}
