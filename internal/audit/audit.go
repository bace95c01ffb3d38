// Package audit reports compatibility records whose required attributes are
// still missing. Nothing is persisted; every report is recomputed from the
// store so manual overrides and re-extractions are reflected immediately.
package audit

import (
	"context"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

// IncompleteRecord is a compatibility record annotated with the required
// fields it lacks.
type IncompleteRecord struct {
	model.CompatRecord
	MissingFields []string `json:"missing_fields"`
}

// Summary counts incomplete records per component kind.
type Summary struct {
	Total   int                         `json:"total_incomplete"`
	ByKind  map[model.ComponentKind]int `json:"by_kind"`
	Scanned int                         `json:"records_scanned"`
}

// MissingFields returns the required fields the record does not populate,
// in the fixed per-kind order. Empty for complete records.
func MissingFields(rec *model.CompatRecord) []string {
	var missing []string
	for _, f := range model.RequiredFields(rec.Kind) {
		if !rec.FieldSet(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Auditor scans a store for incomplete records.
type Auditor struct {
	store store.Store
}

func New(st store.Store) *Auditor {
	return &Auditor{store: st}
}

// scanPageSize bounds the per-query batch while walking the full table.
const scanPageSize = 500

// Count walks every record and tallies the incomplete ones by kind.
func (a *Auditor) Count(ctx context.Context) (*Summary, error) {
	sum := &Summary{ByKind: make(map[model.ComponentKind]int)}
	err := a.walk(ctx, model.ComponentKind(""), func(rec *model.CompatRecord) {
		sum.Scanned++
		if len(MissingFields(rec)) > 0 {
			sum.Total++
			sum.ByKind[rec.Kind]++
		}
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// ListIncomplete returns incomplete records annotated with their missing
// fields. Kind narrows the scan; limit and offset page through the result.
func (a *Auditor) ListIncomplete(ctx context.Context, kind model.ComponentKind, limit, offset int) ([]IncompleteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		out     []IncompleteRecord
		skipped int
	)
	err := a.walk(ctx, kind, func(rec *model.CompatRecord) {
		if len(out) >= limit {
			return
		}
		missing := MissingFields(rec)
		if len(missing) == 0 {
			return
		}
		if skipped < offset {
			skipped++
			return
		}
		out = append(out, IncompleteRecord{CompatRecord: *rec, MissingFields: missing})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk visits every record with keyset paging on product_id. The key is
// immutable, so concurrent rewrites (which move updated_at) cannot shift
// a record across page boundaries mid-walk.
func (a *Auditor) walk(ctx context.Context, kind model.ComponentKind, fn func(*model.CompatRecord)) error {
	afterID := ""
	for {
		page, err := a.store.ScanRecords(ctx, kind, afterID, scanPageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for i := range page {
			fn(&page[i])
		}
		afterID = page[len(page)-1].ProductID
	}
}
