package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rigforge/compat-cli/internal/audit"
	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of extraction health.
type MetricsSnapshot struct {
	// Record inventory.
	RecordsTotal  int                         `json:"records_total"`
	RecordsByKind map[model.ComponentKind]int `json:"records_by_kind"`

	// Remediation backlog.
	IncompleteTotal  int                         `json:"incomplete_total"`
	IncompleteByKind map[model.ComponentKind]int `json:"incomplete_by_kind"`

	// Run metrics (over the most recent runs).
	RunsTotal       int     `json:"runs_total"`
	RunsComplete    int     `json:"runs_complete"`
	RunsFailed      int     `json:"runs_failed"`
	ProductsUpdated int     `json:"products_updated"`
	ProductsSkipped int     `json:"products_skipped"`
	ProductsFailed  int     `json:"products_failed"`
	ProductFailRate float64 `json:"product_fail_rate"`

	LastRunID         string     `json:"last_run_id,omitempty"`
	LastRunStatus     string     `json:"last_run_status,omitempty"`
	LastRunFinishedAt *time.Time `json:"last_run_finished_at,omitempty"`

	// Metadata.
	LookbackRuns int       `json:"lookback_runs"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Collector gathers metrics from the record store and the run log.
type Collector struct {
	store   store.Store
	auditor *audit.Auditor
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store, auditor *audit.Auditor) *Collector {
	return &Collector{store: st, auditor: auditor}
}

// Collect gathers a snapshot over the most recent lookbackRuns runs.
func (c *Collector) Collect(ctx context.Context, lookbackRuns int) (*MetricsSnapshot, error) {
	if lookbackRuns <= 0 {
		lookbackRuns = 50
	}
	snap := &MetricsSnapshot{
		LookbackRuns: lookbackRuns,
		CollectedAt:  time.Now().UTC(),
	}

	counts, err := c.store.CountByKind(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count records")
	}
	snap.RecordsByKind = counts
	for _, n := range counts {
		snap.RecordsTotal += n
	}

	summary, err := c.auditor.Count(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: audit counts")
	}
	snap.IncompleteTotal = summary.Total
	snap.IncompleteByKind = summary.ByKind

	runs, err := c.store.ListRuns(ctx, lookbackRuns)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}
	snap.RunsTotal = len(runs)
	for _, r := range runs {
		switch r.Status {
		case store.RunStatusComplete:
			snap.RunsComplete++
		case store.RunStatusFailed:
			snap.RunsFailed++
		}
		snap.ProductsUpdated += r.Updated
		snap.ProductsSkipped += r.Skipped
		snap.ProductsFailed += r.Failed
	}
	attempted := snap.ProductsUpdated + snap.ProductsSkipped + snap.ProductsFailed
	if attempted > 0 {
		snap.ProductFailRate = float64(snap.ProductsFailed) / float64(attempted)
	}

	if len(runs) > 0 {
		last := runs[0]
		snap.LastRunID = last.ID
		snap.LastRunStatus = string(last.Status)
		snap.LastRunFinishedAt = last.FinishedAt
	}

	return snap, nil
}
