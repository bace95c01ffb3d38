// Package pipeline orchestrates extraction end to end: pull the raw
// specification from the catalog, run the extractor, and commit the
// resulting record. Batch runs fan out across a bounded worker pool and
// are logged as extraction runs.
package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rigforge/compat-cli/internal/catalog"
	"github.com/rigforge/compat-cli/internal/extract"
	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

// Pipeline wires the catalog, the extractor, and the record store.
type Pipeline struct {
	catalog   catalog.Client
	extractor *extract.Extractor
	store     store.Store
	workers   int
}

func New(cat catalog.Client, ext *extract.Extractor, st store.Store, workers int) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{catalog: cat, extractor: ext, store: st, workers: workers}
}

// RunProduct extracts one product and upserts its record. The second
// return reports whether the write was applied; a false with nil error
// means a manual override held and force was not set.
func (p *Pipeline) RunProduct(ctx context.Context, productID string, force bool) (*model.CompatRecord, bool, error) {
	raw, err := p.catalog.RawSpecification(ctx, productID)
	if err != nil {
		return nil, false, err
	}

	rec := p.extractor.Extract(raw.Kind, raw.Specs, raw.Title)
	rec.ProductID = productID

	applied, err := p.store.UpsertExtracted(ctx, &rec, force)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		zap.L().Debug("skipped upsert, manual override present",
			zap.String("product_id", productID),
		)
	}
	return &rec, applied, nil
}

// RunBatch extracts every listed product in parallel and records the run.
// Individual product failures are counted and logged, never fatal to the
// batch. The returned run reflects the final tallies.
func (p *Pipeline) RunBatch(ctx context.Context, productIDs []string, force bool) (*store.ExtractionRun, error) {
	run, err := p.store.CreateRun(ctx, len(productIDs))
	if err != nil {
		return nil, err
	}

	var updated, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			_, applied, err := p.RunProduct(gctx, id, force)
			switch {
			case err != nil:
				failed.Add(1)
				zap.L().Warn("extraction failed",
					zap.String("run_id", run.ID),
					zap.String("product_id", id),
					zap.Error(err),
				)
			case applied:
				updated.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := store.RunResult{
		Status:  store.RunStatusComplete,
		Updated: int(updated.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.Status = store.RunStatusFailed
		result.Error = ctxErr.Error()
	}

	// Finalize the run row even when the batch context was canceled.
	if err := p.store.CompleteRun(context.WithoutCancel(ctx), run.ID, result); err != nil {
		return nil, eris.Wrapf(err, "pipeline: finalize run %s", run.ID)
	}

	run.Status = result.Status
	run.Updated = result.Updated
	run.Skipped = result.Skipped
	run.Failed = result.Failed
	run.Error = result.Error

	zap.L().Info("extraction run finished",
		zap.String("run_id", run.ID),
		zap.Int("total", run.Total),
		zap.Int("updated", run.Updated),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)
	return run, nil
}

// RunAll extracts every product the catalog lists for the kind. An empty
// kind runs the whole catalog.
func (p *Pipeline) RunAll(ctx context.Context, kind model.ComponentKind, force bool) (*store.ExtractionRun, error) {
	ids, err := p.catalog.ProductIDs(ctx, kind)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list products")
	}
	return p.RunBatch(ctx, ids, force)
}
