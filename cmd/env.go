package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rigforge/compat-cli/internal/audit"
	"github.com/rigforge/compat-cli/internal/catalog"
	"github.com/rigforge/compat-cli/internal/extract"
	"github.com/rigforge/compat-cli/internal/monitoring"
	"github.com/rigforge/compat-cli/internal/pipeline"
	"github.com/rigforge/compat-cli/internal/resolver"
	"github.com/rigforge/compat-cli/internal/store"
	"github.com/rigforge/compat-cli/internal/vocab"
)

// engine bundles the wired components shared by the commands.
type engine struct {
	Store     store.Store
	Vocab     *vocab.Store
	Extractor *extract.Extractor
	Pipeline  *pipeline.Pipeline
	Auditor   *audit.Auditor
	Resolver  *resolver.Resolver
	Collector *monitoring.Collector
}

func (e *engine) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "compat.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initVocab() (*vocab.Store, error) {
	v, err := vocab.Load(cfg.Vocab.Path)
	if err != nil {
		return nil, err
	}
	return vocab.NewStore(v), nil
}

func calibration() extract.Calibration {
	cal := extract.DefaultCalibration()
	e := cfg.Extract
	if e.SpecsBaseline > 0 {
		cal.SpecsBaseline = e.SpecsBaseline
	}
	if e.TitleBaseline > 0 {
		cal.TitleBaseline = e.TitleBaseline
	}
	if e.InferredBaseline > 0 {
		cal.InferredBaseline = e.InferredBaseline
	}
	if e.ConflictPenalty > 0 {
		cal.ConflictPenalty = e.ConflictPenalty
	}
	if e.CorroborationBoost > 0 {
		cal.CorroborationBoost = e.CorroborationBoost
	}
	if e.BoostCap > 0 {
		cal.BoostCap = e.BoostCap
	}
	if e.MatchThreshold > 0 {
		cal.MatchThreshold = e.MatchThreshold
	}
	return cal
}

func initCatalogHTTP() (catalog.Client, error) {
	if cfg.Catalog.BaseURL == "" {
		return nil, eris.New("catalog base URL is required (COMPAT_CATALOG_BASE_URL)")
	}
	return catalog.NewHTTPClient(catalog.HTTPOptions{
		BaseURL:    cfg.Catalog.BaseURL,
		UserAgent:  cfg.Catalog.UserAgent,
		Timeout:    time.Duration(cfg.Catalog.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Catalog.MaxRetries,
		RateLimit:  rate.Limit(cfg.Catalog.RateLimitPerSec),
	}), nil
}

// loadCatalogFile reads a JSON array of raw specifications into a static
// catalog, for offline extraction runs.
func loadCatalogFile(path string) (catalog.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read catalog file %s", path)
	}
	var raws []catalog.RawSpecification
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, eris.Wrapf(err, "decode catalog file %s", path)
	}
	products := make(map[string]*catalog.RawSpecification, len(raws))
	for i := range raws {
		if raws[i].ProductID == "" {
			return nil, eris.Errorf("catalog file %s: entry %d has no product_id", path, i)
		}
		products[raws[i].ProductID] = &raws[i]
	}
	return &catalog.StaticClient{Products: products}, nil
}

// initEngine wires every component on top of the given catalog client.
// A nil catalog is allowed for commands that never extract.
func initEngine(ctx context.Context, cat catalog.Client) (*engine, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	vs, err := initVocab()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	ext := extract.New(vs, calibration())
	auditor := audit.New(st)

	return &engine{
		Store:     st,
		Vocab:     vs,
		Extractor: ext,
		Pipeline:  pipeline.New(cat, ext, st, cfg.Extract.Workers),
		Auditor:   auditor,
		Resolver:  resolver.New(st),
		Collector: monitoring.NewCollector(st, auditor),
	}, nil
}
