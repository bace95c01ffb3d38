package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rigforge/compat-cli/internal/audit"
	"github.com/rigforge/compat-cli/internal/config"
	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func TestCollectEmpty(t *testing.T) {
	s := newTestStore(t)
	c := NewCollector(s, audit.New(s))

	snap, err := c.Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, snap.RecordsTotal)
	assert.Zero(t, snap.IncompleteTotal)
	assert.Zero(t, snap.RunsTotal)
	assert.Zero(t, snap.ProductFailRate)
	assert.Equal(t, 50, snap.LookbackRuns)
	assert.Empty(t, snap.LastRunID)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollect(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, rec := range []*model.CompatRecord{
		{ProductID: "cpu-1", Kind: model.KindCPU, CPUSocket: strPtr("AM5"),
			Confidence: 0.95, Source: model.SourceSpecs},
		{ProductID: "ram-1", Kind: model.KindRAM, Source: model.SourceInferred},
	} {
		_, err := s.UpsertExtracted(ctx, rec, false)
		require.NoError(t, err)
	}

	run1, err := s.CreateRun(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, run1.ID, store.RunResult{
		Status: store.RunStatusComplete, Updated: 3, Failed: 1,
	}))
	run2, err := s.CreateRun(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, run2.ID, store.RunResult{
		Status: store.RunStatusFailed, Failed: 2, Error: "catalog unreachable",
	}))

	snap, err := NewCollector(s, audit.New(s)).Collect(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.RecordsTotal)
	assert.Equal(t, 1, snap.RecordsByKind[model.KindCPU])
	assert.Equal(t, 1, snap.IncompleteTotal)
	assert.Equal(t, 1, snap.IncompleteByKind[model.KindRAM])
	assert.Equal(t, 2, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 3, snap.ProductsUpdated)
	assert.Equal(t, 3, snap.ProductsFailed)
	assert.InDelta(t, 0.5, snap.ProductFailRate, 1e-9)
	assert.Equal(t, 10, snap.LookbackRuns)
	assert.NotEmpty(t, snap.LastRunID)
}

func TestEvaluateNoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.25,
		IncompleteThreshold:  100,
	})

	alerts := a.Evaluate(&MetricsSnapshot{
		ProductsUpdated: 50,
		ProductsFailed:  2,
		ProductFailRate: float64(2) / 52,
		IncompleteTotal: 10,
	})
	assert.Empty(t, alerts)
}

func TestEvaluateFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	alerts := a.Evaluate(&MetricsSnapshot{
		ProductsUpdated: 10,
		ProductsFailed:  10,
		ProductFailRate: 0.5,
		LookbackRuns:    50,
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertExtractionFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
}

func TestEvaluateFailureRateNeedsVolume(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	// Below 20 attempted products the rate is too noisy to alert on.
	alerts := a.Evaluate(&MetricsSnapshot{
		ProductsUpdated: 5,
		ProductsFailed:  5,
		ProductFailRate: 0.5,
	})
	assert.Empty(t, alerts)
}

func TestEvaluateRunFailureAndBacklog(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.25,
		IncompleteThreshold:  5,
	})

	alerts := a.Evaluate(&MetricsSnapshot{
		RunsTotal:       3,
		RunsFailed:      1,
		IncompleteTotal: 12,
	})
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertRunFailure, alerts[0].Type)
	assert.Equal(t, AlertIncompleteBacklog, alerts[1].Type)
	assert.Equal(t, "medium", alerts[1].Severity)
}

func TestSendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertRunFailure, alert.Type)
		received.Add(1)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailure, Severity: "high", Message: "1 extraction run(s) failed"},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestSendAlertsNoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailure}})
	assert.Zero(t, sent)
}

func TestSendAlertsWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailure}})
	assert.Zero(t, sent)
}
