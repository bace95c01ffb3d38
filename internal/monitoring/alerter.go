package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rigforge/compat-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertExtractionFailureRate AlertType = "extraction_failure_rate"
	AlertRunFailure            AlertType = "run_failure"
	AlertIncompleteBacklog     AlertType = "incomplete_backlog"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Per-product failure rate over the recent runs.
	attempted := snap.ProductsUpdated + snap.ProductsSkipped + snap.ProductsFailed
	if attempted >= 20 && snap.ProductFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertExtractionFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Extraction failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d attempted over last %d runs)",
				snap.ProductFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.ProductsFailed, attempted, snap.LookbackRuns,
			),
			Details: map[string]any{
				"failure_rate": snap.ProductFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.ProductsFailed,
				"attempted":    attempted,
			},
			Timestamp: now,
		})
	}

	// Whole runs that did not finish.
	if snap.RunsFailed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailure,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d extraction run(s) failed over last %d runs",
				snap.RunsFailed, snap.LookbackRuns,
			),
			Details: map[string]any{
				"failed_runs": snap.RunsFailed,
				"total_runs":  snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	// Remediation backlog growing past the configured ceiling.
	if a.cfg.IncompleteThreshold > 0 && snap.IncompleteTotal > a.cfg.IncompleteThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertIncompleteBacklog,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d records missing required fields exceeds threshold %d",
				snap.IncompleteTotal, a.cfg.IncompleteThreshold,
			),
			Details: map[string]any{
				"incomplete": snap.IncompleteTotal,
				"threshold":  a.cfg.IncompleteThreshold,
				"by_kind":    snap.IncompleteByKind,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
