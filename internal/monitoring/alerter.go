package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLoadFailure    AlertType = "load_failure"
	AlertLowZipCoverage AlertType = "low_zip_coverage"
	AlertEmptyWarehouse AlertType = "empty_warehouse"
)

// Severity ranks alerts for whoever consumes the webhook.
type Severity string

const (
	SeverityHigh Severity = "high"
	SeverityLow  Severity = "low"
)

// Alert is one finding about the warehouse.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// webhookPayload carries a chat-friendly text line next to the alert, so
// the same URL works for Slack-style incoming webhooks and for JSON
// consumers.
type webhookPayload struct {
	Text  string `json:"text"`
	Alert Alert  `json:"alert"`
}

// rule inspects a snapshot and reports an alert when it fires.
type rule func(cfg config.MonitoringConfig, snap *Snapshot) (Alert, bool)

var rules = []rule{failedLoads, emptyWarehouse, lowZipCoverage}

func failedLoads(_ config.MonitoringConfig, snap *Snapshot) (Alert, bool) {
	if snap.LoadsFailed == 0 {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertLoadFailure,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("%d load unit(s) failed in last %dh: %s",
			snap.LoadsFailed, snap.LookbackHours, strings.Join(snap.FailedUnits, ", ")),
		Details: map[string]any{"failed": snap.LoadsFailed, "total": snap.LoadsTotal, "units": snap.FailedUnits},
	}, true
}

func emptyWarehouse(_ config.MonitoringConfig, snap *Snapshot) (Alert, bool) {
	if snap.Parcels > 0 {
		return Alert{}, false
	}
	return Alert{Type: AlertEmptyWarehouse, Severity: SeverityHigh, Message: "warehouse holds no parcels"}, true
}

// lowZipCoverage stays quiet on an empty warehouse, which emptyWarehouse
// already reports.
func lowZipCoverage(cfg config.MonitoringConfig, snap *Snapshot) (Alert, bool) {
	threshold := cfg.ZipCoverageThreshold
	if threshold <= 0 || snap.Parcels == 0 || snap.ZipCoverage >= threshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertLowZipCoverage,
		Severity: SeverityLow,
		Message: fmt.Sprintf("zip coverage %.1f%% is below %.1f%% (%d of %d parcels)",
			snap.ZipCoverage*100, threshold*100, snap.ParcelsWithZip, snap.Parcels),
		Details: map[string]any{"coverage": snap.ZipCoverage, "threshold": threshold, "parcels": snap.Parcels, "with_zip": snap.ParcelsWithZip},
	}, true
}

// Alerter turns snapshots into alerts and delivers them.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter. An empty WebhookURL means alerts are only
// logged.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Evaluate runs every rule against snap. Alerts are stamped with the
// snapshot time.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	at := snap.CollectedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var alerts []Alert
	for _, r := range rules {
		if alert, ok := r(a.cfg, snap); ok {
			alert.Timestamp = at
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// SendAlerts logs every alert and posts it to the webhook when one is
// configured. It returns the number the webhook accepted.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	log := zap.L().With(zap.String("component", "monitoring"))
	sent := 0
	for _, alert := range alerts {
		fields := []zap.Field{
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.String("message", alert.Message),
		}
		if a.cfg.WebhookURL == "" {
			log.Warn("alert", fields...)
			continue
		}
		if err := a.post(ctx, alert); err != nil {
			log.Error("alert not delivered", append(fields, zap.Error(err))...)
			continue
		}
		log.Warn("alert delivered", fields...)
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Text:  fmt.Sprintf("[%s] %s", alert.Severity, alert.Message),
		Alert: alert,
	})
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 300 {
		return eris.Errorf("monitoring: webhook status %d", resp.StatusCode)
	}
	return nil
}
