package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// grafanaWebhook mirrors Grafana's unified-alerting webhook contact
// point payload: a batch envelope with a top-level status plus one or
// more individual alerts, each carrying its own fingerprint.
type grafanaWebhook struct {
	Status string `json:"status"` // "firing" or "resolved" for the whole group
	Alerts []struct {
		Status      string            `json:"status"`
		Fingerprint string            `json:"fingerprint"`
		Labels      map[string]string `json:"labels"`
		Annotations map[string]string `json:"annotations"`
		StartsAt    time.Time         `json:"startsAt"`
	} `json:"alerts"`
}

// NormalizeGrafana implements §4.6 step 1 for Grafana unified-alerting
// webhooks, taking the first alert in the batch as representative
// (Grafana sends one webhook call per status transition per group).
func NormalizeGrafana(payload []byte) (NormalizedAlert, error) {
	var wh grafanaWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("grafana: invalid payload: %w", err)
	}
	if len(wh.Alerts) == 0 {
		return NormalizedAlert{}, fmt.Errorf("grafana: no alerts in payload")
	}
	a := wh.Alerts[0]

	title := a.Annotations["summary"]
	if title == "" {
		title = a.Labels["alertname"]
	}
	if title == "" {
		title = "Grafana alert"
	}

	service := a.Labels["service"]
	if service == "" {
		service = a.Labels["job"]
	}
	if service == "" {
		service = "unknown"
	}

	status := models.IncidentStatusInvestigating
	if strings.EqualFold(a.Status, "resolved") {
		status = models.IncidentStatusResolved
	}

	received := a.StartsAt
	if received.IsZero() {
		received = time.Now()
	}

	return NormalizedAlert{
		ExternalID:      a.Fingerprint,
		Title:           title,
		Status:          status,
		Severity:        grafanaSeverity(a.Labels["severity"]),
		Service:         service,
		IdentityKey:     a.Fingerprint,
		IsCreationEvent: strings.EqualFold(a.Status, "firing"),
		ReceivedAt:      received,
	}, nil
}

func grafanaSeverity(label string) string {
	switch strings.ToLower(label) {
	case "critical", "high", "medium", "low":
		return strings.ToLower(label)
	case "warning":
		return "medium"
	default:
		return "medium"
	}
}
