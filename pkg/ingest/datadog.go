package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// datadogWebhook mirrors a Datadog monitor-notification webhook
// (configured via a custom webhook integration with the standard
// $ID/$EVENT_TYPE/$ALERT_TRANSITION template variables).
type datadogWebhook struct {
	AlertID          string `json:"alert_id"`
	AlertTitle       string `json:"alert_title"`
	AlertType        string `json:"alert_type"` // e.g. "error", "warning", "success"
	AlertTransition  string `json:"alert_transition"`
	EventType        string `json:"event_type"` // "trigger", "re-trigger", "recovery"
	HostName         string `json:"host"`
	Priority         string `json:"priority"` // "P1".."P5"
	Tags             string `json:"tags"`
	LastUpdatedEpoch int64  `json:"last_updated"`
}

// NormalizeDatadog implements §4.6 step 1 for Datadog monitor webhooks.
func NormalizeDatadog(payload []byte) (NormalizedAlert, error) {
	var wh datadogWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("datadog: invalid payload: %w", err)
	}
	if wh.AlertID == "" {
		return NormalizedAlert{}, fmt.Errorf("datadog: missing alert_id")
	}

	title := wh.AlertTitle
	if title == "" {
		title = "Datadog monitor alert"
	}

	service := serviceFromTags(wh.Tags)

	status := models.IncidentStatusInvestigating
	transition := strings.ToLower(wh.AlertTransition)
	if transition == "" {
		transition = strings.ToLower(wh.EventType)
	}
	if transition == "recovery" || transition == "ok" {
		status = models.IncidentStatusResolved
	}

	received := time.Now()
	if wh.LastUpdatedEpoch > 0 {
		received = time.UnixMilli(wh.LastUpdatedEpoch)
	}

	return NormalizedAlert{
		ExternalID:      wh.AlertID,
		Title:           title,
		Status:          status,
		Severity:        datadogSeverity(wh.Priority, wh.AlertType),
		Service:         service,
		ReceivedAt:      received,
		IsCreationEvent: transition == "trigger" || transition == "re-trigger",
	}, nil
}

// serviceFromTags pulls the "service:" tag out of Datadog's
// space-separated tag string, falling back to "unknown".
func serviceFromTags(tags string) string {
	for _, tag := range strings.Fields(tags) {
		if strings.HasPrefix(tag, "service:") {
			return strings.TrimPrefix(tag, "service:")
		}
	}
	return "unknown"
}

func datadogSeverity(priority, alertType string) string {
	switch strings.ToUpper(priority) {
	case "P1":
		return "critical"
	case "P2":
		return "high"
	case "P3":
		return "medium"
	case "P4", "P5":
		return "low"
	}
	if strings.EqualFold(alertType, "error") {
		return "high"
	}
	return "medium"
}
