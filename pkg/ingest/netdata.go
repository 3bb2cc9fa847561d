package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// netdataWebhook mirrors Netdata's alarm-notification custom webhook
// payload (one call per alarm state transition).
type netdataWebhook struct {
	AlarmID    json.Number `json:"alarm_id"`
	Name       string      `json:"name"`
	Status     string      `json:"status"` // "WARNING", "CRITICAL", "CLEAR"
	OldStatus  string      `json:"old_status"`
	Chart      string      `json:"chart"`
	Host       string      `json:"host"`
	WhenEpoch  int64       `json:"when"`
	Info       string      `json:"info"`
}

// NormalizeNetdata implements §4.6 step 1 for Netdata alarm webhooks.
func NormalizeNetdata(payload []byte) (NormalizedAlert, error) {
	var wh netdataWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("netdata: invalid payload: %w", err)
	}
	if wh.AlarmID.String() == "" {
		return NormalizedAlert{}, fmt.Errorf("netdata: missing alarm_id")
	}

	title := wh.Name
	if title == "" {
		title = "Netdata alarm"
	}

	service := wh.Host
	if service == "" {
		service = wh.Chart
	}
	if service == "" {
		service = "unknown"
	}

	status := models.IncidentStatusInvestigating
	if strings.EqualFold(wh.Status, "CLEAR") {
		status = models.IncidentStatusResolved
	}

	received := time.Now()
	if wh.WhenEpoch > 0 {
		received = time.Unix(wh.WhenEpoch, 0)
	}

	return NormalizedAlert{
		ExternalID:      wh.AlarmID.String(),
		Title:           title,
		Status:          status,
		Severity:        netdataSeverity(wh.Status),
		Service:         service,
		ReceivedAt:      received,
		IsCreationEvent: !strings.EqualFold(wh.OldStatus, "WARNING") && !strings.EqualFold(wh.OldStatus, "CRITICAL"),
	}, nil
}

func netdataSeverity(status string) string {
	switch strings.ToUpper(status) {
	case "CRITICAL":
		return "critical"
	case "WARNING":
		return "medium"
	default:
		return "low"
	}
}
