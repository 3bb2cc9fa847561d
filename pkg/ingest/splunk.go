package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// splunkWebhook mirrors a Splunk alert action's webhook payload (the
// "Send to webhook" alert action posts this shape, with sid as the
// search-job identifier used to deduplicate re-fires of a scheduled
// search).
type splunkWebhook struct {
	SID            string `json:"sid"`
	SearchName     string `json:"search_name"`
	App            string `json:"app"`
	OwnerApp       string `json:"owner_app"`
	ResultsLink    string `json:"results_link"`
	TriggerTime    int64  `json:"trigger_time"`
	Severity       string `json:"severity"` // "critical", "high", "medium", "low", "informational"
	SearchType     string `json:"search_type"`
}

// NormalizeSplunk implements §4.6 step 1 for Splunk alert-action
// webhooks. Splunk has no native "resolved" notion for saved-search
// alerts, so every event is a creation event scoped by sid.
func NormalizeSplunk(payload []byte) (NormalizedAlert, error) {
	var wh splunkWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("splunk: invalid payload: %w", err)
	}
	if wh.SID == "" {
		return NormalizedAlert{}, fmt.Errorf("splunk: missing sid")
	}

	title := wh.SearchName
	if title == "" {
		title = "Splunk saved search alert"
	}

	service := wh.App
	if service == "" {
		service = wh.OwnerApp
	}
	if service == "" {
		service = "unknown"
	}

	received := time.Now()
	if wh.TriggerTime > 0 {
		received = time.Unix(wh.TriggerTime, 0)
	}

	return NormalizedAlert{
		ExternalID:      wh.SID,
		Title:           title,
		Status:          models.IncidentStatusInvestigating,
		Severity:        splunkSeverity(wh.Severity),
		Service:         service,
		ReceivedAt:      received,
		IsCreationEvent: true,
	}, nil
}

func splunkSeverity(severity string) string {
	s := strings.ToLower(severity)
	switch s {
	case "critical", "high", "medium", "low":
		return s
	case "informational":
		return "low"
	default:
		return "medium"
	}
}
