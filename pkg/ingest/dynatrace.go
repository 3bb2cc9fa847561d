package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// dynatraceWebhook mirrors a Dynatrace problem-notification webhook
// (the built-in "Custom integration" payload template).
type dynatraceWebhook struct {
	ProblemID      string `json:"ProblemID"`
	PID            string `json:"PID"`
	State          string `json:"State"` // "OPEN" or "RESOLVED"
	ProblemTitle   string `json:"ProblemTitle"`
	ImpactedEntity string `json:"ImpactedEntity"`
	SeverityLevel  string `json:"SeverityLevel"` // "AVAILABILITY", "ERROR", "PERFORMANCE", "RESOURCE_CONTENTION", "CUSTOM_ALERT"
	ImpactLevel    string `json:"ImpactLevel"`   // "APPLICATION", "SERVICE", "INFRASTRUCTURE"
}

// NormalizeDynatrace implements §4.6 step 1 for Dynatrace problem
// webhooks.
func NormalizeDynatrace(payload []byte) (NormalizedAlert, error) {
	var wh dynatraceWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("dynatrace: invalid payload: %w", err)
	}
	id := wh.ProblemID
	if id == "" {
		id = wh.PID
	}
	if id == "" {
		return NormalizedAlert{}, fmt.Errorf("dynatrace: missing ProblemID")
	}

	title := wh.ProblemTitle
	if title == "" {
		title = "Dynatrace problem"
	}

	service := wh.ImpactedEntity
	if service == "" {
		service = "unknown"
	}

	status := models.IncidentStatusInvestigating
	if strings.EqualFold(wh.State, "RESOLVED") {
		status = models.IncidentStatusResolved
	}

	return NormalizedAlert{
		ExternalID:      id,
		Title:           title,
		Status:          status,
		Severity:        dynatraceSeverity(wh.SeverityLevel, wh.ImpactLevel),
		Service:         service,
		ReceivedAt:      time.Now(),
		IsCreationEvent: strings.EqualFold(wh.State, "OPEN"),
	}, nil
}

func dynatraceSeverity(severityLevel, impactLevel string) string {
	switch strings.ToUpper(severityLevel) {
	case "AVAILABILITY":
		return "critical"
	case "ERROR":
		return "high"
	case "PERFORMANCE", "RESOURCE_CONTENTION":
		return "medium"
	}
	if strings.EqualFold(impactLevel, "APPLICATION") {
		return "high"
	}
	return "medium"
}
