package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// pagerDutyWebhook is the V3 webhook envelope: event.data IS the
// incident object for ordinary lifecycle events, and holds a nested
// incident reference plus a custom_fields array for
// incident.custom_field_values.updated events.
type pagerDutyWebhook struct {
	Event struct {
		EventType string          `json:"event_type"`
		Data      json.RawMessage `json:"data"`
	} `json:"event"`
}

type pagerDutyIncident struct {
	ID          string `json:"id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Urgency     string `json:"urgency"`
	IncidentKey string `json:"incident_key"`
	Priority    struct {
		Name string `json:"name"`
	} `json:"priority"`
	Service struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
	} `json:"service"`
}

type pagerDutyCustomFieldUpdate struct {
	Incident struct {
		ID string `json:"id"`
	} `json:"incident"`
	CustomFields []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"custom_fields"`
}

// NormalizePagerDuty implements §4.6 step 1 for PagerDuty V3 webhooks.
func NormalizePagerDuty(payload []byte) (NormalizedAlert, error) {
	var wh pagerDutyWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("pagerduty: invalid payload: %w", err)
	}

	if wh.Event.EventType == "incident.custom_field_values.updated" {
		var upd pagerDutyCustomFieldUpdate
		if err := json.Unmarshal(wh.Event.Data, &upd); err != nil {
			return NormalizedAlert{}, fmt.Errorf("pagerduty: invalid custom field payload: %w", err)
		}
		fields := make(map[string]string, len(upd.CustomFields))
		for _, f := range upd.CustomFields {
			if f.Name != "" && f.Value != "" {
				fields[f.Name] = f.Value
			}
		}
		return NormalizedAlert{
			ExternalID:          upd.Incident.ID,
			IsCustomFieldUpdate: true,
			CustomFields:        fields,
			ReceivedAt:          time.Now(),
		}, nil
	}

	var inc pagerDutyIncident
	if err := json.Unmarshal(wh.Event.Data, &inc); err != nil {
		return NormalizedAlert{}, fmt.Errorf("pagerduty: invalid incident payload: %w", err)
	}
	if inc.ID == "" {
		return NormalizedAlert{}, fmt.Errorf("pagerduty: missing incident id")
	}

	title := inc.Title
	if title == "" {
		title = "Untitled Incident"
	}

	service := inc.Service.Summary
	if service == "" {
		service = "unknown"
	}

	return NormalizedAlert{
		ExternalID:      inc.ID,
		Title:           title,
		Status:          pagerDutyStatus(inc.Status),
		Severity:        pagerDutySeverity(inc.Priority.Name, inc.Urgency),
		Service:         service,
		IdentityKey:     inc.IncidentKey,
		IsCreationEvent: wh.Event.EventType == "incident.triggered",
		ReceivedAt:      time.Now(),
	}, nil
}

func pagerDutyStatus(status string) models.IncidentStatus {
	if strings.EqualFold(status, "resolved") {
		return models.IncidentStatusResolved
	}
	return models.IncidentStatusInvestigating
}

func pagerDutySeverity(priorityName, urgency string) string {
	p := strings.ToLower(priorityName)
	switch {
	case strings.Contains(p, "p1") || strings.Contains(p, "critical") || strings.Contains(p, "sev1"):
		return "critical"
	case strings.Contains(p, "p2") || strings.Contains(p, "high") || strings.Contains(p, "sev2"):
		return "high"
	case strings.Contains(p, "p3") || strings.Contains(p, "medium") || strings.Contains(p, "sev3"):
		return "medium"
	case strings.Contains(p, "p4") || strings.Contains(p, "low") || strings.Contains(p, "sev4"):
		return "low"
	}
	if strings.EqualFold(urgency, "high") {
		return "high"
	}
	return "medium"
}
