package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// jenkinsWebhook mirrors the Jenkins Notification Plugin's webhook
// payload (build lifecycle event posted as JSON).
type jenkinsWebhook struct {
	Name  string `json:"name"` // job name
	URL   string `json:"url"`
	Build struct {
		Number    int    `json:"number"`
		Phase     string `json:"phase"` // "STARTED", "COMPLETED", "FINALIZED"
		Status    string `json:"status"` // "SUCCESS", "FAILURE", "UNSTABLE", "ABORTED"
		Timestamp int64  `json:"timestamp"`
		FullURL   string `json:"full_url"`
	} `json:"build"`
}

// NormalizeJenkins implements §4.6 step 1 for Jenkins build
// notifications. Only FINALIZED events with a non-SUCCESS status open
// or update an incident; other phases/statuses are no-ops represented
// as a resolved, non-creation event so the pipeline still records the
// raw event without opening new work.
func NormalizeJenkins(payload []byte) (NormalizedAlert, error) {
	var wh jenkinsWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return NormalizedAlert{}, fmt.Errorf("jenkins: invalid payload: %w", err)
	}
	if wh.Name == "" || wh.Build.Number == 0 {
		return NormalizedAlert{}, fmt.Errorf("jenkins: missing job name or build number")
	}

	externalID := wh.Name + "#" + strconv.Itoa(wh.Build.Number)
	title := fmt.Sprintf("Build failure: %s #%d", wh.Name, wh.Build.Number)

	isFailure := strings.EqualFold(wh.Build.Phase, "FINALIZED") &&
		(strings.EqualFold(wh.Build.Status, "FAILURE") || strings.EqualFold(wh.Build.Status, "UNSTABLE"))

	status := models.IncidentStatusResolved
	if isFailure {
		status = models.IncidentStatusInvestigating
	}

	received := time.Now()
	if wh.Build.Timestamp > 0 {
		received = time.UnixMilli(wh.Build.Timestamp)
	}

	return NormalizedAlert{
		ExternalID:      externalID,
		Title:           title,
		Status:          status,
		Severity:        jenkinsSeverity(wh.Build.Status),
		Service:         wh.Name,
		ReceivedAt:      received,
		IsCreationEvent: isFailure,
	}, nil
}

func jenkinsSeverity(status string) string {
	switch strings.ToUpper(status) {
	case "FAILURE":
		return "high"
	case "UNSTABLE":
		return "medium"
	default:
		return "low"
	}
}
