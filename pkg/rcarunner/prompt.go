package rcarunner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// buildInvestigationPrompt assembles the initial user turn for a
// delayed-RCA-triggered chat session: the resolved runbook content (if
// any) prepended to the incident's alert details, matching the
// "=== RUNBOOK === / === INCIDENT DETAILS ===" structure the original
// Python trigger_delayed_rca task builds before handing off to the
// chat agent.
func buildInvestigationPrompt(inc *models.Incident, runbookContent string) string {
	var b strings.Builder
	if runbookContent != "" {
		b.WriteString("=== RUNBOOK ===\n")
		b.WriteString(runbookContent)
		b.WriteString("\n\n")
	}
	b.WriteString("=== INCIDENT DETAILS ===\n")
	fmt.Fprintf(&b, "Title: %s\n", inc.AlertTitle)
	fmt.Fprintf(&b, "Service: %s\n", inc.AlertService)
	fmt.Fprintf(&b, "Severity: %s\n", inc.Severity)
	fmt.Fprintf(&b, "Status: %s\n", inc.Status)
	fmt.Fprintf(&b, "Source: %s (%s)\n", inc.SourceType, inc.SourceAlertID)
	if len(inc.AffectedServices) > 0 {
		fmt.Fprintf(&b, "Affected services: %s\n", strings.Join(inc.AffectedServices, ", "))
	}
	if inc.CorrelatedAlertCount > 1 {
		fmt.Fprintf(&b, "Correlated alerts: %d\n", inc.CorrelatedAlertCount)
	}
	b.WriteString("\nInvestigate the root cause and propose remediation.\n")
	return b.String()
}

// runbookLinkFromMetadata extracts a custom-field runbook link merged
// into alert_metadata.customFields (§4.6 step 1's custom-field-update
// branch), if the source ever sent one.
func runbookLinkFromMetadata(meta json.RawMessage) string {
	if len(meta) == 0 {
		return ""
	}
	var parsed struct {
		CustomFields map[string]string `json:"customFields"`
	}
	if err := json.Unmarshal(meta, &parsed); err != nil {
		return ""
	}
	return parsed.CustomFields["runbook_link"]
}

// buildMergeContextPrompt mirrors ingest.buildMergeContextBlock's shape
// but as the chat-turn-injection text rcarunner appends to a live
// investigation's context when a second incident merges into it.
func buildMergeContextPrompt(block string) string {
	return block + "\n\nContinue the investigation accounting for the merged incident above."
}
