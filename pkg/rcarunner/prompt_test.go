package rcarunner

import (
	"strings"
	"testing"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

func TestBuildInvestigationPrompt_IncludesRunbookWhenPresent(t *testing.T) {
	inc := &models.Incident{
		AlertTitle:       "Database down",
		AlertService:     "payments-api",
		Severity:         "critical",
		Status:           models.IncidentStatusInvestigating,
		SourceType:       "pagerduty",
		SourceAlertID:    "Q123",
		AffectedServices: []string{"payments-api", "checkout"},
	}
	prompt := buildInvestigationPrompt(inc, "1. Check connection pool\n2. Restart primary")

	if !strings.Contains(prompt, "=== RUNBOOK ===") {
		t.Fatal("expected runbook section when content is non-empty")
	}
	if !strings.Contains(prompt, "Check connection pool") {
		t.Fatal("expected runbook content to be included")
	}
	if !strings.Contains(prompt, "=== INCIDENT DETAILS ===") {
		t.Fatal("expected incident details section")
	}
	if !strings.Contains(prompt, "payments-api, checkout") {
		t.Fatalf("expected affected services joined, got: %s", prompt)
	}
}

func TestBuildInvestigationPrompt_OmitsRunbookSectionWhenEmpty(t *testing.T) {
	inc := &models.Incident{AlertTitle: "Latency spike", AlertService: "checkout", Severity: "high"}
	prompt := buildInvestigationPrompt(inc, "")

	if strings.Contains(prompt, "=== RUNBOOK ===") {
		t.Fatal("did not expect a runbook section with no content")
	}
	if !strings.Contains(prompt, "Latency spike") {
		t.Fatal("expected incident title present")
	}
}

func TestRunbookLinkFromMetadata_ExtractsCustomField(t *testing.T) {
	meta := []byte(`{"customFields":{"runbook_link":"https://example.com/runbook.md","other":"x"}}`)
	if got := runbookLinkFromMetadata(meta); got != "https://example.com/runbook.md" {
		t.Fatalf("expected runbook link extracted, got %q", got)
	}
}

func TestRunbookLinkFromMetadata_EmptyOrMissing(t *testing.T) {
	if got := runbookLinkFromMetadata(nil); got != "" {
		t.Fatalf("expected empty string for nil metadata, got %q", got)
	}
	if got := runbookLinkFromMetadata([]byte(`{"customFields":{}}`)); got != "" {
		t.Fatalf("expected empty string when runbook_link absent, got %q", got)
	}
}

func TestBuildMergeContextPrompt_AppendsContinuationInstruction(t *testing.T) {
	got := buildMergeContextPrompt("=== MERGED INCIDENT: foo ===\nSummary: bar\n")
	if !strings.Contains(got, "=== MERGED INCIDENT: foo ===") {
		t.Fatal("expected original block preserved")
	}
	if !strings.Contains(got, "Continue the investigation") {
		t.Fatal("expected continuation instruction appended")
	}
}
