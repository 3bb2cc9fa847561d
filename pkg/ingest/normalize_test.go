package ingest

import (
	"testing"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

func TestNormalizePagerDuty_Triggered(t *testing.T) {
	payload := []byte(`{
		"event": {
			"event_type": "incident.triggered",
			"data": {
				"id": "Q123",
				"title": "Database down",
				"status": "triggered",
				"urgency": "high",
				"incident_key": "db-down-1",
				"priority": {"name": "P1"},
				"service": {"id": "S1", "summary": "payments-api"}
			}
		}
	}`)

	norm, err := NormalizePagerDuty(payload)
	if err != nil {
		t.Fatal(err)
	}
	if norm.ExternalID != "Q123" || norm.Service != "payments-api" || norm.Severity != "critical" {
		t.Fatalf("unexpected normalization: %+v", norm)
	}
	if !norm.IsCreationEvent {
		t.Fatal("expected incident.triggered to be a creation event")
	}
	if norm.Status != models.IncidentStatusInvestigating {
		t.Fatalf("expected investigating status, got %s", norm.Status)
	}
}

func TestNormalizePagerDuty_CustomFieldUpdate(t *testing.T) {
	payload := []byte(`{
		"event": {
			"event_type": "incident.custom_field_values.updated",
			"data": {
				"incident": {"id": "Q123"},
				"custom_fields": [{"name": "runbook_link", "value": "https://example.com/runbook.md"}]
			}
		}
	}`)

	norm, err := NormalizePagerDuty(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !norm.IsCustomFieldUpdate {
		t.Fatal("expected custom field update")
	}
	if norm.CustomFields["runbook_link"] != "https://example.com/runbook.md" {
		t.Fatalf("expected runbook_link custom field, got %+v", norm.CustomFields)
	}
}

func TestNormalizeGrafana_FiringAndResolved(t *testing.T) {
	firing := []byte(`{
		"status": "firing",
		"alerts": [{
			"status": "firing",
			"fingerprint": "abc123",
			"labels": {"alertname": "HighCPU", "service": "api", "severity": "critical"},
			"annotations": {"summary": "CPU above threshold"}
		}]
	}`)
	norm, err := NormalizeGrafana(firing)
	if err != nil {
		t.Fatal(err)
	}
	if !norm.IsCreationEvent || norm.Severity != "critical" || norm.Service != "api" {
		t.Fatalf("unexpected normalization: %+v", norm)
	}

	resolved := []byte(`{
		"status": "resolved",
		"alerts": [{"status": "resolved", "fingerprint": "abc123", "labels": {"alertname": "HighCPU"}}]
	}`)
	norm, err = NormalizeGrafana(resolved)
	if err != nil {
		t.Fatal(err)
	}
	if norm.Status != models.IncidentStatusResolved || norm.IsCreationEvent {
		t.Fatalf("expected resolved, non-creation normalization, got %+v", norm)
	}
}

func TestNormalizeDatadog_Trigger(t *testing.T) {
	payload := []byte(`{
		"alert_id": "d-1",
		"alert_title": "Latency spike",
		"alert_transition": "Triggered",
		"priority": "P2",
		"tags": "env:prod service:checkout"
	}`)
	norm, err := NormalizeDatadog(payload)
	if err != nil {
		t.Fatal(err)
	}
	if norm.Service != "checkout" || norm.Severity != "high" || !norm.IsCreationEvent {
		t.Fatalf("unexpected normalization: %+v", norm)
	}
}

func TestNormalizeJenkins_FailureIsCreationEvent(t *testing.T) {
	payload := []byte(`{
		"name": "deploy-prod",
		"build": {"number": 42, "phase": "FINALIZED", "status": "FAILURE"}
	}`)
	norm, err := NormalizeJenkins(payload)
	if err != nil {
		t.Fatal(err)
	}
	if norm.ExternalID != "deploy-prod#42" || !norm.IsCreationEvent || norm.Severity != "high" {
		t.Fatalf("unexpected normalization: %+v", norm)
	}
}

func TestNormalizeJenkins_SuccessIsNotCreationEvent(t *testing.T) {
	payload := []byte(`{
		"name": "deploy-prod",
		"build": {"number": 43, "phase": "FINALIZED", "status": "SUCCESS"}
	}`)
	norm, err := NormalizeJenkins(payload)
	if err != nil {
		t.Fatal(err)
	}
	if norm.IsCreationEvent || norm.Status != models.IncidentStatusResolved {
		t.Fatalf("expected resolved non-creation normalization, got %+v", norm)
	}
}

func TestNormalize_UnknownSource(t *testing.T) {
	if _, err := Normalize("unknown", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestNormalize_DispatchesToRegisteredSource(t *testing.T) {
	payload := []byte(`{
		"ProblemID": "P-1",
		"State": "OPEN",
		"ProblemTitle": "Host down",
		"ImpactedEntity": "host-1",
		"SeverityLevel": "AVAILABILITY"
	}`)
	norm, err := Normalize("dynatrace", payload)
	if err != nil {
		t.Fatal(err)
	}
	if norm.ExternalID != "P-1" || norm.Severity != "critical" {
		t.Fatalf("unexpected normalization: %+v", norm)
	}
}
