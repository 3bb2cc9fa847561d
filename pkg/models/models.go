// Package models holds the plain-struct row representations of the
// persistence layer described in SPEC_FULL.md §3. Every entity is
// tenant-scoped by UserID; row-level security on the Postgres side
// filters by the session variable set in pkg/dbx.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IncidentStatus enumerates the lifecycle states of an Incident.
type IncidentStatus string

const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusAnalyzed      IncidentStatus = "analyzed"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusMerged        IncidentStatus = "merged"
)

// AuroraStatus tracks the state of the agentic investigation attached
// to an incident, independent of the incident's own lifecycle status.
type AuroraStatus string

const (
	AuroraStatusIdle    AuroraStatus = "idle"
	AuroraStatusRunning AuroraStatus = "running"
	AuroraStatusComplete AuroraStatus = "complete"
	AuroraStatusError   AuroraStatus = "error"
)

// CorrelationStrategy names the rule that attached a RawAlertEvent to
// an Incident via an IncidentAlert edge.
type CorrelationStrategy string

const (
	CorrelationPrimary           CorrelationStrategy = "primary"
	CorrelationIdentity          CorrelationStrategy = "identity"
	CorrelationFingerprint       CorrelationStrategy = "service_fingerprint"
	CorrelationServiceTimeWindow CorrelationStrategy = "service_time_window"
	CorrelationManual            CorrelationStrategy = "manual"
)

// SuggestionType enumerates the kinds of IncidentSuggestion.
type SuggestionType string

const (
	SuggestionDiagnostic    SuggestionType = "diagnostic"
	SuggestionMitigation    SuggestionType = "mitigation"
	SuggestionCommunication SuggestionType = "communication"
	SuggestionFix           SuggestionType = "fix"
)

// ChatSessionStatus enumerates the lifecycle of a ChatSession.
type ChatSessionStatus string

const (
	ChatStatusActive      ChatSessionStatus = "active"
	ChatStatusInProgress  ChatSessionStatus = "in_progress"
	ChatStatusCompleted   ChatSessionStatus = "completed"
	ChatStatusCancelled   ChatSessionStatus = "cancelled"
)

// RawAlertEvent is an immutable append-only record of a single webhook
// delivery, one table per source in Postgres but one Go shape here
// (the Source field distinguishes the table at the dbx layer).
type RawAlertEvent struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"user_id"`
	Source       string          `json:"source"` // pagerduty, grafana, datadog, netdata, splunk, dynatrace, jenkins
	ExternalID   string          `json:"external_id"`
	Title        string          `json:"title"`
	Severity     string          `json:"severity"`
	Service      string          `json:"service"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	ReceivedAt   time.Time       `json:"received_at"`
}

// Incident aggregates one or more correlated alerts into a single
// durable operational record.
type Incident struct {
	ID                   uuid.UUID         `json:"id"`
	UserID               string            `json:"user_id"`
	SourceType           string            `json:"source_type"`
	SourceAlertID        string            `json:"source_alert_id"`
	Status               IncidentStatus    `json:"status"`
	AuroraStatus         AuroraStatus      `json:"aurora_status"`
	Severity             string            `json:"severity"`
	AlertTitle           string            `json:"alert_title"`
	AlertService         string            `json:"alert_service"`
	AffectedServices     []string          `json:"affected_services"`
	CorrelatedAlertCount int               `json:"correlated_alert_count"`
	AuroraSummary        *string           `json:"aurora_summary"`
	AuroraChatSessionID  *uuid.UUID        `json:"aurora_chat_session_id"`
	ActiveTab            string            `json:"active_tab"`
	AlertMetadata        json.RawMessage   `json:"alert_metadata"`
	MergedIntoIncidentID *uuid.UUID        `json:"merged_into_incident_id"`
	SlackMessageTS       string            `json:"slack_message_ts"`
	StartedAt            time.Time         `json:"started_at"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsMerged reports whether the incident has been folded into another.
func (i *Incident) IsMerged() bool {
	return i.Status == IncidentStatusMerged
}

// IncidentAlert is the edge linking an Incident to a RawAlertEvent.
type IncidentAlert struct {
	ID                  uuid.UUID           `json:"id"`
	IncidentID          uuid.UUID           `json:"incident_id"`
	RawAlertEventID     uuid.UUID           `json:"raw_alert_event_id"`
	Source              string              `json:"source"`
	CorrelationStrategy CorrelationStrategy `json:"correlation_strategy"`
	CorrelationScore    float64             `json:"correlation_score"`
	CorrelationDetails  json.RawMessage     `json:"correlation_details"`
	ReceivedAt          time.Time           `json:"received_at"`
	CreatedAt           time.Time           `json:"created_at"`
}

// IncidentThought is an append-only free-text investigation trace
// entry recorded while an RCA is running.
type IncidentThought struct {
	ID          uuid.UUID `json:"id"`
	IncidentID  uuid.UUID `json:"incident_id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"` // e.g. "analysis"
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// IncidentCitation is a numbered evidence item produced by a tool call
// during an investigation.
type IncidentCitation struct {
	ID          uuid.UUID `json:"id"`
	IncidentID  uuid.UUID `json:"incident_id"`
	UserID      string    `json:"user_id"`
	CitationKey string    `json:"citation_key"` // numeric string, unique per incident
	ToolName    string    `json:"tool_name"`
	Command     string    `json:"command"`
	Output      string    `json:"output"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// IncidentSuggestion is a proposed next action, optionally carrying a
// fix's file-patch fields.
type IncidentSuggestion struct {
	ID            uuid.UUID      `json:"id"`
	IncidentID    uuid.UUID      `json:"incident_id"`
	UserID        string         `json:"user_id"`
	Type          SuggestionType `json:"type"`
	Risk          string         `json:"risk"` // e.g. "safe"
	Description   string         `json:"description"`
	Command       *string        `json:"command,omitempty"`

	// Fix-type patch fields; empty for non-fix suggestions.
	FilePath      string     `json:"file_path,omitempty"`
	Original      string     `json:"original,omitempty"`
	Suggested     string     `json:"suggested,omitempty"`
	UserEdited    bool       `json:"user_edited,omitempty"`
	Repo          string     `json:"repo,omitempty"`
	PRURL         string     `json:"pr_url,omitempty"`
	PRNumber      int        `json:"pr_number,omitempty"`
	CreatedBranch string     `json:"created_branch,omitempty"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FixSuggestionPatch is the normalized patch record backing a fix-type
// IncidentSuggestion, stored separately so patches can be listed and
// diffed independent of the suggestion feed.
type FixSuggestionPatch struct {
	ID            uuid.UUID  `json:"id"`
	SuggestionID  uuid.UUID  `json:"suggestion_id"`
	FilePath      string     `json:"file_path"`
	Original      string     `json:"original"`
	Suggested     string     `json:"suggested"`
	UserEdited    bool       `json:"user_edited"`
	Repo          string     `json:"repo"`
	PRURL         string     `json:"pr_url,omitempty"`
	PRNumber      int        `json:"pr_number,omitempty"`
	CreatedBranch string     `json:"created_branch,omitempty"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ChatSession is one logical conversation: a monotonically growing
// context plus a UI-shaped projection.
type ChatSession struct {
	ID                uuid.UUID         `json:"id"`
	UserID            string            `json:"user_id"`
	Title             string            `json:"title"`
	Messages          json.RawMessage   `json:"messages"`           // UI-shaped array
	LLMContextHistory json.RawMessage   `json:"llm_context_history"` // model-shaped array
	UIState           json.RawMessage   `json:"ui_state"`
	Status            ChatSessionStatus `json:"status"`
	IncidentID        *uuid.UUID        `json:"incident_id"`
	TriggerMetadata   json.RawMessage   `json:"trigger_metadata,omitempty"`
	IsActive          bool              `json:"is_active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
