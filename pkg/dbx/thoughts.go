package dbx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
	"github.com/google/uuid"
)

// InsertThought appends a timestamped investigation trace entry.
func InsertThought(ctx context.Context, q Querier, t *models.IncidentThought) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO incident_thoughts (id, incident_id, user_id, type, text, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.IncidentID, t.UserID, t.Type, t.Text, t.CreatedAt,
	)
	return err
}

// TrailingThoughts returns the last n thoughts for an incident, oldest
// first, used by the merge context-update (§4.6 step 5, ≤20 thoughts).
func TrailingThoughts(ctx context.Context, q Querier, incidentID uuid.UUID, n int) ([]*models.IncidentThought, error) {
	rows, err := q.Query(ctx, `
		SELECT id, incident_id, user_id, type, text, created_at
		FROM incident_thoughts WHERE incident_id = $1
		ORDER BY created_at DESC LIMIT $2`, incidentID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.IncidentThought
	for rows.Next() {
		t := &models.IncidentThought{}
		if err := rows.Scan(&t.ID, &t.IncidentID, &t.UserID, &t.Type, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	// reverse into chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// InsertCitation records a numbered evidence item, unique per (incident, key).
func InsertCitation(ctx context.Context, q Querier, c *models.IncidentCitation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ExecutedAt.IsZero() {
		c.ExecutedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO incident_citations (id, incident_id, user_id, citation_key, tool_name, command, output, executed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (incident_id, citation_key) DO NOTHING`,
		c.ID, c.IncidentID, c.UserID, c.CitationKey, c.ToolName, c.Command, c.Output, c.ExecutedAt,
	)
	return err
}

// InsertSuggestion records a proposed next action.
func InsertSuggestion(ctx context.Context, q Querier, s *models.IncidentSuggestion) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO incident_suggestions (
			id, incident_id, user_id, type, risk, description, command,
			file_path, original, suggested, user_edited, repo, pr_url, pr_number, created_branch, applied_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		s.ID, s.IncidentID, s.UserID, s.Type, s.Risk, s.Description, s.Command,
		s.FilePath, s.Original, s.Suggested, s.UserEdited, s.Repo, s.PRURL, s.PRNumber, s.CreatedBranch, s.AppliedAt, s.CreatedAt,
	)
	return err
}

// UpdateIncidentSummary sets aurora_summary and aurora_status after an
// RCA run completes (or fails).
func UpdateIncidentSummary(ctx context.Context, q Querier, incidentID uuid.UUID, summary string, status models.AuroraStatus) error {
	_, err := q.Exec(ctx, `
		UPDATE incidents SET aurora_summary = $2, aurora_status = $3, updated_at = now()
		WHERE id = $1`, incidentID, summary, status)
	return err
}

// MergeAlertMetadata merges patch into the incident's alert_metadata
// JSONB column, new keys taking precedence (used for custom-field
// events like a late-arriving runbook link).
func MergeAlertMetadata(ctx context.Context, q Querier, incidentID uuid.UUID, patch json.RawMessage) error {
	if len(patch) == 0 {
		patch = json.RawMessage("{}")
	}
	_, err := q.Exec(ctx, `
		UPDATE incidents SET alert_metadata = alert_metadata || $2::jsonb, updated_at = now()
		WHERE id = $1`, incidentID, patch)
	return err
}
