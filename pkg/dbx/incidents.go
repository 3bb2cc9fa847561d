package dbx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("dbx: not found")

// Querier is satisfied by both pgx.Tx and *pgxpool.Pool, letting
// repository functions run inside WithTenant/WithAdmin or directly
// against a pool for simple reads.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)
var _ Querier = (pgx.Tx)(nil)

// InsertRawAlertEvent appends an immutable raw event row.
func InsertRawAlertEvent(ctx context.Context, q Querier, e *models.RawAlertEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO raw_alert_events (id, user_id, source, external_id, title, severity, service, status, payload, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.UserID, e.Source, e.ExternalID, e.Title, e.Severity, e.Service, e.Status, e.Payload, e.ReceivedAt,
	)
	return err
}

// RawAlertEventsForIncident returns the raw events joined to an
// incident through incident_alerts, ordered oldest-first.
func RawAlertEventsForIncident(ctx context.Context, q Querier, incidentID uuid.UUID) ([]*models.RawAlertEvent, error) {
	rows, err := q.Query(ctx, `
		SELECT r.id, r.user_id, r.source, r.external_id, r.title, r.severity, r.service, r.status, r.payload, r.received_at
		FROM raw_alert_events r
		JOIN incident_alerts ia ON ia.raw_alert_event_id = r.id
		WHERE ia.incident_id = $1
		ORDER BY r.received_at ASC`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RawAlertEvent
	for rows.Next() {
		e := &models.RawAlertEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &e.ExternalID, &e.Title, &e.Severity, &e.Service, &e.Status, &e.Payload, &e.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertIncident implements the ON CONFLICT (source_type, source_alert_id, user_id)
// upsert from SPEC_FULL.md §4.6: status/severity refresh, started_at
// preserved unless the prior state was resolved, alert_metadata merged
// with user-supplied fields taking precedence over stale ones but never
// erasing previously stored custom fields.
func UpsertIncident(ctx context.Context, q Querier, in *models.Incident) (*models.Incident, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	affected, err := json.Marshal(in.AffectedServices)
	if err != nil {
		return nil, err
	}
	meta := in.AlertMetadata
	if meta == nil {
		meta = json.RawMessage("{}")
	}

	row := q.QueryRow(ctx, `
		INSERT INTO incidents (
			id, user_id, source_type, source_alert_id, status, aurora_status,
			severity, alert_title, alert_service, affected_services,
			correlated_alert_count, alert_metadata, started_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (source_type, source_alert_id, user_id) DO UPDATE SET
			status = EXCLUDED.status,
			severity = EXCLUDED.severity,
			alert_title = EXCLUDED.alert_title,
			alert_service = EXCLUDED.alert_service,
			-- started_at only rewinds forward when the incident was
			-- previously resolved and the new event is not itself resolved.
			started_at = CASE
				WHEN incidents.status = 'resolved' AND EXCLUDED.status <> 'resolved'
					THEN EXCLUDED.started_at
				ELSE incidents.started_at
			END,
			-- merge alert_metadata: new keys win, but keys only present in
			-- the stored metadata (e.g. an earlier runbook link) survive.
			alert_metadata = incidents.alert_metadata || EXCLUDED.alert_metadata,
			updated_at = now()
		RETURNING id, user_id, source_type, source_alert_id, status, aurora_status,
			severity, alert_title, alert_service, affected_services, correlated_alert_count,
			aurora_summary, aurora_chat_session_id, active_tab, alert_metadata,
			merged_into_incident_id, slack_message_ts, started_at, created_at, updated_at`,
		in.ID, in.UserID, in.SourceType, in.SourceAlertID, in.Status, in.AuroraStatus,
		in.Severity, in.AlertTitle, in.AlertService, affected, in.CorrelatedAlertCount,
		meta, firstNonZero(in.StartedAt),
	)
	return scanIncident(row)
}

func firstNonZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// GetIncident fetches an incident by id.
func GetIncident(ctx context.Context, q Querier, id uuid.UUID) (*models.Incident, error) {
	row := q.QueryRow(ctx, `
		SELECT id, user_id, source_type, source_alert_id, status, aurora_status,
			severity, alert_title, alert_service, affected_services, correlated_alert_count,
			aurora_summary, aurora_chat_session_id, active_tab, alert_metadata,
			merged_into_incident_id, slack_message_ts, started_at, created_at, updated_at
		FROM incidents WHERE id = $1`, id)
	return scanIncident(row)
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	inc := &models.Incident{}
	var affected []byte
	err := row.Scan(
		&inc.ID, &inc.UserID, &inc.SourceType, &inc.SourceAlertID, &inc.Status, &inc.AuroraStatus,
		&inc.Severity, &inc.AlertTitle, &inc.AlertService, &affected, &inc.CorrelatedAlertCount,
		&inc.AuroraSummary, &inc.AuroraChatSessionID, &inc.ActiveTab, &inc.AlertMetadata,
		&inc.MergedIntoIncidentID, &inc.SlackMessageTS, &inc.StartedAt, &inc.CreatedAt, &inc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(affected) > 0 {
		_ = json.Unmarshal(affected, &inc.AffectedServices)
	}
	return inc, nil
}

// FindIncidentBySourceAlert looks up an incident by its natural key,
// used by custom-field-update events (e.g. PagerDuty's
// incident.custom_field_values.updated) to merge metadata into an
// incident that was created by an earlier creation event, without
// running correlation again.
func FindIncidentBySourceAlert(ctx context.Context, q Querier, userID, sourceType, sourceAlertID string) (*models.Incident, error) {
	row := q.QueryRow(ctx, `
		SELECT id, user_id, source_type, source_alert_id, status, aurora_status,
			severity, alert_title, alert_service, affected_services, correlated_alert_count,
			aurora_summary, aurora_chat_session_id, active_tab, alert_metadata,
			merged_into_incident_id, slack_message_ts, started_at, created_at, updated_at
		FROM incidents WHERE user_id = $1 AND source_type = $2 AND source_alert_id = $3`,
		userID, sourceType, sourceAlertID)
	return scanIncident(row)
}

// RecentOpenIncidents returns non-merged incidents for userID whose
// started_at falls within the correlation window, most-recent first —
// the candidate set the correlator scores against, and the tie-break
// order required by spec §8 property 3.
func RecentOpenIncidents(ctx context.Context, q Querier, userID string, window time.Duration) ([]*models.Incident, error) {
	rows, err := q.Query(ctx, `
		SELECT id, user_id, source_type, source_alert_id, status, aurora_status,
			severity, alert_title, alert_service, affected_services, correlated_alert_count,
			aurora_summary, aurora_chat_session_id, active_tab, alert_metadata,
			merged_into_incident_id, slack_message_ts, started_at, created_at, updated_at
		FROM incidents
		WHERE user_id = $1
			AND status IN ('investigating', 'analyzed')
			AND started_at >= $2
		ORDER BY started_at DESC`,
		userID, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// InsertIncidentAlert records an edge between an incident and a raw
// event, and atomically bumps correlated_alert_count + affected_services
// when the strategy is not "primary" (primary is counted at creation).
func InsertIncidentAlert(ctx context.Context, q Querier, edge *models.IncidentAlert) error {
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	details := edge.CorrelationDetails
	if details == nil {
		details = json.RawMessage("{}")
	}
	_, err := q.Exec(ctx, `
		INSERT INTO incident_alerts (id, incident_id, raw_alert_event_id, source, correlation_strategy, correlation_score, correlation_details, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		edge.ID, edge.IncidentID, edge.RawAlertEventID, edge.Source, edge.CorrelationStrategy, edge.CorrelationScore, details, edge.ReceivedAt,
	)
	return err
}

// AddAffectedService unions service into the incident's affected_services
// set and increments correlated_alert_count by one, used when a
// non-primary alert correlates onto an existing incident.
func AddAffectedService(ctx context.Context, q Querier, incidentID uuid.UUID, service string) error {
	_, err := q.Exec(ctx, `
		UPDATE incidents SET
			correlated_alert_count = correlated_alert_count + 1,
			affected_services = (
				SELECT to_jsonb(array_agg(DISTINCT e))
				FROM jsonb_array_elements_text(affected_services || to_jsonb($2::text)) e
			),
			updated_at = now()
		WHERE id = $1`, incidentID, service)
	return err
}

// MergeIncident implements the manual merge operation (§4.6): copies
// the source's primary alert edge onto the target with strategy
// "manual", unions affected_services, bumps the target's correlated
// count by exactly one, and marks the source merged with a cleared
// summary.
func MergeIncident(ctx context.Context, tx pgx.Tx, sourceID, targetID uuid.UUID) error {
	source, err := GetIncident(ctx, tx, sourceID)
	if err != nil {
		return fmt.Errorf("load source incident: %w", err)
	}
	if err := guardNoMergeCycle(ctx, tx, sourceID, targetID); err != nil {
		return err
	}

	edge := &models.IncidentAlert{
		IncidentID:          targetID,
		RawAlertEventID:     uuid.Nil, // primary alert id resolved by caller when available
		Source:              source.SourceType,
		CorrelationStrategy: models.CorrelationManual,
		CorrelationScore:    1.0,
		ReceivedAt:          time.Now(),
	}
	primary, err := primaryRawEventID(ctx, tx, sourceID)
	if err == nil {
		edge.RawAlertEventID = primary
	}
	if err := InsertIncidentAlert(ctx, tx, edge); err != nil {
		return fmt.Errorf("insert manual edge: %w", err)
	}

	for _, svc := range source.AffectedServices {
		if err := AddAffectedService(ctx, tx, targetID, svc); err != nil {
			return fmt.Errorf("union affected service %q: %w", svc, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE incidents SET status = 'merged', aurora_summary = NULL, merged_into_incident_id = $2, updated_at = now()
		WHERE id = $1`, sourceID, targetID); err != nil {
		return fmt.Errorf("mark source merged: %w", err)
	}
	return nil
}

func primaryRawEventID(ctx context.Context, q Querier, incidentID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT raw_alert_event_id FROM incident_alerts
		WHERE incident_id = $1 AND correlation_strategy = 'primary'
		ORDER BY received_at ASC LIMIT 1`, incidentID).Scan(&id)
	return id, err
}

// guardNoMergeCycle walks merged_into_incident_id from target, bounded
// by a constant, to ensure target is not already (transitively) merged
// into source — per SPEC_FULL.md §9's A→B→A guard.
func guardNoMergeCycle(ctx context.Context, q Querier, source, target uuid.UUID) error {
	const maxChain = 32
	cur := target
	for i := 0; i < maxChain; i++ {
		if cur == source {
			return fmt.Errorf("dbx: merge would create a cycle (%s already reachable from %s)", source, target)
		}
		inc, err := GetIncident(ctx, q, cur)
		if err != nil {
			return nil // broken chain; nothing left to walk
		}
		if inc.MergedIntoIncidentID == nil {
			return nil
		}
		cur = *inc.MergedIntoIncidentID
	}
	return fmt.Errorf("dbx: merge chain exceeds %d hops, refusing", maxChain)
}

// SetChatSessionLink links a chat session to the incident that spawned it.
func SetChatSessionLink(ctx context.Context, q Querier, incidentID, chatSessionID uuid.UUID) error {
	_, err := q.Exec(ctx, `UPDATE incidents SET aurora_chat_session_id = $2, aurora_status = 'running', updated_at = now() WHERE id = $1`, incidentID, chatSessionID)
	return err
}

// SetIncidentSlackTS records the thread timestamp of an incident's
// Slack notification so later updates can be posted as threaded
// replies instead of new top-level messages.
func SetIncidentSlackTS(ctx context.Context, q Querier, incidentID uuid.UUID, ts string) error {
	_, err := q.Exec(ctx, `UPDATE incidents SET slack_message_ts = $2 WHERE id = $1`, incidentID, ts)
	return err
}

// ChatSessionExistsForTrigger implements the delayed-RCA-trigger guard:
// skip if a chat session already exists for (user, incident) whose
// trigger_metadata.source matches.
func ChatSessionExistsForTrigger(ctx context.Context, q Querier, incidentID uuid.UUID, source string) (bool, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM chat_sessions
		WHERE incident_id = $1 AND trigger_metadata->>'source' = $2`, incidentID, source).Scan(&n)
	return n > 0, err
}
