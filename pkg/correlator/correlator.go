package correlator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
	"github.com/google/uuid"
)

// Alert carries the normalized features the correlator scores
// candidates against; callers (the incident pipeline) build one per
// inbound event.
type Alert struct {
	UserID       string
	Service      string
	Title        string
	Severity     string
	ReceivedAt   time.Time
	IdentityKey  string // e.g. PagerDuty incident_key, Grafana fingerprint; empty if the source doesn't provide one
}

// Result is the correlator's decision for one alert.
type Result struct {
	IsCorrelated bool
	IncidentID   uuid.UUID
	Score        float64
	Strategy     models.CorrelationStrategy
	Details      map[string]any
}

// DefaultWindow is the correlation window used when none is configured.
const DefaultWindow = 30 * time.Minute

// Correlate implements §4.5 step 2: search the tenant's recent
// non-merged incidents within window and score candidates, trying
// strategies in priority order (identity > service_fingerprint >
// service_time_window), first match wins. Ties among candidates for
// the same strategy are broken by most-recent ReceivedAt — satisfied
// for free because dbx.RecentOpenIncidents already orders newest-first.
func Correlate(ctx context.Context, q dbx.Querier, a Alert, window time.Duration) (Result, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	candidates, err := dbx.RecentOpenIncidents(ctx, q, a.UserID, window)
	if err != nil {
		return Result{}, err
	}

	fp := TitleFingerprint(a.Title)

	if a.IdentityKey != "" {
		for _, c := range candidates {
			if identityKeyOf(c) == a.IdentityKey {
				return Result{
					IsCorrelated: true,
					IncidentID:   c.ID,
					Score:        1.0,
					Strategy:     models.CorrelationIdentity,
					Details:      map[string]any{"identity_key": a.IdentityKey},
				}, nil
			}
		}
	}

	for _, c := range candidates {
		if c.AlertService == a.Service && TitleFingerprint(c.AlertTitle) == fp {
			return Result{
				IsCorrelated: true,
				IncidentID:   c.ID,
				Score:        0.8,
				Strategy:     models.CorrelationFingerprint,
				Details:      map[string]any{"fingerprint": fp},
			}, nil
		}
	}

	for _, c := range candidates {
		if c.AlertService == a.Service && c.Severity == a.Severity {
			return Result{
				IsCorrelated: true,
				IncidentID:   c.ID,
				Score:        0.5,
				Strategy:     models.CorrelationServiceTimeWindow,
				Details:      map[string]any{"service": a.Service, "severity": a.Severity, "window_seconds": window.Seconds()},
			}, nil
		}
	}

	return Result{IsCorrelated: false}, nil
}

// identityKeyOf extracts a previously stored identity key from an
// incident's alert_metadata, where ingest handlers stash it under
// "identity_key" when the source provides one (PagerDuty incident_key,
// Grafana fingerprint, etc).
func identityKeyOf(inc *models.Incident) string {
	if len(inc.AlertMetadata) == 0 {
		return ""
	}
	var meta struct {
		IdentityKey string `json:"identity_key"`
	}
	if err := json.Unmarshal(inc.AlertMetadata, &meta); err != nil {
		return ""
	}
	return meta.IdentityKey
}

// HandleCorrelatedAlert implements §4.5's handle_correlated_alert: it
// inserts a non-primary IncidentAlert edge, bumps correlated_alert_count,
// unions the service into affected_services, and never creates a new
// incident row. Broadcasting the incident_update event to live
// subscribers is the caller's responsibility (the gateway owns fan-out).
func HandleCorrelatedAlert(ctx context.Context, q dbx.Querier, res Result, rawEventID uuid.UUID, source string, receivedAt time.Time, service string) error {
	details, _ := json.Marshal(res.Details)
	edge := &models.IncidentAlert{
		IncidentID:          res.IncidentID,
		RawAlertEventID:     rawEventID,
		Source:              source,
		CorrelationStrategy: res.Strategy,
		CorrelationScore:    res.Score,
		CorrelationDetails:  details,
		ReceivedAt:          receivedAt,
	}
	if err := dbx.InsertIncidentAlert(ctx, q, edge); err != nil {
		return err
	}
	return dbx.AddAffectedService(ctx, q, res.IncidentID, service)
}
