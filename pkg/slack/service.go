package slack

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

const postTimeout = 5 * time.Second

// ServiceConfig configures Service. A Service built with an empty
// Token or Channel is nil-safe: every notify call becomes a no-op, so
// callers never need to branch on whether Slack is configured.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service posts incident lifecycle notifications to Slack. All notify
// methods fail open: a Slack error is logged, never returned, since a
// notification failure must never block incident processing.
type Service struct {
	client       *Client
	pools        *dbx.Pools
	dashboardURL string
	logger       *slog.Logger
}

// NewService builds a Service, or returns nil if cfg is not fully
// configured (Token and Channel both required) so Slack notifications
// are simply skipped rather than erroring.
func NewService(cfg ServiceConfig, pools *dbx.Pools) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		pools:        pools,
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// threadTS resolves the thread to reply in: the incident's cached
// slack_message_ts, or a fingerprint search of recent history if none
// is cached yet (e.g. populated by a previous process instance).
func (s *Service) threadTS(ctx context.Context, inc *models.Incident) string {
	if inc.SlackMessageTS != "" {
		return inc.SlackMessageTS
	}
	ts, err := s.client.FindMessageByFingerprint(ctx, incidentFingerprint(inc.SourceType, inc.SourceAlertID))
	if err != nil {
		s.logger.Warn("slack fingerprint search failed", "incident_id", inc.ID, "err", err)
		return ""
	}
	return ts
}

// NotifyIncidentCreated posts the initial message for a new incident
// and persists its timestamp for later threaded replies.
func (s *Service) NotifyIncidentCreated(ctx context.Context, inc *models.Incident) {
	if s == nil {
		return
	}
	blocks := BuildIncidentCreatedMessage(inc, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, "", postTimeout); err != nil {
		s.logger.Error("failed to post incident-created message", "incident_id", inc.ID, "err", err)
		return
	}
	s.rememberThreadRoot(ctx, inc)
}

// rememberThreadRoot looks up the just-posted message by fingerprint
// and stores its ts on the incident row.
func (s *Service) rememberThreadRoot(ctx context.Context, inc *models.Incident) {
	ts, err := s.client.FindMessageByFingerprint(ctx, incidentFingerprint(inc.SourceType, inc.SourceAlertID))
	if err != nil || ts == "" {
		return
	}
	s.persistTS(ctx, inc.ID, ts)
}

func (s *Service) persistTS(ctx context.Context, incidentID uuid.UUID, ts string) {
	if err := s.pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		return dbx.SetIncidentSlackTS(ctx, tx, incidentID, ts)
	}); err != nil {
		s.logger.Warn("failed to persist slack thread ts", "incident_id", incidentID, "err", err)
	}
}

// NotifyIncidentUpdate posts a threaded reply describing a status or
// correlation change.
func (s *Service) NotifyIncidentUpdate(ctx context.Context, inc *models.Incident, note string) {
	if s == nil {
		return
	}
	blocks := BuildIncidentUpdateMessage(inc, note)
	if err := s.client.PostMessage(ctx, blocks, s.threadTS(ctx, inc), postTimeout); err != nil {
		s.logger.Error("failed to post incident-update message", "incident_id", inc.ID, "err", err)
	}
}

// NotifyRCACompleted posts a threaded reply announcing that root-cause
// analysis finished.
func (s *Service) NotifyRCACompleted(ctx context.Context, inc *models.Incident, summary string, suggestionCount int) {
	if s == nil {
		return
	}
	blocks := BuildRCACompletedMessage(inc, summary, suggestionCount)
	if err := s.client.PostMessage(ctx, blocks, s.threadTS(ctx, inc), postTimeout); err != nil {
		s.logger.Error("failed to post rca-completed message", "incident_id", inc.ID, "err", err)
	}
}

// NotifyIncidentMerged posts a threaded reply announcing a merge.
func (s *Service) NotifyIncidentMerged(ctx context.Context, inc *models.Incident, targetID uuid.UUID) {
	if s == nil {
		return
	}
	blocks := BuildIncidentMergedMessage(targetID.String())
	if err := s.client.PostMessage(ctx, blocks, s.threadTS(ctx, inc), postTimeout); err != nil {
		s.logger.Error("failed to post incident-merged message", "incident_id", inc.ID, "err", err)
	}
}
