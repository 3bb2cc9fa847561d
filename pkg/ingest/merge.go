package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// CancelRCATask cancels a running RCA task for an incident, called by
// Merge before folding the source incident away. It is injected
// because the queue's ingest Tasks (summary/RCA-trigger) and the
// RCA runner's long-running agent goroutine are tracked separately;
// rcarunner owns the cancellation registry.
type RCACanceller interface {
	CancelRCA(ctx context.Context, incidentID uuid.UUID) error
}

// Merge implements the manual merge operation (§4.6): folds sourceID
// into targetID.
func (p *Pipeline) Merge(ctx context.Context, canceller RCACanceller, sourceID, targetID uuid.UUID) error {
	if canceller != nil {
		if err := canceller.CancelRCA(ctx, sourceID); err != nil {
			p.logger.Warn("failed to cancel source RCA task during merge", "incident_id", sourceID, "err", err)
		}
	}

	var sourceTitle string
	var targetHasLiveRCA bool
	err := p.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		src, err := dbx.GetIncident(ctx, tx, sourceID)
		if err != nil {
			return fmt.Errorf("load source incident: %w", err)
		}
		tgt, err := dbx.GetIncident(ctx, tx, targetID)
		if err != nil {
			return fmt.Errorf("load target incident: %w", err)
		}

		if err := dbx.MergeIncident(ctx, tx, sourceID, targetID); err != nil {
			return fmt.Errorf("merge incident: %w", err)
		}

		if src.AuroraChatSessionID != nil {
			if err := dbx.CancelChatSession(ctx, tx, *src.AuroraChatSessionID); err != nil {
				return fmt.Errorf("cancel source chat session: %w", err)
			}
		}

		sourceTitle = src.AlertTitle
		targetHasLiveRCA = tgt.AuroraChatSessionID != nil && tgt.AuroraStatus == models.AuroraStatusRunning

		if err := notifyIncidentUpdate(ctx, tx, targetID); err != nil {
			p.logger.Warn("pg_notify incident_update failed", "err", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if targetHasLiveRCA && p.RCA != nil {
		block, err := p.buildMergeContextBlock(ctx, sourceID, sourceTitle)
		if err != nil {
			p.logger.Warn("failed to build merge context block", "incident_id", sourceID, "err", err)
		} else if err := p.RCA.EnqueueContextUpdate(ctx, targetID, block); err != nil {
			p.logger.Warn("failed to enqueue merge context update", "incident_id", targetID, "err", err)
		}
	}

	return nil
}

// buildMergeContextBlock implements §4.6 merge step 5: a summary block
// built from the source's last thoughts and its own aurora_summary.
func (p *Pipeline) buildMergeContextBlock(ctx context.Context, sourceID uuid.UUID, sourceTitle string) (string, error) {
	var block string
	err := p.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		inc, err := dbx.GetIncident(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		thoughts, err := dbx.TrailingThoughts(ctx, tx, sourceID, 20)
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "=== MERGED INCIDENT: %s ===\n", sourceTitle)
		if inc.AuroraSummary != nil && *inc.AuroraSummary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", *inc.AuroraSummary)
		}
		if len(thoughts) > 0 {
			b.WriteString("Prior investigation trace:\n")
			for _, t := range thoughts {
				fmt.Fprintf(&b, "- [%s] %s\n", t.Type, t.Text)
			}
		}
		block = b.String()
		return nil
	})
	return block, err
}
