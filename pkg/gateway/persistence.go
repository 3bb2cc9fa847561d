package gateway

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/agentloop"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// DBPersistence implements agentloop.Persistence over chat_sessions,
// the default wiring for a live WebSocket turn's end-of-turn write
// (§4.1 "Persistence": consolidated llm_context_history plus the
// UI-shaped messages projection).
type DBPersistence struct {
	Pools *dbx.Pools
}

// SaveContext writes both shapes for an existing chat_sessions row.
// agentloop.Persistence carries no user_id, so a session that has not
// already been created (by a handler that knows the owning user, e.g.
// rcarunner.TriggerRCA) cannot be synthesized here; that case surfaces
// as an ErrNotFound the Engine treats as a best-effort persistence
// failure (§4.1 "errors in DB writes for the final persistence are
// logged").
func (p *DBPersistence) SaveContext(ctx context.Context, sessionID string, messages, uiMessages []agentloop.Message) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return err
	}
	contextJSON, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	uiJSON, err := json.Marshal(uiMessages)
	if err != nil {
		return err
	}

	return p.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		return dbx.SaveChatContext(ctx, tx, id, contextJSON, uiJSON, models.ChatStatusActive)
	})
}
