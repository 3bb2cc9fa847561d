package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/agentloop"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
)

// DBContextLoader is the default ContextLoader, backed directly by the
// chat_sessions table. A query's init frame carries a session ID but no
// in-memory history, so every new connection has to rehydrate the prior
// turn's persisted context before the Engine runs (§4.1 "Context loading").
type DBContextLoader struct {
	Pools *dbx.Pools
}

// LoadPriorContext loads the persisted model-shaped history for sessionID,
// returning a nil PriorContext (not an error) for an unknown or brand new
// session so the caller just starts a fresh turn.
func (l *DBContextLoader) LoadPriorContext(ctx context.Context, sessionID string) (*agentloop.PriorContext, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, nil
	}

	var history []agentloop.Message
	loadErr := l.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		session, err := dbx.GetChatSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(session.LLMContextHistory) == 0 {
			return nil
		}
		return json.Unmarshal(session.LLMContextHistory, &history)
	})
	if loadErr != nil {
		if errors.Is(loadErr, dbx.ErrNotFound) {
			return nil, nil
		}
		return nil, loadErr
	}
	if len(history) == 0 {
		return nil, nil
	}
	return &agentloop.PriorContext{LLMContextHistory: history}, nil
}
