package dbx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateChatSession inserts a new chat session row.
func CreateChatSession(ctx context.Context, q Querier, s *models.ChatSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Messages == nil {
		s.Messages = json.RawMessage("[]")
	}
	if s.LLMContextHistory == nil {
		s.LLMContextHistory = json.RawMessage("[]")
	}
	if s.UIState == nil {
		s.UIState = json.RawMessage("{}")
	}
	if s.TriggerMetadata == nil {
		s.TriggerMetadata = json.RawMessage("{}")
	}
	if s.Status == "" {
		s.Status = models.ChatStatusActive
	}
	now := time.Now()
	_, err := q.Exec(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, messages, llm_context_history, ui_state, status, incident_id, trigger_metadata, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		s.ID, s.UserID, s.Title, s.Messages, s.LLMContextHistory, s.UIState, s.Status, s.IncidentID, s.TriggerMetadata, s.IsActive, now,
	)
	return err
}

// GetChatSession loads a session by id.
func GetChatSession(ctx context.Context, q Querier, id uuid.UUID) (*models.ChatSession, error) {
	row := q.QueryRow(ctx, `
		SELECT id, user_id, title, messages, llm_context_history, ui_state, status, incident_id, trigger_metadata, is_active, created_at, updated_at
		FROM chat_sessions WHERE id = $1`, id)
	s := &models.ChatSession{}
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Messages, &s.LLMContextHistory, &s.UIState, &s.Status, &s.IncidentID, &s.TriggerMetadata, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// SaveChatContext persists the consolidated llm_context_history and
// the UI-shaped messages projection at the end of a turn (§4.1 Persistence).
func SaveChatContext(ctx context.Context, q Querier, id uuid.UUID, llmContext, uiMessages json.RawMessage, status models.ChatSessionStatus) error {
	_, err := q.Exec(ctx, `
		UPDATE chat_sessions SET llm_context_history = $2, messages = $3, status = $4, updated_at = now()
		WHERE id = $1`, id, llmContext, uiMessages, status)
	return err
}

// CancelChatSession marks a session cancelled, used when the owning
// incident is merged away (§4.6 step 4) or on explicit user cancel.
func CancelChatSession(ctx context.Context, q Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `UPDATE chat_sessions SET status = 'cancelled', is_active = false, updated_at = now() WHERE id = $1`, id)
	return err
}
