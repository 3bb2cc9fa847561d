// Package rcarunner launches and supervises the background
// investigations that pkg/ingest's delayed RCA trigger starts: one
// agentloop.Engine run per triggered incident, with one-execution-
// per-incident tracking and a graceful-shutdown drain adapted to a
// single Engine.Run call instead of a multi-stage executor chain.
package rcarunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/agentloop"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/gateway"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/runbook"
)

// ErrShuttingDown is returned by TriggerRCA/EnqueueContextUpdate once
// Stop has been called, mirroring ErrShuttingDown.
var ErrShuttingDown = errors.New("rcarunner: shutting down")

// Runner implements ingest.RCALauncher and ingest.RCACanceller. It owns
// no HTTP/WS surface of its own: progress is persisted via dbx and
// broadcast best-effort over the same Postgres NOTIFY channel the
// gateway's live session viewer already listens on, so a user watching
// the incident's chat session in real time sees the investigation as
// it runs, and one who isn't just sees the persisted result later.
type Runner struct {
	Pools        *dbx.Pools
	Engine       *agentloop.Engine
	Runbooks     *runbook.RunbookService
	DefaultModel string

	mu      sync.Mutex
	active  map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
	stopped bool

	logger *slog.Logger
}

// NewRunner builds a Runner. engine is expected to share its Persist
// wiring (gateway.DBPersistence or equivalent) with every other caller
// of Engine.Run, since the Engine itself writes llm_context_history/
// messages at each turn's end (§4.1 "Persistence") before execute below
// additionally records the incident-level summary Persist doesn't know
// about.
func NewRunner(pools *dbx.Pools, engine *agentloop.Engine, runbooks *runbook.RunbookService, defaultModel string) *Runner {
	return &Runner{
		Pools:        pools,
		Engine:       engine,
		Runbooks:     runbooks,
		DefaultModel: defaultModel,
		active:       make(map[uuid.UUID]context.CancelFunc),
		logger:       slog.Default().With("component", "rcarunner"),
	}
}

// TriggerRCA implements ingest.RCALauncher: it resolves a runbook (if
// the incident's custom fields carry a link), opens a new chat session
// linked to the incident, and launches the investigation in the
// background. Submit returns as soon as the session is durably
// recorded; the investigation itself runs to completion asynchronously.
func (r *Runner) TriggerRCA(ctx context.Context, userID string, incidentID uuid.UUID, source string) error {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return ErrShuttingDown
	}

	var inc *models.Incident
	if err := r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		var err error
		inc, err = dbx.GetIncident(ctx, tx, incidentID)
		return err
	}); err != nil {
		return fmt.Errorf("rcarunner: load incident: %w", err)
	}

	runbookContent := r.resolveRunbook(ctx, inc)
	prompt := buildInvestigationPrompt(inc, runbookContent)

	triggerMeta, err := json.Marshal(map[string]string{
		"incident_id": incidentID.String(),
		"source":      source,
		"trigger":     "delayed_rca",
	})
	if err != nil {
		return err
	}
	session := &models.ChatSession{
		UserID:          userID,
		Title:           fmt.Sprintf("RCA: %s", inc.AlertTitle),
		IncidentID:      &incidentID,
		TriggerMetadata: triggerMeta,
		IsActive:        true,
	}

	if err := r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		if err := dbx.CreateChatSession(ctx, tx, session); err != nil {
			return err
		}
		return dbx.SetChatSessionLink(ctx, tx, incidentID, session.ID)
	}); err != nil {
		return fmt.Errorf("rcarunner: open chat session: %w", err)
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.execute(context.Background(), userID, incidentID, session.ID, prompt)
	return nil
}

// resolveRunbook mirrors resolveRunbook fallback
// behavior: a missing service or a fetch error degrades to no runbook
// content rather than failing the trigger outright.
func (r *Runner) resolveRunbook(ctx context.Context, inc *models.Incident) string {
	if r.Runbooks == nil {
		return ""
	}
	link := runbookLinkFromMetadata(inc.AlertMetadata)
	if link == "" {
		return ""
	}
	content, err := r.Runbooks.Resolve(ctx, link)
	if err != nil {
		r.logger.Warn("runbook resolve failed, proceeding without it", "incident_id", inc.ID, "err", err)
		return ""
	}
	return content
}

// execute runs one investigation end to end: stream the engine,
// persist citations/thoughts as tool results and messages arrive,
// then persist the final chat context and incident summary.
func (r *Runner) execute(parentCtx context.Context, userID string, incidentID, sessionID uuid.UUID, prompt string) {
	defer r.wg.Done()

	execCtx, cancel := context.WithCancel(parentCtx)
	r.registerExecution(sessionID, cancel)
	defer r.unregisterExecution(sessionID)
	defer cancel()

	st := &agentloop.State{
		UserID:    userID,
		SessionID: sessionID.String(),
		Model:     r.DefaultModel,
		Mode:      agentloop.ModeAgent,
		Messages:  []agentloop.Message{{Role: "user", Content: prompt, Timestamp: time.Now().UnixMilli()}},
	}

	var finalMessage string
	var citationSeq int

	for ev := range r.Engine.Run(execCtx, st) {
		switch ev.Type {
		case agentloop.EventMessage:
			finalMessage = ev.Text
			r.recordThought(incidentID, userID, ev.Text)
		case agentloop.EventToolResult:
			citationSeq++
			r.recordCitation(incidentID, userID, citationSeq, ev.ToolName, ev.ToolOutput)
		}
		r.broadcast(sessionID, ev)
	}

	status := models.AuroraStatusComplete
	if execCtx.Err() != nil {
		status = models.AuroraStatusError
	}
	summary := finalMessage
	if summary == "" {
		summary = "investigation produced no findings"
	}

	messagesJSON, err := json.Marshal(agentloop.ToUIMessages(st.Messages))
	if err != nil {
		r.logger.Error("marshal ui messages failed", "session_id", sessionID, "err", err)
		return
	}
	contextJSON, err := json.Marshal(st.Messages)
	if err != nil {
		r.logger.Error("marshal llm context failed", "session_id", sessionID, "err", err)
		return
	}

	if err := r.Pools.WithAdmin(context.Background(), func(tx pgx.Tx) error {
		if err := dbx.UpdateIncidentSummary(context.Background(), tx, incidentID, summary, status); err != nil {
			return err
		}
		return dbx.SaveChatContext(context.Background(), tx, sessionID, contextJSON, messagesJSON, models.ChatStatusCompleted)
	}); err != nil {
		r.logger.Error("failed to persist investigation result", "incident_id", incidentID, "err", err)
	}
}

func (r *Runner) recordThought(incidentID uuid.UUID, userID, text string) {
	if text == "" {
		return
	}
	if err := r.Pools.WithAdmin(context.Background(), func(tx pgx.Tx) error {
		return dbx.InsertThought(context.Background(), tx, &models.IncidentThought{
			IncidentID: incidentID,
			UserID:     userID,
			Type:       "analysis",
			Text:       text,
		})
	}); err != nil {
		r.logger.Warn("failed to record thought", "incident_id", incidentID, "err", err)
	}
}

func (r *Runner) recordCitation(incidentID uuid.UUID, userID string, seq int, toolName, output string) {
	if err := r.Pools.WithAdmin(context.Background(), func(tx pgx.Tx) error {
		return dbx.InsertCitation(context.Background(), tx, &models.IncidentCitation{
			IncidentID:  incidentID,
			UserID:      userID,
			CitationKey: fmt.Sprintf("%d", seq),
			ToolName:    toolName,
			Output:      output,
		})
	}); err != nil {
		r.logger.Warn("failed to record citation", "incident_id", incidentID, "err", err)
	}
}

// broadcast publishes a live-view frame for ev over the same
// Postgres NOTIFY channel the gateway's NotifyListener dispatches from
// (pkg/gateway.SessionChannel), so a user with the chat session open
// sees the investigation stream in without rcarunner holding a
// reference to the gateway's Hub. Token-level deltas are skipped:
// nobody is necessarily watching a background-triggered investigation
// live, so only tool activity and the final message are worth a
// round-trip per event.
func (r *Runner) broadcast(sessionID uuid.UUID, ev agentloop.Event) {
	var frameType string
	var data map[string]any
	switch ev.Type {
	case agentloop.EventToolCall:
		frameType = "tool_call"
		data = map[string]any{"tool_name": ev.ToolName, "status": string(ev.ToolStatus), "input": ev.ToolInput}
	case agentloop.EventToolResult:
		frameType = "tool_result"
		data = map[string]any{"tool_name": ev.ToolName, "result": ev.ToolOutput}
	case agentloop.EventMessage:
		frameType = "message"
		data = map[string]any{"text": ev.Text, "is_complete": true}
	case agentloop.EventStatus:
		frameType = "status"
		data = map[string]any{"status": string(ev.Status)}
	default:
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":       frameType,
		"session_id": sessionID.String(),
		"data":       data,
	})
	if err != nil {
		return
	}
	if err := r.Pools.WithAdmin(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), `SELECT pg_notify($1, $2)`, gateway.SessionChannel(sessionID.String()), string(payload))
		return err
	}); err != nil {
		r.logger.Warn("broadcast failed", "session_id", sessionID, "err", err)
	}
}

// EnqueueContextUpdate implements ingest.RCALauncher: it appends a
// merged-incident context block as a system message to the target
// incident's live chat session, best-effort. If the investigation's
// execute goroutine finishes and persists concurrently, the later
// write wins — acceptable here since the block is also independently
// recoverable from incident_thoughts (§4.6 step 5 keeps its own copy
// via the merge's pre-merge snapshot).
func (r *Runner) EnqueueContextUpdate(ctx context.Context, incidentID uuid.UUID, summaryBlock string) error {
	var inc *models.Incident
	if err := r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		var err error
		inc, err = dbx.GetIncident(ctx, tx, incidentID)
		return err
	}); err != nil {
		return err
	}
	if inc.AuroraChatSessionID == nil {
		return nil
	}

	var session *models.ChatSession
	if err := r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		var err error
		session, err = dbx.GetChatSession(ctx, tx, *inc.AuroraChatSessionID)
		return err
	}); err != nil {
		if errors.Is(err, dbx.ErrNotFound) {
			return nil
		}
		return err
	}

	var llmContext []agentloop.Message
	if err := json.Unmarshal(session.LLMContextHistory, &llmContext); err != nil {
		llmContext = nil
	}
	llmContext = append(llmContext, agentloop.Message{
		Role:      "system",
		Content:   buildMergeContextPrompt(summaryBlock),
		Timestamp: time.Now().UnixMilli(),
	})
	contextJSON, err := json.Marshal(llmContext)
	if err != nil {
		return err
	}

	return r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		return dbx.SaveChatContext(ctx, tx, session.ID, contextJSON, session.Messages, session.Status)
	})
}

// CancelRCA implements ingest.RCACanceller: cancel any in-flight
// execute goroutine for the incident's chat session and mark it
// cancelled, used when a source-of-merge incident has a live
// investigation that no longer applies (§4.6 step 5).
func (r *Runner) CancelRCA(ctx context.Context, incidentID uuid.UUID) error {
	var inc *models.Incident
	if err := r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		var err error
		inc, err = dbx.GetIncident(ctx, tx, incidentID)
		return err
	}); err != nil {
		return err
	}
	if inc.AuroraChatSessionID == nil {
		return nil
	}

	r.mu.Lock()
	cancel, ok := r.active[*inc.AuroraChatSessionID]
	r.mu.Unlock()
	if ok {
		cancel()
	}

	return r.Pools.WithAdmin(ctx, func(tx pgx.Tx) error {
		return dbx.CancelChatSession(ctx, tx, *inc.AuroraChatSessionID)
	})
}

// Stop marks the runner as shutting down, cancels every in-flight
// investigation, and waits for their goroutines to drain — identical
// shape to ChatMessageExecutor.Stop.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	for _, cancel := range r.active {
		cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) registerExecution(sessionID uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[sessionID] = cancel
}

func (r *Runner) unregisterExecution(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, sessionID)
}
