package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/agentloop"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/confirm"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/toolcatalog"
)

const writeTimeout = 5 * time.Second

// ContextLoader resolves the prior persisted context for a session
// before a new turn starts (§4.1 "Context loading").
type ContextLoader interface {
	LoadPriorContext(ctx context.Context, sessionID string) (*agentloop.PriorContext, error)
}

// Server wires the gateway's connection handling to the rest of the
// platform: the agent loop engine, the confirmation broker, and the
// tool catalog backing direct_tool_call.
type Server struct {
	Hub     *Hub
	Engine  *agentloop.Engine
	Confirm *confirm.Broker
	Catalog *toolcatalog.Catalog
	Context ContextLoader
	Limiter *RateLimiter

	// Listener, when set, is subscribed to each session's NOTIFY channel
	// as it binds a local connection, so a turn running on another pod
	// (e.g. a background rcarunner investigation) can still reach this
	// pod's WebSocket client (§4.7 Reliability).
	Listener *NotifyListener
}

// bindSession binds sessionID's active sender and, if a NotifyListener
// is configured, subscribes its NOTIFY channel so cross-pod events
// (background RCA runs in particular) reach this connection.
func (s *Server) bindSession(sessionID string, conn *Connection) {
	s.Hub.BindSession(sessionID, conn)
	if s.Listener != nil {
		if err := s.Listener.Subscribe(SessionChannel(sessionID)); err != nil {
			slog.Warn("gateway: failed to subscribe session notify channel", "session_id", sessionID, "error", err)
		}
	}
}

// NewServer builds a Server with a default rate limiter.
func NewServer(engine *agentloop.Engine, brokerConfirm *confirm.Broker, catalog *toolcatalog.Catalog, loader ContextLoader) *Server {
	return &Server{
		Hub:     NewHub(),
		Engine:  engine,
		Confirm: brokerConfirm,
		Catalog: catalog,
		Context: loader,
		Limiter: DefaultRateLimiter(),
	}
}

// PublishConfirmationRequest implements confirm.Publisher: it sends a
// confirmation_request frame to whatever connection is currently bound
// to the session.
func (s *Server) PublishConfirmationRequest(sessionID string, p confirm.Pending) {
	conn := s.Hub.SenderFor(sessionID)
	if conn == nil {
		return
	}
	conn.SendFrame(writeTimeout, ServerFrame{
		Type:      "confirmation_request",
		SessionID: sessionID,
		Data: confirmationRequestData{
			ConfirmationID: p.ConfirmationID,
			ToolName:       p.ToolName,
			Message:        p.Message,
		},
	})
}

// HandleConnection upgrades an HTTP request to a WebSocket connection
// and runs its read loop until the socket closes. It blocks for the
// life of the connection — callers invoke it from an echo handler.
func (s *Server) HandleConnection(ctx context.Context, wsConn *websocket.Conn) {
	conn := newConnection(ctx, wsConn)
	s.Hub.register(conn)
	defer func() {
		s.Hub.unregister(conn)
		s.Limiter.Forget(conn.ID)
	}()

	for {
		_, data, err := wsConn.Read(conn.ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.SendFrame(writeTimeout, ServerFrame{Type: "error", Data: errorData{Text: "malformed message"}})
			continue
		}

		clientID := conn.ID
		if conn.UserID != "" {
			clientID = conn.UserID
		}
		if !s.Limiter.Allow(clientID) {
			conn.SendFrame(writeTimeout, ServerFrame{Type: "error", Data: errorData{Text: "rate limit exceeded", Code: "rate_limited"}})
			continue
		}

		s.dispatch(conn, msg)
	}
}

func (s *Server) dispatch(conn *Connection, msg ClientMessage) {
	switch {
	case msg.Type == "init":
		conn.UserID = msg.UserID

	case msg.Type == "control" && msg.Action == "cancel":
		s.handleCancel(msg.SessionID)

	case msg.Type == "confirmation_response":
		// A confirmation response on a (possibly new, post-reconnect)
		// connection re-binds that session's sender before resolving,
		// so subsequent events from the still-running turn land here.
		if msg.SessionID != "" {
			s.Hub.BindSession(msg.SessionID, conn)
		}
		if s.Confirm != nil {
			s.Confirm.Resolve(msg.ConfirmationID, msg.Approved)
		}

	case msg.isQuery():
		s.handleQuery(conn, msg)

	default:
		conn.SendFrame(writeTimeout, ServerFrame{Type: "error", Data: errorData{Text: "unrecognized message"}})
	}
}

// handleCancel is invoked on the pod that owns the local connection;
// cross-pod cancellation for a session owned by another pod is out of
// scope here and instead relies on the session owner observing the
// cancelled context via its own ctx.Done (the running Engine goroutine
// holds the cancel func, not the gateway).
func (s *Server) handleCancel(sessionID string) {
	cancel, ok := activeCancels.take(sessionID)
	if !ok {
		return
	}
	cancel()
	if s.Confirm != nil {
		s.Confirm.CancelPendingForSession(sessionID)
	}
}

func (s *Server) handleQuery(conn *Connection, msg ClientMessage) {
	if msg.SessionID == "" {
		conn.SendFrame(writeTimeout, ServerFrame{Type: "error", Data: errorData{Text: "missing session_id"}})
		return
	}
	s.bindSession(msg.SessionID, conn)

	mode := agentloop.Mode(msg.Mode)
	if mode == "" {
		mode = agentloop.ModeAgent
	}

	if msg.DirectToolCall != nil {
		s.handleDirectToolCall(conn, msg, mode)
		return
	}

	st := &agentloop.State{
		UserID:             conn.UserID,
		SessionID:          msg.SessionID,
		Model:              msg.Model,
		Mode:               mode,
		ProviderPreference: msg.ProviderPreference,
		Messages:           []agentloop.Message{{Role: "user", Content: msg.Query, Timestamp: time.Now().UnixMilli()}},
	}
	for _, a := range msg.Attachments {
		st.Attachments = append(st.Attachments, agentloop.Attachment{
			Filename: a.Filename, FileType: a.FileType, FileData: a.FileData,
			ServerPath: a.ServerPath, IsServerPath: a.IsServerPath,
		})
	}

	if s.Context != nil {
		if prior, err := s.Context.LoadPriorContext(conn.ctx, msg.SessionID); err == nil {
			st.LoadContext(prior)
		} else {
			slog.Warn("gateway: failed to load prior context", "session_id", msg.SessionID, "error", err)
		}
	}

	turnCtx, cancel := context.WithCancel(context.Background())
	activeCancels.put(msg.SessionID, cancel)

	conn.SendFrame(writeTimeout, ServerFrame{Type: "status", SessionID: msg.SessionID, Data: statusData{Status: "START"}})

	go func() {
		defer activeCancels.drop(msg.SessionID, cancel)
		s.runTurn(turnCtx, msg.SessionID, st)
	}()
}

// runTurn drains the Engine's event stream, translating each Event
// into a ServerFrame sent to whatever connection is currently bound to
// the session — a reconnect mid-turn simply changes the recipient.
func (s *Server) runTurn(ctx context.Context, sessionID string, st *agentloop.State) {
	for ev := range s.Engine.Run(ctx, st) {
		frame, ok := translateEvent(sessionID, ev)
		if !ok {
			continue
		}
		if conn := s.Hub.SenderFor(sessionID); conn != nil {
			conn.SendFrame(writeTimeout, frame)
		}
	}
}

func (s *Server) handleDirectToolCall(conn *Connection, msg ClientMessage, mode agentloop.Mode) {
	if s.Catalog == nil {
		conn.SendFrame(writeTimeout, ServerFrame{Type: "error", SessionID: msg.SessionID, Data: errorData{Text: "tool catalog unavailable"}})
		return
	}
	toolCtx := &toolcatalog.Context{
		Context:   conn.ctx,
		UserID:    conn.UserID,
		SessionID: msg.SessionID,
		Mode:      toolcatalog.Mode(mode),
	}
	result, err := s.Catalog.Invoke(toolCtx, msg.DirectToolCall.ToolName, msg.DirectToolCall.Parameters)
	if err != nil {
		conn.SendFrame(writeTimeout, ServerFrame{Type: "error", SessionID: msg.SessionID, Data: errorData{Text: err.Error()}})
		return
	}
	conn.SendFrame(writeTimeout, ServerFrame{
		Type:      "tool_result",
		SessionID: msg.SessionID,
		Data:      toolResultData{ToolName: msg.DirectToolCall.ToolName, Result: result, SessionID: msg.SessionID},
	})
}

// translateEvent maps an agentloop.Event onto the §6 wire frame shape.
// The START status has no agentloop.Event counterpart (the Engine
// begins mid-stream); the gateway emits it itself before the loop
// starts draining, see handleQuery's caller contract.
func translateEvent(sessionID string, ev agentloop.Event) (ServerFrame, bool) {
	switch ev.Type {
	case agentloop.EventToken:
		return ServerFrame{Type: "message", SessionID: sessionID, Data: messageData{Text: ev.Text, IsChunk: true, Streaming: true}}, true
	case agentloop.EventMessage:
		return ServerFrame{Type: "message", SessionID: sessionID, Data: messageData{Text: ev.Text}, IsComplete: true}, true
	case agentloop.EventToolCall:
		return ServerFrame{Type: "tool_call", SessionID: sessionID, Data: toolCallData{
			ToolName: ev.ToolName, Input: ev.ToolInput, Status: string(ev.ToolStatus),
			Timestamp: ev.Timestamp, ToolCallID: ev.ToolCallID,
		}}, true
	case agentloop.EventToolResult:
		return ServerFrame{Type: "tool_result", SessionID: sessionID, Data: toolResultData{
			ToolName: ev.ToolName, Result: ev.ToolOutput, SessionID: sessionID,
		}}, true
	case agentloop.EventUsageInfo:
		return ServerFrame{Type: "usage_info", SessionID: sessionID, Data: usageInfoData{TotalCost: ev.TotalCost}}, true
	case agentloop.EventStatus:
		return ServerFrame{Type: "status", SessionID: sessionID, Data: statusData{Status: string(ev.Status)}}, true
	default:
		return ServerFrame{}, false
	}
}
