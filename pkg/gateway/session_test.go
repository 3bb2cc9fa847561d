package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/agentloop"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/confirm"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/modelregistry"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/toolcatalog"
)

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

type fakeChatModel struct{}

func (f *fakeChatModel) Stream(ctx context.Context, messages []modelregistry.Message, tools []modelregistry.ToolSpec) (<-chan modelregistry.StreamChunk, error) {
	out := make(chan modelregistry.StreamChunk, 2)
	out <- modelregistry.StreamChunk{Text: "all clear"}
	out <- modelregistry.StreamChunk{FinishReason: "stop"}
	close(out)
	return out, nil
}

type fakeProvider struct{}

func (p *fakeProvider) Name() string                       { return "fake" }
func (p *fakeProvider) IsAvailable() bool                   { return true }
func (p *fakeProvider) SupportsModel(canonical string) bool { return true }
func (p *fakeProvider) CreateChatModel(ctx context.Context, model string, temperature float64, opts ...modelregistry.Option) (modelregistry.ChatModel, error) {
	return &fakeChatModel{}, nil
}

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	registry := modelregistry.NewWithProviders(map[string]modelregistry.Provider{"fake": &fakeProvider{}})
	catalog := toolcatalog.New()
	catalog.Register(&toolcatalog.Tool{
		Name:         "ping",
		AllowedModes: []toolcatalog.Mode{toolcatalog.ModeAgent, toolcatalog.ModeAsk},
		Execute: func(ctx *toolcatalog.Context, args map[string]any) (string, error) {
			return `{"ok":true}`, nil
		},
	})

	engine := &agentloop.Engine{Registry: registry, Catalog: catalog}
	s := NewServer(engine, confirm.New(), catalog, nil)

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		s.HandleConnection(r.Context(), conn)
	}))
	t.Cleanup(httpSrv.Close)
	return s, httpSrv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + srv.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame ServerFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestServer_QueryRoundTripEmitsStartMessageEnd(t *testing.T) {
	_, httpSrv := testServer(t)
	conn := dial(t, httpSrv)

	send(t, conn, ClientMessage{Type: "init", UserID: "u1"})
	send(t, conn, ClientMessage{SessionID: "sess-1", Query: "are the pods healthy?", Model: "fake/model-1", Mode: "agent"})

	var sawStart, sawMessage, sawEnd bool
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		switch frame.Type {
		case "status":
			if status, ok := frame.Data.(map[string]any)["status"]; ok {
				switch status {
				case "START":
					sawStart = true
				case "END":
					sawEnd = true
				}
			}
		case "message":
			sawMessage = true
		}
		if sawStart && sawMessage && sawEnd {
			break
		}
	}

	if !sawStart || !sawMessage || !sawEnd {
		t.Fatalf("expected start/message/end frames, got start=%v message=%v end=%v", sawStart, sawMessage, sawEnd)
	}
}

func TestServer_DirectToolCallBypassesAgentLoop(t *testing.T) {
	_, httpSrv := testServer(t)
	conn := dial(t, httpSrv)

	send(t, conn, ClientMessage{Type: "init", UserID: "u1"})
	send(t, conn, ClientMessage{
		SessionID:      "sess-2",
		Mode:           "agent",
		DirectToolCall: &DirectToolCall{ToolName: "ping", Parameters: map[string]any{}},
	})

	frame := readFrame(t, conn)
	if frame.Type != "tool_result" {
		t.Fatalf("expected tool_result frame, got %s", frame.Type)
	}
}

func TestRateLimiter_BlocksBurstBeyondCapacity(t *testing.T) {
	rl := NewRateLimiter(2, 1)
	if !rl.Allow("client-a") || !rl.Allow("client-a") {
		t.Fatal("expected first two calls within burst to be allowed")
	}
	if rl.Allow("client-a") {
		t.Fatal("expected third immediate call to be rate limited")
	}
	if !rl.Allow("client-b") {
		t.Fatal("expected a different client id to have its own bucket")
	}
}
