package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startTestPostgres brings up a throwaway Postgres container scoped
// to one test, since NotifyListener tests are few and cheap enough not
// to need a shared package-level container.
func startTestPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestNotifyListener_DispatchesNotificationToSenderBoundConnection(t *testing.T) {
	connStr := startTestPostgres(t)
	ctx := context.Background()

	hub := NewHub()
	listener := NewNotifyListener(connStr, hub)
	require.NoError(t, listener.Start(ctx))
	t.Cleanup(listener.Stop)

	sessionID := "sess-notify-1"
	require.NoError(t, listener.Subscribe(SessionChannel(sessionID)))

	// Bind the session to a real WebSocket connection registered on the
	// Hub, then assert the client observes the NOTIFY-dispatched frame.
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		require.NoError(t, err)
		conn := newConnection(r.Context(), wsConn)
		hub.register(conn)
		hub.BindSession(sessionID, conn)
		<-r.Context().Done()
	}))
	t.Cleanup(httpSrv.Close)

	wsURL := "ws" + httpSrv.URL[len("http"):]
	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	clientConn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	dialCancel()
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close(websocket.StatusNormalClosure, "") })

	payload, err := json.Marshal(map[string]any{
		"type":       "message",
		"session_id": sessionID,
		"data":       map[string]any{"text": "hello from another pod"},
	})
	require.NoError(t, err)

	notifyConn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	defer notifyConn.Close(ctx)

	// Give the LISTEN a moment to land before NOTIFYing.
	time.Sleep(200 * time.Millisecond)
	_, err = notifyConn.Exec(ctx, "SELECT pg_notify($1, $2)", SessionChannel(sessionID), string(payload))
	require.NoError(t, err)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	defer readCancel()
	_, data, err := clientConn.Read(readCtx)
	require.NoError(t, err)

	var frame ServerFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	require.Equal(t, "message", frame.Type)
	require.Equal(t, sessionID, frame.SessionID)
}
