package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// SessionChannel is the Postgres NOTIFY channel name carrying events
// for one session, used for cross-pod fan-out: a turn running on pod A
// publishes here, and every pod with a connection bound to that
// session_id (via Hub.SenderFor) forwards the payload to its client
// (§4.7/§4.8 Reliability — "reconnect re-subscribes").
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}

type listenCmd struct {
	sql     string
	channel string
	gen     uint64
	result  chan error
}

// NotifyListener owns a single dedicated pgx connection for LISTEN, per
// pattern: WaitForNotification and Exec cannot be called
// concurrently on the same pgx.Conn, so every LISTEN/UNLISTEN and every
// notification receive is serialized through one goroutine.
type NotifyListener struct {
	connString string

	conn   *pgx.Conn
	connMu sync.Mutex

	hub *Hub

	channels   map[string]bool
	channelsMu sync.RWMutex

	cmdCh chan listenCmd

	listenGen   map[string]uint64
	listenGenMu sync.Mutex

	cancelLoop context.CancelFunc
	loopDone   chan struct{}
}

// NewNotifyListener builds a listener that forwards received payloads
// to whatever connection the Hub has bound for the payload's session.
func NewNotifyListener(connString string, hub *Hub) *NotifyListener {
	return &NotifyListener{
		connString: connString,
		hub:        hub,
		channels:   make(map[string]bool),
		cmdCh:      make(chan listenCmd, 64),
		listenGen:  make(map[string]uint64),
	}
}

// Start connects the dedicated LISTEN connection and begins the
// receive loop. Call Stop to shut down cleanly.
func (l *NotifyListener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return err
	}
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	loopCtx, cancel := context.WithCancel(context.Background())
	l.cancelLoop = cancel
	l.loopDone = make(chan struct{})
	go l.receiveLoop(loopCtx)
	return nil
}

// Stop cancels the receive loop and waits for it to exit before closing
// the connection — ordering matters, since closing first would race
// WaitForNotification against Close on the same conn.
func (l *NotifyListener) Stop() {
	if l.cancelLoop != nil {
		l.cancelLoop()
	}
	if l.loopDone != nil {
		<-l.loopDone
	}
	l.connMu.Lock()
	if l.conn != nil {
		_ = l.conn.Close(context.Background())
	}
	l.connMu.Unlock()
}

// Subscribe always issues LISTEN, even if channel is already marked
// active: a concurrent Unsubscribe racing against a stale generation
// must never leave this newer interest un-listened.
func (l *NotifyListener) Subscribe(channel string) error {
	gen := l.bumpGen(channel)
	return l.sendCmd(listenCmd{sql: "LISTEN " + pgx.Identifier{channel}.Sanitize(), channel: channel, gen: gen})
}

// Unsubscribe captures the current generation before sending UNLISTEN;
// if a newer Subscribe for the same channel races ahead of it, the
// stale UNLISTEN is detected and skipped in processPendingCmds.
func (l *NotifyListener) Unsubscribe(channel string) error {
	l.listenGenMu.Lock()
	gen := l.listenGen[channel]
	l.listenGenMu.Unlock()
	return l.sendCmd(listenCmd{sql: "UNLISTEN " + pgx.Identifier{channel}.Sanitize(), channel: channel, gen: gen})
}

func (l *NotifyListener) bumpGen(channel string) uint64 {
	l.listenGenMu.Lock()
	defer l.listenGenMu.Unlock()
	l.listenGen[channel]++
	return l.listenGen[channel]
}

func (l *NotifyListener) sendCmd(cmd listenCmd) error {
	cmd.result = make(chan error, 1)
	l.cmdCh <- cmd
	return <-cmd.result
}

func (l *NotifyListener) receiveLoop(ctx context.Context) {
	defer close(l.loopDone)
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmdCh:
			l.processCmd(ctx, cmd)
		default:
		}

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		notif, err := l.conn.WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() == context.DeadlineExceeded {
				continue
			}
			slog.Warn("gateway: notify connection lost, reconnecting", "error", err)
			if !l.reconnect(ctx, &backoff) {
				return
			}
			continue
		}
		backoff = time.Second

		l.channelsMu.RLock()
		active := l.channels[notif.Channel]
		l.channelsMu.RUnlock()
		if !active {
			continue
		}
		l.dispatch(notif.Channel, []byte(notif.Payload))
	}
}

func (l *NotifyListener) processCmd(ctx context.Context, cmd listenCmd) {
	l.listenGenMu.Lock()
	current := l.listenGen[cmd.channel]
	l.listenGenMu.Unlock()
	isUnlisten := len(cmd.sql) >= 8 && cmd.sql[:8] == "UNLISTEN"
	if isUnlisten && cmd.gen != current {
		cmd.result <- nil // stale, a newer Subscribe superseded this
		return
	}

	_, err := l.conn.Exec(ctx, cmd.sql)
	if err == nil {
		l.channelsMu.Lock()
		if isUnlisten {
			delete(l.channels, cmd.channel)
		} else {
			l.channels[cmd.channel] = true
		}
		l.channelsMu.Unlock()
	}
	cmd.result <- err
}

func (l *NotifyListener) reconnect(ctx context.Context, backoff *time.Duration) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(*backoff):
		}
		*backoff *= 2
		if *backoff > 30*time.Second {
			*backoff = 30 * time.Second
		}

		conn, err := pgx.Connect(ctx, l.connString)
		if err != nil {
			slog.Warn("gateway: reconnect attempt failed", "error", err)
			continue
		}
		l.connMu.Lock()
		l.conn = conn
		l.connMu.Unlock()

		l.channelsMu.RLock()
		toRelisten := make([]string, 0, len(l.channels))
		for ch := range l.channels {
			toRelisten = append(toRelisten, ch)
		}
		l.channelsMu.RUnlock()
		for _, ch := range toRelisten {
			if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
				slog.Warn("gateway: re-listen failed after reconnect", "channel", ch, "error", err)
			}
		}
		return true
	}
}

// dispatch decodes the envelope and forwards it as a server frame to
// whatever connection is currently bound to that session, if any.
func (l *NotifyListener) dispatch(channel string, payload []byte) {
	var env struct {
		Type      string          `json:"type"`
		SessionID string          `json:"session_id"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("gateway: malformed notify payload", "channel", channel, "error", err)
		return
	}
	conn := l.hub.SenderFor(env.SessionID)
	if conn == nil {
		return // no local connection bound; event is dropped (workflow still persisted it)
	}
	conn.SendFrame(5*time.Second, ServerFrame{Type: env.Type, SessionID: env.SessionID, Data: env.Data})
}
