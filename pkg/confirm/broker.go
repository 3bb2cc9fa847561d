// Package confirm implements the process-wide Confirmation Broker
// (SPEC_FULL.md §4.4): a registry of single-use resolution channels
// keyed by confirmation id, used to gate destructive tool calls on a
// human-in-the-loop approval delivered over the live session transport.
package confirm

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Resolution is delivered to the blocked caller when a confirmation is
// resolved or cancelled.
type Resolution struct {
	Approved  bool
	Cancelled bool
}

// Pending mirrors the transient PendingConfirmation entity from §3.
type Pending struct {
	ConfirmationID string
	SessionID      string
	UserID         string
	ToolName       string
	Message        string
	CreatedAt      time.Time
}

// Publisher sends a confirmation_request event for a session; the
// gateway implements this by writing to the connection's outbound
// channel.
type Publisher interface {
	PublishConfirmationRequest(sessionID string, p Pending)
}

// Broker is the process-wide registry. Safe for concurrent use.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*entry
}

type entry struct {
	pending Pending
	ch      chan Resolution
	closed  bool
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{pending: make(map[string]*entry)}
}

// Request allocates a confirmation id, registers the PendingConfirmation,
// publishes the request via pub, then blocks the caller until Resolve or
// CancelPendingForSession delivers a Resolution. Ordering invariant: the
// PendingConfirmation is registered before the event is published, so a
// resolve can never race ahead of the registration (§4.4).
func (b *Broker) Request(pub Publisher, userID, sessionID, toolName, message string) Resolution {
	id := uuid.NewString()
	e := &entry{
		pending: Pending{
			ConfirmationID: id,
			SessionID:      sessionID,
			UserID:         userID,
			ToolName:       toolName,
			Message:        message,
			CreatedAt:      time.Now(),
		},
		ch: make(chan Resolution, 1),
	}

	b.mu.Lock()
	b.pending[id] = e
	b.mu.Unlock()

	pub.PublishConfirmationRequest(sessionID, e.pending)

	return <-e.ch
}

// Resolve delivers a decision for confirmationID. Idempotent: a resolve
// for an already-closed or unknown id is a no-op (a late resolve for a
// closed id is dropped, per §4.4).
func (b *Broker) Resolve(confirmationID string, approved bool) {
	b.mu.Lock()
	e, ok := b.pending[confirmationID]
	if ok {
		delete(b.pending, confirmationID)
	}
	b.mu.Unlock()

	if !ok || e.closed {
		return
	}
	e.closed = true
	e.ch <- Resolution{Approved: approved}
}

// CancelPendingForSession resolves every pending confirmation for
// sessionID as approved=false with Cancelled=true, and returns the
// count cancelled.
func (b *Broker) CancelPendingForSession(sessionID string) int {
	b.mu.Lock()
	var toCancel []*entry
	for id, e := range b.pending {
		if e.pending.SessionID == sessionID {
			toCancel = append(toCancel, e)
			delete(b.pending, id)
		}
	}
	b.mu.Unlock()

	for _, e := range toCancel {
		e.closed = true
		e.ch <- Resolution{Approved: false, Cancelled: true}
	}
	return len(toCancel)
}

// PendingForSession returns a snapshot of pending confirmations for a
// session, used by reconnect handling to re-surface outstanding requests.
func (b *Broker) PendingForSession(sessionID string) []Pending {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Pending
	for _, e := range b.pending {
		if e.pending.SessionID == sessionID {
			out = append(out, e.pending)
		}
	}
	return out
}
