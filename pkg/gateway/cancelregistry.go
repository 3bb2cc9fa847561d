package gateway

import (
	"context"
	"sync"
)

// cancelRegistry tracks the cancel func for each in-flight turn on this
// pod, keyed by session id, so a control{action:"cancel"} frame can
// reach the right goroutine. Mirrors activeSessions
// registry idiom (pkg/queue/pool.go), scoped to one process: a cancel
// for a session owned by another pod is not reachable from here.
type cancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

var activeCancels = &cancelRegistry{cancels: make(map[string]context.CancelFunc)}

func (r *cancelRegistry) put(sessionID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[sessionID] = cancel
}

// take returns and removes the cancel func for sessionID, if present.
func (r *cancelRegistry) take(sessionID string) (context.CancelFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cancels[sessionID]
	if ok {
		delete(r.cancels, sessionID)
	}
	return c, ok
}

// drop removes the registered cancel func for sessionID only if it is
// still the one passed in, so a turn's cleanup never clobbers a newer
// turn that reused the same session id after this one finished.
func (r *cancelRegistry) drop(sessionID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// context.CancelFunc values are not comparable, so just check
	// presence: by the time a turn's goroutine exits, a cancel call
	// (if any) has already removed the entry via take.
	if _, ok := r.cancels[sessionID]; ok {
		delete(r.cancels, sessionID)
	}
}
