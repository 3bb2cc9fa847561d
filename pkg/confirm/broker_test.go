package confirm

import (
	"sync"
	"testing"
	"time"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []Pending
}

func (f *fakePublisher) PublishConfirmationRequest(sessionID string, p Pending) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, p)
}

func TestBroker_RequestThenResolveApproved(t *testing.T) {
	b := New()
	pub := &fakePublisher{}

	var res Resolution
	done := make(chan struct{})
	go func() {
		res = b.Request(pub, "user-1", "sess-1", "iac_tool", "apply terraform plan?")
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		pub.mu.Lock()
		n := len(pub.published)
		pub.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	pending := b.PendingForSession("sess-1")
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending confirmation, got %d", len(pending))
	}
	b.Resolve(pending[0].ConfirmationID, true)

	<-done
	if !res.Approved || res.Cancelled {
		t.Errorf("expected approved resolution, got %+v", res)
	}
}

func TestBroker_ResolveIsIdempotent(t *testing.T) {
	b := New()
	pub := &fakePublisher{}

	done := make(chan Resolution, 1)
	go func() { done <- b.Request(pub, "u", "s", "tool", "msg") }()

	time.Sleep(10 * time.Millisecond)
	pending := b.PendingForSession("s")
	if len(pending) != 1 {
		t.Fatal("expected pending confirmation to be registered before resolve")
	}
	id := pending[0].ConfirmationID

	b.Resolve(id, true)
	<-done

	// A second, late resolve for the now-closed id must be dropped, not panic.
	b.Resolve(id, false)
}

func TestBroker_CancelPendingForSession(t *testing.T) {
	b := New()
	pub := &fakePublisher{}

	results := make(chan Resolution, 2)
	go func() { results <- b.Request(pub, "u", "sess-cancel", "tool_a", "m1") }()
	go func() { results <- b.Request(pub, "u", "sess-cancel", "tool_b", "m2") }()
	go func() { results <- b.Request(pub, "u", "sess-other", "tool_c", "m3") }()

	time.Sleep(10 * time.Millisecond)
	n := b.CancelPendingForSession("sess-cancel")
	if n != 2 {
		t.Errorf("CancelPendingForSession = %d, want 2", n)
	}

	remaining := b.PendingForSession("sess-other")
	if len(remaining) != 1 {
		t.Errorf("expected sess-other's confirmation to survive, got %d pending", len(remaining))
	}
	b.Resolve(remaining[0].ConfirmationID, true)

	seen := 0
	timeout := time.After(time.Second)
	for seen < 3 {
		select {
		case r := <-results:
			seen++
			_ = r
		case <-timeout:
			t.Fatal("timed out waiting for all three Request calls to return")
		}
	}
}
