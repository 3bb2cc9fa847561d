package rcarunner

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func newTestRunner() *Runner {
	return &Runner{active: make(map[uuid.UUID]context.CancelFunc)}
}

func TestRegisterUnregisterExecution(t *testing.T) {
	r := newTestRunner()
	id := uuid.New()
	_, cancel := context.WithCancel(context.Background())

	r.registerExecution(id, cancel)
	if _, ok := r.active[id]; !ok {
		t.Fatal("expected execution to be registered")
	}

	r.unregisterExecution(id)
	if _, ok := r.active[id]; ok {
		t.Fatal("expected execution to be unregistered")
	}
}

func TestStop_CancelsActiveExecutionsAndDrains(t *testing.T) {
	r := newTestRunner()
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	r.registerExecution(id, cancel)

	r.wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer r.wg.Done()
		<-ctx.Done()
		close(done)
	}()

	r.Stop()

	select {
	case <-done:
	default:
		t.Fatal("expected registered cancel func to have been invoked by Stop")
	}
	if !r.stopped {
		t.Fatal("expected stopped flag set")
	}
}

func TestTriggerRCA_RejectsAfterStop(t *testing.T) {
	r := newTestRunner()
	r.stopped = true

	err := r.TriggerRCA(context.Background(), "user-1", uuid.New(), "pagerduty")
	if err != ErrShuttingDown {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}
