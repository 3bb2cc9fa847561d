package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsAllSubmittedTasks(t *testing.T) {
	p := NewPool(4, 16)
	p.Start(context.Background())
	defer p.Stop()

	var n int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Submit(func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
		})
	}
	wg.Wait()

	if got := atomic.LoadInt64(&n); got != 50 {
		t.Fatalf("expected 50 tasks run, got %d", got)
	}
}

func TestPool_SurvivesPanickingTask(t *testing.T) {
	p := NewPool(1, 4)
	p.Start(context.Background())
	defer p.Stop()

	var ran int64
	var wg sync.WaitGroup
	wg.Add(2)
	p.Submit(func(ctx context.Context) {
		defer wg.Done()
		panic("boom")
	})
	p.Submit(func(ctx context.Context) {
		defer wg.Done()
		atomic.AddInt64(&ran, 1)
	})
	wg.Wait()

	if atomic.LoadInt64(&ran) != 1 {
		t.Fatal("expected the second task to still run after the first panicked")
	}
}

func TestPool_StopDrainsRunningTasksBeforeReturning(t *testing.T) {
	p := NewPool(2, 4)
	p.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	var finished int64
	p.Submit(func(ctx context.Context) {
		close(started)
		<-release
		atomic.AddInt64(&finished, 1)
	})

	<-started
	stopDone := make(chan struct{})
	go func() {
		p.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("Stop returned before the running task finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopDone

	if atomic.LoadInt64(&finished) != 1 {
		t.Fatal("expected the in-flight task to complete before Stop returned")
	}
}
