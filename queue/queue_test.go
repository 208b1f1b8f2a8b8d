package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueProcessesTask(t *testing.T) {
	q := New(10, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var processed int32
	done := make(chan struct{})
	ok := q.Enqueue(Task{
		ID:     "run1",
		Source: "test",
		Work: func(ctx context.Context) error {
			atomic.AddInt32(&processed, 1)
			close(done)
			return nil
		},
	})
	if !ok {
		t.Fatalf("expected enqueue to succeed")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task did not complete")
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("task not processed")
	}
}

func TestQueueBounded(t *testing.T) {
	q := New(1, 0, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	ok := q.Enqueue(Task{ID: "slow", Source: "test", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	if !ok {
		t.Fatalf("expected first enqueue to succeed")
	}

	if ok := q.Enqueue(Task{ID: "drop", Source: "test", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("expected enqueue to be rejected when queue is full")
	}
}

func TestEnqueueWithRetryDropsWhenFull(t *testing.T) {
	q := New(1, 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	// Fill the queue so the retry path triggers.
	first := q.Enqueue(Task{ID: "first", Source: "test", Work: func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }})
	if !first {
		t.Fatalf("expected initial enqueue to succeed")
	}

	enqueued, dropped := q.EnqueueWithRetry(ctx, Task{ID: "retry", Source: "test", Work: func(ctx context.Context) error { return nil }}, 200*time.Millisecond, 50*time.Millisecond)
	if enqueued {
		t.Fatalf("expected enqueue to fail due to full queue")
	}
	if !dropped {
		t.Fatalf("expected enqueue to be reported as dropped after retries")
	}
}

func TestEnqueueWithRetrySucceedsWhenSlotFrees(t *testing.T) {
	q := New(1, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	block := make(chan struct{})
	if !q.Enqueue(Task{ID: "blocker", Source: "test", Work: func(ctx context.Context) error { <-block; return nil }}) {
		t.Fatalf("expected blocker enqueue to succeed")
	}
	if !q.Enqueue(Task{ID: "filler", Source: "test", Work: func(ctx context.Context) error { return nil }}) {
		t.Fatalf("expected filler enqueue to succeed")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(block)
	}()
	enqueued, dropped := q.EnqueueWithRetry(ctx, Task{ID: "retry", Source: "test", Work: func(ctx context.Context) error { return nil }}, 2*time.Second, 20*time.Millisecond)
	if !enqueued || dropped {
		t.Fatalf("expected retry to land once a slot freed, got enqueued=%v dropped=%v", enqueued, dropped)
	}
}

func TestStopRejectsNewTasks(t *testing.T) {
	q := New(2, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	q.Stop(stopCtx)

	if q.Healthy() {
		t.Fatalf("stopped queue must report unhealthy")
	}
	// Must refuse cleanly, not panic on the closed channel.
	if ok := q.Enqueue(Task{ID: "late", Source: "test", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("enqueue after stop must be rejected")
	}
}

func TestSerializedRuns(t *testing.T) {
	q := New(4, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var running int32
	var overlap int32
	done := make(chan struct{}, 3)
	work := func(ctx context.Context) error {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.AddInt32(&overlap, 1)
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		done <- struct{}{}
		return nil
	}
	for i := 0; i < 3; i++ {
		if !q.Enqueue(Task{ID: "run", Source: "test", Work: work}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d did not finish", i)
		}
	}
	if atomic.LoadInt32(&overlap) != 0 {
		t.Fatalf("runs overlapped on a single-worker queue")
	}
}
