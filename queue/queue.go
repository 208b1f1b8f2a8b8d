// Package queue provides the bounded task queue that serializes audit runs.
// Triggers arrive from the scheduler, the file watcher, and the ops API; a
// fixed worker pool (one worker in practice) keeps runs from overlapping.
package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Task encapsulates one requested audit run.
type Task struct {
	ID       string
	Source   string
	Work     func(context.Context) error
	OnFinish func(error)
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int
	Capacity    int
	WorkerCount int
	Processed   uint64
	Failed      uint64
}

// Queue is a bounded task queue with a fixed worker pool.
type Queue struct {
	tasks       chan Task
	workerCount int
	timeout     time.Duration
	started     bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
}

// New creates a Queue with the provided capacity, worker count, and per-task
// timeout.
func New(capacity, workerCount int, timeout time.Duration) *Queue {
	return &Queue{
		tasks:       make(chan Task, capacity),
		workerCount: workerCount,
		timeout:     timeout,
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue attempts to queue a task without blocking. Returns false if the
// queue is full or not started.
func (q *Queue) Enqueue(t Task) bool {
	return q.tryEnqueue(t, true)
}

// EnqueueWithRetry holds a trigger for a bounded window when the queue is
// full, so a burst of file events does not silently lose the run request.
// Returns (enqueued, droppedFull).
func (q *Queue) EnqueueWithRetry(ctx context.Context, t Task, window time.Duration, interval time.Duration) (bool, bool) {
	deadline := time.Now().Add(window)
	attempt := func() bool {
		return q.tryEnqueue(t, false)
	}
	if attempt() {
		return true, false
	}
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false, false
		case <-time.After(interval):
			if attempt() {
				return true, false
			}
		}
	}
	return false, true
}

func (q *Queue) tryEnqueue(t Task, logDrop bool) bool {
	// The read lock is held across the send so Stop cannot close the
	// channel between the started check and the send.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		if logDrop {
			log.Printf("run queue not accepting tasks, dropping task %s", t.ID)
		}
		return false
	}
	select {
	case q.tasks <- t:
		return true
	default:
		if logDrop {
			log.Printf("run queue full, dropping task %s", t.ID)
		}
		return false
	}
}

// Stop stops accepting new tasks and waits for workers to drain until context
// is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	if q.tasks != nil {
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	length := 0
	if q.tasks != nil {
		length = len(q.tasks)
	}
	return Stats{
		Length:      length,
		Capacity:    cap(q.tasks),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			q.handleTask(ctx, t)
		}
	}
}

func (q *Queue) handleTask(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("task %s panic recovered: %v", t.ID, r)
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, q.timeout)
	err := t.Work(taskCtx)
	cancel()
	if t.OnFinish != nil {
		t.OnFinish(err)
	}
	atomic.AddUint64(&q.processed, 1)
	if err != nil {
		atomic.AddUint64(&q.failed, 1)
	}
	status := "success"
	if err != nil {
		status = err.Error()
	}
	log.Printf("task_source=%s task=%s duration_ms=%d status=%s", t.Source, t.ID, time.Since(start).Milliseconds(), status)
}

// Healthy reports whether the queue is accepting tasks: started and not yet
// stopped.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.started
}
