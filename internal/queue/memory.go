// Package queue provides the download job queue: swappable FIFO backends
// plus the single consumer that executes jobs one at a time.
package queue

import (
	"context"
	"fmt"
	"sync"

	"whatswizard/internal/core/domain"
)

const defaultCapacity = 256

// MemoryQueue is the default in-process backend: a bounded channel with
// pending/running accounting. It does not survive restarts.
type MemoryQueue struct {
	mu      sync.Mutex
	ch      chan domain.Job
	pending int
	running int
	closed  bool
}

// NewMemoryQueue creates a queue holding at most capacity pending jobs.
// capacity <= 0 selects the default.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryQueue{ch: make(chan domain.Job, capacity)}
}

// Enqueue appends a job without blocking on the consumer. A full or closed
// queue counts as an unavailable backing store.
func (q *MemoryQueue) Enqueue(_ context.Context, job domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("enqueue %s: %w", job.ID, domain.ErrQueueUnavailable)
	}
	select {
	case q.ch <- job:
		q.pending++
		return nil
	default:
		return fmt.Errorf("enqueue %s: queue full: %w", job.ID, domain.ErrQueueUnavailable)
	}
}

// Dequeue blocks until a job is available or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	select {
	case job := <-q.ch:
		q.mu.Lock()
		q.pending--
		q.running++
		q.mu.Unlock()
		return job, nil
	case <-ctx.Done():
		return domain.Job{}, ctx.Err()
	}
}

// Done records the terminal status of the running job.
func (q *MemoryQueue) Done(_ context.Context, _ string, status domain.JobStatus, _ string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("non-terminal status %q", status)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running > 0 {
		q.running--
	}
	return nil
}

// Count returns pending plus running jobs.
func (q *MemoryQueue) Count(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending + q.running, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
