package jobs

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull indicates the queue rejected an enqueue because it is at
	// capacity. Submissions fail fast instead of blocking the API.
	ErrQueueFull = errors.New("job queue full")

	// ErrQueueClosed indicates the queue was shut down.
	ErrQueueClosed = errors.New("job queue closed")
)

// Queue hands job ids from submitters to workers. Dequeue blocks until a job
// id is available, the context is cancelled, or the queue is closed.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context) (string, error)
	Close() error
}

const defaultMemoryQueueCapacity = 256

// MemoryQueue is a bounded in-process queue backed by a buffered channel.
// The default for single-node deployments.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   chan string
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = defaultMemoryQueueCapacity
	}

	return &MemoryQueue{jobs: make(chan string, capacity)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case jobID, ok := <-q.jobs:
		if !ok {
			return "", ErrQueueClosed
		}

		return jobID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.jobs)

	return nil
}
