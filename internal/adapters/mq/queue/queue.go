// Package queue carries consolidation triggers to the pass worker.
//
// The default capacity is one: a trigger that arrives while another is
// already waiting is coalesced into it, since both would run the same pass.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/pkg/metrics"
)

const defaultCapacity = 1

// Trigger reasons.
const (
	ReasonManual   = "manual"
	ReasonSchedule = "schedule"
	ReasonStartup  = "startup"
	ReasonCommand  = "command"
)

// Trigger asks for one consolidation pass.
type Trigger struct {
	Reason      string
	RequestedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue returns ErrQueueFull when a trigger is already pending and
	// ErrClosed after Close.
	Enqueue(ctx context.Context, t Trigger) error

	// Dequeue returns the channel triggers arrive on. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Trigger

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	triggers chan Trigger
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.triggers = make(chan Trigger, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a trigger without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Trigger) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordTrigger("closed")
		return eris.Wrapf(ErrClosed, "trigger %s", t.Reason)
	}

	select {
	case q.triggers <- t:
		metrics.RecordTrigger("queued")
		metrics.UpdateQueueSize(len(q.triggers))
		return nil
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return eris.Wrap(ctx.Err(), "enqueue trigger")
	default:
		metrics.RecordTrigger("coalesced")
		return eris.Wrapf(ErrQueueFull, "trigger %s", t.Reason)
	}
}

// Dequeue returns the trigger channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Trigger {
	return q.triggers
}

// Len returns the number of pending triggers.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.triggers)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting triggers and closes the channel.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.triggers)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
