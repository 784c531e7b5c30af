// Package worker runs consolidation passes off the trigger queue, one at a
// time, so at most one pass is ever in flight.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/adapters/mq/queue"
	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

// Runner executes one consolidation pass.
type Runner interface {
	RunPass(ctx context.Context, t queue.Trigger) error
}

// Queue defines how the worker receives triggers.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Trigger
}

// Worker processes triggers.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the loop after the pass in flight, if any, completes.
	Shutdown(ctx context.Context) error
}

// PassWorker is the single consumer of the trigger queue.
type PassWorker struct {
	queue  Queue
	runner Runner
	name   string

	busy      atomic.Bool
	completed atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewPassWorker creates a worker with configuration options.
func NewPassWorker(q Queue, runner Runner, opts ...Option) *PassWorker {
	w := &PassWorker{
		queue:    q,
		runner:   runner,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *PassWorker) Run(ctx context.Context) {
	defer close(w.done)

	triggers := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-triggers:
			if !ok {
				return
			}
			w.process(ctx, t)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *PassWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return eris.Wrap(ctx.Err(), "worker shutdown timed out")
	}
}

// Busy reports whether a pass is running.
func (w *PassWorker) Busy() bool { return w.busy.Load() }

// Completed returns the number of passes run, failed ones included.
func (w *PassWorker) Completed() int64 { return w.completed.Load() }

func (w *PassWorker) process(ctx context.Context, t queue.Trigger) {
	if !t.RequestedAt.IsZero() {
		metrics.RecordWorkerTriggerLatency(float64(time.Since(t.RequestedAt).Milliseconds()))
	}

	w.busy.Store(true)
	metrics.UpdateWorkerBusy(true)
	defer func() {
		w.busy.Store(false)
		metrics.UpdateWorkerBusy(false)
		w.completed.Add(1)
	}()

	if err := w.runner.RunPass(ctx, t); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "pass_failed")
		w.logger.Error(ctx, "consolidation pass failed",
			logger.String("worker", w.name),
			logger.String("trigger", t.Reason),
			logger.Error(err),
		)
	}
}
