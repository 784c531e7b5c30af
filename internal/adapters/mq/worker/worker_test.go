package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/modelfusion/internal/adapters/mq/queue"
	"github.com/okian/modelfusion/internal/adapters/mq/worker"
	"github.com/smartystreets/goconvey/convey"
)

type mockRunner struct {
	mu       sync.Mutex
	reasons  []string
	running  atomic.Int32
	overlaps atomic.Int32
	delay    time.Duration
	err      error
}

func (m *mockRunner) RunPass(_ context.Context, t queue.Trigger) error {
	if m.running.Add(1) > 1 {
		m.overlaps.Add(1)
	}
	defer m.running.Add(-1)
	time.Sleep(m.delay)
	m.mu.Lock()
	m.reasons = append(m.reasons, t.Reason)
	m.mu.Unlock()
	return m.err
}

func (m *mockRunner) seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reasons...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestPassWorker(t *testing.T) {
	convey.Convey("Given a worker on a trigger queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		runner := &mockRunner{delay: 10 * time.Millisecond}
		w := worker.NewPassWorker(q, runner, worker.WithName("passes"))
		go w.Run(ctx)

		convey.Convey("When several triggers arrive", func() {
			for _, r := range []string{queue.ReasonStartup, queue.ReasonManual, queue.ReasonSchedule} {
				convey.So(q.Enqueue(ctx, queue.Trigger{Reason: r, RequestedAt: time.Now()}), convey.ShouldBeNil)
			}

			convey.Convey("Then passes run one at a time in order", func() {
				convey.So(waitFor(func() bool { return w.Completed() == 3 }), convey.ShouldBeTrue)
				convey.So(runner.seen(), convey.ShouldResemble, []string{"startup", "manual", "schedule"})
				convey.So(runner.overlaps.Load(), convey.ShouldEqual, 0)
				convey.So(w.Busy(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a pass fails", func() {
			runner.err = errors.New("boom")
			convey.So(q.Enqueue(ctx, queue.Trigger{Reason: queue.ReasonManual}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, queue.Trigger{Reason: queue.ReasonManual}), convey.ShouldBeNil)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return w.Completed() == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewPassWorker(q, &mockRunner{})
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()
		convey.So(q.Close(), convey.ShouldBeNil)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
	})

	convey.Convey("Given a worker that never started", t, func() {
		w := worker.NewPassWorker(queue.NewInMemoryQueue(), &mockRunner{})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		convey.So(w.Shutdown(ctx), convey.ShouldNotBeNil)
	})
}
