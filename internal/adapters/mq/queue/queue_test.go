package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	convey.Convey("Given a default queue", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue()

		convey.So(q.Len(ctx), convey.ShouldEqual, 0)

		convey.Convey("When one trigger is pending", func() {
			convey.So(q.Enqueue(ctx, Trigger{Reason: ReasonManual, RequestedAt: time.Now()}), convey.ShouldBeNil)

			convey.Convey("Then a second trigger is coalesced", func() {
				err := q.Enqueue(ctx, Trigger{Reason: ReasonSchedule})
				convey.So(errors.Is(err, ErrQueueFull), convey.ShouldBeTrue)
				convey.So(q.Len(ctx), convey.ShouldEqual, 1)
			})

			convey.Convey("Then it is delivered in order", func() {
				got := <-q.Dequeue(ctx)
				convey.So(got.Reason, convey.ShouldEqual, ReasonManual)
				convey.So(q.Len(ctx), convey.ShouldEqual, 0)
				convey.So(q.Enqueue(ctx, Trigger{Reason: ReasonSchedule}), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			convey.So(q.Close(), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then enqueue fails and the channel drains closed", func() {
				err := q.Enqueue(ctx, Trigger{Reason: ReasonManual})
				convey.So(errors.Is(err, ErrClosed), convey.ShouldBeTrue)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				_, ok := <-q.Dequeue(ctx)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a larger queue under concurrent producers", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(4))

		var wg sync.WaitGroup
		var mu sync.Mutex
		accepted := 0
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if q.Enqueue(ctx, Trigger{Reason: ReasonManual}) == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		convey.So(accepted, convey.ShouldEqual, 4)
		convey.So(q.Len(ctx), convey.ShouldEqual, 4)
	})
}
