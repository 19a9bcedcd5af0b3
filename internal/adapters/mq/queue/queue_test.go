package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/beewell/momentum/internal/adapters/mq/queue"
)

func signal(userID string) queue.Signal {
	return queue.Signal{
		UserID:    userID,
		ScoreDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue()

		Convey("Enqueued signals come back in order", func() {
			So(q.Enqueue(ctx, signal("user-1")), ShouldBeTrue)
			So(q.Enqueue(ctx, signal("user-2")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			first := <-out
			second := <-out
			So(first.UserID, ShouldEqual, "user-1")
			So(second.UserID, ShouldEqual, "user-2")
		})

		Convey("Close drains into a closed dequeue channel", func() {
			So(q.Enqueue(ctx, signal("user-1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)

			out := q.Dequeue(ctx)
			s, ok := <-out
			So(ok, ShouldBeTrue)
			So(s.UserID, ShouldEqual, "user-1")

			_, ok = <-out
			So(ok, ShouldBeFalse)
		})

		Convey("Enqueue after close is refused", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Enqueue(ctx, signal("user-1")), ShouldBeFalse)
		})

		Convey("Close is idempotent", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
		})
	})

	Convey("Given a queue with a tiny capacity", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2), queue.WithBufferSize(2))

		Convey("Enqueue refuses once the capacity is reached", func() {
			So(q.Enqueue(ctx, signal("user-1")), ShouldBeTrue)
			So(q.Enqueue(ctx, signal("user-2")), ShouldBeTrue)
			So(q.Enqueue(ctx, signal("user-3")), ShouldBeFalse)
			So(q.Len(ctx), ShouldEqual, 2)
		})
	})
}
