package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/mu3/internal/adapters/mq/queue"
	"github.com/okian/mu3/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When two jobs are enqueued", func() {
			So(q.Enqueue(ctx, queue.Job{Kind: queue.KindBattle, ID: "1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{Kind: queue.KindChat, ID: "2"}), ShouldBeTrue)

			Convey("Then a third is rejected as full", func() {
				So(errors.Is(q.TryEnqueue(ctx, queue.Job{ID: "3"}), queue.ErrFull), ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("Then they come out in order with a timestamp", func() {
				out := q.Dequeue(ctx)
				first := <-out
				second := <-out
				So(first.ID, ShouldEqual, "1")
				So(first.EnqueuedAt.IsZero(), ShouldBeFalse)
				So(second.Kind, ShouldEqual, queue.KindChat)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Job{ID: "a"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are refused and queued ones drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.TryEnqueue(ctx, queue.Job{ID: "b"}), queue.ErrClosed), ShouldBeTrue)

				var ids []string
				for j := range q.Dequeue(ctx) {
					ids = append(ids, j.ID)
				}
				So(ids, ShouldResemble, []string{"a"})
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(q.TryEnqueue(cctx, queue.Job{ID: "x"}), context.Canceled), ShouldBeTrue)
		})

		Convey("When the consumer context ends", func() {
			cctx, cancel := context.WithCancel(ctx)
			out := q.Dequeue(cctx)
			cancel()
			So(q.Enqueue(ctx, queue.Job{ID: "late"}), ShouldBeTrue)

			Convey("Then the channel is closed and the job waits for the next consumer", func() {
				received := 0
				timeout := time.After(time.Second)
			drain:
				for {
					select {
					case _, ok := <-out:
						if !ok {
							break drain
						}
						received++
					case <-timeout:
						So("timeout", ShouldBeEmpty)
						break drain
					}
				}
				So(received, ShouldEqual, 0)
				So(q.Len(ctx), ShouldEqual, 1)

				select {
				case j := <-q.Dequeue(ctx):
					So(j.ID, ShouldEqual, "late")
				case <-time.After(time.Second):
					So("requeued job never delivered", ShouldBeEmpty)
				}
			})
		})
	})
}
