package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/beewell/momentum/internal/adapters/mq/queue"
	"github.com/beewell/momentum/internal/adapters/mq/worker"
	"github.com/beewell/momentum/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// countingEvaluator records which users it was asked to evaluate.
type countingEvaluator struct {
	mu    sync.Mutex
	seen  []string
	delay time.Duration
}

func (e *countingEvaluator) EvaluateRules(_ context.Context, userID string, _ time.Time) error {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, userID)
	return nil
}

func (e *countingEvaluator) users() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.seen))
	copy(out, e.seen)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerProcessesSignals(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	Convey("Given a worker draining a queue", t, func() {
		q := queue.NewInMemoryQueue()
		eval := &countingEvaluator{}
		w := worker.NewInMemoryWorker(q, eval, worker.WithName("test"))

		runCtx, cancel := context.WithCancel(ctx)
		go w.Run(runCtx)

		Convey("Each queued signal reaches the evaluator", func() {
			So(q.Enqueue(ctx, queue.Signal{UserID: "user-1", ScoreDate: day}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Signal{UserID: "user-2", ScoreDate: day}), ShouldBeTrue)

			waitFor(t, func() bool { return len(eval.users()) == 2 })
			So(eval.users(), ShouldContain, "user-1")
			So(eval.users(), ShouldContain, "user-2")
		})

		Convey("Shutdown returns once the worker stops", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(ctx, time.Second)
			defer shutdownCancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})

		Reset(cancel)
	})
}

func TestPool(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	Convey("Given a pool of workers on one queue", t, func() {
		q := queue.NewInMemoryQueue()
		eval := &countingEvaluator{}
		pool := worker.NewPool(3, q, eval)
		So(pool.Size(), ShouldEqual, 3)

		runCtx, cancel := context.WithCancel(ctx)
		pool.Start(runCtx)

		Convey("The pool drains every signal exactly once", func() {
			for _, u := range []string{"a", "b", "c", "d", "e"} {
				So(q.Enqueue(ctx, queue.Signal{UserID: u, ScoreDate: day}), ShouldBeTrue)
			}

			waitFor(t, func() bool { return len(eval.users()) == 5 })
			seen := eval.users()
			So(len(seen), ShouldEqual, 5)
			for _, u := range []string{"a", "b", "c", "d", "e"} {
				So(seen, ShouldContain, u)
			}
		})

		Convey("Shutdown stops every worker", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(ctx, time.Second)
			defer shutdownCancel()
			So(pool.Shutdown(shutdownCtx), ShouldBeNil)
		})

		Reset(cancel)
	})

	Convey("A non-positive count falls back to a CPU multiple", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &countingEvaluator{})
		So(pool.Size(), ShouldBeGreaterThan, 0)
	})
}
