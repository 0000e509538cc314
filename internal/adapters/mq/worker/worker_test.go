package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/groove/internal/adapters/mq/queue"
	"github.com/okian/groove/internal/adapters/mq/worker"
	"github.com/okian/groove/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockRecorder struct {
	mu      sync.Mutex
	records []model.RunRecord
	fail    int
}

func (m *mockRecorder) Append(_ context.Context, rec model.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return errors.New("store unavailable")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRecorder) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.ID
	}
	return out
}

type collectSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *collectSink) Handle(_ context.Context, e model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collectSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func gameEnd(id string, score int) model.Event {
	rec := model.RunRecord{ID: id, SongMD5: "song", Score: score, StarRating: 3, PlayedAt: time.Now().UTC()}
	return model.Event{Kind: model.KindGameEnd, SongMD5: "song", TotalScore: score, Record: &rec}
}

func drain(p *worker.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	So(p.Shutdown(ctx), ShouldBeNil)
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := &mockRecorder{}
		sink := &collectSink{}
		p := worker.NewPool(2, q, rec, worker.WithSink(sink))
		p.Start(context.Background())
		ctx := context.Background()

		Convey("When a session emits feedback and a game end", func() {
			q.Enqueue(ctx, model.Event{Kind: model.KindTier, Beat: 0, Tier: "PERFECT"})
			q.Enqueue(ctx, model.Event{Kind: model.KindComboMilestone, Beat: 2, Combo: 3})
			q.Enqueue(ctx, gameEnd("run-1", 4200))
			drain(p)

			Convey("Then every event reaches the sink and the run is stored", func() {
				So(sink.len(), ShouldEqual, 3)
				So(rec.ids(), ShouldResemble, []string{"run-1"})
				So(p.Processed(), ShouldEqual, 3)
			})
		})

		Convey("When the same game end is delivered twice", func() {
			q.Enqueue(ctx, gameEnd("run-1", 4200))
			q.Enqueue(ctx, gameEnd("run-1", 4200))
			drain(p)

			Convey("Then the run is stored once", func() {
				So(rec.ids(), ShouldResemble, []string{"run-1"})
				So(sink.len(), ShouldEqual, 2)
			})
		})

		Convey("When a game end carries no record", func() {
			q.Enqueue(ctx, model.Event{Kind: model.KindGameEnd})
			drain(p)

			Convey("Then nothing is stored", func() {
				So(rec.ids(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a recorder that fails once", t, func() {
		q := queue.NewInMemoryQueue()
		rec := &mockRecorder{fail: 1}
		p := worker.NewPool(1, q, rec)
		p.Start(context.Background())
		ctx := context.Background()

		q.Enqueue(ctx, gameEnd("run-2", 100))
		q.Enqueue(ctx, gameEnd("run-2", 100))
		drain(p)

		Convey("Then a redelivery of the same run is retried", func() {
			So(rec.ids(), ShouldResemble, []string{"run-2"})
		})
	})

	Convey("Given a pool created with no workers", t, func() {
		q := queue.NewInMemoryQueue()
		p := worker.NewPool(0, q, nil)
		p.Start(context.Background())
		q.Enqueue(context.Background(), gameEnd("run-3", 1))
		drain(p)

		Convey("Then it still runs one worker", func() {
			So(p.Processed(), ShouldEqual, 1)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	Convey("Given a running worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, &mockRecorder{}, worker.WithName("solo"))
		go w.Run(context.Background())

		Convey("When it is shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			Convey("Then it returns promptly and a second call is harmless", func() {
				So(w.Shutdown(ctx), ShouldBeNil)
				So(w.Shutdown(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a worker that was never started", t, func() {
		w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), nil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		Convey("Then shutdown times out with the context error", func() {
			err := w.Shutdown(ctx)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}
