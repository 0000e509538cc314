// Package worker consumes game events off the queue: it persists run records
// from game-end events and forwards every event to an optional feedback sink.
package worker

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/groove/internal/domain/dedupe"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/pkg/logger"
	"github.com/okian/groove/pkg/metrics"
)

const poolShutdownTimeout = 10 * time.Second

// Event is what workers read off the queue.
type Event = model.Event

// Recorder persists finished runs.
type Recorder interface {
	Append(ctx context.Context, rec model.RunRecord) error
}

// Sink receives every event, e.g. a terminal feedback printer.
type Sink interface {
	Handle(ctx context.Context, e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event)

// Handle calls f.
func (f SinkFunc) Handle(ctx context.Context, e Event) { f(ctx, e) }

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	sink     Sink
	deduper  dedupe.Deduper
	name     string

	processed *atomic.Int64
	busy      *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker. recorder may be nil, in which case
// game-end events are only forwarded.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		recorder:  recorder,
		name:      "worker",
		processed: &atomic.Int64{},
		busy:      &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.deduper == nil {
		w.deduper = dedupe.NewInMemoryDeduper()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop. It returns when ctx is cancelled, Shutdown is
// called, or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, e); err != nil {
				w.logger.Error(ctx, "error processing event", logger.String("kind", string(e.Kind)), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many events this worker has handled.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

func (w *InMemoryWorker) processEvent(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.busy.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.busy.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		w.processed.Add(1)
	}()

	if w.sink != nil {
		w.sink.Handle(ctx, e)
	}
	if e.Kind != model.KindGameEnd || e.Record == nil || w.recorder == nil {
		return nil
	}
	return w.record(ctx, *e.Record)
}

// record appends a run once per run id. A failed append is forgotten so a
// redelivery can retry it.
func (w *InMemoryWorker) record(ctx context.Context, rec model.RunRecord) error {
	if w.deduper.SeenAndRecord(ctx, rec.ID) {
		metrics.RecordRunDuplicate()
		w.logger.Debug(ctx, "duplicate run record", logger.String("run", rec.ID))
		return nil
	}
	if err := w.recorder.Append(ctx, rec); err != nil {
		w.deduper.Unrecord(ctx, rec.ID)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	metrics.RecordRunRecorded()
	w.logger.Info(ctx, "run recorded",
		logger.String("run", rec.ID),
		logger.String("song", rec.SongMD5),
		logger.Int("score", rec.Score),
	)
	return nil
}

// Pool manages several workers sharing one queue, recorder and deduper.
// With more than one worker, sink delivery order across events is not kept.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers (at least one). The options
// apply to every worker; a shared deduper is created when none is given.
func NewPool(workerCount int, queue Queue, recorder Recorder, opts ...Option) *Pool {
	workerCount = max(workerCount, 1)

	base := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(base)
	}
	shared := base.deduper
	if shared == nil {
		shared = dedupe.NewInMemoryDeduper()
	}
	processed, busy := &atomic.Int64{}, &atomic.Int64{}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  base.logger.Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := slices.Concat(opts, []Option{
			WithName("worker-" + strconv.Itoa(i)),
			WithDeduper(shared),
		})
		w := NewInMemoryWorker(queue, recorder, wopts...)
		w.processed, w.busy = processed, busy
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Processed returns how many events the pool has handled.
func (p *Pool) Processed() int64 {
	if len(p.workers) == 0 {
		return 0
	}
	return p.workers[0].processed.Load()
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
