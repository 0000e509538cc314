package worker

import (
	"github.com/okian/groove/internal/domain/dedupe"
	"github.com/okian/groove/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSink forwards every event to s.
func WithSink(s Sink) Option {
	return func(w *InMemoryWorker) {
		w.sink = s
	}
}

// WithDeduper sets the run-id deduper used before persisting records.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *InMemoryWorker) {
		if d != nil {
			w.deduper = d
		}
	}
}
