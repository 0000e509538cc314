package service

import (
	"github.com/okian/groove/internal/adapters/mq/worker"
	repository "github.com/okian/groove/internal/adapters/repository"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of event consumers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the run-id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the run history store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSink forwards every session event to sink after it leaves the queue.
func WithSink(sink worker.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithTransports sets how a session's audio transport is built.
func WithTransports(f TransportFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.transports = f
		}
	}
}

// WithUpperBodyOnly scores sessions on the upper-body bones only.
func WithUpperBodyOnly(enabled bool) Option {
	return func(s *Service) {
		s.upperBodyOnly = enabled
	}
}

// WithSessionOptions applies opts to every session the service starts.
func WithSessionOptions(opts ...game.Option) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}
