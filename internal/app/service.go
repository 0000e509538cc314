// Package service owns the long-lived parts of the game: the run history
// store, the event queue and its workers, and at most one active session.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/groove/internal/adapters/mq/queue"
	workerpool "github.com/okian/groove/internal/adapters/mq/worker"
	repository "github.com/okian/groove/internal/adapters/repository"
	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/dedupe"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/scoring"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/pkg/logger"
	"github.com/okian/groove/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// Service implements the dependencies of the HTTP API and the terminal player.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool
	sink    workerpool.Sink

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	upperBodyOnly bool
	sessionOpts   []game.Option
	transports    TransportFactory

	// State
	started bool
	ctx     context.Context
	cancel  context.CancelFunc

	startMu    sync.Mutex
	session    *game.Session
	sessionRun chan struct{}

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: min(runtime.NumCPU(), 4),
		queueSize:   4096,
		dedupeSize:  10_000,
		transports:  DefaultTransports(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.logger.Info(ctx, "starting groove service...")

	if s.store == nil {
		s.store = repository.NewTreapStore(repository.WithLogger(s.logger.Named("repository")))
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)

	// workers outlive the caller's ctx; Stop drains them
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store,
		workerpool.WithLogger(s.logger),
		workerpool.WithSink(s.sink),
		workerpool.WithDeduper(s.deduper),
	)
	s.pool.Start(s.ctx)

	s.started = true
	s.logger.Info(ctx, "groove service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop ends the active session, drains pending events into the store and
// closes it.
func (s *Service) Stop(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	sess, running := s.session, s.sessionRun
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping groove service...")
	if sess != nil {
		sess.Close()
		<-running
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	var errs []error
	if err := s.pool.Shutdown(stopCtx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.logger.Info(ctx, "groove service stopped")
	return errors.Join(errs...)
}

// StartSession loads the requested choreography, tears down any current
// session (a song change) and starts a new one. It blocks through the
// count-in. A concurrent start fails fast with game.ErrStartInProgress.
func (s *Service) StartSession(ctx context.Context, req model.SessionRequest) (*game.Session, error) {
	if !s.startMu.TryLock() {
		return nil, game.ErrStartInProgress
	}
	defer s.startMu.Unlock()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, fmt.Errorf("start session: service not started")
	}

	tl, err := s.timeline(req)
	if err != nil {
		return nil, err
	}
	transport, err := s.transports(tl, req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", game.ErrTransportStart, err)
	}

	s.stopSession()

	log := s.logger.Named("game")
	opts := append([]game.Option{
		game.WithLogger(log),
		game.WithPublisher(s.queue),
	}, s.sessionOpts...)
	engine := scoring.NewEngine(scoring.WithUpperBodyOnly(s.upperBodyOnly))

	sess, err := game.Start(ctx, tl, engine, transport, opts...)
	if err != nil {
		return nil, err
	}

	running := make(chan struct{})
	s.mu.Lock()
	s.session, s.sessionRun = sess, running
	s.mu.Unlock()
	metrics.UpdateSessionsActive(1)

	go func() {
		defer close(running)
		defer metrics.UpdateSessionsActive(0)
		if err := sess.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(s.ctx, "session stopped", logger.Error(err))
		}
	}()
	return sess, nil
}

func (s *Service) timeline(req model.SessionRequest) (*choreo.Timeline, error) {
	var c choreo.Choreography
	switch {
	case req.Choreography != nil:
		c = *req.Choreography
	case req.ChoreographyPath != "":
		loaded, err := choreo.LoadFile(req.ChoreographyPath)
		if err != nil {
			return nil, err
		}
		c = loaded
	default:
		return nil, fmt.Errorf("%w: no choreography given", choreo.ErrEmptyChoreography)
	}
	if len(c.Frames) == 0 {
		return nil, choreo.ErrEmptyChoreography
	}
	return choreo.NewTimeline(c, choreo.WithLogger(s.logger.Named("choreo"))), nil
}

// stopSession closes the current session and waits for its runner.
func (s *Service) stopSession() {
	s.mu.Lock()
	sess, running := s.session, s.sessionRun
	s.session, s.sessionRun = nil, nil
	s.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Close()
	<-running
}

// StopSession closes the current session without recording a run.
func (s *Service) StopSession(_ context.Context) error {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()
	if sess == nil {
		return game.ErrNoSession
	}
	sess.Close()
	return nil
}

// Session returns the current session, which may already have ended, or nil.
func (s *Service) Session() *game.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// History returns a song's recent runs, newest first.
func (s *Service) History(ctx context.Context, songMD5 string) ([]model.RunRecord, error) {
	return s.store.History(ctx, songMD5)
}

// Best returns a song's best run.
func (s *Service) Best(ctx context.Context, songMD5 string) (model.SongBest, error) {
	return s.store.Best(ctx, songMD5)
}

// TopN returns the best score of the n highest-scoring songs.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns a song's position on the best-score board.
func (s *Service) Rank(ctx context.Context, songMD5 string) (repository.Entry, error) {
	return s.store.Rank(ctx, songMD5)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["eventsProcessed"] = s.pool.Processed()
	stats["recordedRuns"] = s.deduper.Size()
	stats["droppedBeats"] = s.queue.Dropped(model.KindBeat)
	stats["droppedTiers"] = s.queue.Dropped(model.KindTier)
	if songs, err := s.store.Count(ctx); err == nil {
		stats["songs"] = songs
		metrics.UpdateRepositorySongs(songs)
	} else {
		s.logger.Warn(ctx, "unable to count songs", logger.Error(err))
	}
	if s.session != nil {
		stats["session"] = s.session.Status()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
