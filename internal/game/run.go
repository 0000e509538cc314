package game

import (
	"context"
	"time"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/scoring"
	"github.com/okian/groove/pkg/logger"
)

// Run drives Tick at the configured rate until the song finishes, the
// session is closed, or ctx is cancelled. While paused the ticker is stopped
// entirely. When the transport reports completion the session ends and a
// game-end event carrying the run record is published.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		if s.paused() {
			ticker.Stop()
			select {
			case <-ctx.Done():
				s.Close()
				return ctx.Err()
			case <-s.done:
				return nil
			case <-s.wake:
				ticker.Reset(s.tickInterval)
				continue
			}
		}

		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.done:
			return nil
		case <-s.transport.Done():
			s.Tick()
			s.finish()
			return nil
		case <-s.wake:
		case <-ticker.C:
			s.Tick()
		}
	}
}

func (s *Session) paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.phase.(Paused)
	return ok
}

// finish moves the session to Ended and emits the game-end event. It is
// one-way; later calls and calls after Close do nothing.
func (s *Session) finish() {
	ctx := context.Background()
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return
	}
	s.closed.Store(true)

	st := s.engine.Snapshot()
	rec := model.NewRunRecord(s.tl.SongMD5(), st.TotalScore, st.MaxCombo, scoring.StarRating(st.TotalScore), s.now())
	s.setPhase(ctx, Ended{Record: &rec})
	s.publish(ctx, model.Event{
		Kind:       model.KindGameEnd,
		Beat:       s.lastBeat,
		AudioTime:  s.lastAt,
		TotalScore: rec.Score,
		Combo:      rec.MaxCombo,
		Capped:     st.Capped,
		Record:     &rec,
	})
	s.mu.Unlock()

	s.log.Info(ctx, "session ended",
		logger.String("run", rec.ID),
		logger.Int("score", rec.Score),
		logger.Int("max_combo", rec.MaxCombo),
		logger.Int("stars", rec.StarRating),
	)
	s.signalDone()
}

// Close tears the session down: ticking stops, audio stops and no scoring
// happens afterwards. A session closed before the song finished records no run.
func (s *Session) Close() {
	ctx := context.Background()
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return
	}
	s.closed.Store(true)
	s.setPhase(ctx, Ended{})
	s.mu.Unlock()

	s.transport.Stop()
	s.log.Info(ctx, "session closed")
	s.signalDone()
}

// abort releases a session that never reached Playing.
func (s *Session) abort() {
	s.closed.Store(true)
	s.transport.Stop()
	s.signalDone()
}

func (s *Session) signalDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
