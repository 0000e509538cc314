package game

import (
	"context"
	"time"

	"github.com/okian/groove/pkg/logger"
)

// Session defaults.
const (
	DefaultTickRate            = 60
	DefaultLookahead           = 4
	DefaultCountInBeats        = 4
	DefaultTrackingGrace       = time.Second
	DefaultMinConfidence       = 0.1
	DefaultPracticeRate        = 0.5
	DefaultPracticePhraseBeats = 8
	// DefaultCatchUpBeats bounds how many crossed beats one tick may score
	// after a stall or a forward seek.
	DefaultCatchUpBeats = 8
)

// Option applies a configuration option to a Session.
type Option func(*Session)

// WithSessionID sets the session id instead of a generated one.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPublisher sets where discrete events go.
func WithPublisher(p Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithRenderer sets the per-tick display consumer.
func WithRenderer(r Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithTickRate sets the tick frequency in Hz.
func WithTickRate(hz int) Option {
	return func(s *Session) {
		if hz > 0 {
			s.tickInterval = time.Second / time.Duration(hz)
		}
	}
}

// WithLookahead sets how many upcoming keyframes are rendered.
func WithLookahead(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.lookahead = n
		}
	}
}

// WithCountInBeats sets the number of lead-in pulses. Zero disables count-in.
func WithCountInBeats(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.countIn = n
		}
	}
}

// WithTrackingGrace sets how long detection may drop out before scoring is
// suspended.
func WithTrackingGrace(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithMinConfidence sets the detector confidence floor for usable samples.
func WithMinConfidence(c float64) Option {
	return func(s *Session) {
		if c >= 0 && c <= 1 {
			s.minConfidence = c
		}
	}
}

// WithPracticeRate sets the playback rate while practicing.
func WithPracticeRate(rate float64) Option {
	return func(s *Session) {
		if rate > 0 {
			s.practiceRate = rate
		}
	}
}

// WithPracticePhraseBeats sets the practice loop length in beats.
func WithPracticePhraseBeats(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.phraseBeats = n
		}
	}
}

// WithCatchUpBeats bounds how many crossed beats a single tick scores.
func WithCatchUpBeats(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.catchUp = n
		}
	}
}

// WithClock replaces the wall clock used for tracking grace and run records.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleep replaces the wait between count-in pulses.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
