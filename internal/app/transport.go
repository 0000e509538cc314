package service

import (
	"fmt"
	"time"

	"github.com/okian/groove/internal/adapters/audio"
	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/game"
	"github.com/okian/groove/internal/simulate"
)

// TransportFactory builds the audio transport for a session. audioPath may be
// empty when only the choreography is known.
type TransportFactory func(tl *choreo.Timeline, audioPath string) (game.Transport, error)

// DefaultTransports plays audioPath through the speaker, or runs a silent
// clock over the choreography's duration when there is no audio.
func DefaultTransports(opts ...audio.Option) TransportFactory {
	return func(tl *choreo.Timeline, audioPath string) (game.Transport, error) {
		if audioPath == "" {
			return SilentTransports(tl, "")
		}
		t, err := audio.Open(audioPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open audio: %w", err)
		}
		return t, nil
	}
}

// SilentTransports always runs a wall-clock transport. It ignores audioPath.
func SilentTransports(tl *choreo.Timeline, _ string) (game.Transport, error) {
	return simulate.NewClock(time.Duration(tl.Duration()*float64(time.Second)), nil), nil
}
