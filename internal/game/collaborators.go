// Package game runs one play session: it drives a fixed-rate tick against an
// external audio clock, samples the choreography for display, and scores the
// latest detected pose exactly once per beat.
package game

import (
	"context"
	"time"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/pose"
	"github.com/okian/groove/internal/domain/scoring"
)

// Transport is the audio playback collaborator. The session treats it as a
// clock plus transport controls and owns no audio state itself.
type Transport interface {
	// CurrentTime is the playback position in song time.
	CurrentTime() time.Duration
	Play() error
	Pause()
	Resume()
	Seek(to time.Duration)
	SetRate(rate float64)
	// SetLoopRange confines playback to [start, end), wrapping at end.
	SetLoopRange(start, end time.Duration)
	ClearLoop()
	// Stop halts playback for teardown.
	Stop()
	// Done is closed when playback reaches the end of the song.
	Done() <-chan struct{}
}

// Publisher receives discrete events. Enqueue must not block.
type Publisher interface {
	Enqueue(ctx context.Context, e model.Event) bool
}

// Display is the per-tick state handed to a renderer.
type Display struct {
	SessionID    string
	Phase        string
	AudioTime    float64
	Beat         int
	Current      choreo.Frame
	Upcoming     []choreo.Frame
	Detected     pose.Joints
	TrackingLost bool
	Score        scoring.State
}

// Renderer consumes per-tick display state. Render is called with the session
// lock held and must return quickly.
type Renderer interface {
	Render(d Display)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Display)

func (f RendererFunc) Render(d Display) { f(d) }

type nopPublisher struct{}

func (nopPublisher) Enqueue(context.Context, model.Event) bool { return true }

type nopRenderer struct{}

func (nopRenderer) Render(Display) {}
