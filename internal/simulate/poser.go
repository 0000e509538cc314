package simulate

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/pose"
)

const (
	defaultPoseRate   = 30
	defaultConfidence = 0.9
)

// Sink accepts detector samples; *game.Session satisfies it.
type Sink interface {
	SubmitPose(d pose.Detected) bool
}

// SongClock reports the song position the poser follows.
type SongClock interface {
	CurrentTime() time.Duration
}

// Window is a span of song time, in seconds, during which the dancer leaves
// the frame.
type Window struct {
	From, To float64
}

// Poser is a synthetic dancer: it reads the song position, looks up the
// reference pose and submits it with optional jitter.
type Poser struct {
	tl       *choreo.Timeline
	clock    SongClock
	jitter   float64
	lag      time.Duration
	dropouts []Window
	interval time.Duration
	rng      *rand.Rand
}

// PoserOption configures a Poser.
type PoserOption func(*Poser)

// WithJitter adds uniform noise of up to amount to every coordinate.
func WithJitter(amount float64) PoserOption {
	return func(p *Poser) { p.jitter = max(amount, 0) }
}

// WithLag makes the dancer trail the music.
func WithLag(d time.Duration) PoserOption {
	return func(p *Poser) { p.lag = d }
}

// WithDropouts sets windows where no body is detected.
func WithDropouts(ws ...Window) PoserOption {
	return func(p *Poser) { p.dropouts = append(p.dropouts, ws...) }
}

// WithPoseRate sets samples per second.
func WithPoseRate(hz int) PoserOption {
	return func(p *Poser) {
		if hz > 0 {
			p.interval = time.Second / time.Duration(hz)
		}
	}
}

// WithSeed makes the jitter reproducible.
func WithSeed(seed uint64) PoserOption {
	return func(p *Poser) { p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// NewPoser builds a dancer for tl following clock.
func NewPoser(tl *choreo.Timeline, clock SongClock, opts ...PoserOption) *Poser {
	p := &Poser{
		tl:       tl,
		clock:    clock,
		interval: time.Second / defaultPoseRate,
		rng:      rand.New(rand.NewPCG(1, 2)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sample returns what the detector would report at song time at.
func (p *Poser) Sample(at float64) pose.Detected {
	for _, w := range p.dropouts {
		if at >= w.From && at < w.To {
			return pose.Detected{}
		}
	}
	ref := p.tl.Frame(at - p.lag.Seconds())
	js := make(pose.Joints, len(ref.Joints))
	for j, pt := range ref.Joints {
		if p.jitter > 0 {
			pt = pose.Pt(pt.X+p.noise(), pt.Y+p.noise()).Clamp()
		}
		js[j] = pt
	}
	return pose.Detected{Joints: js, Confidence: defaultConfidence, BodyCount: 1}
}

func (p *Poser) noise() float64 {
	return (p.rng.Float64()*2 - 1) * p.jitter
}

// Run submits samples to sink until ctx ends.
func (p *Poser) Run(ctx context.Context, sink Sink) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sink.SubmitPose(p.Sample(p.clock.CurrentTime().Seconds()))
		}
	}
}
