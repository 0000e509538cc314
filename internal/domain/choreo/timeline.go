package choreo

import (
	"context"
	"math"
	"sort"

	"github.com/okian/groove/internal/domain/pose"
	"github.com/okian/groove/pkg/logger"
)

// Timeline is a read-only, sanitized view of a choreography that samples
// interpolated frames by song time. It is safe for concurrent readers.
type Timeline struct {
	c       Choreography
	dropped int
	log     logger.Logger
}

// NewTimeline sanitizes c and wraps it for playback. Malformed frames are
// dropped with a warning instead of failing.
func NewTimeline(c Choreography, opts ...Option) *Timeline {
	t := &Timeline{log: logger.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	t.c, t.dropped = Sanitize(c)
	if t.dropped > 0 {
		t.log.Warn(context.Background(), "dropped malformed keyframes",
			logger.String("song", c.SongMD5),
			logger.Int("dropped", t.dropped),
			logger.Int("kept", len(t.c.Frames)),
		)
	}
	if len(t.c.Frames) == 0 {
		t.log.Warn(context.Background(), "choreography has no playable keyframes",
			logger.String("song", c.SongMD5))
	}
	return t
}

// SongMD5 returns the song identifier.
func (t *Timeline) SongMD5() string { return t.c.SongMD5 }

// BPM returns the tempo, never zero.
func (t *Timeline) BPM() float64 { return t.c.BPM }

// BeatInterval returns 60/bpm in seconds.
func (t *Timeline) BeatInterval() float64 { return t.c.BeatInterval() }

// Duration returns the total song length in seconds.
func (t *Timeline) Duration() float64 { return t.c.Duration() }

// Len returns the number of keyframes.
func (t *Timeline) Len() int { return len(t.c.Frames) }

// Dropped returns how many keyframes were removed as malformed.
func (t *Timeline) Dropped() int { return t.dropped }

// Choreography returns a deep copy of the sanitized choreography.
func (t *Timeline) Choreography() Choreography { return t.c.Clone() }

// Beat returns floor(at / beatInterval).
func (t *Timeline) Beat(at float64) int {
	return int(math.Floor(at / t.BeatInterval()))
}

// Frame returns the choreography state at time at (seconds). Times outside the
// keyframe range clamp to the first or last keyframe; in between, joints
// present in both bracketing keyframes are interpolated linearly and joints
// present in only one are carried over unchanged. An empty timeline yields an
// empty frame at the requested time.
func (t *Timeline) Frame(at float64) Frame {
	frames := t.c.Frames
	n := len(frames)
	switch {
	case n == 0:
		return Frame{Timestamp: at, Joints: pose.Joints{}}
	case n == 1, at <= frames[0].Timestamp:
		return frames[0].Clone()
	case at >= frames[n-1].Timestamp:
		return frames[n-1].Clone()
	}

	// first keyframe strictly after at; bounded to [1, n-1] by the clamps above
	i := sort.Search(n, func(i int) bool { return frames[i].Timestamp > at })
	a, b := frames[i-1], frames[i]
	span := b.Timestamp - a.Timestamp
	u := (at - a.Timestamp) / span

	js := make(pose.Joints, len(a.Joints)+len(b.Joints))
	for j, pa := range a.Joints {
		if pb, ok := b.Joints[j]; ok {
			js[j] = pa.Lerp(pb, u)
		} else {
			js[j] = pa
		}
	}
	for j, pb := range b.Joints {
		if _, ok := a.Joints[j]; !ok {
			js[j] = pb
		}
	}
	return Frame{Timestamp: a.Timestamp + u*span, Joints: js}
}

// Upcoming returns up to n keyframes with timestamp strictly after after, in
// order. It never returns the current or past keyframes and is stateless.
func (t *Timeline) Upcoming(after float64, n int) []Frame {
	frames := t.c.Frames
	if n <= 0 || len(frames) == 0 {
		return nil
	}
	i := sort.Search(len(frames), func(i int) bool { return frames[i].Timestamp > after })
	end := min(i+n, len(frames))
	if i >= end {
		return nil
	}
	out := make([]Frame, 0, end-i)
	for _, f := range frames[i:end] {
		out = append(out, f.Clone())
	}
	return out
}

// Difficulty returns the 1-4 difficulty rating of the timeline.
func (t *Timeline) Difficulty() int {
	return Difficulty(t.c.Frames)
}
