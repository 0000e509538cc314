// Package choreo models a song's choreography: timestamped keyframes of joint
// positions, sampled by time for playback and scoring.
package choreo

import (
	"github.com/okian/groove/internal/domain/pose"
)

// DefaultBPM is used when a choreography carries no usable tempo.
const DefaultBPM = 120.0

// Frame is one keyframe: joint positions at a point in song time (seconds).
type Frame struct {
	Timestamp float64     `json:"timestamp"`
	Joints    pose.Joints `json:"joints"`
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	return Frame{Timestamp: f.Timestamp, Joints: f.Joints.Clone()}
}

// Choreography is the stored artifact for one song. Frames are ordered by
// strictly increasing timestamp.
type Choreography struct {
	SongMD5       string  `json:"songMD5"`
	BPM           float64 `json:"bpm"`
	TotalDuration float64 `json:"totalDuration"`
	Frames        []Frame `json:"frames"`
}

// BeatInterval returns 60/bpm seconds, using DefaultBPM for a non-positive tempo.
func (c Choreography) BeatInterval() float64 {
	return 60.0 / c.effectiveBPM()
}

func (c Choreography) effectiveBPM() float64 {
	if c.BPM > 0 {
		return c.BPM
	}
	return DefaultBPM
}

// Duration returns TotalDuration, or the last keyframe time when unset.
func (c Choreography) Duration() float64 {
	if c.TotalDuration > 0 {
		return c.TotalDuration
	}
	if n := len(c.Frames); n > 0 {
		return c.Frames[n-1].Timestamp
	}
	return 0
}

// Clone returns a deep copy.
func (c Choreography) Clone() Choreography {
	out := c
	out.Frames = make([]Frame, len(c.Frames))
	for i, f := range c.Frames {
		out.Frames[i] = f.Clone()
	}
	return out
}
