package choreo

import (
	"fmt"
	"math"

	"github.com/okian/groove/internal/domain/pose"
)

// Validate reports the first structural problem with c, or nil when it is
// playable as-is.
func Validate(c Choreography) error {
	if c.BPM <= 0 || math.IsNaN(c.BPM) || math.IsInf(c.BPM, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBPM, c.BPM)
	}
	if len(c.Frames) == 0 {
		return ErrEmptyChoreography
	}
	for i := 1; i < len(c.Frames); i++ {
		if !(c.Frames[i].Timestamp > c.Frames[i-1].Timestamp) {
			return fmt.Errorf("%w: frame %d at %.3fs follows %.3fs",
				ErrNonMonotonic, i, c.Frames[i].Timestamp, c.Frames[i-1].Timestamp)
		}
	}
	return nil
}

// Sanitize returns a playable copy of c and the number of frames dropped.
// A frame is dropped when its timestamp is negative, NaN or not strictly
// greater than the last kept frame. Coordinates are clamped to [0,1].
func Sanitize(c Choreography) (Choreography, int) {
	out := c
	out.Frames = make([]Frame, 0, len(c.Frames))
	dropped := 0
	last := math.Inf(-1)
	for _, f := range c.Frames {
		if math.IsNaN(f.Timestamp) || f.Timestamp < 0 || f.Timestamp <= last {
			dropped++
			continue
		}
		js := make(pose.Joints, len(f.Joints))
		for j, p := range f.Joints {
			if !j.Valid() {
				continue
			}
			js[j] = p.Clamp()
		}
		out.Frames = append(out.Frames, Frame{Timestamp: f.Timestamp, Joints: js})
		last = f.Timestamp
	}
	if out.BPM <= 0 || math.IsNaN(out.BPM) || math.IsInf(out.BPM, 0) {
		out.BPM = DefaultBPM
	}
	return out, dropped
}
