package choreo

import "github.com/okian/groove/internal/domain/pose"

// Mean per-comparison angular change thresholds, in radians.
const (
	easyBelow   = 0.15
	mediumBelow = 0.35
	hardBelow   = 0.60
)

// Difficulty rates how much the limbs move between consecutive keyframes.
// For every consecutive pair and every limb bone present in both frames the
// wrapped angle change is averaged; the mean maps to 1 (<0.15), 2 (<0.35),
// 3 (<0.6) or 4. Fewer than two frames or no comparable bones rate 1.
func Difficulty(frames []Frame) int {
	if len(frames) < 2 {
		return 1
	}
	bones := pose.LimbBones()
	var sum float64
	var count int
	for i := 1; i < len(frames); i++ {
		prev, cur := frames[i-1].Joints, frames[i].Joints
		for _, b := range bones {
			a0, ok := b.Angle(prev)
			if !ok {
				continue
			}
			a1, ok := b.Angle(cur)
			if !ok {
				continue
			}
			sum += pose.AngularDistance(a0, a1)
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return ratingFor(sum / float64(count))
}

func ratingFor(mean float64) int {
	switch {
	case mean < easyBelow:
		return 1
	case mean < mediumBelow:
		return 2
	case mean < hardBelow:
		return 3
	default:
		return 4
	}
}
