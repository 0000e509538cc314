package scoring

import (
	"math"
	"sort"

	"github.com/okian/groove/internal/domain/pose"
)

// MissedBelow is the per-bone similarity under which the child joint is
// reported as missed.
const MissedBelow = 0.30

// Similarity compares detected against reference over bones. Each bone with
// both endpoints present on both sides scores 1 - angleDiff/π, weighted by the
// child joint; bones with a missing endpoint are left out of the average. The
// result is 0 when nothing is comparable. Missed lists, in joint order, the
// child joints of bones scoring below MissedBelow.
func Similarity(detected, reference pose.Joints, bones []pose.Bone) (float64, []pose.Joint) {
	var weighted, total float64
	var missed []pose.Joint
	seen := make(map[pose.Joint]bool)

	for _, b := range bones {
		da, ok := b.Angle(detected)
		if !ok {
			continue
		}
		ra, ok := b.Angle(reference)
		if !ok {
			continue
		}
		sim := 1 - pose.AngularDistance(da, ra)/math.Pi
		w := b.Child.Weight()
		weighted += sim * w
		total += w
		if sim < MissedBelow && !seen[b.Child] {
			seen[b.Child] = true
			missed = append(missed, b.Child)
		}
	}
	if total == 0 {
		return 0, missed
	}
	sort.Slice(missed, func(i, j int) bool { return missed[i] < missed[j] })

	s := weighted / total
	// guard against float drift past the unit interval
	return math.Max(0, math.Min(1, s)), missed
}
