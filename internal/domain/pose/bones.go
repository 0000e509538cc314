package pose

import "math"

// Bone is a parent to child joint pair whose segment angle is compared.
type Bone struct {
	Parent Joint
	Child  Joint
}

// Angle returns the segment angle in radians (atan2 of the y and x deltas),
// and false when either endpoint is missing.
func (b Bone) Angle(js Joints) (float64, bool) {
	p, ok := js[b.Parent]
	if !ok {
		return 0, false
	}
	c, ok := js[b.Child]
	if !ok {
		return 0, false
	}
	return math.Atan2(c.Y-p.Y, c.X-p.X), true
}

func (b Bone) String() string { return b.Parent.String() + "->" + b.Child.String() }

var (
	fullBones = []Bone{
		{LeftShoulder, LeftElbow},
		{LeftElbow, LeftWrist},
		{RightShoulder, RightElbow},
		{RightElbow, RightWrist},
		{LeftHip, LeftKnee},
		{LeftKnee, LeftAnkle},
		{RightHip, RightKnee},
		{RightKnee, RightAnkle},
		{LeftShoulder, RightShoulder},
		{LeftShoulder, LeftHip},
		{RightShoulder, RightHip},
	}

	upperBodyBones = []Bone{
		{LeftShoulder, LeftElbow},
		{LeftElbow, LeftWrist},
		{RightShoulder, RightElbow},
		{RightElbow, RightWrist},
		{LeftShoulder, RightShoulder},
		{LeftShoulder, LeftHip},
		{RightShoulder, RightHip},
	}

	limbBones = []Bone{
		{LeftShoulder, LeftElbow},
		{LeftElbow, LeftWrist},
		{RightShoulder, RightElbow},
		{RightElbow, RightWrist},
		{LeftHip, LeftKnee},
		{RightHip, RightKnee},
	}
)

// FullBodyBones is the 11-pair scoring set: arms, legs and the torso cross bones.
func FullBodyBones() []Bone { return append([]Bone(nil), fullBones...) }

// UpperBodyBones is the 7-pair scoring set used in upper-body mode.
func UpperBodyBones() []Bone { return append([]Bone(nil), upperBodyBones...) }

// LimbBones is the 6-pair set used for difficulty estimation.
func LimbBones() []Bone { return append([]Bone(nil), limbBones...) }

// AngularDistance returns the shortest-path difference between two angles,
// wrapped into [0, π].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
