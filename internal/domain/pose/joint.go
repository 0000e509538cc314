// Package pose defines the skeletal joint vocabulary, normalized points and
// bone pairs shared by the choreography timeline and the scorer.
package pose

import (
	"fmt"
	"strings"
)

// Joint identifies one of the 17 tracked skeletal joints.
type Joint uint8

// Joint vocabulary, in detector keypoint order.
const (
	Nose Joint = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// JointCount is the size of the vocabulary.
	JointCount = 17
)

var jointNames = [JointCount]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// Scoring weights. Arms carry most of the signal on camera, so the upper body
// outweighs the legs in aggregate.
var jointWeights = [JointCount]float64{
	Nose:          0.5,
	LeftEye:       0.25,
	RightEye:      0.25,
	LeftEar:       0.25,
	RightEar:      0.25,
	LeftShoulder:  1.0,
	RightShoulder: 1.0,
	LeftElbow:     1.5,
	RightElbow:    1.5,
	LeftWrist:     2.0,
	RightWrist:    2.0,
	LeftHip:       1.0,
	RightHip:      1.0,
	LeftKnee:      1.0,
	RightKnee:     1.0,
	LeftAnkle:     0.75,
	RightAnkle:    0.75,
}

var jointsByName = func() map[string]Joint {
	m := make(map[string]Joint, JointCount)
	for i, name := range jointNames {
		m[name] = Joint(i)
	}
	return m
}()

// All returns every joint in vocabulary order.
func All() []Joint {
	out := make([]Joint, JointCount)
	for i := range out {
		out[i] = Joint(i)
	}
	return out
}

// Valid reports whether j belongs to the vocabulary.
func (j Joint) Valid() bool { return j < JointCount }

// String returns the serialized snake_case name.
func (j Joint) String() string {
	if !j.Valid() {
		return fmt.Sprintf("joint(%d)", uint8(j))
	}
	return jointNames[j]
}

// Weight returns the fixed scoring weight, zero for unknown joints.
func (j Joint) Weight() float64 {
	if !j.Valid() {
		return 0
	}
	return jointWeights[j]
}

// ParseJoint resolves a serialized joint name. Matching ignores case and
// surrounding whitespace.
func ParseJoint(name string) (Joint, bool) {
	j, ok := jointsByName[strings.ToLower(strings.TrimSpace(name))]
	return j, ok
}

// MarshalText encodes the joint by name so joint-keyed maps serialize as objects.
func (j Joint) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJoint, uint8(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText decodes a joint name.
func (j *Joint) UnmarshalText(b []byte) error {
	v, ok := ParseJoint(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJoint, string(b))
	}
	*j = v
	return nil
}

// TotalWeight sums the weights of the given joints.
func TotalWeight(joints ...Joint) float64 {
	var sum float64
	for _, j := range joints {
		sum += j.Weight()
	}
	return sum
}
