package choreo_test

import (
	"testing"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

func armPose(elbowY, wristY float64) pose.Joints {
	return pose.Joints{
		pose.LeftShoulder:  pose.Pt(0.4, 0.3),
		pose.RightShoulder: pose.Pt(0.6, 0.3),
		pose.LeftElbow:     pose.Pt(0.3, elbowY),
		pose.RightElbow:    pose.Pt(0.7, elbowY),
		pose.LeftWrist:     pose.Pt(0.2, wristY),
		pose.RightWrist:    pose.Pt(0.8, wristY),
	}
}

func TestDifficulty(t *testing.T) {
	Convey("Given a choreography that never moves", t, func() {
		frames := make([]choreo.Frame, 0, 8)
		for i := 0; i < 8; i++ {
			frames = append(frames, choreo.Frame{Timestamp: float64(i), Joints: armPose(0.4, 0.5)})
		}

		Convey("Then difficulty is 1", func() {
			So(choreo.Difficulty(frames), ShouldEqual, 1)
		})
	})

	Convey("Given large alternating arm swings", t, func() {
		frames := make([]choreo.Frame, 0, 8)
		for i := 0; i < 8; i++ {
			js := armPose(0.4, 0.5)
			if i%2 == 1 {
				js = armPose(0.2, 0.05)
			}
			frames = append(frames, choreo.Frame{Timestamp: float64(i), Joints: js})
		}

		Convey("Then difficulty is 4", func() {
			So(choreo.Difficulty(frames), ShouldEqual, 4)
		})
	})

	Convey("Given frames that share no limb bones", t, func() {
		frames := []choreo.Frame{
			{Timestamp: 0, Joints: pose.Joints{pose.Nose: pose.Pt(0.5, 0.1)}},
			{Timestamp: 1, Joints: pose.Joints{pose.Nose: pose.Pt(0.1, 0.9)}},
		}

		Convey("Then there are no comparisons and difficulty is 1", func() {
			So(choreo.Difficulty(frames), ShouldEqual, 1)
			So(choreo.Difficulty(frames[:1]), ShouldEqual, 1)
			So(choreo.Difficulty(nil), ShouldEqual, 1)
		})
	})

	Convey("Given the template choreography", t, func() {
		c := choreo.GenerateTemplate(choreo.TemplateOptions{BPM: 120, Duration: 30})

		Convey("Then it rates inside 1..4", func() {
			d := choreo.NewTimeline(c).Difficulty()
			So(d, ShouldBeBetweenOrEqual, 1, 4)
		})
	})
}
