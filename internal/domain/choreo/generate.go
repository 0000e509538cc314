package choreo

import (
	"math"

	"github.com/okian/groove/internal/domain/pose"
)

// Template generator defaults.
const (
	DefaultTemplateDuration = 180.0
	moveBeats               = 4
)

// TemplateOptions controls GenerateTemplate.
type TemplateOptions struct {
	SongMD5 string
	// BPM falls back to DefaultBPM when not positive.
	BPM float64
	// Duration in seconds, DefaultTemplateDuration when not positive.
	Duration float64
	// BeatTimes are detected beat onsets. When empty, beats are placed every
	// 60/bpm seconds from zero.
	BeatTimes []float64
}

type move func(phase, direction float64) pose.Joints

var moveSequence = []move{armsUp, sideStep, waveArms, sideStep}

// GenerateTemplate builds a keyframe-per-beat choreography that cycles through
// a fixed library of moves, four beats per move. It is the fallback when no
// motion model is available.
func GenerateTemplate(opts TemplateOptions) Choreography {
	bpm := opts.BPM
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultTemplateDuration
	}
	beats := opts.BeatTimes
	if len(beats) == 0 {
		beats = evenBeats(bpm, duration)
	}

	c := Choreography{
		SongMD5:       opts.SongMD5,
		BPM:           bpm,
		TotalDuration: duration,
		Frames:        make([]Frame, 0, len(beats)),
	}
	last := math.Inf(-1)
	for i, at := range beats {
		if at > duration {
			break
		}
		if at <= last {
			continue
		}
		block := i / moveBeats
		phase := float64(i%moveBeats) / moveBeats
		direction := 1.0
		if block%2 != 0 {
			direction = -1.0
		}
		m := moveSequence[block%len(moveSequence)]
		c.Frames = append(c.Frames, Frame{Timestamp: at, Joints: m(phase, direction)})
		last = at
	}
	return c
}

func evenBeats(bpm, duration float64) []float64 {
	interval := 60.0 / bpm
	n := int(duration / interval)
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * interval
	}
	return out
}

func basePose() pose.Joints {
	return pose.Joints{
		pose.Nose:          pose.Pt(0.50, 0.08),
		pose.LeftShoulder:  pose.Pt(0.38, 0.22),
		pose.RightShoulder: pose.Pt(0.62, 0.22),
		pose.LeftElbow:     pose.Pt(0.28, 0.38),
		pose.RightElbow:    pose.Pt(0.72, 0.38),
		pose.LeftWrist:     pose.Pt(0.22, 0.52),
		pose.RightWrist:    pose.Pt(0.78, 0.52),
		pose.LeftHip:       pose.Pt(0.42, 0.52),
		pose.RightHip:      pose.Pt(0.58, 0.52),
		pose.LeftKnee:      pose.Pt(0.40, 0.70),
		pose.RightKnee:     pose.Pt(0.60, 0.70),
		pose.LeftAnkle:     pose.Pt(0.40, 0.88),
		pose.RightAnkle:    pose.Pt(0.60, 0.88),
	}
}

func armsUp(phase, _ float64) pose.Joints {
	p := basePose()
	lift := math.Abs(math.Sin(phase * math.Pi))
	p[pose.LeftElbow] = pose.Pt(0.30, 0.22-lift*0.10)
	p[pose.RightElbow] = pose.Pt(0.70, 0.22-lift*0.10)
	p[pose.LeftWrist] = pose.Pt(0.25, 0.10-lift*0.08)
	p[pose.RightWrist] = pose.Pt(0.75, 0.10-lift*0.08)
	return p
}

// sideStep shifts the whole body sideways; the arms are then pinned out wide
// and do not follow the shift.
func sideStep(phase, direction float64) pose.Joints {
	p := basePose()
	shift := direction * 0.06 * math.Abs(math.Sin(phase*math.Pi))
	for j, pt := range p {
		p[j] = pose.Pt(pt.X+shift, pt.Y)
	}
	p[pose.LeftElbow] = pose.Pt(0.20, 0.35)
	p[pose.RightElbow] = pose.Pt(0.80, 0.35)
	p[pose.LeftWrist] = pose.Pt(0.15, 0.50)
	p[pose.RightWrist] = pose.Pt(0.85, 0.50)
	return p
}

func waveArms(phase, _ float64) pose.Joints {
	p := basePose()
	w := math.Sin(phase * math.Pi * 2)
	p[pose.LeftElbow] = pose.Pt(0.28+w*0.08, 0.32+w*0.06)
	p[pose.LeftWrist] = pose.Pt(0.18+w*0.12, 0.20+w*0.10)
	p[pose.RightElbow] = pose.Pt(0.72-w*0.08, 0.32-w*0.06)
	p[pose.RightWrist] = pose.Pt(0.82-w*0.12, 0.20-w*0.10)
	return p
}
