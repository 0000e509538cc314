package choreo_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCodecRoundTrip(t *testing.T) {
	Convey("Given a generated choreography", t, func() {
		c := choreo.GenerateTemplate(choreo.TemplateOptions{SongMD5: "abc123", BPM: 128, Duration: 12})

		Convey("When it is encoded and decoded", func() {
			var buf bytes.Buffer
			So(choreo.Encode(&buf, c), ShouldBeNil)
			back, err := choreo.Decode(&buf)
			So(err, ShouldBeNil)

			Convey("Then every field survives", func() {
				So(back.SongMD5, ShouldEqual, c.SongMD5)
				So(back.BPM, ShouldEqual, c.BPM)
				So(back.TotalDuration, ShouldEqual, c.TotalDuration)
				So(len(back.Frames), ShouldEqual, len(c.Frames))
				for i, f := range c.Frames {
					So(back.Frames[i].Timestamp, ShouldAlmostEqual, f.Timestamp, 1e-9)
					So(len(back.Frames[i].Joints), ShouldEqual, len(f.Joints))
					for j, p := range f.Joints {
						So(back.Frames[i].Joints[j].X, ShouldAlmostEqual, p.X, 1e-9)
						So(back.Frames[i].Joints[j].Y, ShouldAlmostEqual, p.Y, 1e-9)
					}
				}
			})
		})

		Convey("When it is saved to and loaded from disk", func() {
			path := filepath.Join(t.TempDir(), "choreo.json")
			So(choreo.SaveFile(path, c), ShouldBeNil)
			back, err := choreo.LoadFile(path)
			So(err, ShouldBeNil)
			So(len(back.Frames), ShouldEqual, len(c.Frames))
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given the documented file format", t, func() {
		doc := `{"songMD5":"d41d8cd9","bpm":90,"totalDuration":2,
			"frames":[{"timestamp":0,"joints":{"nose":[0.5,0.1],"halo":[0,0]}},
			          {"timestamp":1.5,"joints":{"left_wrist":[0.2,0.4]}}]}`

		c, err := choreo.Decode(strings.NewReader(doc))

		Convey("Then it decodes with unknown joints skipped", func() {
			So(err, ShouldBeNil)
			So(c.BPM, ShouldEqual, 90)
			So(len(c.Frames), ShouldEqual, 2)
			So(c.Frames[0].Joints, ShouldResemble, pose.Joints{pose.Nose: pose.Pt(0.5, 0.1)})
			So(choreo.Validate(c), ShouldBeNil)
		})
	})

	Convey("Given malformed documents", t, func() {
		_, err := choreo.Decode(strings.NewReader(`{"frames": [`))
		So(errors.Is(err, choreo.ErrDecode), ShouldBeTrue)

		_, err = choreo.Decode(strings.NewReader(`{"frames":[{"timestamp":0,"joints":{"nose":[1]}}]}`))
		So(errors.Is(err, choreo.ErrDecode), ShouldBeTrue)

		_, err = choreo.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}

func TestValidate(t *testing.T) {
	Convey("Given invalid choreographies", t, func() {
		So(errors.Is(choreo.Validate(choreo.Choreography{BPM: 0}), choreo.ErrInvalidBPM), ShouldBeTrue)
		So(errors.Is(choreo.Validate(choreo.Choreography{BPM: 120}), choreo.ErrEmptyChoreography), ShouldBeTrue)

		tie := choreo.Choreography{BPM: 120, Frames: []choreo.Frame{{Timestamp: 1}, {Timestamp: 1}}}
		So(errors.Is(choreo.Validate(tie), choreo.ErrNonMonotonic), ShouldBeTrue)
	})
}

func TestSongID(t *testing.T) {
	Convey("Given audio bytes", t, func() {
		id, err := choreo.SongID(strings.NewReader(""))
		So(err, ShouldBeNil)
		So(id, ShouldEqual, "d41d8cd98f00b204e9800998ecf8427e")

		path := filepath.Join(t.TempDir(), "song.mp3")
		So(os.WriteFile(path, []byte("abc"), 0o600), ShouldBeNil)
		id, err = choreo.SongIDFile(path)
		So(err, ShouldBeNil)
		So(id, ShouldEqual, "900150983cd24fb0d6963f7d28e17f72")
	})
}
