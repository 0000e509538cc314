package audio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	. "github.com/smartystreets/goconvey/convey"
)

var testFormat = beep.Format{SampleRate: 1000, NumChannels: 2, Precision: 2}

type nopCloser struct{ beep.StreamSeeker }

func (nopCloser) Close() error { return nil }

type closeTracker struct {
	beep.StreamSeeker
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func song(frames int) beep.StreamSeeker {
	buf := beep.NewBuffer(testFormat)
	buf.Append(beep.Silence(frames))
	return buf.Streamer(0, buf.Len())
}

type fakeDevice struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	bufSize int
	initErr error
	playing []beep.Streamer
	cleared bool
}

func (d *fakeDevice) Init(rate beep.SampleRate, bufferSize int) error {
	d.rate, d.bufSize = rate, bufferSize
	return d.initErr
}

func (d *fakeDevice) Play(s ...beep.Streamer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = append(d.playing, s...)
}

func (d *fakeDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = nil
	d.cleared = true
}

func (d *fakeDevice) Lock()   { d.mu.Lock() }
func (d *fakeDevice) Unlock() { d.mu.Unlock() }

// pull renders n output frames in speaker-sized chunks.
func (d *fakeDevice) pull(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([][2]float64, 16)
	for n > 0 {
		chunk := buf[:min(n, len(buf))]
		for _, s := range d.playing {
			s.Stream(chunk)
		}
		n -= len(chunk)
	}
}

func closedWithin(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

func TestBeepTransport(t *testing.T) {
	Convey("Given a five second song on a fake device", t, func() {
		dev := &fakeDevice{}
		tr := New(nopCloser{song(5000)}, testFormat, WithDevice(dev))

		So(tr.Length(), ShouldEqual, 5*time.Second)
		So(tr.CurrentTime(), ShouldEqual, time.Duration(0))

		Convey("When playback starts", func() {
			So(tr.Play(), ShouldBeNil)

			Convey("Then the device runs at the song rate with a frame-sized buffer", func() {
				So(dev.rate, ShouldEqual, beep.SampleRate(1000))
				So(dev.bufSize, ShouldEqual, 16)
				So(errors.Is(tr.Play(), ErrAlreadyPlaying), ShouldBeTrue)
			})

			Convey("Then the clock follows rendered audio", func() {
				dev.pull(1000)
				So(tr.CurrentTime(), ShouldAlmostEqual, time.Second, 20*time.Millisecond)
			})

			Convey("Then a paused transport holds its position", func() {
				dev.pull(500)
				tr.Pause()
				at := tr.CurrentTime()
				dev.pull(1000)
				So(tr.CurrentTime(), ShouldEqual, at)

				tr.Resume()
				dev.pull(500)
				So(tr.CurrentTime(), ShouldBeGreaterThan, at)
			})

			Convey("Then half rate consumes the song at half speed", func() {
				tr.SetRate(0.5)
				dev.pull(1000)
				So(tr.CurrentTime(), ShouldAlmostEqual, 500*time.Millisecond, 20*time.Millisecond)
			})

			Convey("Then a loop range wraps playback", func() {
				tr.Seek(1500 * time.Millisecond)
				tr.SetLoopRange(time.Second, 2*time.Second)
				dev.pull(3000)
				at := tr.CurrentTime()
				So(at, ShouldBeGreaterThanOrEqualTo, time.Second)
				So(at, ShouldBeLessThan, 2*time.Second)
				So(closedWithin(tr.Done(), 10*time.Millisecond), ShouldBeFalse)

				tr.ClearLoop()
				dev.pull(5000)
				So(closedWithin(tr.Done(), time.Second), ShouldBeTrue)
			})

			Convey("Then seeking clamps to the song", func() {
				tr.Seek(-time.Second)
				So(tr.CurrentTime(), ShouldEqual, time.Duration(0))
				tr.Seek(time.Hour)
				So(tr.CurrentTime(), ShouldBeLessThan, 5*time.Second)
			})

			Convey("Then reaching the end closes Done", func() {
				dev.pull(6000)
				So(closedWithin(tr.Done(), time.Second), ShouldBeTrue)
			})
		})

		Convey("When the device cannot start", func() {
			dev.initErr = errors.New("no device")
			err := tr.Play()

			Convey("Then Play reports it", func() {
				So(err, ShouldNotBeNil)
				So(dev.playing, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a playing transport", t, func() {
		dev := &fakeDevice{}
		src := &closeTracker{StreamSeeker: song(1000)}
		tr := New(src, testFormat, WithDevice(dev))
		So(tr.Play(), ShouldBeNil)

		Convey("When it is stopped", func() {
			tr.Stop()
			tr.Stop()

			Convey("Then output is cleared and the stream closed without finishing", func() {
				So(dev.cleared, ShouldBeTrue)
				So(src.closed, ShouldBeTrue)
				So(closedWithin(tr.Done(), 10*time.Millisecond), ShouldBeFalse)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given files that cannot be played", t, func() {
		dir := t.TempDir()

		Convey("Then an unknown extension is rejected", func() {
			path := filepath.Join(dir, "song.flac")
			So(os.WriteFile(path, []byte("fLaC"), 0o600), ShouldBeNil)
			_, err := Open(path)
			So(errors.Is(err, ErrUnsupportedFormat), ShouldBeTrue)
		})

		Convey("Then a missing file is an error", func() {
			_, err := Open(filepath.Join(dir, "missing.mp3"))
			So(err, ShouldNotBeNil)
		})
	})
}
