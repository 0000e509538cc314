package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eiannone/keyboard"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/internal/domain/scoring"
	"github.com/okian/groove/internal/game"
)

func TestPrinter(t *testing.T) {
	Convey("Given a plain printer", t, func() {
		var buf bytes.Buffer
		p := NewPrinter(&buf, false)
		ctx := context.Background()

		Convey("When count-in and play beats arrive", func() {
			p.Handle(ctx, model.Event{Kind: model.KindBeat, Beat: -2})
			p.Handle(ctx, model.Event{Kind: model.KindBeat, Beat: 3})

			Convey("Then only the count-in is shown", func() {
				So(buf.String(), ShouldEqual, "2...\n")
			})
		})

		Convey("When a tier with missed joints arrives", func() {
			p.Handle(ctx, model.Event{
				Kind: model.KindTier, Beat: 12, Tier: "OK", Points: 250, Multiplier: 1,
				Combo: 0, TotalScore: 4000, MissedJoints: []string{"left_wrist", "right_wrist"},
			})

			Convey("Then the line names the tier and the missed joints", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "OK")
				So(out, ShouldContainSubstring, "+250")
				So(out, ShouldContainSubstring, "missed: left_wrist, right_wrist")
				So(out, ShouldNotContainSubstring, "\x1b[")
			})
		})

		Convey("When the game ends with a record", func() {
			rec := model.RunRecord{Score: 12000, MaxCombo: 40, StarRating: 4}
			p.Handle(ctx, model.Event{Kind: model.KindGameEnd, Record: &rec})

			Convey("Then the summary shows stars", func() {
				So(buf.String(), ShouldEqual, "final score 12000  max combo 40  ****.\n")
			})
		})

		Convey("When tracking drops and phases change", func() {
			p.Handle(ctx, model.Event{Kind: model.KindTrackingLost})
			p.Handle(ctx, model.Event{Kind: model.KindPhase, Phase: game.PhaseCountIn})

			So(buf.String(), ShouldEqual, "step into the frame\n-- count in --\n")
		})
	})

	Convey("Given a colored printer", t, func() {
		var buf bytes.Buffer
		p := NewPrinter(&buf, true)
		p.Handle(context.Background(), model.Event{Kind: model.KindTier, Tier: "PERFECT"})

		So(buf.String(), ShouldContainSubstring, "\x1b[")
	})
}

func TestStatusLine(t *testing.T) {
	Convey("Given a status line with a controllable clock", t, func() {
		var buf bytes.Buffer
		s := NewStatusLine(&buf, time.Second)
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return now }

		d := game.Display{Phase: game.PhasePlaying, AudioTime: 12.34, Beat: 24, Score: scoring.State{TotalScore: 5000, Combo: 5, Multiplier: 2}}

		Convey("When rendered repeatedly within the interval", func() {
			s.Render(d)
			d.Beat = 25
			s.Render(d)

			Convey("Then only the first frame is written", func() {
				So(strings.Count(buf.String(), "\r"), ShouldEqual, 1)
				So(buf.String(), ShouldContainSubstring, "beat   24")
				So(buf.String(), ShouldContainSubstring, "12.3s")
			})
		})

		Convey("When the interval has passed", func() {
			s.Render(d)
			now = now.Add(2 * time.Second)
			d.TrackingLost = true
			s.Render(d)

			So(strings.Count(buf.String(), "\r"), ShouldEqual, 2)
			So(buf.String(), ShouldContainSubstring, "[no dancer]")
		})
	})
}

type fakeKeys struct {
	ch     chan keyboard.KeyEvent
	closed bool
}

func (f *fakeKeys) Keys() (<-chan keyboard.KeyEvent, error) { return f.ch, nil }
func (f *fakeKeys) Close() error {
	f.closed = true
	return nil
}

type fakeController struct {
	phase  game.Phase
	calls  []string
	closed bool
}

func (f *fakeController) Phase() game.Phase { return f.phase }

func (f *fakeController) Pause() error {
	f.calls = append(f.calls, "pause")
	f.phase = game.Paused{Resume: f.phase}
	return nil
}

func (f *fakeController) Resume() error {
	f.calls = append(f.calls, "resume")
	f.phase = f.phase.(game.Paused).Resume
	return nil
}

func (f *fakeController) EnterPractice() (game.Practice, error) {
	f.calls = append(f.calls, "practice")
	p := game.Practice{StartBeat: 8}
	f.phase = p
	return p, nil
}

func (f *fakeController) ExitPractice() error {
	f.calls = append(f.calls, "exit")
	f.phase = game.Playing{}
	return nil
}

func (f *fakeController) Close() { f.closed = true }

func TestControls(t *testing.T) {
	Convey("Given keyboard controls over a playing session", t, func() {
		keys := &fakeKeys{ch: make(chan keyboard.KeyEvent, 8)}
		c := &fakeController{phase: game.Playing{}}
		controls := NewControls(keys, nil)

		Convey("When keys are pressed and then q", func() {
			keys.ch <- keyboard.KeyEvent{Key: keyboard.KeySpace}
			keys.ch <- keyboard.KeyEvent{Key: keyboard.KeySpace}
			keys.ch <- keyboard.KeyEvent{Rune: 'p'}
			keys.ch <- keyboard.KeyEvent{Rune: 'p'}
			keys.ch <- keyboard.KeyEvent{Rune: 'x'}
			keys.ch <- keyboard.KeyEvent{Rune: 'q'}

			err := controls.Run(context.Background(), c, make(chan struct{}))

			Convey("Then each key toggles the matching transition and q stops", func() {
				So(err, ShouldBeNil)
				So(c.calls, ShouldResemble, []string{"pause", "resume", "practice", "exit"})
				So(c.closed, ShouldBeTrue)
				So(keys.closed, ShouldBeTrue)
			})
		})

		Convey("When the session finishes on its own", func() {
			done := make(chan struct{})
			close(done)
			err := controls.Run(context.Background(), c, done)

			Convey("Then controls return without stopping it", func() {
				So(err, ShouldBeNil)
				So(c.closed, ShouldBeFalse)
			})
		})
	})
}
