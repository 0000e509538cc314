package feeder

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/groove/internal/game"
)

func TestRemoteClock(t *testing.T) {
	Convey("Given a remote clock", t, func() {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		now := base
		c := newRemoteClock(func() time.Time { return now })

		Convey("When the server is playing", func() {
			c.update(game.Status{Phase: game.PhasePlaying, AudioTime: 3})
			now = now.Add(250 * time.Millisecond)
			So(c.CurrentTime(), ShouldEqual, 3250*time.Millisecond)
		})

		Convey("When the server is practicing", func() {
			c.update(game.Status{Phase: game.PhasePractice, AudioTime: 3})
			now = now.Add(time.Second)
			So(c.CurrentTime(), ShouldEqual, 3500*time.Millisecond)
		})

		Convey("When the server is paused", func() {
			c.update(game.Status{Phase: game.PhasePaused, AudioTime: 3})
			now = now.Add(time.Second)
			So(c.CurrentTime(), ShouldEqual, 3*time.Second)
		})
	})
}
