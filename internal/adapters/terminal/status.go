package terminal

import (
	"fmt"
	"io"
	"time"

	"github.com/okian/groove/internal/game"
)

const defaultStatusInterval = 100 * time.Millisecond

// StatusLine redraws a single status line in place. It implements
// game.Renderer and throttles writes since Render runs on every tick.
type StatusLine struct {
	w        io.Writer
	interval time.Duration
	now      func() time.Time
	last     time.Time
	lastText string
}

// NewStatusLine returns a renderer writing to w at most every interval.
func NewStatusLine(w io.Writer, interval time.Duration) *StatusLine {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	return &StatusLine{w: w, interval: interval, now: time.Now}
}

// Render implements game.Renderer.
func (s *StatusLine) Render(d game.Display) {
	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return
	}
	text := FormatStatus(d)
	if text == s.lastText {
		return
	}
	s.last, s.lastText = now, text
	fmt.Fprintf(s.w, "\r\033[K%s", text)
}

// FormatStatus renders the status line text.
func FormatStatus(d game.Display) string {
	at := time.Duration(d.AudioTime * float64(time.Second)).Truncate(100 * time.Millisecond)
	text := fmt.Sprintf("%-8s %8s  beat %4d  score %9d  combo %3d x%.1f",
		d.Phase, at, d.Beat, d.Score.TotalScore, d.Score.Combo, d.Score.Multiplier)
	if d.TrackingLost {
		text += "  [no dancer]"
	}
	return text
}
