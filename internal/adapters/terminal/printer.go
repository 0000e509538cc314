// Package terminal presents a session in a terminal: colored per-beat
// feedback, a live status line and keyboard transport controls.
package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/okian/groove/internal/domain/model"
)

const maxStars = 5

// Printer writes one line per discrete game event. It implements the worker
// sink so it can hang off the event queue.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	tiers   map[string]*color.Color
	dim     *color.Color
	warn    *color.Color
	success *color.Color
}

// NewPrinter returns a printer writing to w. With colored false no escape
// sequences are written.
func NewPrinter(w io.Writer, colored bool) *Printer {
	p := &Printer{
		w: w,
		tiers: map[string]*color.Color{
			"YEAH":    color.New(color.FgHiMagenta, color.Bold),
			"PERFECT": color.New(color.FgHiGreen, color.Bold),
			"GOOD":    color.New(color.FgGreen),
			"OK":      color.New(color.FgYellow),
			"MISS":    color.New(color.FgRed),
		},
		dim:     color.New(color.Faint),
		warn:    color.New(color.FgYellow, color.Bold),
		success: color.New(color.FgHiCyan, color.Bold),
	}
	for _, c := range p.all() {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) all() []*color.Color {
	out := []*color.Color{p.dim, p.warn, p.success}
	for _, c := range p.tiers {
		out = append(out, c)
	}
	return out
}

// Handle prints e. Per-beat pulses during play are skipped; count-in pulses
// are shown.
func (p *Printer) Handle(_ context.Context, e model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case model.KindBeat:
		if e.Beat < 0 {
			p.dim.Fprintf(p.w, "%d...\n", -e.Beat)
		}
	case model.KindTier:
		p.tier(e)
	case model.KindComboMilestone:
		p.success.Fprintf(p.w, "combo %d! x%.1f\n", e.Combo, e.Multiplier)
	case model.KindTrackingLost:
		p.warn.Fprintln(p.w, "step into the frame")
	case model.KindTrackingRestored:
		p.dim.Fprintln(p.w, "tracking restored")
	case model.KindPhase:
		p.dim.Fprintf(p.w, "-- %s --\n", strings.ReplaceAll(e.Phase, "_", " "))
	case model.KindGameEnd:
		p.end(e)
	}
}

func (p *Printer) tier(e model.Event) {
	c, ok := p.tiers[e.Tier]
	if !ok {
		c = p.dim
	}
	line := fmt.Sprintf("%4d  %-7s +%-5d x%-3.1f combo %-3d %9d", e.Beat, e.Tier, e.Points, e.Multiplier, e.Combo, e.TotalScore)
	if len(e.MissedJoints) > 0 {
		line += "  missed: " + strings.Join(e.MissedJoints, ", ")
	}
	c.Fprintln(p.w, line)
}

func (p *Printer) end(e model.Event) {
	if e.Record == nil {
		p.dim.Fprintln(p.w, "session ended")
		return
	}
	r := e.Record
	stars := strings.Repeat("*", r.StarRating) + strings.Repeat(".", max(maxStars-r.StarRating, 0))
	p.success.Fprintf(p.w, "final score %d  max combo %d  %s\n", r.Score, r.MaxCombo, stars)
	if e.Capped {
		p.dim.Fprintln(p.w, "score capped")
	}
}
