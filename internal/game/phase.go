package game

import "github.com/okian/groove/internal/domain/model"

// Phase names as reported in events and status.
const (
	PhaseCountIn  = "count_in"
	PhasePlaying  = "playing"
	PhasePaused   = "paused"
	PhasePractice = "practice"
	PhaseEnded    = "ended"
)

// Phase is the session state. Each variant carries only what it needs.
type Phase interface {
	Name() string
	isPhase()
}

// CountIn is the lead-in before audio starts; Remaining pulses are left.
type CountIn struct{ Remaining int }

// Playing is normal playback with per-beat scoring.
type Playing struct{}

// Paused suspends ticking; Resume is the phase to return to.
type Paused struct{ Resume Phase }

// Practice loops an aligned phrase of beats at a reduced rate. Times are in
// seconds of song time.
type Practice struct {
	StartBeat int     `json:"start_beat"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Ended is terminal. Record is nil when the session was torn down before the
// song finished.
type Ended struct{ Record *model.RunRecord }

func (CountIn) Name() string  { return PhaseCountIn }
func (Playing) Name() string  { return PhasePlaying }
func (Paused) Name() string   { return PhasePaused }
func (Practice) Name() string { return PhasePractice }
func (Ended) Name() string    { return PhaseEnded }

func (CountIn) isPhase()  {}
func (Playing) isPhase()  {}
func (Paused) isPhase()   {}
func (Practice) isPhase() {}
func (Ended) isPhase()    {}
