package scoring

import (
	"math"
	"sync"

	"github.com/okian/groove/internal/domain/choreo"
	"github.com/okian/groove/internal/domain/pose"
)

// MaxScore is the hard cap on a session's total score.
const MaxScore = 99_999_999

// Result is the outcome of one evaluation.
type Result struct {
	Tier       Tier         `json:"tier"`
	Similarity float64      `json:"similarity"`
	Missed     []pose.Joint `json:"missed_joints"`
	Points     int          `json:"points"`
	Multiplier float64      `json:"multiplier"`
	Combo      int          `json:"combo"`
	MaxCombo   int          `json:"max_combo"`
	TotalScore int          `json:"total_score"`
	// Capped is set once the total score has reached the cap.
	Capped bool `json:"capped"`
	// MilestoneReached is set when this evaluation raised the multiplier.
	MilestoneReached bool `json:"milestone_reached"`
}

// State is a point-in-time copy of the engine's mutable state.
type State struct {
	TotalScore int     `json:"total_score"`
	Combo      int     `json:"combo"`
	Multiplier float64 `json:"multiplier"`
	MaxCombo   int     `json:"max_combo"`
	Capped     bool    `json:"capped"`
}

// Engine owns the combo and cumulative score of one session. All mutation
// goes through Evaluate and Reset, serialized by a single lock.
type Engine struct {
	mu            sync.Mutex
	upperBodyOnly bool
	scoreCap      int
	observers     []func(Result)

	total    int
	combo    Combo
	maxCombo int
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{scoreCap: MaxScore}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores detected against the reference frame and advances the
// combo and total. It is total over its inputs: an empty detected pose is a
// MISS.
func (e *Engine) Evaluate(detected pose.Joints, reference choreo.Frame) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	bones := pose.FullBodyBones()
	if e.upperBodyOnly {
		bones = pose.UpperBodyBones()
	}
	sim, missed := Similarity(detected, reference.Joints, bones)
	tier := TierFor(sim)

	prevMult := e.combo.Multiplier()
	e.combo = e.combo.Apply(tier)
	mult := e.combo.Multiplier()

	points := int(math.Floor(float64(tier.BasePoints()) * mult))
	if e.total > e.scoreCap-points {
		e.total = e.scoreCap
	} else {
		e.total += points
	}
	if e.combo.Count > e.maxCombo {
		e.maxCombo = e.combo.Count
	}

	r := Result{
		Tier:             tier,
		Similarity:       sim,
		Missed:           missed,
		Points:           points,
		Multiplier:       mult,
		Combo:            e.combo.Count,
		MaxCombo:         e.maxCombo,
		TotalScore:       e.total,
		Capped:           e.total >= e.scoreCap,
		MilestoneReached: mult > prevMult,
	}
	for _, fn := range e.observers {
		fn(r)
	}
	return r
}

// Reset clears score and combo for a fresh run.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total = 0
	e.combo = Combo{}
	e.maxCombo = 0
}

// SetUpperBodyOnly switches the bone set for subsequent evaluations.
func (e *Engine) SetUpperBodyOnly(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.upperBodyOnly = enabled
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		TotalScore: e.total,
		Combo:      e.combo.Count,
		Multiplier: e.combo.Multiplier(),
		MaxCombo:   e.maxCombo,
		Capped:     e.total >= e.scoreCap,
	}
}
