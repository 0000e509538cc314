package scoring

// Combo is the consecutive-hit counter. The multiplier is a pure function of
// Count.
type Combo struct {
	Count int `json:"count"`
}

// Apply returns the combo after one evaluation of tier t.
func (c Combo) Apply(t Tier) Combo {
	switch {
	case t.CountsAsCombo():
		return Combo{Count: c.Count + 1}
	case t.BreaksCombo():
		return Combo{}
	default:
		return c
	}
}

// Multiplier returns the score multiplier for the current count.
func (c Combo) Multiplier() float64 { return MultiplierFor(c.Count) }

// MultiplierFor maps a combo count to 1.0, 1.5, 2.0 or 3.0 at the 3, 5 and 10
// boundaries.
func MultiplierFor(count int) float64 {
	switch {
	case count >= 10:
		return 3.0
	case count >= 5:
		return 2.0
	case count >= 3:
		return 1.5
	default:
		return 1.0
	}
}
