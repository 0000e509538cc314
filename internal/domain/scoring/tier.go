// Package scoring turns pose similarity into tiers, combo multipliers and a
// capped running score.
package scoring

import (
	"fmt"
	"strings"
)

// Tier is the per-beat quality bucket.
type Tier uint8

// Tiers from best to worst.
const (
	Yeah Tier = iota
	Perfect
	Good
	OK
	Miss
)

// Similarity thresholds, inclusive lower bounds.
const (
	YeahThreshold    = 0.85
	PerfectThreshold = 0.70
	GoodThreshold    = 0.50
	OKThreshold      = 0.30
)

var tierNames = [...]string{"YEAH", "PERFECT", "GOOD", "OK", "MISS"}

var basePoints = [...]int{1000, 750, 500, 250, 0}

// TierFor maps a weighted similarity in [0,1] to its tier.
func TierFor(similarity float64) Tier {
	switch {
	case similarity >= YeahThreshold:
		return Yeah
	case similarity >= PerfectThreshold:
		return Perfect
	case similarity >= GoodThreshold:
		return Good
	case similarity >= OKThreshold:
		return OK
	default:
		return Miss
	}
}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// BasePoints returns the points awarded before the combo multiplier.
func (t Tier) BasePoints() int {
	if int(t) < len(basePoints) {
		return basePoints[t]
	}
	return 0
}

// CountsAsCombo reports whether the tier extends the combo.
func (t Tier) CountsAsCombo() bool { return t == Yeah || t == Perfect }

// BreaksCombo reports whether the tier resets the combo. GOOD does neither.
func (t Tier) BreaksCombo() bool { return t == OK || t == Miss }

// MarshalText encodes the tier name.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a tier name, case-insensitively.
func (t *Tier) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, name := range tierNames {
		if name == s {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", string(b))
}
