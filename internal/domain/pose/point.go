package pose

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Point is a normalized image-space coordinate: origin top-left, y down,
// both axes in [0,1].
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Lerp interpolates from p towards q by u.
func (p Point) Lerp(q Point, u float64) Point {
	return Point{X: p.X + (q.X-p.X)*u, Y: p.Y + (q.Y-p.Y)*u}
}

// Clamp limits both coordinates to [0,1]. NaN collapses to 0.
func (p Point) Clamp() Point {
	return Point{X: clamp01(p.X), Y: clamp01(p.Y)}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// MarshalJSON encodes the point as a two element array [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a [x, y] array.
func (p *Point) UnmarshalJSON(b []byte) error {
	var xy []float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: want [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Joints maps a (possibly partial) set of joints to their positions.
type Joints map[Joint]Point

// Clone returns an independent copy. A nil receiver yields an empty map.
func (js Joints) Clone() Joints {
	out := make(Joints, len(js))
	for j, p := range js {
		out[j] = p
	}
	return out
}

// Has reports whether every given joint is present.
func (js Joints) Has(joints ...Joint) bool {
	for _, j := range joints {
		if _, ok := js[j]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the present joints in vocabulary order.
func (js Joints) Sorted() []Joint {
	out := make([]Joint, 0, len(js))
	for j := range js {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// MarshalJSON encodes joints as {name: [x, y]}.
func (js Joints) MarshalJSON() ([]byte, error) {
	raw := make(map[string]Point, len(js))
	for j, p := range js {
		if !j.Valid() {
			continue
		}
		raw[j.String()] = p
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes {name: [x, y]}. Names outside the vocabulary are
// skipped so newer producers stay readable.
func (js *Joints) UnmarshalJSON(b []byte) error {
	var raw map[string]Point
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("joints: %w", err)
	}
	out := make(Joints, len(raw))
	for name, p := range raw {
		j, ok := ParseJoint(name)
		if !ok {
			continue
		}
		out[j] = p
	}
	*js = out
	return nil
}

// String renders joints in vocabulary order, mostly for logs and test output.
func (js Joints) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, j := range js.Sorted() {
		if i > 0 {
			sb.WriteString(", ")
		}
		p := js[j]
		fmt.Fprintf(&sb, "%s:(%.3f,%.3f)", j, p.X, p.Y)
	}
	sb.WriteByte('}')
	return sb.String()
}
