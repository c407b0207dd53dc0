package scale

import (
	"math"

	"github.com/aclements/go-moremath/scale"
)

// Domain is a closed numeric interval.
type Domain struct {
	Lo, Hi float64
}

// unit is the domain used when data gives no usable extent.
var unit = Domain{0, 1}

// Fixed returns the domain [lo, hi]. Reversed bounds are swapped and an empty
// interval falls back to [0, 1].
func Fixed(lo, hi float64) Domain {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi || math.IsNaN(lo) || math.IsNaN(hi) {
		return unit
	}
	return Domain{lo, hi}
}

// PaddedMax returns [0, max(values) × factor]. With no positive values the
// result is [0, 1]. The function depends only on the values it is given, so
// toggling a series off and on again reproduces the same domain.
func PaddedMax(values []float64, factor float64) Domain {
	best := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > best {
			best = v
		}
	}
	if best <= 0 {
		return unit
	}
	if factor <= 0 {
		factor = 1
	}
	return Domain{0, best * factor}
}

// Linear maps a Domain onto a pixel range. The range may be inverted
// (start > end), which is how y axes grow upwards.
type Linear struct {
	s          scale.Linear
	start, end float64
}

// NewLinear maps d onto [start, end].
func NewLinear(d Domain, start, end float64) Linear {
	return Linear{s: scale.Linear{Min: d.Lo, Max: d.Hi}, start: start, end: end}
}

// Map converts v to a pixel position.
func (l Linear) Map(v float64) float64 {
	return l.start + l.s.Map(v)*(l.end-l.start)
}

// Length converts a magnitude (a bar height, for example) to pixels.
func (l Linear) Length(v float64) float64 {
	return math.Abs(l.Map(v) - l.Map(l.s.Min))
}

// Domain returns the mapped numeric interval.
func (l Linear) Domain() Domain { return Domain{l.s.Min, l.s.Max} }

// Ticks returns at most max nicely rounded major tick values inside the domain.
func (l Linear) Ticks(max int) []float64 {
	if max < 1 {
		return nil
	}
	major, _ := l.s.Ticks(scale.TickOptions{Max: max})
	out := major[:0:0]
	for _, t := range major {
		if t >= l.s.Min-1e-9 && t <= l.s.Max+1e-9 {
			out = append(out, t)
		}
	}
	return out
}
