// Package scale maps data to pixels and colors.
//
// A chart combines three mappings:
//   - [Band] assigns each category an equal-width pixel interval.
//   - [Linear] maps a numeric [Domain] onto a pixel range (inverted for y).
//   - [Ordinal] assigns each series a color.
//
// [Order] decides the category order handed to [NewBand]: insertion order,
// or descending by a metric with ties kept in insertion order.
//
// All scales are immutable values. Building one twice from the same inputs
// yields the same mapping.
package scale

// Band divides a continuous pixel range into equal bands, one per domain key.
//
// Padding follows the usual band-scale convention: paddingInner is the
// fraction of a step left empty between bands, paddingOuter the number of
// steps left empty before the first and after the last band.
type Band struct {
	index     map[string]int
	domain    []string
	start     float64
	step      float64
	bandwidth float64
}

// NewBand creates a band scale over domain mapped into [start, end].
func NewBand(domain []string, start, end, paddingInner, paddingOuter float64) Band {
	b := Band{
		index:  make(map[string]int, len(domain)),
		domain: make([]string, 0, len(domain)),
	}
	for _, k := range domain {
		if _, dup := b.index[k]; dup {
			continue
		}
		b.index[k] = len(b.domain)
		b.domain = append(b.domain, k)
	}

	n := float64(len(b.domain))
	if n == 0 {
		b.start = start
		return b
	}
	paddingInner = clamp(paddingInner, 0, 1)
	if paddingOuter < 0 {
		paddingOuter = 0
	}
	b.step = (end - start) / maxf(1, n-paddingInner+2*paddingOuter)
	b.bandwidth = b.step * (1 - paddingInner)
	b.start = start + b.step*paddingOuter
	return b
}

// Range returns the pixel interval of key.
func (b Band) Range(key string) (lo, hi float64, ok bool) {
	i, ok := b.index[key]
	if !ok {
		return 0, 0, false
	}
	lo = b.start + b.step*float64(i)
	return lo, lo + b.bandwidth, true
}

// Center returns the midpoint of key's band.
func (b Band) Center(key string) (float64, bool) {
	lo, hi, ok := b.Range(key)
	return (lo + hi) / 2, ok
}

// Bandwidth returns the width of every band.
func (b Band) Bandwidth() float64 { return b.bandwidth }

// Step returns the distance between the starts of adjacent bands.
func (b Band) Step() float64 { return b.step }

// Domain returns the keys in band order.
func (b Band) Domain() []string {
	out := make([]string, len(b.domain))
	copy(out, b.domain)
	return out
}

// Sub returns a band scale over inner laid out inside key's band, as used for
// the bars of one group in a grouped bar chart. The result is empty when key
// is not in the domain.
func (b Band) Sub(key string, inner []string, paddingInner float64) Band {
	lo, hi, ok := b.Range(key)
	if !ok {
		return NewBand(nil, 0, 0, 0, 0)
	}
	return NewBand(inner, lo, hi, paddingInner, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
