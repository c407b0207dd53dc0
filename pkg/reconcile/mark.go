package reconcile

import (
	"math"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Key is the identity of a mark: a category plus an optional series.
type Key struct {
	Group  string `json:"group"`
	Series string `json:"series,omitempty"`
}

var (
	keyEscaper   = strings.NewReplacer("%", "%25", "/", "%2F")
	keyUnescaper = strings.NewReplacer("%2F", "/", "%2f", "/", "%25", "%")
)

// String renders the key as "group" or "group/series". A slash or percent
// sign inside either part is written as %2F or %25, so ParseKey can always
// split the result back apart.
func (k Key) String() string {
	if k.Series == "" {
		return keyEscaper.Replace(k.Group)
	}
	return keyEscaper.Replace(k.Group) + "/" + keyEscaper.Replace(k.Series)
}

// Label renders the key for display, without escaping.
func (k Key) Label() string {
	if k.Series == "" {
		return k.Group
	}
	return k.Group + "/" + k.Series
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) Key {
	group, series, _ := strings.Cut(s, "/")
	return Key{Group: keyUnescaper.Replace(group), Series: keyUnescaper.Replace(series)}
}

// Kind is the shape of a mark.
type Kind string

// Mark kinds.
const (
	Rect   Kind = "rect"
	Circle Kind = "circle"
	Text   Kind = "text"
	Line   Kind = "line"
)

// Attrs are the visual attributes of a mark.
//
// Rects use X, Y, W, H. Circles are centred on X, Y with radius R. Text is
// anchored at X, Y. Lines run from (X, Y) to (X+W, Y+H).
type Attrs struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w,omitempty"`
	H       float64 `json:"h,omitempty"`
	R       float64 `json:"r,omitempty"`
	Fill    string  `json:"fill,omitempty"`
	Stroke  string  `json:"stroke,omitempty"`
	Opacity float64 `json:"opacity"`
	Text    string  `json:"text,omitempty"`
	Anchor  string  `json:"anchor,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Weight  string  `json:"weight,omitempty"`
}

// Lerp interpolates between a and b. Numbers move linearly, colors blend in
// Lab space, and text switches to b's text at once.
func Lerp(a, b Attrs, t float64) Attrs {
	if t <= 0 {
		out := a
		out.Text, out.Anchor, out.Weight = b.Text, b.Anchor, b.Weight
		return out
	}
	if t >= 1 {
		return b
	}
	num := func(x, y float64) float64 { return x + (y-x)*t }
	return Attrs{
		X:       num(a.X, b.X),
		Y:       num(a.Y, b.Y),
		W:       num(a.W, b.W),
		H:       num(a.H, b.H),
		R:       num(a.R, b.R),
		Fill:    blend(a.Fill, b.Fill, t),
		Stroke:  blend(a.Stroke, b.Stroke, t),
		Opacity: num(a.Opacity, b.Opacity),
		Text:    b.Text,
		Anchor:  b.Anchor,
		Size:    num(a.Size, b.Size),
		Weight:  b.Weight,
	}
}

func blend(a, b string, t float64) string {
	if a == b {
		return b
	}
	ca, errA := colorful.Hex(a)
	cb, errB := colorful.Hex(b)
	if errA != nil || errB != nil {
		if t < 0.5 {
			return a
		}
		return b
	}
	return ca.BlendLab(cb, t).Clamped().Hex()
}

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(float64) float64

// EaseLinear is the identity easing.
func EaseLinear(t float64) float64 { return t }

// EaseCubicInOut accelerates then decelerates.
func EaseCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Transition moves a mark from From to To over Duration starting at Start.
// A zero duration means the mark is at To immediately.
type Transition struct {
	From     Attrs         `json:"from"`
	To       Attrs         `json:"to"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Ease     Ease          `json:"-"`
}

// Progress returns the linear progress at now, clamped to [0,1].
func (t Transition) Progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.Start)) / float64(t.Duration)
	return math.Max(0, math.Min(1, p))
}

// At returns the interpolated attributes at now.
func (t Transition) At(now time.Time) Attrs {
	p := t.Progress(now)
	if t.Ease != nil && p > 0 && p < 1 {
		p = t.Ease(p)
	}
	return Lerp(t.From, t.To, p)
}

// Done reports whether the transition has reached its target.
func (t Transition) Done(now time.Time) bool {
	return t.Progress(now) >= 1
}

// End returns the time the transition finishes.
func (t Transition) End() time.Time {
	return t.Start.Add(t.Duration)
}

// Mark is one visual primitive bound to a data identity.
type Mark struct {
	ID         uint64     `json:"id"`
	Layer      string     `json:"layer"`
	Key        Key        `json:"key"`
	Kind       Kind       `json:"kind"`
	Transition Transition `json:"transition"`
	Datum      any        `json:"datum,omitempty"`
}

// Target returns the attributes the mark is moving towards.
func (m Mark) Target() Attrs { return m.Transition.To }

// At returns the mark's attributes at now.
func (m Mark) At(now time.Time) Attrs { return m.Transition.At(now) }

// EnterPose returns the attributes a new mark starts from: rects grow up from
// their baseline, circles grow from their centre, text and lines fade in.
func EnterPose(kind Kind, target Attrs) Attrs {
	from := target
	switch kind {
	case Rect:
		from.Y = target.Y + target.H
		from.H = 0
	case Circle:
		from.R = 0
	default:
		from.Opacity = 0
	}
	return from
}

// ExitPose returns the attributes a removed mark ends at: rects shrink to
// their baseline and fade, circles shrink, text and lines fade out.
func ExitPose(kind Kind, current Attrs) Attrs {
	to := current
	switch kind {
	case Rect:
		to.Y = current.Y + current.H
		to.H = 0
	case Circle:
		to.R = 0
	}
	to.Opacity = 0
	return to
}
