// Package slides steps through a fixed sequence of charts.
//
// A [Deck] owns exactly one active chart at a time. Moving to another slide
// disposes the current chart, removing all of its marks, before the next one
// is built and activated, so state never leaks between slides:
//
//	deck, err := slides.New(scene, slides.Default(store))
//	deck.Next()
//	deck.Dispatch(view.MetricSelected{Name: "math"})
//
// Navigation clamps at both ends. A Deck is not safe for concurrent use;
// callers that share one serialise access themselves.
package slides

import (
	"strconv"
	"strings"

	"github.com/matzehuels/scoreslides/pkg/chart"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// Slide builds the chart of one slide. A new chart is built every time the
// slide is shown.
type Slide struct {
	Name  string
	Title string
	New   func() (chart.Chart, error)
}

// Info describes a slide for listings.
type Info struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Deck is an ordered list of slides with one active chart.
type Deck struct {
	surface reconcile.Surface
	slides  []Slide
	index   int
	active  chart.Chart
}

// New creates a deck on s and shows the first slide.
func New(s reconcile.Surface, slides []Slide) (*Deck, error) {
	if s == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil surface")
	}
	if len(slides) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "deck has no slides")
	}
	d := &Deck{surface: s, slides: slides}
	if err := d.show(0); err != nil {
		return nil, err
	}
	return d, nil
}

// Len returns the number of slides.
func (d *Deck) Len() int { return len(d.slides) }

// Index returns the position of the current slide.
func (d *Deck) Index() int { return d.index }

// Active returns the current chart. It is nil only after a failed activation
// or Close.
func (d *Deck) Active() chart.Chart { return d.active }

// Slides lists every slide.
func (d *Deck) Slides() []Info {
	out := make([]Info, len(d.slides))
	for i, s := range d.slides {
		out[i] = Info{Index: i, Name: s.Name, Title: s.Title, Active: i == d.index}
	}
	return out
}

// Find returns the index of the slide called name, ignoring case.
func (d *Deck) Find(name string) (int, bool) { return Find(d.slides, name) }

// Find returns the index of the slide called name in slides, ignoring case.
func Find(slides []Slide, name string) (int, bool) {
	for i, s := range slides {
		if strings.EqualFold(s.Name, name) {
			return i, true
		}
	}
	return 0, false
}

// Next shows the following slide. On the last slide it does nothing.
func (d *Deck) Next() error { return d.Goto(d.index + 1) }

// Prev shows the preceding slide. On the first slide it does nothing.
func (d *Deck) Prev() error { return d.Goto(d.index - 1) }

// Goto shows slide i, clamped to the valid range. Going to the current slide
// does nothing.
func (d *Deck) Goto(i int) error {
	i = max(0, min(i, len(d.slides)-1))
	if i == d.index && d.active != nil {
		return nil
	}
	return d.show(i)
}

// show disposes the active chart and activates slide i.
func (d *Deck) show(i int) error {
	if d.active != nil {
		d.active.Dispose()
		d.active = nil
	}
	d.index = i

	s := d.slides[i]
	if s.New == nil {
		return errors.New(errors.ErrCodeInvalidInput, "slide %q has no chart", s.Name)
	}
	c, err := s.New()
	if err != nil {
		return err
	}
	if err := c.Activate(d.surface); err != nil {
		c.Dispose()
		return err
	}
	d.active = c
	return nil
}

// Dispatch routes ev: SlideAdvance moves through the deck, every other event
// goes to the active chart only.
func (d *Deck) Dispatch(ev view.Event) error {
	if adv, ok := ev.(view.SlideAdvance); ok {
		return d.Goto(d.index + adv.Delta)
	}
	if d.active == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no active slide")
	}
	return d.active.Handle(ev)
}

// Press performs the action of a control of the active chart.
func (d *Deck) Press(c chart.Control) error {
	if c.Kind == chart.KindGoto {
		i, ok := parseIndex(c.Value)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "bad slide index %q", c.Value)
		}
		return d.Goto(i)
	}
	ev := c.Event()
	if ev == nil {
		return errors.New(errors.ErrCodeInvalidInput, "unsupported control kind %q", c.Kind)
	}
	return d.Dispatch(ev)
}

// Close disposes the active chart and returns how many marks it removed.
func (d *Deck) Close() int {
	if d.active == nil {
		return 0
	}
	n := d.active.Dispose()
	d.active = nil
	return n
}

func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n >= 0
}
