// Package chart renders slides as keyed marks.
//
// # Overview
//
// Every slide of a presentation is a [Chart]. A chart owns one reconciler per
// layer (bars, labels, axis, legend and so on) and redraws by handing each
// layer the complete list of items it should show. The reconcilers work out
// what enters, moves and leaves, so charts never touch the surface directly:
//
//	scene := surface.NewScene(1000, 750, surface.WithLayerOrder(chart.LayerOrder...))
//	c, _ := chart.NewBar(store, chart.GenderBar)
//	if err := c.Activate(scene); err != nil {
//	    return err
//	}
//	err := c.Handle(view.MetricSelected{Name: "math"})
//
// # Lifecycle
//
// A chart is built once, activated on a surface once and disposed once.
// Activation aggregates the dataset for this instance and creates a fresh
// [view.State]. Events are applied with [view.Apply]; a rejected event leaves
// both state and marks unchanged. [Chart.Dispose] removes every mark the
// chart placed and makes later calls fail with DISPOSED.
//
// # Variants
//
//   - [Bar]: one bar per category with a metric selector and annotations.
//   - [Grouped]: one bar per category and subject, sortable.
//   - [Stacked]: subjects stacked per category with toggleable series.
//   - [Scatter]: one point per record with per-series averages.
//   - [Text]: title, paragraphs, bullet lists and links to other slides.
package chart

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/surface"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// Layer names.
const (
	LayerText        = "text"
	LayerAxis        = "axis"
	LayerBars        = "bars"
	LayerPoints      = "points"
	LayerAverages    = "averages"
	LayerLabels      = "labels"
	LayerAnnotations = "annotations"
	LayerLegend      = "legend"
	LayerTitle       = "title"
	LayerTooltip     = "tooltip"
)

// LayerOrder is the paint order of all layers, bottom first.
var LayerOrder = []string{
	LayerText, LayerAxis, LayerBars, LayerPoints, LayerAverages,
	LayerLabels, LayerAnnotations, LayerLegend, LayerTitle, LayerTooltip,
}

// KindGoto is the control kind of links between slides. Its value is the
// target slide index.
const KindGoto = "goto"

// Chart is one slide.
type Chart interface {
	// ID identifies this chart instance.
	ID() string
	// Name is the slide's short name, for example "gender".
	Name() string
	Title() string
	// Spec lists the events the chart accepts.
	Spec() view.Spec
	// State returns a copy of the current interaction state.
	State() view.State
	// Activate draws the chart on s. It may be called once.
	Activate(s reconcile.Surface) error
	// Handle applies ev and redraws.
	Handle(ev view.Event) error
	// Hover describes the mark with the given key.
	Hover(key string) (Detail, bool)
	// Controls lists the buttons the chart offers in the current state.
	Controls() []Control
	// Layers reports the live identities of every layer.
	Layers() []Layer
	// Dispose removes all marks and returns how many were removed.
	Dispose() int
}

// Detail is the content of a hover tooltip.
type Detail struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Control is one button offered by a chart.
type Control struct {
	Kind   string `json:"kind"`
	Value  string `json:"value"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Event returns the event pressing the control raises. Goto controls are not
// chart events and return nil.
func (c Control) Event() view.Event {
	switch c.Kind {
	case view.KindMetric:
		return view.MetricSelected{Name: c.Value}
	case view.KindSort:
		return view.SortRequested{Key: c.Value}
	case view.KindToggle:
		return view.SeriesToggled{Key: c.Value}
	}
	return nil
}

// Layer is the set of identities one reconciler currently shows.
type Layer struct {
	Name string          `json:"name"`
	Keys []reconcile.Key `json:"keys"`
}

// Margin is the space around a chart's plot area.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Option configures a chart.
type Option func(*options)

type options struct {
	width, height float64
	clock         func() time.Time
	duration      time.Duration
	hasDuration   bool
}

// WithSize sets the canvas size charts lay themselves out in.
func WithSize(width, height float64) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithClock sets the time source for transitions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithDuration overrides the chart's transition duration. Zero disables
// animation.
func WithDuration(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.duration = d
			o.hasDuration = true
		}
	}
}

// frame is the plot area in pixels.
type frame struct {
	left, right, top, bottom float64
}

func (f frame) width() float64  { return f.right - f.left }
func (f frame) height() float64 { return f.bottom - f.top }
func (f frame) midX() float64   { return (f.left + f.right) / 2 }

// base implements the lifecycle shared by every chart. Variants set prepare
// and draw.
type base struct {
	id, name, title string
	spec            view.Spec
	margin          Margin
	layerNames      []string
	opts            options
	duration        time.Duration

	// prepare runs once on activation, draw after every accepted change.
	prepare func() error
	draw    func() error

	state    view.State
	layers   []*reconcile.Reconciler
	byName   map[string]*reconcile.Reconciler
	active   bool
	disposed bool
}

func newBase(name, title string, spec view.Spec, margin Margin, duration time.Duration, layers []string, opts []Option) base {
	o := options{width: surface.DefaultWidth, height: surface.DefaultHeight, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasDuration {
		duration = o.duration
	}
	return base{
		id:         uuid.NewString(),
		name:       name,
		title:      title,
		spec:       spec,
		margin:     margin,
		layerNames: layers,
		opts:       o,
		duration:   duration,
		state:      view.New(spec),
	}
}

func (b *base) ID() string        { return b.id }
func (b *base) Name() string      { return b.name }
func (b *base) Title() string     { return b.title }
func (b *base) Spec() view.Spec   { return b.spec }
func (b *base) State() view.State { return b.state.Clone() }

// Duration returns the transition duration of the chart's layers.
func (b *base) Duration() time.Duration { return b.duration }

func (b *base) frame() frame {
	return frame{
		left:   b.margin.Left,
		right:  b.opts.width - b.margin.Right,
		top:    b.margin.Top,
		bottom: b.opts.height - b.margin.Bottom,
	}
}

func (b *base) Activate(s reconcile.Surface) error {
	switch {
	case b.disposed:
		return errors.New(errors.ErrCodeDisposed, "chart %q is disposed", b.name)
	case b.active:
		return errors.New(errors.ErrCodeInvalidInput, "chart %q is already active", b.name)
	case s == nil:
		return errors.New(errors.ErrCodeInvalidInput, "nil surface")
	}
	if b.prepare != nil {
		if err := b.prepare(); err != nil {
			return err
		}
	}

	b.state = view.New(b.spec)
	b.byName = make(map[string]*reconcile.Reconciler, len(b.layerNames))
	b.layers = b.layers[:0]
	for _, name := range b.layerNames {
		d := b.duration
		if name == LayerTooltip {
			d = 0
		}
		r := reconcile.New(name, s, reconcile.WithClock(b.opts.clock), reconcile.WithDuration(d))
		b.layers = append(b.layers, r)
		b.byName[name] = r
	}
	b.active = true
	return b.draw()
}

func (b *base) Handle(ev view.Event) error {
	switch {
	case b.disposed:
		return errors.New(errors.ErrCodeDisposed, "chart %q is disposed", b.name)
	case !b.active:
		return errors.New(errors.ErrCodeInvalidInput, "chart %q is not active", b.name)
	}
	next, err := view.Apply(b.spec, b.state, ev)
	if err != nil {
		return err
	}
	if next.Equal(b.state) {
		return nil
	}
	prev := b.state
	b.state = next
	if err := b.draw(); err != nil {
		b.state = prev
		return err
	}
	return nil
}

func (b *base) Layers() []Layer {
	out := make([]Layer, 0, len(b.layers))
	for _, r := range b.layers {
		out = append(out, Layer{Name: r.Name(), Keys: r.Keys()})
	}
	return out
}

func (b *base) Dispose() int {
	if b.disposed {
		return 0
	}
	n := 0
	for _, r := range b.layers {
		n += r.Dispose()
	}
	b.disposed = true
	b.active = false
	return n
}

// commit reconciles every layer of the chart. Layers missing from items are
// emptied. No layer changes unless every layer accepts its items.
func (b *base) commit(items map[string][]reconcile.Item) error {
	for _, r := range b.layers {
		if err := r.Check(items[r.Name()]); err != nil {
			return err
		}
	}
	for _, r := range b.layers {
		if _, err := r.Reconcile(items[r.Name()]); err != nil {
			return err
		}
	}
	return nil
}

// specControls lists metric, sort and toggle buttons for the chart's spec.
func (b *base) specControls() []Control {
	var out []Control
	for _, m := range b.spec.Metrics {
		out = append(out, Control{Kind: view.KindMetric, Value: m, Label: metricLabel(m), Active: b.state.Metric == m})
	}
	if len(b.spec.SortKeys) > 0 {
		out = append(out, Control{Kind: view.KindSort, Value: "", Label: "Unsorted", Active: b.state.Sort == ""})
		for _, k := range b.spec.SortKeys {
			out = append(out, Control{Kind: view.KindSort, Value: k, Label: "Sort by " + metricLabel(k), Active: b.state.Sort == k})
		}
	}
	for _, s := range b.spec.Series {
		out = append(out, Control{Kind: view.KindToggle, Value: s, Label: capitalize(s), Active: b.state.Visible(s)})
	}
	return out
}
