package chart

import (
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/scoreslides/pkg/aggregate"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/scale"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// ScatterConfig describes a scatter plot of two subjects colored by a
// dimension.
type ScatterConfig struct {
	Name      string
	Title     string
	Dimension string
	// X lists the selectable x metrics; the y metric is fixed.
	X       []aggregate.Metric
	Y       aggregate.Metric
	Series  []string
	Palette []string
	Hints   []string
}

// LunchScatter plots math (or writing) against reading by lunch type.
var LunchScatter = ScatterConfig{
	Name:      "lunch",
	Title:     "Math vs Reading Scores by Lunch Type",
	Dimension: "lunch",
	X:         []aggregate.Metric{aggregate.Math, aggregate.Writing},
	Y:         aggregate.Reading,
	Series:    []string{"standard", "free/reduced"},
	Palette:   []string{"#1f77b4", "#ff7f0e"},
	Hints:     []string{"Hover over each dot to get more information."},
}

const (
	pointRadius   = 4
	pointOpacity  = 0.6
	averageRadius = 8
)

// Scatter draws one point per record keyed by record ID and series, plus a
// large point at each series' mean.
type Scatter struct {
	base
	cfg     ScatterConfig
	store   *dataset.Store
	by      func(dataset.Record) string
	colors  scale.Ordinal
	records []dataset.Record
	result  *aggregate.Result
}

// NewScatter creates a scatter plot over store.
func NewScatter(store *dataset.Store, cfg ScatterConfig, opts ...Option) (*Scatter, error) {
	by, err := dataset.Dimension(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	if len(cfg.X) == 0 || cfg.Y.Value == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "scatter %q needs x and y metrics", cfg.Name)
	}
	spec := view.Spec{Metrics: aggregate.Names(cfg.X), Series: cfg.Series}
	c := &Scatter{
		base: newBase(cfg.Name, cfg.Title, spec, Margin{Top: 60, Right: 200, Bottom: 100, Left: 60}, 500*time.Millisecond,
			[]string{LayerAxis, LayerPoints, LayerAverages, LayerAnnotations, LayerLegend, LayerTitle, LayerTooltip}, opts),
		cfg:    cfg,
		store:  store,
		by:     by,
		colors: scale.NewOrdinal(cfg.Series, cfg.Palette),
	}
	c.prepare = c.load
	c.draw = c.render
	return c, nil
}

func (c *Scatter) load() error {
	if c.store == nil {
		return errors.New(errors.ErrCodeEmptyDataset, "no dataset")
	}
	c.records = c.store.Records()
	ms := append([]aggregate.Metric{}, c.cfg.X...)
	if _, dup := c.xMetric(c.cfg.Y.Name); !dup {
		ms = append(ms, c.cfg.Y)
	}
	res, err := aggregate.Aggregate(c.records, c.by, ms)
	if err != nil {
		return err
	}
	c.result = res
	return nil
}

func (c *Scatter) xMetric(name string) (aggregate.Metric, bool) {
	for _, m := range c.cfg.X {
		if m.Name == name {
			return m, true
		}
	}
	return aggregate.Metric{}, false
}

func (c *Scatter) render() error {
	st := c.state
	xm, ok := c.xMetric(st.Metric)
	if !ok {
		return errors.New(errors.ErrCodeUnknownMetric, "unknown metric %q", st.Metric)
	}

	f := c.frame()
	x := scale.NewLinear(scale.Fixed(0, 100), f.left, f.right)
	y := scale.NewLinear(scale.Fixed(0, 100), f.bottom, f.top)

	var points []reconcile.Item
	for _, r := range c.records {
		series := c.by(r)
		if !st.Visible(series) {
			continue
		}
		key := reconcile.Key{Group: strconv.Itoa(r.ID), Series: series}
		p := reconcile.Item{
			Key:  key,
			Kind: reconcile.Circle,
			Attrs: reconcile.Attrs{
				X: x.Map(xm.Value(r)), Y: y.Map(c.cfg.Y.Value(r)),
				R: pointRadius, Fill: c.colors.Color(series), Opacity: pointOpacity,
			},
			Datum: r,
		}
		if st.Hovered == key.String() {
			p.Attrs.R = pointRadius + 2
			p.Attrs.Stroke = inkColor
			p.Attrs.Opacity = 1
		}
		points = append(points, p)
	}

	var averages, notes []reconcile.Item
	for i, s := range st.VisibleSeries(c.spec) {
		sum, ok := c.result.Summary(s)
		if !ok {
			continue
		}
		ax, ay := x.Map(sum.Values[xm.Name]), y.Map(sum.Values[c.cfg.Y.Name])
		averages = append(averages, reconcile.Item{
			Key:   reconcile.Key{Group: s, Series: "average"},
			Kind:  reconcile.Circle,
			Attrs: reconcile.Attrs{X: ax, Y: ay, R: averageRadius, Fill: c.colors.Color(s), Stroke: "#ffffff", Opacity: 1},
			Datum: sum,
		})
		dx, dy, anchor := 120.0, 50.0, "start"
		if i%2 == 1 {
			dx, dy, anchor = -120, -50, "end"
		}
		title := text(reconcile.Key{Group: s, Series: "title"}, ax+dx, ay+dy, capitalize(s)+" average", 12, anchor)
		title.Attrs.Weight = "bold"
		title.Attrs.Fill = "#2c3e50"
		notes = append(notes,
			line(reconcile.Key{Group: s, Series: "connector"}, ax, ay, dx, dy-14, "#2c3e50"),
			title,
			text(reconcile.Key{Group: s, Series: "values"}, ax+dx, ay+dy+15,
				fmt.Sprintf("%s: %s  %s: %s", metricLabel(xm.Name), fixed1(sum.Values[xm.Name]), metricLabel(c.cfg.Y.Name), fixed1(sum.Values[c.cfg.Y.Name])), 12, anchor),
		)
	}

	axis := append(yAxis(y, f, metricLabel(c.cfg.Y.Name)+" score"), xLinearAxis(x, f, metricLabel(xm.Name)+" score")...)
	items := map[string][]reconcile.Item{
		LayerAxis:        axis,
		LayerPoints:      points,
		LayerAverages:    averages,
		LayerAnnotations: notes,
		LayerLegend:      legend(c.cfg.Series, c.colors, st, true, f.right+10, f.top),
		LayerTitle:       heading(c.title, "", c.opts.width, c.margin.Top, c.opts.height-20, c.cfg.Hints),
	}
	if d, ok := c.Hover(st.Hovered); ok {
		k := reconcile.ParseKey(st.Hovered)
		if r, ok := c.record(k); ok {
			items[LayerTooltip] = tooltip(d, x.Map(xm.Value(r)), y.Map(c.cfg.Y.Value(r)), c.opts.width)
		} else if sum, ok := c.result.Summary(k.Group); ok {
			items[LayerTooltip] = tooltip(d, x.Map(sum.Values[xm.Name]), y.Map(sum.Values[c.cfg.Y.Name]), c.opts.width)
		}
	}
	return c.commit(items)
}

// record resolves a point key to its record.
func (c *Scatter) record(k reconcile.Key) (dataset.Record, bool) {
	id, err := strconv.Atoi(k.Group)
	if err != nil || id < 0 || id >= len(c.records) {
		return dataset.Record{}, false
	}
	r := c.records[id]
	if c.by(r) != k.Series {
		return dataset.Record{}, false
	}
	return r, true
}

// Hover describes a point ("id/series") with the record's scores, or a
// series average ("series/average").
func (c *Scatter) Hover(key string) (Detail, bool) {
	if c.result == nil || key == "" {
		return Detail{}, false
	}
	k := reconcile.ParseKey(key)
	if r, ok := c.record(k); ok {
		if !c.state.Visible(k.Series) {
			return Detail{}, false
		}
		return Detail{
			Title: fmt.Sprintf("Student %d", r.ID),
			Lines: []string{
				"Math: " + tickLabel(r.Math),
				"Reading: " + tickLabel(r.Reading),
				"Writing: " + tickLabel(r.Writing),
				"Lunch: " + r.Lunch,
			},
		}, true
	}
	if k.Series != "average" || !c.state.Visible(k.Group) {
		return Detail{}, false
	}
	sum, ok := c.result.Summary(k.Group)
	if !ok {
		return Detail{}, false
	}
	d := Detail{Title: capitalize(k.Group) + " average"}
	for _, m := range c.result.Metrics() {
		d.Lines = append(d.Lines, valueLine(metricLabel(m), sum.Values[m]))
	}
	d.Lines = append(d.Lines, fmt.Sprintf("Students: %d", sum.Count))
	return d, true
}

// Controls returns the x metric buttons followed by the series toggles.
func (c *Scatter) Controls() []Control { return c.specControls() }

var _ Chart = (*Scatter)(nil)
