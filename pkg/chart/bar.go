package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/scoreslides/pkg/aggregate"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/scale"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// BarConfig describes a simple bar chart.
type BarConfig struct {
	Name  string
	Title string
	// Dimension is the dataset dimension categories come from.
	Dimension string
	// Axis is the x axis title. Empty omits it.
	Axis string
	// Categories and Palette pair colors with categories by position.
	Categories []string
	Palette    []string
	Hints      []string
}

// GenderBar compares average scores of female and male students.
var GenderBar = BarConfig{
	Name:       "gender",
	Title:      "Average Scores by Gender",
	Dimension:  "gender",
	Categories: []string{"male", "female"},
	Palette:    []string{"#4e79a7", "#f28e2c"},
	Hints:      []string{"Use the buttons to view scores for different subjects."},
}

// Bar draws one bar per category for the selected metric, labels each bar
// with its value and annotates the highest bar. With exactly two categories
// the gap between them is annotated too.
type Bar struct {
	base
	cfg    BarConfig
	store  *dataset.Store
	by     func(dataset.Record) string
	colors scale.Ordinal
	result *aggregate.Result
}

// NewBar creates a bar chart over store.
func NewBar(store *dataset.Store, cfg BarConfig, opts ...Option) (*Bar, error) {
	by, err := dataset.Dimension(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	spec := view.Spec{
		Metrics:       aggregate.Names(aggregate.AllScores),
		DefaultMetric: aggregate.Average.Name,
	}
	c := &Bar{
		base: newBase(cfg.Name, cfg.Title, spec, Margin{Top: 80, Right: 100, Bottom: 60, Left: 60}, 300*time.Millisecond,
			[]string{LayerAxis, LayerBars, LayerLabels, LayerAnnotations, LayerLegend, LayerTitle, LayerTooltip}, opts),
		cfg:    cfg,
		store:  store,
		by:     by,
		colors: scale.NewOrdinal(cfg.Categories, cfg.Palette),
	}
	c.prepare = c.load
	c.draw = c.render
	return c, nil
}

func (c *Bar) load() error {
	if c.store == nil {
		return errors.New(errors.ErrCodeEmptyDataset, "no dataset")
	}
	res, err := aggregate.Aggregate(c.store.Records(), c.by, aggregate.AllScores)
	if err != nil {
		return err
	}
	c.result = res
	return nil
}

func (c *Bar) render() error {
	metric := c.state.Metric
	groups := c.result.Groups()
	values := make([]float64, len(groups))
	for i, g := range groups {
		v, err := c.result.Value(g, metric)
		if err != nil {
			return err
		}
		values[i] = v
	}

	f := c.frame()
	x := scale.NewBand(groups, f.left, f.right, 0.1, 0.1)
	y := scale.NewLinear(scale.PaddedMax(values, 1.1), f.bottom, f.top)

	var bars, labels []reconcile.Item
	for i, g := range groups {
		lo, _, _ := x.Range(g)
		top := y.Map(values[i])
		bar := rect(reconcile.Key{Group: g}, lo, top, x.Bandwidth(), f.bottom-top, c.colors.Color(g))
		bar.Datum = values[i]
		if c.state.Hovered == g {
			bar.Attrs.Stroke = inkColor
		}
		bars = append(bars, bar)
		labels = append(labels, text(reconcile.Key{Group: g}, lo+x.Bandwidth()/2, top-6, fixed1(values[i]), 12, "middle"))
	}

	axisTitle := fmt.Sprintf("Average %s score", metricName(metric))
	axis := append(yAxis(y, f, axisTitle), xBandAxis(x, f, c.cfg.Axis)...)

	items := map[string][]reconcile.Item{
		LayerAxis:        axis,
		LayerBars:        bars,
		LayerLabels:      labels,
		LayerAnnotations: c.annotations(groups, values, x, y, f),
		LayerLegend:      legend(c.cfg.Categories, c.colors, c.state, false, f.right+10, f.top),
		LayerTitle: heading(c.title, "Showing: "+metricLabel(metric), c.opts.width, c.margin.Top,
			c.opts.height-12, c.cfg.Hints),
	}
	if d, ok := c.Hover(c.state.Hovered); ok {
		cx, _ := x.Center(c.state.Hovered)
		v, _ := c.result.Value(c.state.Hovered, metric)
		items[LayerTooltip] = tooltip(d, cx, y.Map(v), c.opts.width)
	}
	return c.commit(items)
}

func metricName(m string) string {
	if m == "average" {
		return "overall"
	}
	return m
}

// annotations marks the highest bar and, for two categories, their difference.
func (c *Bar) annotations(groups []string, values []float64, x scale.Band, y scale.Linear, f frame) []reconcile.Item {
	if len(groups) == 0 {
		return nil
	}
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	cx, _ := x.Center(groups[best])
	top := y.Map(values[best])
	dx := -30.0
	if cx > f.midX() {
		dx = 30
	}
	anchor := "end"
	if dx > 0 {
		anchor = "start"
	}
	items := []reconcile.Item{
		line(reconcile.Key{Group: "highest", Series: "connector"}, cx, top, dx, -30, mutedColor),
		text(reconcile.Key{Group: "highest", Series: "label"}, cx+dx, top-48, "Highest score", 12, anchor),
		text(reconcile.Key{Group: "highest", Series: "value"}, cx+dx, top-34, capitalize(groups[best])+": "+fixed1(values[best]), 12, anchor),
	}
	items[2].Attrs.Weight = "bold"

	if len(groups) == 2 {
		diff := math.Abs(values[0] - values[1])
		mid := y.Map((values[0] + values[1]) / 2)
		dy, labelY := -30.0, mid-48
		if values[1] > values[0] {
			dy, labelY = 30, mid+44
		}
		items = append(items,
			line(reconcile.Key{Group: "difference", Series: "connector"}, f.midX(), mid, 0, dy, mutedColor),
			text(reconcile.Key{Group: "difference", Series: "label"}, f.midX(), labelY, "Score difference", 12, "middle"),
			text(reconcile.Key{Group: "difference", Series: "value"}, f.midX(), labelY+14, fixed1(diff)+" points", 12, "middle"),
		)
		items[len(items)-1].Attrs.Weight = "bold"
	}
	return items
}

// Hover describes the category with the given key.
func (c *Bar) Hover(key string) (Detail, bool) {
	if c.result == nil || key == "" {
		return Detail{}, false
	}
	s, ok := c.result.Summary(reconcile.ParseKey(key).Group)
	if !ok {
		return Detail{}, false
	}
	d := Detail{Title: capitalize(s.Group)}
	for _, m := range c.result.Metrics() {
		d.Lines = append(d.Lines, valueLine(metricLabel(m), s.Values[m]))
	}
	d.Lines = append(d.Lines, fmt.Sprintf("Students: %d", s.Count))
	return d, true
}

// Controls returns one button per metric.
func (c *Bar) Controls() []Control { return c.specControls() }

var _ Chart = (*Bar)(nil)
