package chart

import (
	"time"

	"github.com/matzehuels/scoreslides/pkg/aggregate"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/scale"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// RaceStacked stacks subject scores per race/ethnicity group.
var RaceStacked = GroupedConfig{
	Name:      "race",
	Title:     "Average Scores by Race/Ethnicity",
	Dimension: "race",
	Axis:      "Race/Ethnicity",
	Palette:   scale.Set1,
	Hints: []string{
		"Hover over the bars to see specific scores. Click on legend items to toggle visibility.",
		"Each bar stacks the average math, reading and writing scores of one group.",
		"The number at the top of each bar is the sum of the visible subject scores.",
	},
}

// Stacked draws one stack per category with a segment per visible subject.
// The y axis always fits the tallest visible stack.
type Stacked struct {
	base
	cfg    GroupedConfig
	store  *dataset.Store
	by     func(dataset.Record) string
	colors scale.Ordinal
	result *aggregate.Result
}

// NewStacked creates a stacked bar chart over store.
func NewStacked(store *dataset.Store, cfg GroupedConfig, opts ...Option) (*Stacked, error) {
	by, err := dataset.Dimension(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	series := aggregate.Names(aggregate.Scores)
	c := &Stacked{
		base: newBase(cfg.Name, cfg.Title, view.Spec{Series: series}, Margin{Top: 60, Right: 200, Bottom: 180, Left: 80}, 500*time.Millisecond,
			[]string{LayerAxis, LayerBars, LayerLabels, LayerLegend, LayerTitle, LayerTooltip}, opts),
		cfg:    cfg,
		store:  store,
		by:     by,
		colors: scale.NewOrdinal(series, cfg.Palette),
	}
	c.prepare = c.load
	c.draw = c.render
	return c, nil
}

func (c *Stacked) load() error {
	if c.store == nil {
		return errors.New(errors.ErrCodeEmptyDataset, "no dataset")
	}
	res, err := aggregate.Aggregate(c.store.Records(), c.by, aggregate.Scores)
	if err != nil {
		return err
	}
	c.result = res
	return nil
}

// segment is one slice of a stack in data units.
type segment struct {
	key    reconcile.Key
	lo, hi float64
}

// stacks returns the segments of every group bottom-up and each group's total.
func (c *Stacked) stacks(visible []string) (map[string][]segment, map[string]float64) {
	segs := make(map[string][]segment)
	totals := make(map[string]float64)
	for _, g := range c.result.Groups() {
		sum := 0.0
		for _, s := range visible {
			v, _ := c.result.Value(g, s)
			segs[g] = append(segs[g], segment{key: reconcile.Key{Group: g, Series: s}, lo: sum, hi: sum + v})
			sum += v
		}
		totals[g] = sum
	}
	return segs, totals
}

func (c *Stacked) render() error {
	st := c.state
	groups := c.result.Groups()
	visible := st.VisibleSeries(c.spec)
	segs, totals := c.stacks(visible)

	heights := make([]float64, 0, len(groups))
	for _, g := range groups {
		heights = append(heights, totals[g])
	}

	f := c.frame()
	x := scale.NewBand(groups, f.left, f.right, 0.2, 0.2)
	y := scale.NewLinear(scale.PaddedMax(heights, 1), f.bottom, f.top)

	var bars, labels []reconcile.Item
	for _, g := range groups {
		lo, _, _ := x.Range(g)
		for _, sg := range segs[g] {
			top := y.Map(sg.hi)
			bar := rect(sg.key, lo, top, x.Bandwidth(), y.Map(sg.lo)-top, c.colors.Color(sg.key.Series))
			bar.Datum = sg.hi - sg.lo
			if st.Hovered == sg.key.String() {
				bar.Attrs.Stroke = inkColor
			}
			bars = append(bars, bar)
		}
		labels = append(labels, text(reconcile.Key{Group: g}, lo+x.Bandwidth()/2, y.Map(totals[g])-6, fixed1(totals[g]), 12, "middle"))
	}

	items := map[string][]reconcile.Item{
		LayerAxis:   append(yAxis(y, f, "Score"), xBandAxis(x, f, c.cfg.Axis)...),
		LayerBars:   bars,
		LayerLabels: labels,
		LayerLegend: legend(c.spec.Series, c.colors, st, true, f.right+20, f.top),
		LayerTitle:  heading(c.title, "", c.opts.width, c.margin.Top, c.opts.height-40, c.cfg.Hints),
	}
	if d, ok := c.Hover(st.Hovered); ok {
		k := reconcile.ParseKey(st.Hovered)
		cx, _ := x.Center(k.Group)
		for _, sg := range segs[k.Group] {
			if sg.key == k {
				items[LayerTooltip] = tooltip(d, cx, y.Map(sg.hi), c.opts.width)
			}
		}
	}
	return c.commit(items)
}

// Hover describes the segment with key "group/series" as "series: value".
func (c *Stacked) Hover(key string) (Detail, bool) {
	return seriesDetail(c.result, c.state, key)
}

// Controls returns one toggle per subject.
func (c *Stacked) Controls() []Control { return c.specControls() }

var _ Chart = (*Stacked)(nil)
