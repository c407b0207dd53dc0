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

// GroupedConfig describes a grouped or stacked bar chart: categories along
// x, one series per subject.
type GroupedConfig struct {
	Name      string
	Title     string
	Dimension string
	Axis      string
	Palette   []string
	Hints     []string
}

// EducationGrouped compares subject scores across parental education levels.
var EducationGrouped = GroupedConfig{
	Name:      "education",
	Title:     "Average Scores by Parental Education Level",
	Dimension: "education",
	Axis:      "Parental level of education",
	Palette:   scale.PurpleGrays,
	Hints:     []string{"Use the buttons to sort by different score types. Click the legend to hide a subject."},
}

// Grouped draws a bar per category and subject on a fixed 0 to 100 axis.
// Categories can be sorted by any subject; subjects can be hidden.
type Grouped struct {
	base
	cfg    GroupedConfig
	store  *dataset.Store
	by     func(dataset.Record) string
	colors scale.Ordinal
	result *aggregate.Result
}

// NewGrouped creates a grouped bar chart over store.
func NewGrouped(store *dataset.Store, cfg GroupedConfig, opts ...Option) (*Grouped, error) {
	by, err := dataset.Dimension(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	series := aggregate.Names(aggregate.Scores)
	spec := view.Spec{SortKeys: series, Series: series}
	c := &Grouped{
		base: newBase(cfg.Name, cfg.Title, spec, Margin{Top: 60, Right: 150, Bottom: 140, Left: 60}, 750*time.Millisecond,
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

func (c *Grouped) load() error {
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

func (c *Grouped) value(group, series string) float64 {
	v, _ := c.result.Value(group, series)
	return v
}

func (c *Grouped) render() error {
	st := c.state
	groups := scale.Order(c.result.Groups(), st.Sort, func(g string) float64 { return c.value(g, st.Sort) })
	visible := st.VisibleSeries(c.spec)

	f := c.frame()
	x0 := scale.NewBand(groups, f.left, f.right, 0.1, 0)
	y := scale.NewLinear(scale.Fixed(0, 100), f.bottom, f.top)

	var bars, labels []reconcile.Item
	for _, g := range groups {
		x1 := x0.Sub(g, visible, 0.05)
		for _, s := range visible {
			lo, _, _ := x1.Range(s)
			v := c.value(g, s)
			top := y.Map(v)
			key := reconcile.Key{Group: g, Series: s}
			bar := rect(key, lo, top, x1.Bandwidth(), f.bottom-top, c.colors.Color(s))
			bar.Datum = v
			if st.Hovered == key.String() {
				bar.Attrs.Stroke = inkColor
			}
			bars = append(bars, bar)
			labels = append(labels, text(key, lo+x1.Bandwidth()/2, top-4, fixed1(v), 10, "middle"))
		}
	}

	subtitle := "Unsorted"
	if st.Sort != "" {
		subtitle = "Sorted by " + st.Sort
	}
	items := map[string][]reconcile.Item{
		LayerAxis:   append(yAxis(y, f, "Score"), xBandAxis(x0, f, c.cfg.Axis)...),
		LayerBars:   bars,
		LayerLabels: labels,
		LayerLegend: legend(c.spec.Series, c.colors, st, true, f.right+20, f.top),
		LayerTitle:  heading(c.title, subtitle, c.opts.width, c.margin.Top, c.opts.height-40, c.cfg.Hints),
	}
	if d, ok := c.Hover(st.Hovered); ok {
		k := reconcile.ParseKey(st.Hovered)
		lo, _, _ := x0.Sub(k.Group, visible, 0.05).Range(k.Series)
		items[LayerTooltip] = tooltip(d, lo, y.Map(c.value(k.Group, k.Series)), c.opts.width)
	}
	return c.commit(items)
}

// Hover describes the bar with key "group/series". Hidden series have no
// detail.
func (c *Grouped) Hover(key string) (Detail, bool) {
	return seriesDetail(c.result, c.state, key)
}

// Controls returns the sort buttons followed by the series toggles.
func (c *Grouped) Controls() []Control { return c.specControls() }

// seriesDetail describes one visible (group, series) cell of result.
func seriesDetail(result *aggregate.Result, st view.State, key string) (Detail, bool) {
	if result == nil || key == "" {
		return Detail{}, false
	}
	k := reconcile.ParseKey(key)
	if !st.Visible(k.Series) {
		return Detail{}, false
	}
	v, err := result.Value(k.Group, k.Series)
	if err != nil {
		return Detail{}, false
	}
	return Detail{Title: k.Group, Lines: []string{valueLine(k.Series, v)}}, true
}

var _ Chart = (*Grouped)(nil)
