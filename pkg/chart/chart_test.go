package chart

import (
	"context"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/surface"
	"github.com/matzehuels/scoreslides/pkg/view"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func genderStore() *dataset.Store {
	return dataset.NewStore([]dataset.Record{
		{Gender: "male", RaceEthnicity: "group A", Lunch: "standard", Math: 60, Reading: 60, Writing: 60},
		{Gender: "female", RaceEthnicity: "group B", Lunch: "free/reduced", Math: 90, Reading: 90, Writing: 90},
	})
}

func fixtureStore(t *testing.T) *dataset.Store {
	t.Helper()
	store, err := dataset.Load(context.Background(), dataset.CSVSource{Path: "../dataset/testdata/scores.csv"})
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return store
}

func newScene() *surface.Scene {
	return surface.NewScene(surface.DefaultWidth, surface.DefaultHeight, surface.WithLayerOrder(LayerOrder...))
}

func layerKeys(c Chart, name string) []string {
	for _, l := range c.Layers() {
		if l.Name == name {
			var out []string
			for _, k := range l.Keys {
				out = append(out, k.String())
			}
			return out
		}
	}
	return nil
}

func liveText(scene *surface.Scene, layer string) map[string]string {
	out := make(map[string]string)
	for _, m := range scene.Live(layer) {
		out[m.Key.String()] = m.Target().Text
	}
	return out
}

func TestBarGenderScenario(t *testing.T) {
	scene := newScene()
	c, err := NewBar(genderStore(), GenderBar, WithDuration(0))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Activate(scene); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if got := layerKeys(c, LayerBars); !slices.Equal(got, []string{"male", "female"}) {
		t.Errorf("bars = %v, want [male female]", got)
	}
	labels := liveText(scene, LayerLabels)
	if labels["male"] != "60.0" || labels["female"] != "90.0" {
		t.Errorf("labels = %v", labels)
	}

	// The y domain is max × 1.1, so the female bar fills 90/99 of the plot.
	plot := surface.DefaultHeight - 80.0 - 60.0
	for _, m := range scene.Live(LayerBars) {
		if m.Key.Group != "female" {
			continue
		}
		want := plot * 90 / 99
		if h := m.Target().H; h < want-1e-6 || h > want+1e-6 {
			t.Errorf("female height = %v, want %v", h, want)
		}
		if m.Target().Fill != "#f28e2c" {
			t.Errorf("female fill = %s", m.Target().Fill)
		}
	}

	notes := liveText(scene, LayerAnnotations)
	if notes["highest/value"] != "Female: 90.0" {
		t.Errorf("highest annotation = %q", notes["highest/value"])
	}
	if notes["difference/value"] != "30.0 points" {
		t.Errorf("difference annotation = %q", notes["difference/value"])
	}

	before := c.State()
	err = c.Handle(view.MetricSelected{Name: "science"})
	if !errors.Is(err, errors.ErrCodeUnknownMetric) {
		t.Fatalf("Handle(science) error = %v, want UNKNOWN_METRIC", err)
	}
	if !c.State().Equal(before) {
		t.Error("rejected event changed the state")
	}
	if got := layerKeys(c, LayerBars); len(got) != 2 {
		t.Errorf("rejected event changed the bars: %v", got)
	}
}

func TestBarMetricSwitch(t *testing.T) {
	scene := newScene()
	c, _ := NewBar(fixtureStore(t), GenderBar, WithDuration(0))
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}
	avg := liveText(scene, LayerLabels)

	if err := c.Handle(view.MetricSelected{Name: "math"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if c.State().Metric != "math" {
		t.Errorf("metric = %q", c.State().Metric)
	}
	math := liveText(scene, LayerLabels)
	if len(math) != 2 || math["female"] == avg["female"] && math["male"] == avg["male"] {
		t.Errorf("labels did not change: %v -> %v", avg, math)
	}

	var active []string
	for _, ctl := range c.Controls() {
		if ctl.Active {
			active = append(active, ctl.Value)
		}
	}
	if !slices.Equal(active, []string{"math"}) {
		t.Errorf("active controls = %v, want [math]", active)
	}
}

func TestStackedToggleExitsOnlyThatSeries(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	scene := newScene()
	c, err := NewStacked(fixtureStore(t), RaceStacked, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	before := layerKeys(c, LayerBars)
	if err := c.Handle(view.SeriesToggled{Key: "reading"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	after := layerKeys(c, LayerBars)

	var exited []string
	for _, k := range before {
		if !slices.Contains(after, k) {
			exited = append(exited, k)
		}
	}
	if len(exited) == 0 {
		t.Fatal("no bars exited")
	}
	for _, k := range exited {
		if !strings.HasSuffix(k, "/reading") {
			t.Errorf("unexpected exit %q", k)
		}
	}
	for _, k := range after {
		if strings.HasSuffix(k, "/reading") {
			t.Errorf("reading bar %q still live", k)
		}
	}
	if len(after)+len(exited) != len(before) {
		t.Errorf("before %d, after %d, exited %d", len(before), len(after), len(exited))
	}

	// Exiting bars stay on the scene until their transition ends.
	exiting := 0
	for _, sh := range scene.Frame(clock.Now()) {
		if sh.Exiting && sh.Layer == LayerBars {
			exiting++
		}
	}
	if exiting != len(exited) {
		t.Errorf("exiting shapes = %d, want %d", exiting, len(exited))
	}
	clock.Advance(c.Duration())
	for _, sh := range scene.Frame(clock.Now()) {
		if sh.Exiting {
			t.Errorf("shape %s still exiting after the transition", sh.Key)
		}
	}

	// Legend entries stay but are dimmed.
	for _, m := range scene.Live(LayerLegend) {
		if m.Key.Series == "reading" && m.Target().Opacity != hiddenOpacity {
			t.Errorf("legend %s opacity = %v", m.Key, m.Target().Opacity)
		}
	}

	// Toggling back restores the identities.
	if err := c.Handle(view.SeriesToggled{Key: "reading"}); err != nil {
		t.Fatal(err)
	}
	restored := layerKeys(c, LayerBars)
	sort.Strings(restored)
	sort.Strings(before)
	if !slices.Equal(restored, before) {
		t.Errorf("restored = %v, want %v", restored, before)
	}
}

func TestStackedTotalsAndEmpty(t *testing.T) {
	scene := newScene()
	c, _ := NewStacked(genderStore(), GroupedConfig{Name: "race", Dimension: "race"}, WithDuration(0))
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}
	if got := liveText(scene, LayerLabels)["group B"]; got != "270.0" {
		t.Errorf("group B total = %q, want 270.0", got)
	}

	for _, s := range []string{"math", "reading", "writing"} {
		if err := c.Handle(view.SeriesToggled{Key: s}); err != nil {
			t.Fatal(err)
		}
	}
	if got := layerKeys(c, LayerBars); len(got) != 0 {
		t.Errorf("bars with every series hidden = %v", got)
	}
	if got := liveText(scene, LayerLabels)["group B"]; got != "0.0" {
		t.Errorf("empty total = %q, want 0.0", got)
	}
	if err := c.Handle(view.SeriesToggled{Key: "science"}); !errors.Is(err, errors.ErrCodeUnknownSeries) {
		t.Errorf("unknown series error = %v", err)
	}
}

func TestGroupedSort(t *testing.T) {
	scene := newScene()
	c, err := NewGrouped(fixtureStore(t), EducationGrouped, WithDuration(0))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}

	leftmost := func() string {
		best, bestX := "", 0.0
		for _, m := range scene.Live(LayerBars) {
			if m.Key.Series != "math" {
				continue
			}
			if best == "" || m.Target().X < bestX {
				best, bestX = m.Key.Group, m.Target().X
			}
		}
		return best
	}

	if err := c.Handle(view.SortRequested{Key: "math"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	top, topValue := "", -1.0
	for _, g := range c.result.Groups() {
		if v, _ := c.result.Value(g, "math"); v > topValue {
			top, topValue = g, v
		}
	}
	if got := leftmost(); got != top {
		t.Errorf("leftmost after sort = %q, want %q", got, top)
	}

	// Sorting is idempotent: asking again moves nothing.
	sorted := scene.Live(LayerBars)
	if err := c.Handle(view.SortRequested{Key: "math"}); err != nil {
		t.Fatal(err)
	}
	again := scene.Live(LayerBars)
	for i := range sorted {
		if sorted[i].Target() != again[i].Target() {
			t.Errorf("bar %s moved on repeated sort", sorted[i].Key)
		}
	}

	if err := c.Handle(view.SortRequested{Key: ""}); err != nil {
		t.Fatal(err)
	}
	if got := leftmost(); got != c.result.Groups()[0] {
		t.Errorf("leftmost unsorted = %q, want %q", got, c.result.Groups()[0])
	}
	if err := c.Handle(view.SortRequested{Key: "science"}); !errors.Is(err, errors.ErrCodeUnknownMetric) {
		t.Errorf("unknown sort key error = %v", err)
	}
}

func TestScatter(t *testing.T) {
	store := fixtureStore(t)
	scene := newScene()
	c, err := NewScatter(store, LunchScatter, WithDuration(0))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}

	standard := 0
	for _, r := range store.Records() {
		if r.Lunch == "standard" {
			standard++
		}
	}
	if got := len(layerKeys(c, LayerPoints)); got != store.Len() {
		t.Errorf("points = %d, want %d", got, store.Len())
	}
	if got := layerKeys(c, LayerAverages); !slices.Equal(got, []string{"standard/average", "free%2Freduced/average"}) {
		t.Errorf("averages = %v", got)
	}

	if err := c.Handle(view.SeriesToggled{Key: "standard"}); err != nil {
		t.Fatal(err)
	}
	if got := len(layerKeys(c, LayerPoints)); got != store.Len()-standard {
		t.Errorf("points after toggle = %d, want %d", got, store.Len()-standard)
	}
	if got := layerKeys(c, LayerAverages); !slices.Equal(got, []string{"free%2Freduced/average"}) {
		t.Errorf("averages after toggle = %v", got)
	}

	// Switching the x metric keeps every identity and moves points.
	keys := layerKeys(c, LayerPoints)
	if err := c.Handle(view.MetricSelected{Name: "writing"}); err != nil {
		t.Fatal(err)
	}
	if got := layerKeys(c, LayerPoints); !slices.Equal(got, keys) {
		t.Error("metric switch changed point identities")
	}
	if err := c.Handle(view.MetricSelected{Name: "reading"}); !errors.Is(err, errors.ErrCodeUnknownMetric) {
		t.Errorf("reading as x metric error = %v", err)
	}
}

func TestScatterHover(t *testing.T) {
	store := fixtureStore(t)
	scene := newScene()
	c, _ := NewScatter(store, LunchScatter, WithDuration(0))
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}

	r := store.At(0)
	key := reconcile.Key{Group: "0", Series: r.Lunch}.String()
	d, ok := c.Hover(key)
	if !ok {
		t.Fatalf("Hover(%q) found nothing", key)
	}
	if d.Title != "Student 0" || d.Lines[0] != "Math: 72" || d.Lines[3] != "Lunch: "+r.Lunch {
		t.Errorf("Hover() = %+v", d)
	}
	if _, ok := c.Hover("0/nonsense"); ok {
		t.Error("Hover with the wrong series should fail")
	}
	if _, ok := c.Hover("9999/standard"); ok {
		t.Error("Hover out of range should fail")
	}

	if err := c.Handle(view.HoverChanged{Key: key, Active: true}); err != nil {
		t.Fatal(err)
	}
	if len(layerKeys(c, LayerTooltip)) == 0 {
		t.Error("hover should show a tooltip")
	}
	if err := c.Handle(view.HoverChanged{Key: key}); err != nil {
		t.Fatal(err)
	}
	if got := layerKeys(c, LayerTooltip); len(got) != 0 {
		t.Errorf("tooltip after leave = %v", got)
	}

	// Series names containing a slash still resolve their average.
	for _, series := range []string{"standard", "free/reduced"} {
		avg := reconcile.Key{Group: series, Series: "average"}.String()
		d, ok := c.Hover(avg)
		if !ok || d.Title != capitalize(series)+" average" {
			t.Errorf("Hover(%q) = %+v, %v", avg, d, ok)
		}
		if err := c.Handle(view.HoverChanged{Key: avg, Active: true}); err != nil {
			t.Fatal(err)
		}
		if len(layerKeys(c, LayerTooltip)) == 0 {
			t.Errorf("hovering %q should show a tooltip", avg)
		}
		if err := c.Handle(view.HoverChanged{Key: avg}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStackedHoverDetail(t *testing.T) {
	c, _ := NewStacked(genderStore(), RaceStacked, WithDuration(0))
	if err := c.Activate(newScene()); err != nil {
		t.Fatal(err)
	}
	d, ok := c.Hover("group A/reading")
	if !ok || d.Title != "group A" || !slices.Equal(d.Lines, []string{"reading: 60.0"}) {
		t.Errorf("Hover() = %+v, %v", d, ok)
	}
	c.Handle(view.SeriesToggled{Key: "reading"})
	if _, ok := c.Hover("group A/reading"); ok {
		t.Error("hidden series should have no detail")
	}
}

func TestLifecycle(t *testing.T) {
	scene := newScene()
	c, _ := NewBar(genderStore(), GenderBar)

	if err := c.Handle(view.MetricSelected{Name: "math"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Handle before Activate error = %v", err)
	}
	if err := c.Activate(scene); err != nil {
		t.Fatal(err)
	}
	if err := c.Activate(scene); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("second Activate error = %v", err)
	}
	if scene.Len() == 0 {
		t.Fatal("activation drew nothing")
	}

	if n := c.Dispose(); n == 0 {
		t.Error("Dispose removed nothing")
	}
	if scene.Len() != 0 {
		t.Errorf("scene holds %d marks after Dispose", scene.Len())
	}
	if n := c.Dispose(); n != 0 {
		t.Errorf("second Dispose = %d, want 0", n)
	}
	if err := c.Handle(view.MetricSelected{Name: "math"}); !errors.Is(err, errors.ErrCodeDisposed) {
		t.Errorf("Handle after Dispose error = %v", err)
	}
	if err := c.Activate(scene); !errors.Is(err, errors.ErrCodeDisposed) {
		t.Errorf("Activate after Dispose error = %v", err)
	}
}

func TestEmptyDataset(t *testing.T) {
	c, _ := NewBar(dataset.NewStore(nil), GenderBar)
	if err := c.Activate(newScene()); !errors.Is(err, errors.ErrCodeEmptyDataset) {
		t.Errorf("Activate on empty store error = %v", err)
	}
}

func TestUnknownDimension(t *testing.T) {
	if _, err := NewBar(genderStore(), BarConfig{Dimension: "shoe size"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("NewBar error = %v", err)
	}
}

func TestText(t *testing.T) {
	scene := newScene()
	intro := NewText(genderStore(), Intro)
	if err := intro.Activate(scene); err != nil {
		t.Fatal(err)
	}
	texts := liveText(scene, LayerText)
	if !strings.HasPrefix(texts["paragraph/0"], "Test scores of 2 students") {
		t.Errorf("paragraph = %q", texts["paragraph/0"])
	}
	if len(intro.Controls()) != 0 {
		t.Error("intro should have no controls")
	}
	intro.Dispose()

	outro := NewText(nil, Conclusion)
	if err := outro.Activate(scene); err != nil {
		t.Fatal(err)
	}
	ctls := outro.Controls()
	if len(ctls) != 3 || ctls[0].Kind != KindGoto || ctls[0].Value != "4" {
		t.Errorf("Controls() = %+v", ctls)
	}
	if ctls[0].Event() != nil {
		t.Error("goto controls raise no chart event")
	}
	if got := len(layerKeys(outro, LayerText)); got != 1+1+5+6 {
		t.Errorf("conclusion marks = %d", got)
	}
}

func TestControlEvent(t *testing.T) {
	tests := []struct {
		ctl  Control
		want view.Event
	}{
		{Control{Kind: view.KindMetric, Value: "math"}, view.MetricSelected{Name: "math"}},
		{Control{Kind: view.KindSort, Value: ""}, view.SortRequested{}},
		{Control{Kind: view.KindToggle, Value: "reading"}, view.SeriesToggled{Key: "reading"}},
	}
	for _, tt := range tests {
		if got := tt.ctl.Event(); got != tt.want {
			t.Errorf("%+v.Event() = %v, want %v", tt.ctl, got, tt.want)
		}
	}
}

func TestChartIDsAreUnique(t *testing.T) {
	a := NewText(nil, Intro)
	b := NewText(nil, Intro)
	if a.ID() == b.ID() || len(a.ID()) != 36 {
		t.Errorf("IDs %q and %q", a.ID(), b.ID())
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	b := newBase("test", "", view.Spec{}, Margin{}, 0, []string{LayerBars, LayerLabels}, nil)
	b.draw = func() error { return nil }
	if err := b.Activate(newScene()); err != nil {
		t.Fatal(err)
	}
	item := func(group string) reconcile.Item {
		return reconcile.Item{Key: reconcile.Key{Group: group}, Kind: reconcile.Rect, Attrs: reconcile.Attrs{W: 10, H: 10, Opacity: 1}}
	}
	if err := b.commit(map[string][]reconcile.Item{
		LayerBars:   {item("a")},
		LayerLabels: {item("a")},
	}); err != nil {
		t.Fatal(err)
	}

	err := b.commit(map[string][]reconcile.Item{
		LayerBars:   {item("a"), item("b")},
		LayerLabels: {item("x"), item("x")},
	})
	if !errors.Is(err, errors.ErrCodeDuplicateIdentity) {
		t.Fatalf("commit error = %v, want DUPLICATE_IDENTITY", err)
	}
	for _, l := range b.Layers() {
		if len(l.Keys) != 1 || l.Keys[0].Group != "a" {
			t.Errorf("layer %s = %v after a rejected commit, want [a]", l.Name, l.Keys)
		}
	}
}
