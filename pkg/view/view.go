// Package view holds the per-chart interaction state and its transitions.
//
// A [State] is created fresh when a chart activates and thrown away when the
// slide is left. User input arrives as typed [Event] values and is applied by
// the pure function [Apply]:
//
//	spec := view.Spec{Metrics: []string{"average", "math"}, DefaultMetric: "average"}
//	st := view.New(spec)
//	st, err := view.Apply(spec, st, view.MetricSelected{Name: "math"})
//
// Apply never mutates its input state, so a caller can keep the previous state
// and fall back to it when an event is rejected.
package view

import (
	"sort"

	"github.com/matzehuels/scoreslides/pkg/errors"
)

// Spec describes the controls a chart accepts.
type Spec struct {
	// Metrics are the selectable measured quantities. Empty means the chart
	// has no metric selector.
	Metrics []string
	// SortKeys are the metrics categories may be sorted by.
	SortKeys []string
	// Series are the toggleable series keys.
	Series []string
	// DefaultMetric is selected when the state is created. If empty the first
	// metric is used.
	DefaultMetric string
}

func (s Spec) hasMetric(name string) bool  { return contains(s.Metrics, name) }
func (s Spec) hasSortKey(name string) bool { return contains(s.SortKeys, name) }
func (s Spec) hasSeries(name string) bool  { return contains(s.Series, name) }

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// State is the interaction state of one chart instance.
type State struct {
	Metric     string          `json:"metric,omitempty"`
	Sort       string          `json:"sort,omitempty"`
	Visibility map[string]bool `json:"visibility,omitempty"`
	Hovered    string          `json:"hovered,omitempty"`
}

// New returns the initial state for spec: default metric, no sort, every
// series visible.
func New(spec Spec) State {
	st := State{Metric: spec.DefaultMetric}
	if st.Metric == "" && len(spec.Metrics) > 0 {
		st.Metric = spec.Metrics[0]
	}
	if len(spec.Series) > 0 {
		st.Visibility = make(map[string]bool, len(spec.Series))
		for _, s := range spec.Series {
			st.Visibility[s] = true
		}
	}
	return st
}

// Visible reports whether series is shown. Unknown series are hidden.
func (s State) Visible(series string) bool {
	return s.Visibility[series]
}

// VisibleSeries returns the shown series in spec order.
func (s State) VisibleSeries(spec Spec) []string {
	var out []string
	for _, k := range spec.Series {
		if s.Visibility[k] {
			out = append(out, k)
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.Visibility != nil {
		out.Visibility = make(map[string]bool, len(s.Visibility))
		for k, v := range s.Visibility {
			out.Visibility[k] = v
		}
	}
	return out
}

// Equal reports whether two states are identical.
func (s State) Equal(o State) bool {
	if s.Metric != o.Metric || s.Sort != o.Sort || s.Hovered != o.Hovered {
		return false
	}
	if len(s.Visibility) != len(o.Visibility) {
		return false
	}
	for k, v := range s.Visibility {
		if ov, ok := o.Visibility[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Hidden returns the hidden series, sorted.
func (s State) Hidden() []string {
	var out []string
	for k, v := range s.Visibility {
		if !v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Apply returns the state that results from ev. It fails with UNKNOWN_METRIC
// for a metric or sort key the spec does not list and with UNKNOWN_SERIES for
// an unknown series. SlideAdvance is not a chart event and leaves the state
// unchanged.
func Apply(spec Spec, st State, ev Event) (State, error) {
	next := st.Clone()
	switch e := ev.(type) {
	case MetricSelected:
		if !spec.hasMetric(e.Name) {
			return st, errors.New(errors.ErrCodeUnknownMetric, "unknown metric %q", e.Name)
		}
		next.Metric = e.Name
	case SortRequested:
		if e.Key != "" && !spec.hasSortKey(e.Key) {
			return st, errors.New(errors.ErrCodeUnknownMetric, "unknown sort key %q", e.Key)
		}
		next.Sort = e.Key
	case SeriesToggled:
		if !spec.hasSeries(e.Key) {
			return st, errors.New(errors.ErrCodeUnknownSeries, "unknown series %q", e.Key)
		}
		if next.Visibility == nil {
			next.Visibility = make(map[string]bool)
		}
		next.Visibility[e.Key] = !next.Visibility[e.Key]
	case HoverChanged:
		switch {
		case e.Active:
			next.Hovered = e.Key
		case next.Hovered == e.Key:
			next.Hovered = ""
		}
	case SlideAdvance:
	case nil:
		return st, errors.New(errors.ErrCodeInvalidInput, "nil event")
	default:
		return st, errors.New(errors.ErrCodeInvalidInput, "unsupported event %T", ev)
	}
	return next, nil
}
