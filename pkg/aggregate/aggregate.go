// Package aggregate reduces records to per-category mean summaries.
//
// [Aggregate] partitions records by a categorical selector and computes the
// arithmetic mean of every metric within each group:
//
//	res, err := aggregate.Aggregate(records, dataset.Gender, aggregate.AllScores)
//	if err != nil {
//	    return err // EMPTY_DATASET for zero records
//	}
//	for _, g := range res.Groups() {
//	    s, _ := res.Summary(g)
//	    fmt.Println(g, s.Values["math"])
//	}
//
// Aggregation is pure: the same records, in any order, give an equal result.
package aggregate

import (
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
)

// Tolerance is the absolute difference under which two means are equal.
const Tolerance = 1e-9

// Metric names one numeric reducer input.
type Metric struct {
	Name  string
	Value func(dataset.Record) float64
}

// Predefined metrics.
var (
	Average = Metric{Name: "average", Value: dataset.Record.Average}
	Math    = Metric{Name: "math", Value: func(r dataset.Record) float64 { return r.Math }}
	Reading = Metric{Name: "reading", Value: func(r dataset.Record) float64 { return r.Reading }}
	Writing = Metric{Name: "writing", Value: func(r dataset.Record) float64 { return r.Writing }}

	// Scores holds the three subject metrics.
	Scores = []Metric{Math, Reading, Writing}
	// AllScores holds the average followed by the three subjects.
	AllScores = []Metric{Average, Math, Reading, Writing}
)

// Names returns the metric names in order.
func Names(metrics []Metric) []string {
	out := make([]string, len(metrics))
	for i, m := range metrics {
		out[i] = m.Name
	}
	return out
}

// Summary is the reduced statistics of one group.
type Summary struct {
	Group  string             `json:"group"`
	Count  int                `json:"count"`
	Values map[string]float64 `json:"values"`
}

// Value returns the mean of metric, failing with UNKNOWN_METRIC if the
// summary was not computed with it.
func (s Summary) Value(metric string) (float64, error) {
	v, ok := s.Values[metric]
	if !ok {
		return 0, errors.New(errors.ErrCodeUnknownMetric, "unknown metric %q", metric)
	}
	return v, nil
}

// Result maps each group to its summary and remembers the order in which
// groups were first encountered.
type Result struct {
	groups    []string
	summaries map[string]Summary
	metrics   []string
}

// Aggregate groups records by groupBy and averages every metric per group.
func Aggregate(records []dataset.Record, groupBy func(dataset.Record) string, metrics []Metric) (*Result, error) {
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyDataset, "cannot aggregate zero records")
	}
	if groupBy == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil group selector")
	}
	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if m.Name == "" || m.Value == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "metric %q has no name or value function", m.Name)
		}
		if seen[m.Name] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate metric %q", m.Name)
		}
		seen[m.Name] = true
	}

	var order []string
	members := make(map[string][]dataset.Record)
	for _, r := range records {
		k := groupBy(r)
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], r)
	}

	res := &Result{
		groups:    order,
		summaries: make(map[string]Summary, len(order)),
		metrics:   Names(metrics),
	}
	xs := make([]float64, 0, len(records))
	for _, k := range order {
		group := members[k]
		s := Summary{Group: k, Count: len(group), Values: make(map[string]float64, len(metrics))}
		for _, m := range metrics {
			xs = xs[:0]
			for _, r := range group {
				xs = append(xs, m.Value(r))
			}
			s.Values[m.Name] = stats.Mean(xs)
		}
		res.summaries[k] = s
	}
	return res, nil
}

// Groups returns the group keys in first-encountered order.
func (r *Result) Groups() []string {
	out := make([]string, len(r.groups))
	copy(out, r.groups)
	return out
}

// Metrics returns the metric names the result was computed with.
func (r *Result) Metrics() []string {
	out := make([]string, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Summary returns the summary for group.
func (r *Result) Summary(group string) (Summary, bool) {
	s, ok := r.summaries[group]
	return s, ok
}

// Value returns the mean of metric for group.
func (r *Result) Value(group, metric string) (float64, error) {
	s, ok := r.summaries[group]
	if !ok {
		return 0, errors.New(errors.ErrCodeNotFound, "unknown group %q", group)
	}
	return s.Value(metric)
}

// Map returns a copy of the group → summary mapping.
func (r *Result) Map() map[string]Summary {
	out := make(map[string]Summary, len(r.summaries))
	for k, s := range r.summaries {
		vals := make(map[string]float64, len(s.Values))
		for m, v := range s.Values {
			vals[m] = v
		}
		out[k] = Summary{Group: s.Group, Count: s.Count, Values: vals}
	}
	return out
}

// Max returns the largest mean of metric over all groups.
func (r *Result) Max(metric string) (float64, error) {
	best := math.Inf(-1)
	for _, g := range r.groups {
		v, err := r.summaries[g].Value(metric)
		if err != nil {
			return 0, err
		}
		best = math.Max(best, v)
	}
	return best, nil
}

// Equal reports whether two results hold the same groups and counts and the
// same means within Tolerance. Group order is ignored.
func (r *Result) Equal(o *Result) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.summaries) != len(o.summaries) {
		return false
	}
	for k, a := range r.summaries {
		b, ok := o.summaries[k]
		if !ok || a.Count != b.Count || len(a.Values) != len(b.Values) {
			return false
		}
		for m, av := range a.Values {
			bv, ok := b.Values[m]
			if !ok || math.Abs(av-bv) > Tolerance {
				return false
			}
		}
	}
	return true
}
