package scale

import "sort"

// Order returns groups in display order. With an empty sortKey the insertion
// order is kept; otherwise groups are sorted by value(group) descending and
// tied groups keep their insertion order. The input slice is never modified,
// so sorting is idempotent rather than cumulative.
func Order(groups []string, sortKey string, value func(group string) float64) []string {
	out := make([]string, len(groups))
	copy(out, groups)
	if sortKey == "" || value == nil {
		return out
	}
	vals := make(map[string]float64, len(out))
	for _, g := range out {
		vals[g] = value(g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return vals[out[i]] > vals[out[j]]
	})
	return out
}
