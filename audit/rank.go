package audit

import "sort"

// Rank returns a new slice ordered by messiness descending, ties broken by
// incident count descending so regions with more corroborating incidents
// rank first. The engine itself never sorts; this is presentation ordering.
func Rank(rows []RegionMetrics) []RegionMetrics {
	out := append([]RegionMetrics(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Messiness != out[j].Messiness {
			return out[i].Messiness > out[j].Messiness
		}
		return out[i].NIncidents > out[j].NIncidents
	})
	return out
}

// GroupByState buckets rows under their state name, preserving row order.
// Rows without a state are excluded from per-state views but remain in the
// raw result set.
func GroupByState(rows []RegionMetrics) map[string][]RegionMetrics {
	grouped := make(map[string][]RegionMetrics)
	for _, row := range rows {
		if row.State == nil || *row.State == "" {
			continue
		}
		grouped[*row.State] = append(grouped[*row.State], row)
	}
	return grouped
}

// States lists the state names present in rows, sorted, nulls excluded.
func States(rows []RegionMetrics) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range rows {
		if row.State == nil || *row.State == "" {
			continue
		}
		if _, ok := seen[*row.State]; ok {
			continue
		}
		seen[*row.State] = struct{}{}
		names = append(names, *row.State)
	}
	sort.Strings(names)
	return names
}
