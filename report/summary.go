package report

import "incident_audit/audit"

// StateSummary aggregates a state's districts. Means are weighted by
// incident count so empty districts do not dilute the signal.
type StateSummary struct {
	State                    string  `json:"state"`
	TotalDistricts           int     `json:"total_districts"`
	TotalIncidents           int     `json:"total_incidents"`
	WeightedMeanCompleteness float64 `json:"weighted_mean_completeness"`
	WeightedMeanMessiness    float64 `json:"weighted_mean_messiness"`
}

// Summarize computes the weighted summary for one state's rows.
func Summarize(state string, rows []audit.RegionMetrics) StateSummary {
	s := StateSummary{State: state, TotalDistricts: len(rows)}
	var completenessSum, messinessSum float64
	for _, row := range rows {
		s.TotalIncidents += row.NIncidents
		completenessSum += row.MeanCompleteness * float64(row.NIncidents)
		messinessSum += row.Messiness * float64(row.NIncidents)
	}
	den := float64(s.TotalIncidents)
	if den == 0 {
		s.WeightedMeanCompleteness = 1.0
		s.WeightedMeanMessiness = 0.0
		return s
	}
	s.WeightedMeanCompleteness = completenessSum / den
	s.WeightedMeanMessiness = messinessSum / den
	return s
}
