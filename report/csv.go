// Package report renders aggregated region metrics into the artifacts
// operators consume: CSV tables, per-state summaries, map PNGs, and a
// bundled per-state ZIP.
package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"incident_audit/audit"
)

var csvHeader = []string{
	"state",
	"district",
	"n_incidents",
	"mean_completeness",
	"messiness",
	"stations_inside",
	"nearest_station_distance_m",
	"approx_distance",
}

// CSVBytes renders rows as CSV. A nil nearest-station distance is rendered
// as 0 here, at presentation time only; the engine output keeps the null.
func CSVBytes(rows []audit.RegionMetrics) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		dist := 0.0
		if row.NearestStationM != nil {
			dist = *row.NearestStationM
		}
		record := []string{
			derefOrEmpty(row.State),
			derefOrEmpty(row.District),
			strconv.Itoa(row.NIncidents),
			formatFloat(row.MeanCompleteness),
			formatFloat(row.Messiness),
			strings.Join(row.StationsInside, ";"),
			formatFloat(dist),
			strconv.FormatBool(row.ApproxDistance),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
