package report

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"incident_audit/audit"
	"incident_audit/incident"
)

// StateBundle is the result of writing one state's report ZIP.
type StateBundle struct {
	State string
	Path  string
	Rows  int
}

// BuildStateReports writes one ZIP per state into outDir. Each ZIP holds the
// ranked district CSV, a JSON summary, and a map PNG when rendering succeeds.
// Map failures are logged and skipped; a report without a map is still useful.
func BuildStateReports(outDir string, rows []audit.RegionMetrics, polygons []*geojson.Feature, stations []incident.StationPoint, incidents []incident.Record, now time.Time) ([]StateBundle, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	grouped := audit.GroupByState(rows)
	stamp := now.UTC().Format("20060102T150405Z")

	var bundles []StateBundle
	for _, state := range audit.States(rows) {
		ranked := audit.Rank(grouped[state])
		path := filepath.Join(outDir, fmt.Sprintf("audit_%s_%s.zip", sanitizeName(state), stamp))
		if err := writeStateZip(path, state, ranked, polygons, stations, incidents); err != nil {
			return bundles, fmt.Errorf("state %s: %w", state, err)
		}
		bundles = append(bundles, StateBundle{State: state, Path: path, Rows: len(ranked)})
	}
	return bundles, nil
}

func writeStateZip(path, state string, ranked []audit.RegionMetrics, polygons []*geojson.Feature, stations []incident.StationPoint, incidents []incident.Record) error {
	csvData, err := CSVBytes(ranked)
	if err != nil {
		return err
	}
	summary, err := json.MarshalIndent(Summarize(state, ranked), "", "  ")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := addZipFile(zw, "districts.csv", csvData); err != nil {
		return err
	}
	if err := addZipFile(zw, "summary.json", summary); err != nil {
		return err
	}
	if pngData, mapErr := RenderStateMap(state, polygons, stations, incidents); mapErr != nil {
		log.Printf("report: map render failed for %s: %v", state, mapErr)
	} else if err := addZipFile(zw, "map.png", pngData); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

func sanitizeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return string(out)
}
