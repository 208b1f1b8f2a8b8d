package report

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"incident_audit/audit"
	"incident_audit/incident"
)

func strptr(s string) *string { return &s }

func sampleRows() []audit.RegionMetrics {
	dist := 1234.5
	return []audit.RegionMetrics{
		{
			State: strptr("DC"), District: strptr("d1"),
			NIncidents: 3, MeanCompleteness: 0.75, Messiness: 0.25,
			StationsInside: []string{"u1", "u2"},
		},
		{
			State: strptr("DC"), District: strptr("d2"),
			NIncidents: 0, MeanCompleteness: 1.0, Messiness: 0.0,
			StationsInside: []string{}, NearestStationM: &dist,
		},
	}
}

func TestCSVBytes(t *testing.T) {
	data, err := CSVBytes(sampleRows())
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "state" || records[0][6] != "nearest_station_distance_m" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	// Covered region: nil distance renders as 0.
	if records[1][6] != "0" {
		t.Fatalf("nil distance must render as 0, got %q", records[1][6])
	}
	if records[1][5] != "u1;u2" {
		t.Fatalf("stations must be semicolon-joined, got %q", records[1][5])
	}
	if records[2][6] != "1234.5" {
		t.Fatalf("distance rendering wrong: %q", records[2][6])
	}
}

func TestSummarizeWeightsByIncidentCount(t *testing.T) {
	rows := []audit.RegionMetrics{
		{NIncidents: 3, MeanCompleteness: 0.5, Messiness: 0.5},
		{NIncidents: 1, MeanCompleteness: 0.9, Messiness: 0.1},
		{NIncidents: 0, MeanCompleteness: 1.0, Messiness: 0.0}, // must not dilute
	}
	s := Summarize("DC", rows)
	if s.TotalDistricts != 3 || s.TotalIncidents != 4 {
		t.Fatalf("totals wrong: %+v", s)
	}
	want := (0.5*3 + 0.9*1) / 4
	if math.Abs(s.WeightedMeanCompleteness-want) > 1e-9 {
		t.Fatalf("weighted completeness = %v, want %v", s.WeightedMeanCompleteness, want)
	}
}

func TestSummarizeNoIncidents(t *testing.T) {
	s := Summarize("DC", []audit.RegionMetrics{{NIncidents: 0, MeanCompleteness: 1.0}})
	if s.WeightedMeanCompleteness != 1.0 || s.WeightedMeanMessiness != 0.0 {
		t.Fatalf("zero-incident state must be clean: %+v", s)
	}
}

func statePolygon(state string) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	f.Properties["state"] = state
	f.Properties["district"] = "d1"
	return f
}

func TestRenderStateMap(t *testing.T) {
	polys := []*geojson.Feature{statePolygon("DC")}
	stations := []incident.StationPoint{{ID: "u1", Point: orb.Point{0.5, 0.5}}}
	pt := orb.Point{0.25, 0.25}
	incidents := []incident.Record{{Point: &pt}}

	data, err := RenderStateMap("DC", polys, stations, incidents)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != mapWidth || img.Bounds().Dy() != mapHeight {
		t.Fatalf("unexpected dimensions: %v", img.Bounds())
	}
}

func TestRenderStateMapUnknownState(t *testing.T) {
	if _, err := RenderStateMap("ZZ", []*geojson.Feature{statePolygon("DC")}, nil, nil); err == nil {
		t.Fatal("expected error for state with no polygons")
	}
}

func TestBuildStateReports(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "reports")
	polys := []*geojson.Feature{statePolygon("DC")}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	bundles, err := BuildStateReports(outDir, sampleRows(), polys, nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles))
	}
	b := bundles[0]
	if b.State != "DC" || b.Rows != 2 {
		t.Fatalf("unexpected bundle: %+v", b)
	}
	if !strings.Contains(filepath.Base(b.Path), "20260830T120000Z") {
		t.Fatalf("bundle name not timestamped: %s", b.Path)
	}

	zr, err := zip.OpenReader(b.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"districts.csv", "summary.json", "map.png"} {
		if !names[want] {
			t.Fatalf("zip missing %s (has %v)", want, names)
		}
	}
}

func TestBuildStateReportsEmpty(t *testing.T) {
	outDir := t.TempDir()
	bundles, err := BuildStateReports(outDir, nil, nil, nil, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 0 {
		t.Fatalf("expected no bundles, got %d", len(bundles))
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("no files expected, found %d", len(entries))
	}
}
