package incident

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	content := `{"a":1}

{"b":2}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	docs, err := LoadJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs (blank lines skipped), got %d", len(docs))
	}
}

func TestLoadJSONLBadLineFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"a\":1}\nnot json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJSONL(path); err == nil {
		t.Fatal("expected parse failure for malformed line")
	}
}

func TestMergeJoinsBySourceIndex(t *testing.T) {
	augmented := []map[string]interface{}{
		{"incident_id": "A", "point": map[string]interface{}{
			"geometry": map[string]interface{}{"type": "Point", "coordinates": []interface{}{-77.0, 38.9}},
		}},
		{"incident_number": "B"},
	}
	analysis := []map[string]interface{}{
		{"source_index": float64(1), "completeness_score": 0.4, "missing_fields": []interface{}{"title"}},
		{"source_index": float64(0), "completeness_score": 0.9},
	}

	records := Merge(analysis, augmented)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// First analysis row points at the second augmented doc.
	if records[0].IncidentID != "B" || records[0].CompletenessScore != 0.4 {
		t.Fatalf("join wrong: %+v", records[0])
	}
	if len(records[0].MissingFields) != 1 || records[0].MissingFields[0] != "title" {
		t.Fatalf("missing fields not carried: %+v", records[0].MissingFields)
	}
	if records[1].IncidentID != "A" || records[1].Point == nil {
		t.Fatalf("point not extracted: %+v", records[1])
	}
	if *records[1].Point != (orb.Point{-77.0, 38.9}) {
		t.Fatalf("wrong point: %v", *records[1].Point)
	}
}

func TestMergeIDPrefersAnalysisRecord(t *testing.T) {
	augmented := []map[string]interface{}{
		{"incident_id": "aug-id"},
	}
	analysis := []map[string]interface{}{
		{"source_index": float64(0), "incident_id": "analysis-id"},
		{"source_index": float64(0)}, // no id of its own
	}

	records := Merge(analysis, augmented)
	if records[0].IncidentID != "analysis-id" {
		t.Fatalf("analysis id must win, got %q", records[0].IncidentID)
	}
	if records[1].IncidentID != "aug-id" {
		t.Fatalf("augmented id must be the fallback, got %q", records[1].IncidentID)
	}
}

func TestMergeDefaults(t *testing.T) {
	analysis := []map[string]interface{}{
		{"source_index": float64(5)}, // out of range, no augmented doc
	}
	records := Merge(analysis, nil)
	if records[0].CompletenessScore != 1.0 {
		t.Fatalf("missing score must default to 1.0, got %v", records[0].CompletenessScore)
	}
	if records[0].IncidentID != "5" {
		t.Fatalf("id must fall back to index, got %q", records[0].IncidentID)
	}
	if records[0].Point != nil {
		t.Fatal("record without payload cannot have a point")
	}
}

func TestExtractPointPrecedence(t *testing.T) {
	point := func(lon, lat float64) map[string]interface{} {
		return map[string]interface{}{
			"geometry": map[string]interface{}{"type": "Point", "coordinates": []interface{}{lon, lat}},
		}
	}

	// base.point wins over top-level point.
	aug := map[string]interface{}{
		"base":  map[string]interface{}{"point": point(1, 1)},
		"point": point(2, 2),
	}
	if pt := ExtractPoint(aug); pt == nil || *pt != (orb.Point{1, 1}) {
		t.Fatalf("base point must win, got %v", pt)
	}

	// details.point is the fallback container.
	aug = map[string]interface{}{
		"details": map[string]interface{}{"point": point(3, 3)},
	}
	if pt := ExtractPoint(aug); pt == nil || *pt != (orb.Point{3, 3}) {
		t.Fatalf("details point not found, got %v", pt)
	}

	// Non-point geometry yields nil.
	aug = map[string]interface{}{
		"point": map[string]interface{}{
			"geometry": map[string]interface{}{"type": "LineString", "coordinates": []interface{}{}},
		},
	}
	if pt := ExtractPoint(aug); pt != nil {
		t.Fatalf("non-point geometry must yield nil, got %v", pt)
	}

	if pt := ExtractPoint(nil); pt != nil {
		t.Fatal("nil payload must yield nil point")
	}
}
