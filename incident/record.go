// Package incident loads pipeline output streams and derives the point data
// the audit engine works on: one representative point per incident and a
// registry of named station locations.
package incident

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
)

// Record is one merged analysis+augmented incident. Immutable once built.
type Record struct {
	IncidentID        string
	CompletenessScore float64
	MissingFields     []string
	Point             *orb.Point
	Augmented         map[string]interface{}
}

// StationPoint is a named response-unit location in lon/lat degrees.
type StationPoint struct {
	ID    string
	Point orb.Point
}

// LoadJSONL reads newline-delimited JSON objects. An unparseable line is a
// hard failure for the whole source.
func LoadJSONL(path string) ([]map[string]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var docs []map[string]interface{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, nil
}

// Merge joins the analysis stream with its augmented payloads by positional
// source_index. Missing augmented entries yield a record without a payload;
// missing completeness defaults to fully complete.
func Merge(analysis, augmented []map[string]interface{}) []Record {
	records := make([]Record, 0, len(analysis))
	for i, a := range analysis {
		idx := int(floatField(a, "source_index", float64(i)))
		var aug map[string]interface{}
		if idx >= 0 && idx < len(augmented) {
			aug = augmented[idx]
		}

		// The analysis record carries the authoritative id; the augmented
		// payload is only consulted when the analysis row lacks one.
		id := firstString(a, "incident_id", "incident_number")
		if id == "" {
			id = firstString(aug, "incident_id", "incident_number")
		}
		if id == "" {
			id = strconv.Itoa(idx)
		}

		rec := Record{
			IncidentID:        id,
			CompletenessScore: floatField(a, "completeness_score", 1.0),
			Augmented:         aug,
			Point:             ExtractPoint(aug),
		}
		for _, v := range subSlice(a, "missing_fields") {
			if s, ok := v.(string); ok {
				rec.MissingFields = append(rec.MissingFields, s)
			}
		}
		records = append(records, rec)
	}
	return records
}

// ExtractPoint finds the representative lon/lat point inside an augmented
// payload: a base/details "point" geometry first, then a top-level "point".
// Returns nil when no well-formed Point geometry exists.
func ExtractPoint(aug map[string]interface{}) *orb.Point {
	base := subMap(aug, "base")
	if base == nil {
		base = subMap(aug, "details")
	}
	if pt := pointFromStruct(subMap(base, "point")); pt != nil {
		return pt
	}
	return pointFromStruct(subMap(aug, "point"))
}

func pointFromStruct(p map[string]interface{}) *orb.Point {
	geom := subMap(p, "geometry")
	if geom == nil || stringField(geom, "type") != "Point" {
		return nil
	}
	coords := subSlice(geom, "coordinates")
	if len(coords) < 2 {
		return nil
	}
	lon, okLon := coords[0].(float64)
	lat, okLat := coords[1].(float64)
	if !okLon || !okLat {
		return nil
	}
	pt := orb.Point{lon, lat}
	return &pt
}
