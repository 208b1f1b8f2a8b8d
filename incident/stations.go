package incident

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"incident_audit/geo"
)

// StationsFromFeatures builds the registry from an authoritative station
// dataset. Features without a Point geometry are skipped; identifiers are not
// required to be unique here.
func StationsFromFeatures(features []*geojson.Feature) []StationPoint {
	var stations []StationPoint
	for _, feat := range features {
		if feat == nil {
			continue
		}
		pt, ok := feat.Geometry.(orb.Point)
		if !ok {
			continue
		}
		var id string
		if v := geo.FirstProp(feat.Properties, "id", "station_id", "name"); v != nil {
			id = *v
		}
		stations = append(stations, StationPoint{ID: id, Point: pt})
	}
	return stations
}

// StationsFromIncidents mines unit-response sub-records for reported unit
// locations. Entries need both an identifier and a point; a later report of
// the same unit overwrites the earlier coordinate. Output is sorted by id so
// repeated runs over the same inputs produce identical registries.
func StationsFromIncidents(augmented []map[string]interface{}) []StationPoint {
	byID := make(map[string]orb.Point)
	for _, doc := range augmented {
		responses := subSlice(doc, "unit_responses")
		if responses == nil {
			responses = subSlice(subMap(doc, "dispatch"), "unit_responses")
		}
		for _, raw := range responses {
			ur, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			uid := firstString(ur, "unit_neris_id", "reported_unit_id")
			if uid == "" {
				continue
			}
			ptStruct := subMap(ur, "point")
			if ptStruct == nil {
				ptStruct = subMap(ur, "reported_point")
			}
			pt := pointFromStruct(ptStruct)
			if pt == nil {
				continue
			}
			byID[uid] = *pt
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	stations := make([]StationPoint, 0, len(ids))
	for _, id := range ids {
		stations = append(stations, StationPoint{ID: id, Point: byID[id]})
	}
	return stations
}
