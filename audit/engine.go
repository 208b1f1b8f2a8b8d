// Package audit holds the containment and proximity engine: it joins region
// polygons against station and incident points and scores each region's data
// messiness.
package audit

import (
	"context"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"incident_audit/geo"
	"incident_audit/incident"
)

// RegionMetrics is one output row per region polygon.
//
// NearestStationM is set only when the region contains no station and at
// least one station exists; otherwise it is nil, meaning "not applicable" —
// never zero. ApproxDistance marks rows where the planar projection failed
// and the value is a raw degree-based approximation.
type RegionMetrics struct {
	State            *string
	District         *string
	NIncidents       int
	MeanCompleteness float64
	Messiness        float64
	StationsInside   []string
	NearestStationM  *float64
	ApproxDistance   bool
	Properties       geojson.Properties
}

type pointRecord struct {
	score float64
	point orb.Point
}

// Evaluate computes one RegionMetrics row per polygon, in input order.
// Inputs are read-only; regions are independent of each other. The context
// is checked between polygon iterations; on cancellation the rows computed
// so far are returned with ctx.Err().
func Evaluate(ctx context.Context, polygons []*geojson.Feature, stations []incident.StationPoint, incidents []incident.Record) ([]RegionMetrics, error) {
	// Incidents without an extractable point can never be contained.
	located := make([]pointRecord, 0, len(incidents))
	for _, rec := range incidents {
		if rec.Point == nil {
			continue
		}
		located = append(located, pointRecord{score: rec.CompletenessScore, point: *rec.Point})
	}

	results := make([]RegionMetrics, 0, len(polygons))
	for _, feat := range polygons {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		results = append(results, evaluateRegion(feat, stations, located))
	}
	return results, nil
}

func evaluateRegion(feat *geojson.Feature, stations []incident.StationPoint, located []pointRecord) RegionMetrics {
	row := RegionMetrics{
		State:          geo.FirstProp(feat.Properties, "state", "STATE", "state_name"),
		District:       geo.FirstProp(feat.Properties, "district", "district_id", "name", "NAME"),
		StationsInside: []string{},
		Properties:     feat.Properties,
	}

	geom := feat.Geometry
	for _, st := range stations {
		if geo.Contains(geom, st.Point) {
			row.StationsInside = append(row.StationsInside, st.ID)
		}
	}

	var sum float64
	for _, rec := range located {
		if geo.Contains(geom, rec.point) {
			row.NIncidents++
			sum += rec.score
		}
	}
	row.MeanCompleteness = 1.0
	if row.NIncidents > 0 {
		row.MeanCompleteness = sum / float64(row.NIncidents)
	}
	row.Messiness = 1.0 - row.MeanCompleteness

	// Nearest-station distance is only meaningful for uncovered regions,
	// and only when there is some station to measure against. When nothing
	// is measurable at all the field stays nil; it is never a stand-in zero.
	if len(row.StationsInside) == 0 && len(stations) > 0 {
		if d, approx, ok := nearestStationDistance(geom, stations); ok {
			row.NearestStationM = &d
			row.ApproxDistance = approx
		}
	}
	return row
}

// nearestStationDistance measures from the projected polygon to the nearest
// projected station in meters. If projection or the planar measurement fails
// the raw degree-based distance is substituted and flagged. ok is false when
// no distance could be computed against any station.
func nearestStationDistance(geom orb.Geometry, stations []incident.StationPoint) (dist float64, approx, ok bool) {
	planarGeom, err := geo.ToPlanar(geom)
	if err != nil {
		log.Printf("planar projection failed: %v (falling back to degrees)", err)
		d, ok := degreeDistance(geom, stations)
		return d, true, ok
	}

	best := -1.0
	for _, st := range stations {
		d, err := geo.DistanceToPoint(planarGeom, geo.PointToPlanar(st.Point))
		if err != nil {
			log.Printf("planar distance failed for station %q: %v (falling back to degrees)", st.ID, err)
			d, ok := degreeDistance(geom, stations)
			return d, true, ok
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best, false, true
}

func degreeDistance(geom orb.Geometry, stations []incident.StationPoint) (float64, bool) {
	best := -1.0
	for _, st := range stations {
		d, err := geo.DistanceToPoint(geom, st.Point)
		if err != nil {
			continue
		}
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
