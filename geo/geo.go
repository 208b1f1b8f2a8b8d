// Package geo wraps the planar projection, containment, and distance math
// used by the audit engine. All geographic inputs are WGS84 lon/lat degrees;
// metric distances go through a WebMercator projection first.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// Points closer to a ring segment than this (in input units) count as on the
// boundary. Containment is boundary-inclusive.
const boundaryEpsilon = 1e-9

// ToPlanar projects a geometry from lon/lat degrees into WebMercator meters.
// The input geometry is cloned, never mutated.
func ToPlanar(g orb.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("nil geometry")
	}
	switch g.(type) {
	case orb.Point, orb.Polygon, orb.MultiPolygon, orb.LineString, orb.MultiLineString, orb.MultiPoint, orb.Ring:
		return project.Geometry(orb.Clone(g), project.WGS84.ToMercator), nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}
}

// PointToPlanar projects a single lon/lat point into WebMercator meters.
func PointToPlanar(p orb.Point) orb.Point {
	return project.WGS84.ToMercator(p)
}

// Contains reports whether pt lies inside g, treating points on a ring
// vertex or edge as inside.
func Contains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return polygonContains(geom, pt)
	case orb.MultiPolygon:
		for _, poly := range geom {
			if polygonContains(poly, pt) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func polygonContains(poly orb.Polygon, pt orb.Point) bool {
	if planar.PolygonContains(poly, pt) {
		return true
	}
	// The ray cast is not reliable exactly on the boundary.
	return onBoundary(poly, pt)
}

func onBoundary(poly orb.Polygon, pt orb.Point) bool {
	for _, ring := range poly {
		for i := 1; i < len(ring); i++ {
			if planar.DistanceFromSegment(ring[i-1], ring[i], pt) < boundaryEpsilon {
				return true
			}
		}
	}
	return false
}

// DistanceToPoint returns the minimum distance from g to pt in the units of
// the coordinates (meters for planar geometries, degrees otherwise). A point
// inside a polygon is at distance zero.
func DistanceToPoint(g orb.Geometry, pt orb.Point) (float64, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		if planar.PolygonContains(geom, pt) {
			return 0, nil
		}
		return ringSetDistance(geom, pt), nil
	case orb.MultiPolygon:
		best := math.MaxFloat64
		for _, poly := range geom {
			if planar.PolygonContains(poly, pt) {
				return 0, nil
			}
			if d := ringSetDistance(poly, pt); d < best {
				best = d
			}
		}
		if best == math.MaxFloat64 {
			return 0, fmt.Errorf("empty multipolygon")
		}
		return best, nil
	default:
		return 0, fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}
}

func ringSetDistance(poly orb.Polygon, pt orb.Point) float64 {
	best := math.MaxFloat64
	for _, ring := range poly {
		for i := 1; i < len(ring); i++ {
			if d := planar.DistanceFromSegment(ring[i-1], ring[i], pt); d < best {
				best = d
			}
		}
	}
	return best
}
