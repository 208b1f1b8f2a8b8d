package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/image/vector"

	"incident_audit/geo"
	"incident_audit/incident"
)

const (
	mapWidth        = 900
	mapHeight       = 600
	maxIncidentDots = 50
)

var (
	polygonFill    = color.NRGBA{R: 70, G: 130, B: 180, A: 40}
	polygonOutline = color.NRGBA{R: 70, G: 130, B: 180, A: 255}
	stationColor   = color.NRGBA{R: 200, G: 30, B: 30, A: 255}
	incidentColor  = color.NRGBA{R: 20, G: 20, B: 20, A: 160}
)

// RenderStateMap draws a state's region polygons, station markers, and a
// sample of incident points into a PNG.
func RenderStateMap(state string, polygons []*geojson.Feature, stations []incident.StationPoint, incidents []incident.Record) ([]byte, error) {
	feats := stateFeatures(state, polygons)
	if len(feats) == 0 {
		return nil, fmt.Errorf("no polygons for state %q", state)
	}

	minX, minY, maxX, maxY := bounds(feats, stations, incidents)
	toPx := func(p orb.Point) (float32, float32) {
		x := (p[0] - minX) / (maxX - minX) * mapWidth
		y := mapHeight - (p[1]-minY)/(maxY-minY)*mapHeight
		return float32(x), float32(y)
	}

	dst := image.NewRGBA(image.Rect(0, 0, mapWidth, mapHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for _, feat := range feats {
		for _, poly := range polygonsOf(feat.Geometry) {
			for _, ring := range poly {
				fillRing(dst, ring, toPx, polygonFill)
				strokeRing(dst, ring, toPx, polygonOutline)
			}
		}
	}
	for _, st := range stations {
		drawTriangle(dst, st.Point, toPx, stationColor)
	}
	dots := 0
	for _, rec := range incidents {
		if rec.Point == nil {
			continue
		}
		drawSquare(dst, *rec.Point, toPx, incidentColor)
		dots++
		if dots >= maxIncidentDots {
			break
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stateFeatures(state string, polygons []*geojson.Feature) []*geojson.Feature {
	var feats []*geojson.Feature
	for _, feat := range polygons {
		if v := geo.FirstProp(feat.Properties, "state", "STATE", "state_name"); v != nil && *v == state {
			feats = append(feats, feat)
		}
	}
	if len(feats) > 0 {
		return feats
	}
	// Fuzzy fallback: some datasets carry the state name upper-cased.
	for _, feat := range polygons {
		if v := geo.FirstProp(feat.Properties, "state", "STATE", "state_name"); v != nil && strings.EqualFold(*v, state) {
			feats = append(feats, feat)
		}
	}
	return feats
}

func polygonsOf(g orb.Geometry) []orb.Polygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{geom}
	case orb.MultiPolygon:
		return geom
	default:
		return nil
	}
}

func bounds(feats []*geojson.Feature, stations []incident.StationPoint, incidents []incident.Record) (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	grow := func(p orb.Point) {
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	for _, feat := range feats {
		for _, poly := range polygonsOf(feat.Geometry) {
			for _, ring := range poly {
				for _, p := range ring {
					grow(p)
				}
			}
		}
	}
	for _, st := range stations {
		grow(st.Point)
	}
	for _, rec := range incidents {
		if rec.Point != nil {
			grow(*rec.Point)
		}
	}
	if minX > maxX || minY > maxY {
		return -77.1, 38.8, -76.7, 39.3
	}
	dx := (maxX - minX) * 0.1
	if dx == 0 {
		dx = 0.01
	}
	dy := (maxY - minY) * 0.1
	if dy == 0 {
		dy = 0.01
	}
	return minX - dx, minY - dy, maxX + dx, maxY + dy
}

func fillRing(dst draw.Image, ring orb.Ring, toPx func(orb.Point) (float32, float32), c color.Color) {
	if len(ring) < 3 {
		return
	}
	r := vector.NewRasterizer(mapWidth, mapHeight)
	r.DrawOp = draw.Over
	x, y := toPx(ring[0])
	r.MoveTo(x, y)
	for _, p := range ring[1:] {
		x, y = toPx(p)
		r.LineTo(x, y)
	}
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func strokeRing(dst draw.Image, ring orb.Ring, toPx func(orb.Point) (float32, float32), c color.Color) {
	const half = 0.75
	r := vector.NewRasterizer(mapWidth, mapHeight)
	r.DrawOp = draw.Over
	for i := 1; i < len(ring); i++ {
		x0, y0 := toPx(ring[i-1])
		x1, y1 := toPx(ring[i])
		dx, dy := x1-x0, y1-y0
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		// Perpendicular offset turns the segment into a thin quad.
		nx, ny := -dy/length*half, dx/length*half
		r.MoveTo(x0+nx, y0+ny)
		r.LineTo(x1+nx, y1+ny)
		r.LineTo(x1-nx, y1-ny)
		r.LineTo(x0-nx, y0-ny)
		r.ClosePath()
	}
	r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func drawTriangle(dst draw.Image, p orb.Point, toPx func(orb.Point) (float32, float32), c color.Color) {
	const size = 6
	x, y := toPx(p)
	r := vector.NewRasterizer(mapWidth, mapHeight)
	r.DrawOp = draw.Over
	r.MoveTo(x, y-size)
	r.LineTo(x+size, y+size)
	r.LineTo(x-size, y+size)
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func drawSquare(dst draw.Image, p orb.Point, toPx func(orb.Point) (float32, float32), c color.Color) {
	const half = 2
	x, y := toPx(p)
	r := vector.NewRasterizer(mapWidth, mapHeight)
	r.DrawOp = draw.Over
	r.MoveTo(x-half, y-half)
	r.LineTo(x+half, y-half)
	r.LineTo(x+half, y+half)
	r.LineTo(x-half, y+half)
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}
