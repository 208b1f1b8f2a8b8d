package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func unitSquare() orb.Polygon {
	return orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
}

func TestContainsInteriorAndExterior(t *testing.T) {
	poly := unitSquare()
	if !Contains(poly, orb.Point{0.5, 0.5}) {
		t.Fatal("interior point must be contained")
	}
	if Contains(poly, orb.Point{2, 2}) {
		t.Fatal("exterior point must not be contained")
	}
}

func TestContainsBoundaryInclusive(t *testing.T) {
	poly := unitSquare()
	cases := []orb.Point{
		{0, 0},     // vertex
		{0.5, 0},   // south edge
		{1, 0.5},   // east edge
		{0.5, 1},   // north edge
	}
	for _, pt := range cases {
		if !Contains(poly, pt) {
			t.Errorf("boundary point %v must be contained", pt)
		}
	}
}

func TestContainsMultiPolygon(t *testing.T) {
	mp := orb.MultiPolygon{
		unitSquare(),
		{orb.Ring{{3, 3}, {4, 3}, {4, 4}, {3, 4}, {3, 3}}},
	}
	if !Contains(mp, orb.Point{3.5, 3.5}) {
		t.Fatal("point in second part must be contained")
	}
	if Contains(mp, orb.Point{2, 2}) {
		t.Fatal("point between parts must not be contained")
	}
}

func TestToPlanarDoesNotMutateInput(t *testing.T) {
	poly := unitSquare()
	got, err := ToPlanar(poly)
	if err != nil {
		t.Fatal(err)
	}
	if poly[0][1] != (orb.Point{1, 0}) {
		t.Fatal("projection mutated the source polygon")
	}
	proj, ok := got.(orb.Polygon)
	if !ok {
		t.Fatalf("projection changed geometry type: %T", got)
	}
	// One degree of longitude at the equator is roughly 111km in Mercator.
	dx := proj[0][1][0] - proj[0][0][0]
	if dx < 100_000 || dx > 120_000 {
		t.Fatalf("unexpected projected width: %v m", dx)
	}
}

func TestToPlanarRejectsNil(t *testing.T) {
	if _, err := ToPlanar(nil); err == nil {
		t.Fatal("expected error for nil geometry")
	}
}

func TestDistanceToPoint(t *testing.T) {
	poly := unitSquare()

	d, err := DistanceToPoint(poly, orb.Point{0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if d != 0 {
		t.Fatalf("contained point must be at distance 0, got %v", d)
	}

	d, err = DistanceToPoint(poly, orb.Point{3, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-2) > 1e-9 {
		t.Fatalf("distance from east edge: got %v, want 2", d)
	}
}

func TestDistanceToPointUnsupportedGeometry(t *testing.T) {
	if _, err := DistanceToPoint(orb.Point{0, 0}, orb.Point{1, 1}); err == nil {
		t.Fatal("expected error for non-areal geometry")
	}
}
