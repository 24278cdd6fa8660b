package geospatial_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/canopyops/geoscene/internal/pkg/geospatial"
)

const eps = 1e-9

// distanceToChord returns the perpendicular distance from p to the line a-b.
func distanceToChord(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	return math.Abs(dy*p[0]-dx*p[1]+b[0]*a[1]-b[1]*a[0]) / math.Hypot(dx, dy)
}

func TestArc_EndpointsExact(t *testing.T) {
	cases := []struct {
		name       string
		start, end orb.Point
	}{
		{"sf-denver", orb.Point{-122.4194, 37.7749}, orb.Point{-104.9903, 39.7392}},
		{"vertical", orb.Point{-80, 10}, orb.Point{-80, 40}},
		{"antimeridian-ish", orb.Point{179.5, -10}, orb.Point{-179.5, 15}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := geospatial.Arc(tc.start, tc.end, 20)
			if len(line) != 21 {
				t.Fatalf("expected 21 points, got %d", len(line))
			}
			if line[0] != tc.start {
				t.Errorf("first point %v, want %v", line[0], tc.start)
			}
			if line[len(line)-1] != tc.end {
				t.Errorf("last point %v, want %v", line[len(line)-1], tc.end)
			}
		})
	}
}

func TestArc_ControlPointOffset(t *testing.T) {
	a := orb.Point{-122.4194, 37.7749}
	b := orb.Point{-74.0060, 40.7128}
	chord := math.Hypot(b[0]-a[0], b[1]-a[1])

	ctrl, ok := geospatial.ArcControlPoint(a, b)
	if !ok {
		t.Fatal("expected a control point for distinct endpoints")
	}
	if got := distanceToChord(ctrl, a, b); math.Abs(got-0.15*chord) > eps {
		t.Errorf("control offset %f, want %f", got, 0.15*chord)
	}

	// The curve's midpoint sample sits halfway between the chord midpoint and
	// the control point.
	line := geospatial.Arc(a, b, 20)
	mid := line[10]
	if got := distanceToChord(mid, a, b); math.Abs(got-0.075*chord) > eps {
		t.Errorf("midpoint offset %f, want %f", got, 0.075*chord)
	}
}

func TestArc_Degenerate(t *testing.T) {
	p := orb.Point{-104.99, 39.74}
	line := geospatial.Arc(p, p, 20)
	if len(line) != 2 {
		t.Fatalf("expected 2 points, got %d", len(line))
	}
	for i, pt := range line {
		if pt != p {
			t.Errorf("point %d = %v, want %v", i, pt, p)
		}
		for _, v := range pt {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("point %d has non-finite coordinate %v", i, pt)
			}
		}
	}
}

func TestArc_Deterministic(t *testing.T) {
	a := orb.Point{-87.6298, 41.8781}
	b := orb.Point{-95.3698, 29.7604}
	first := geospatial.Arc(a, b, 12)
	second := geospatial.Arc(a, b, 12)
	if !first.Equal(second) {
		t.Error("same input produced different polylines")
	}
}

func TestArc_DefaultSegments(t *testing.T) {
	line := geospatial.Arc(orb.Point{0, 0}, orb.Point{1, 1}, 0)
	if len(line) != geospatial.DefaultArcSegments+1 {
		t.Errorf("expected %d points, got %d", geospatial.DefaultArcSegments+1, len(line))
	}
}

func TestDistanceKm_SanFranciscoToNewYork(t *testing.T) {
	// San Francisco to New York is roughly 4130 km.
	km := geospatial.DistanceKm(orb.Point{-122.4194, 37.7749}, orb.Point{-74.0060, 40.7128})
	if km < 4100 || km > 4160 {
		t.Errorf("unexpected SF-NYC distance %.1f km", km)
	}
}
