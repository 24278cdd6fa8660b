package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// DefaultArcSegments is the number of Bézier segments sampled per arc.
	DefaultArcSegments = 20

	// arcBend is the control point's perpendicular offset as a fraction of
	// the endpoint distance.
	arcBend = 0.15
)

// ArcControlPoint returns the quadratic Bézier control point for the arc from
// start to end: the midpoint pushed perpendicular to the chord (rotated 90°
// counter-clockwise) by 15% of the chord length. ok is false when the
// endpoints coincide and no perpendicular exists.
func ArcControlPoint(start, end orb.Point) (ctrl orb.Point, ok bool) {
	dx := end[0] - start[0]
	dy := end[1] - start[1]
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return start, false
	}

	mid := orb.Point{(start[0] + end[0]) / 2, (start[1] + end[1]) / 2}
	// unit perpendicular (-dy, dx)/dist scaled by arcBend*dist
	px := -dy / dist
	py := dx / dist
	offset := arcBend * dist
	return orb.Point{mid[0] + px*offset, mid[1] + py*offset}, true
}

// Arc samples a curved path between two coordinates in planar lon/lat space.
// The result has segments+1 points, starting exactly at start and ending
// exactly at end. Coincident endpoints yield the two identical points with no
// curvature. segments <= 0 selects DefaultArcSegments.
func Arc(start, end orb.Point, segments int) orb.LineString {
	if segments <= 0 {
		segments = DefaultArcSegments
	}

	ctrl, ok := ArcControlPoint(start, end)
	if !ok {
		return orb.LineString{start, end}
	}

	line := make(orb.LineString, 0, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		line = append(line, quadBezier(start, ctrl, end, t))
	}
	// pin the endpoints so floating-point drift never moves them
	line[0] = start
	line[segments] = end
	return line
}

func quadBezier(p0, p1, p2 orb.Point, t float64) orb.Point {
	u := 1 - t
	a := u * u
	b := 2 * u * t
	c := t * t
	return orb.Point{
		a*p0[0] + b*p1[0] + c*p2[0],
		a*p0[1] + b*p1[1] + c*p2[1],
	}
}
