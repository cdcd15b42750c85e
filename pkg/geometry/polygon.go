package geometry

import "math"

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 intersect,
// including touching endpoints and collinear overlap.
func SegmentsIntersect(a1, a2, b1, b2 Point2D) bool {
	d1 := crossProduct(b1, b2, a1)
	d2 := crossProduct(b1, b2, a2)
	d3 := crossProduct(a1, a2, b1)
	d4 := crossProduct(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	return false
}

// onSegment reports whether p lies within the bounding box of segment a-b.
// Only valid when p is known to be collinear with a-b.
func onSegment(a, b, p Point2D) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

// SegmentIntersectsPolygon reports whether segment a-b crosses any edge
// of the polygon or lies (partially) inside it.
func SegmentIntersectsPolygon(a, b Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}
	n := len(polygon)
	for i := 0; i < n; i++ {
		if SegmentsIntersect(a, b, polygon[i], polygon[(i+1)%n]) {
			return true
		}
	}
	// No edge crossing: the segment is entirely inside or entirely outside.
	mid := Point2D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	return PointInPolygon(mid, polygon)
}

// DistancePointSegment returns the distance from p to segment a-b.
func DistancePointSegment(p, a, b Point2D) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := Point2D{X: a.X + t*ab.X, Y: a.Y + t*ab.Y}
	return p.Distance(closest)
}

// DistancePointPolygon returns the distance from p to the polygon.
// Zero if p is inside or on the boundary.
func DistancePointPolygon(p Point2D, polygon []Point2D) float64 {
	if len(polygon) < 3 {
		return math.Inf(1)
	}
	if PointInPolygon(p, polygon) {
		return 0
	}
	best := math.Inf(1)
	n := len(polygon)
	for i := 0; i < n; i++ {
		d := DistancePointSegment(p, polygon[i], polygon[(i+1)%n])
		if d < best {
			best = d
		}
	}
	return best
}

// DistanceSegmentSegment returns the distance between two segments.
// Zero if they intersect.
func DistanceSegmentSegment(a1, a2, b1, b2 Point2D) float64 {
	if SegmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	d := DistancePointSegment(a1, b1, b2)
	if v := DistancePointSegment(a2, b1, b2); v < d {
		d = v
	}
	if v := DistancePointSegment(b1, a1, a2); v < d {
		d = v
	}
	if v := DistancePointSegment(b2, a1, a2); v < d {
		d = v
	}
	return d
}

// DistanceSegmentPolygon returns the distance from segment a-b to the
// polygon. Zero if the segment crosses or lies inside it.
func DistanceSegmentPolygon(a, b Point2D, polygon []Point2D) float64 {
	if len(polygon) < 3 {
		return math.Inf(1)
	}
	if SegmentIntersectsPolygon(a, b, polygon) {
		return 0
	}
	best := math.Inf(1)
	n := len(polygon)
	for i := 0; i < n; i++ {
		d := DistanceSegmentSegment(a, b, polygon[i], polygon[(i+1)%n])
		if d < best {
			best = d
		}
	}
	return best
}

// Area returns the signed area of the polygon. Positive for
// counter-clockwise winding.
func Area(polygon []Point2D) float64 {
	if len(polygon) < 3 {
		return 0
	}
	var sum float64
	n := len(polygon)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
	}
	return sum / 2
}

// IsSimple reports whether the polygon is non-self-intersecting.
// Adjacent edges sharing a vertex are not counted as intersections.
func IsSimple(polygon []Point2D) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1 := polygon[i]
		a2 := polygon[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip edges sharing a vertex with edge i
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			if SegmentsIntersect(a1, a2, polygon[j], polygon[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}

// OffsetVertices returns the polygon vertices pushed outward by margin
// along each vertex's angle bisector (mitered offset). The winding
// order of the input is preserved.
func OffsetVertices(polygon []Point2D, margin float64) []Point2D {
	n := len(polygon)
	if n < 3 || margin == 0 {
		out := make([]Point2D, n)
		copy(out, polygon)
		return out
	}

	// Outward normal orientation depends on winding
	ccw := Area(polygon) > 0

	out := make([]Point2D, n)
	for i := 0; i < n; i++ {
		prev := polygon[(i-1+n)%n]
		cur := polygon[i]
		next := polygon[(i+1)%n]

		n1 := edgeNormal(prev, cur, ccw)
		n2 := edgeNormal(cur, next, ccw)

		// Miter direction is the normalized sum of adjacent edge normals
		mx, my := n1.X+n2.X, n1.Y+n2.Y
		mlen := math.Sqrt(mx*mx + my*my)
		if mlen < 1e-12 {
			// Degenerate spike: fall back to the first normal
			out[i] = Point2D{X: cur.X + n1.X*margin, Y: cur.Y + n1.Y*margin}
			continue
		}
		mx /= mlen
		my /= mlen

		// Scale so the offset edge stays margin away from the original
		cosHalf := mx*n1.X + my*n1.Y
		scale := margin
		if cosHalf > 1e-6 {
			scale = margin / cosHalf
		}
		// Miter limit to keep sharp corners bounded
		if scale > 4*margin {
			scale = 4 * margin
		}
		out[i] = Point2D{X: cur.X + mx*scale, Y: cur.Y + my*scale}
	}
	return out
}

// edgeNormal returns the unit normal of edge a-b pointing outward for
// the given winding.
func edgeNormal(a, b Point2D, ccw bool) Point2D {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Sqrt(dx*dx + dy*dy)
	if l < 1e-12 {
		return Point2D{}
	}
	if ccw {
		return Point2D{X: dy / l, Y: -dx / l}
	}
	return Point2D{X: -dy / l, Y: dx / l}
}

// ExtrudePolyline converts a polyline into a closed polygon footprint
// of the given width (trace geometry). Consecutive duplicate points are
// dropped. Returns nil if fewer than two distinct points remain.
func ExtrudePolyline(points []Point2D, width float64) []Point2D {
	// Drop duplicates
	var pts []Point2D
	for _, p := range points {
		if len(pts) == 0 || p.Distance(pts[len(pts)-1]) > 1e-9 {
			pts = append(pts, p)
		}
	}
	if len(pts) < 2 {
		return nil
	}

	half := width / 2
	n := len(pts)
	left := make([]Point2D, 0, n)
	right := make([]Point2D, 0, n)

	for i := 0; i < n; i++ {
		var dir Point2D
		switch {
		case i == 0:
			dir = unit(pts[1].Sub(pts[0]))
		case i == n-1:
			dir = unit(pts[n-1].Sub(pts[n-2]))
		default:
			d1 := unit(pts[i].Sub(pts[i-1]))
			d2 := unit(pts[i+1].Sub(pts[i]))
			dir = unit(d1.Add(d2))
			if dir.Norm() < 1e-9 {
				// 180 degree reversal: use the incoming direction
				dir = d1
			}
		}
		normal := Point2D{X: -dir.Y, Y: dir.X}

		// Miter scaling at interior joints
		scale := half
		if i > 0 && i < n-1 {
			d1 := unit(pts[i].Sub(pts[i-1]))
			n1 := Point2D{X: -d1.Y, Y: d1.X}
			cosHalf := normal.X*n1.X + normal.Y*n1.Y
			if cosHalf > 0.25 {
				scale = half / cosHalf
			} else {
				scale = half * 4
			}
		}

		left = append(left, pts[i].Add(normal.Scale(scale)))
		right = append(right, pts[i].Add(normal.Scale(-scale)))
	}

	// Left side forward, right side reversed
	poly := make([]Point2D, 0, 2*n)
	poly = append(poly, left...)
	for i := n - 1; i >= 0; i-- {
		poly = append(poly, right[i])
	}
	return poly
}

func unit(p Point2D) Point2D {
	l := p.Norm()
	if l < 1e-12 {
		return Point2D{}
	}
	return Point2D{X: p.X / l, Y: p.Y / l}
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
