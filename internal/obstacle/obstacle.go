// Package obstacle builds the traversal space for one routing batch:
// an obstacle set derived from design geometry plus either a uniform
// grid or a visibility graph over obstacle corners.
package obstacle

import (
	"mea-router/pkg/geometry"
)

// Obstacle is an immutable polygon with an associated clearance margin.
// Derived fresh from the design on each routing batch.
type Obstacle struct {
	Polygon   []geometry.Point2D
	Clearance float64
	Layer     string

	bounds geometry.Rect
}

// New creates an obstacle and caches its clearance-expanded bounds.
func New(polygon []geometry.Point2D, clearance float64, layer string) Obstacle {
	return Obstacle{
		Polygon:   polygon,
		Clearance: clearance,
		Layer:     layer,
		bounds:    geometry.BoundingBox(polygon).Expand(clearance),
	}
}

// Bounds returns the bounding box expanded by the clearance margin.
func (o Obstacle) Bounds() geometry.Rect {
	return o.bounds
}

// Contains reports whether p lies inside the obstacle polygon itself,
// clearance aside.
func (o Obstacle) Contains(p geometry.Point2D) bool {
	return geometry.DistancePointPolygon(p, o.Polygon) == 0
}

// BlocksPoint reports whether p is inside the obstacle or closer to it
// than the clearance margin.
func (o Obstacle) BlocksPoint(p geometry.Point2D) bool {
	if !o.bounds.Contains(p) {
		return false
	}
	return geometry.DistancePointPolygon(p, o.Polygon) < o.Clearance
}

// BlocksSegment reports whether segment a-b comes closer to the
// obstacle than the clearance margin.
func (o Obstacle) BlocksSegment(a, b geometry.Point2D) bool {
	segBounds := geometry.BoundingBox([]geometry.Point2D{a, b}).Expand(1e-9)
	if !segBounds.Intersects(o.bounds) {
		return false
	}
	return geometry.DistanceSegmentPolygon(a, b, o.Polygon) < o.Clearance
}

// Set is the full obstacle collection for a batch.
type Set []Obstacle

// Blocked reports whether any obstacle blocks point p.
func (s Set) Blocked(p geometry.Point2D) bool {
	for i := range s {
		if s[i].BlocksPoint(p) {
			return true
		}
	}
	return false
}

// SegmentBlocked reports whether any obstacle blocks segment a-b.
func (s Set) SegmentBlocked(a, b geometry.Point2D) bool {
	for i := range s {
		if s[i].BlocksSegment(a, b) {
			return true
		}
	}
	return false
}

// WithExtraClearance returns a copy of the set with every clearance
// margin grown by delta. Routing inflates obstacles by half the trace
// width so the path centerline keeps the trace edge clear.
func (s Set) WithExtraClearance(delta float64) Set {
	if delta == 0 {
		return s
	}
	out := make(Set, len(s))
	for i := range s {
		out[i] = New(s[i].Polygon, s[i].Clearance+delta, s[i].Layer)
	}
	return out
}

// Bounds returns the union of all obstacle bounds, or the zero Rect for
// an empty set.
func (s Set) Bounds() geometry.Rect {
	if len(s) == 0 {
		return geometry.Rect{}
	}
	b := s[0].Bounds()
	for i := 1; i < len(s); i++ {
		b = b.Union(s[i].Bounds())
	}
	return b
}
