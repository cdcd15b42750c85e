package design

import (
	"fmt"
	"math"

	"mea-router/pkg/geometry"
)

// DRCViolation reports one design-rule finding on a snapshot.
type DRCViolation struct {
	Layer     string  `json:"layer"`
	PolygonID string  `json:"polygon_id"`
	OtherID   string  `json:"other_id,omitempty"`
	Rule      string  `json:"rule"`
	Value     float64 `json:"value"`
	Limit     float64 `json:"limit"`
}

func (v DRCViolation) String() string {
	if v.OtherID != "" {
		return fmt.Sprintf("layer %q: %s %.4g < %.4g between %s and %s",
			v.Layer, v.Rule, v.Value, v.Limit, v.PolygonID, v.OtherID)
	}
	return fmt.Sprintf("layer %q: %s %.4g < %.4g on %s",
		v.Layer, v.Rule, v.Value, v.Limit, v.PolygonID)
}

// RunDRC checks every layer that carries rules. Violations are
// reported, not raised: the caller decides what to do with them.
func (s *Snapshot) RunDRC() []DRCViolation {
	var out []DRCViolation
	for _, layer := range s.Layers {
		if layer.MinFeatureSize > 0 {
			out = append(out, s.checkMinimumFeatureSize(layer)...)
		}
		if layer.MinSpacing > 0 {
			out = append(out, s.checkMinimumSpacing(layer)...)
		}
	}
	return out
}

// checkMinimumFeatureSize flags polygons whose bounding box is smaller
// than the layer's minimum feature size in either dimension.
func (s *Snapshot) checkMinimumFeatureSize(layer Layer) []DRCViolation {
	var out []DRCViolation
	for _, p := range s.Polygons {
		if p.Layer != layer.Name {
			continue
		}
		bbox := geometry.BoundingBox(p.Points)
		smaller := math.Min(bbox.Width, bbox.Height)
		if smaller < layer.MinFeatureSize {
			out = append(out, DRCViolation{
				Layer:     layer.Name,
				PolygonID: p.ID,
				Rule:      "minimum feature size",
				Value:     smaller,
				Limit:     layer.MinFeatureSize,
			})
		}
	}
	return out
}

// checkMinimumSpacing flags polygon pairs on the layer closer than the
// minimum spacing. Touching or overlapping polygons are skipped; they
// are treated as one connected shape.
func (s *Snapshot) checkMinimumSpacing(layer Layer) []DRCViolation {
	var polys []FlatPolygon
	for _, p := range s.Polygons {
		if p.Layer == layer.Name {
			polys = append(polys, p)
		}
	}
	var out []DRCViolation
	for i := 0; i < len(polys); i++ {
		bi := geometry.BoundingBox(polys[i].Points).Expand(layer.MinSpacing)
		for j := i + 1; j < len(polys); j++ {
			if !bi.Intersects(geometry.BoundingBox(polys[j].Points)) {
				continue
			}
			d := polygonDistance(polys[i].Points, polys[j].Points)
			if d > 0 && d < layer.MinSpacing {
				out = append(out, DRCViolation{
					Layer:     layer.Name,
					PolygonID: polys[i].ID,
					OtherID:   polys[j].ID,
					Rule:      "minimum spacing",
					Value:     d,
					Limit:     layer.MinSpacing,
				})
			}
		}
	}
	return out
}

// polygonDistance returns the minimum edge-to-edge distance between two
// polygons, zero if they touch or overlap.
func polygonDistance(a, b []geometry.Point2D) float64 {
	best := math.Inf(1)
	n := len(a)
	for i := 0; i < n; i++ {
		d := geometry.DistanceSegmentPolygon(a[i], a[(i+1)%n], b)
		if d < best {
			best = d
		}
		if best == 0 {
			return 0
		}
	}
	return best
}
