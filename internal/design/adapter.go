package design

import (
	"fmt"
	"math"

	"mea-router/internal/obstacle"
	"mea-router/pkg/geometry"
)

// GeometryError reports malformed or degenerate input geometry. Fatal
// to the single operation that hit it, never to the whole batch.
type GeometryError struct {
	PolygonID string
	Layer     string
	Reason    string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("bad geometry on layer %q (polygon %s): %s", e.Layer, e.PolygonID, e.Reason)
}

// ClearanceRules supplies the clearance margin per layer plus the
// degenerate-geometry epsilon.
type ClearanceRules struct {
	Default  float64
	PerLayer map[string]float64
	Epsilon  float64
}

// For returns the clearance for a layer.
func (r ClearanceRules) For(layer string) float64 {
	if cl, ok := r.PerLayer[layer]; ok {
		return cl
	}
	return r.Default
}

// FlatPolygon is a world-space polygon produced by flattening the cell
// hierarchy.
type FlatPolygon struct {
	ID     string
	Layer  string
	Points []geometry.Point2D
}

// Snapshot is an immutable flattened view of the design at batch start.
// The routing engine only ever works against a snapshot, never against
// the live design.
type Snapshot struct {
	Name     string
	Layers   map[string]Layer
	Polygons []FlatPolygon
}

const maxFlattenDepth = 64

// Snapshot flattens the design from its top cell into world-space
// polygons, resolving cell references through their transforms.
func (d *Design) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Name:   d.Name,
		Layers: make(map[string]Layer, len(d.layers)),
	}
	for name, l := range d.layers {
		s.Layers[name] = *l
	}
	if err := d.flattenCell(d.TopCell, geometry.Identity(), 0, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Design) flattenCell(cellName string, t geometry.AffineTransform, depth int, s *Snapshot) error {
	if depth > maxFlattenDepth {
		return fmt.Errorf("cell hierarchy too deep at %q (reference cycle?)", cellName)
	}
	cell, err := d.Cell(cellName)
	if err != nil {
		return err
	}
	for _, p := range cell.Polygons {
		s.Polygons = append(s.Polygons, FlatPolygon{
			ID:     p.ID,
			Layer:  p.Layer,
			Points: t.ApplyAll(p.Points),
		})
	}
	for _, ref := range cell.Refs {
		if err := d.flattenCell(ref.Cell, t.Compose(refTransform(ref)), depth+1, s); err != nil {
			return err
		}
	}
	return nil
}

// Obstacles converts the snapshot into the engine's obstacle set,
// validating every polygon. A pure read: the snapshot is not modified.
func (s *Snapshot) Obstacles(rules ClearanceRules) (obstacle.Set, error) {
	set := make(obstacle.Set, 0, len(s.Polygons))
	for _, p := range s.Polygons {
		if len(p.Points) < 3 {
			return nil, &GeometryError{PolygonID: p.ID, Layer: p.Layer,
				Reason: fmt.Sprintf("only %d vertices", len(p.Points))}
		}
		// Collinear input must be caught before the simplicity check:
		// its degenerate edges overlap, which IsSimple also rejects. A
		// self-intersecting outline can enclose zero signed area (lobes
		// cancel), so simplicity is checked before the area.
		if collinear(p.Points, rules.Epsilon) {
			return nil, &GeometryError{PolygonID: p.ID, Layer: p.Layer, Reason: "zero-area polygon"}
		}
		if !geometry.IsSimple(p.Points) {
			return nil, &GeometryError{PolygonID: p.ID, Layer: p.Layer, Reason: "self-intersecting polygon"}
		}
		if math.Abs(geometry.Area(p.Points)) <= rules.Epsilon {
			return nil, &GeometryError{PolygonID: p.ID, Layer: p.Layer, Reason: "zero-area polygon"}
		}
		set = append(set, obstacle.New(p.Points, rules.For(p.Layer), p.Layer))
	}
	return set, nil
}

// collinear reports whether every point lies on one line within eps.
func collinear(pts []geometry.Point2D, eps float64) bool {
	if len(pts) < 3 {
		return true
	}
	a := pts[0]
	var b geometry.Point2D
	found := false
	for _, p := range pts[1:] {
		if math.Abs(p.X-a.X) > eps || math.Abs(p.Y-a.Y) > eps {
			b = p
			found = true
			break
		}
	}
	if !found {
		return true
	}
	for _, p := range pts {
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if math.Abs(cross) > eps {
			return false
		}
	}
	return true
}

// CommitTrace converts routed polylines into trace polygons on the
// given layer and adds them to the cell. Strictly additive: existing
// geometry is never touched. Returns the new polygons.
func (d *Design) CommitTrace(cellName, layerName string, polylines [][]geometry.Point2D, width float64) ([]*Polygon, error) {
	if width <= 0 {
		return nil, fmt.Errorf("trace width must be positive, got %g", width)
	}
	if _, err := d.Layer(layerName); err != nil {
		return nil, err
	}
	var out []*Polygon
	for _, line := range polylines {
		footprint := geometry.ExtrudePolyline(line, width)
		if footprint == nil {
			return nil, &GeometryError{Layer: layerName, Reason: "trace polyline has fewer than two distinct points"}
		}
		p, err := d.AddPolygon(cellName, layerName, footprint)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
