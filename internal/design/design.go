// Package design models the chip design library the router operates
// on: named layers, cells holding polygons, and cell references. A
// flattened immutable Snapshot of the design is handed to each routing
// batch so the engine never sees mutable external state.
package design

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"mea-router/pkg/geometry"
)

// Layer is a named 2D plane of the design.
type Layer struct {
	Name        string `json:"name"`
	Number      int    `json:"number"`
	Description string `json:"description,omitempty"`
	// DRC rules, zero means unchecked
	MinFeatureSize float64 `json:"min_feature_size,omitempty"`
	MinSpacing     float64 `json:"min_spacing,omitempty"`
}

// Polygon is a single piece of geometry on a layer.
type Polygon struct {
	ID     string             `json:"id"`
	Layer  string             `json:"layer"`
	Points []geometry.Point2D `json:"points"`
}

// Reference places a child cell inside a parent cell.
type Reference struct {
	Cell          string           `json:"cell"`
	Origin        geometry.Point2D `json:"origin"`
	RotationDeg   float64          `json:"rotation_deg,omitempty"`
	Magnification float64          `json:"magnification,omitempty"` // 0 means 1
}

// Cell is a named container of polygons and cell references.
type Cell struct {
	Name     string      `json:"name"`
	Polygons []*Polygon  `json:"polygons"`
	Refs     []Reference `json:"refs,omitempty"`
}

// Design is a mutable design library: layers plus a cell hierarchy.
type Design struct {
	Name    string
	TopCell string

	layers map[string]*Layer
	cells  map[string]*Cell
}

// New creates a design with an empty top cell.
func New(name, topCell string) *Design {
	d := &Design{
		Name:    name,
		TopCell: topCell,
		layers:  make(map[string]*Layer),
		cells:   make(map[string]*Cell),
	}
	d.cells[topCell] = &Cell{Name: topCell}
	return d
}

// DefineLayer registers a layer. Redefining an existing name updates it.
func (d *Design) DefineLayer(layer Layer) {
	l := layer
	d.layers[layer.Name] = &l
}

// Layer returns a layer definition by name.
func (d *Design) Layer(name string) (*Layer, error) {
	l, ok := d.layers[name]
	if !ok {
		return nil, fmt.Errorf("layer %q is not defined", name)
	}
	return l, nil
}

// Layers returns all defined layers.
func (d *Design) Layers() []*Layer {
	out := make([]*Layer, 0, len(d.layers))
	for _, l := range d.layers {
		out = append(out, l)
	}
	return out
}

// AddCell creates a new empty cell. Returns the existing cell if the
// name is already taken.
func (d *Design) AddCell(name string) *Cell {
	if c, ok := d.cells[name]; ok {
		return c
	}
	c := &Cell{Name: name}
	d.cells[name] = c
	return c
}

// Cell returns a cell by name.
func (d *Design) Cell(name string) (*Cell, error) {
	c, ok := d.cells[name]
	if !ok {
		return nil, fmt.Errorf("cell %q does not exist", name)
	}
	return c, nil
}

// AddPolygon adds a polygon to a cell.
func (d *Design) AddPolygon(cellName, layerName string, points []geometry.Point2D) (*Polygon, error) {
	cell, err := d.Cell(cellName)
	if err != nil {
		return nil, err
	}
	if _, err := d.Layer(layerName); err != nil {
		return nil, err
	}
	pts := make([]geometry.Point2D, len(points))
	copy(pts, points)
	p := &Polygon{ID: uuid.NewString(), Layer: layerName, Points: pts}
	cell.Polygons = append(cell.Polygons, p)
	return p, nil
}

// AddRectangle adds an axis-aligned rectangle centered at center.
func (d *Design) AddRectangle(cellName, layerName string, center geometry.Point2D, width, height float64) (*Polygon, error) {
	hw, hh := width/2, height/2
	return d.AddPolygon(cellName, layerName, []geometry.Point2D{
		{X: center.X - hw, Y: center.Y - hh},
		{X: center.X + hw, Y: center.Y - hh},
		{X: center.X + hw, Y: center.Y + hh},
		{X: center.X - hw, Y: center.Y + hh},
	})
}

// AddCircleAsPolygon adds an n-gon approximation of a circle, the way
// electrode pads are drawn.
func (d *Design) AddCircleAsPolygon(cellName, layerName string, center geometry.Point2D, radius float64, numPoints int) (*Polygon, error) {
	if numPoints < 3 {
		return nil, fmt.Errorf("circle needs at least 3 points, got %d", numPoints)
	}
	return d.AddPolygon(cellName, layerName,
		geometry.GenerateCirclePoints(center.X, center.Y, radius, numPoints))
}

// AddCellReference places childCell inside parentCell.
func (d *Design) AddCellReference(parentCell, childCell string, origin geometry.Point2D, rotationDeg, magnification float64) error {
	parent, err := d.Cell(parentCell)
	if err != nil {
		return err
	}
	if _, err := d.Cell(childCell); err != nil {
		return err
	}
	parent.Refs = append(parent.Refs, Reference{
		Cell:          childCell,
		Origin:        origin,
		RotationDeg:   rotationDeg,
		Magnification: magnification,
	})
	return nil
}

// AddCellArray places copies of a cell in a grid centered on origin.
func (d *Design) AddCellArray(parentCell, childCell string, copiesX, copiesY int, spacingX, spacingY float64, origin geometry.Point2D) error {
	if copiesX < 1 || copiesY < 1 {
		return fmt.Errorf("cell array needs at least one copy in each direction")
	}
	startX := origin.X - spacingX*float64(copiesX-1)/2
	startY := origin.Y - spacingY*float64(copiesY-1)/2
	for i := 0; i < copiesX; i++ {
		for j := 0; j < copiesY; j++ {
			pos := geometry.Point2D{
				X: startX + float64(i)*spacingX,
				Y: startY + float64(j)*spacingY,
			}
			if err := d.AddCellReference(parentCell, childCell, pos, 0, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// ArrayPositions returns the centered grid positions AddCellArray uses,
// in column-major order. Useful for deriving pin terminals from an
// electrode array.
func ArrayPositions(copiesX, copiesY int, spacingX, spacingY float64, origin geometry.Point2D) []geometry.Point2D {
	startX := origin.X - spacingX*float64(copiesX-1)/2
	startY := origin.Y - spacingY*float64(copiesY-1)/2
	out := make([]geometry.Point2D, 0, copiesX*copiesY)
	for i := 0; i < copiesX; i++ {
		for j := 0; j < copiesY; j++ {
			out = append(out, geometry.Point2D{
				X: startX + float64(i)*spacingX,
				Y: startY + float64(j)*spacingY,
			})
		}
	}
	return out
}

// refTransform builds the affine transform for a cell reference.
func refTransform(ref Reference) geometry.AffineTransform {
	mag := ref.Magnification
	if mag == 0 {
		mag = 1
	}
	t := geometry.Translation(ref.Origin.X, ref.Origin.Y)
	if ref.RotationDeg != 0 {
		t = t.Compose(geometry.Rotation(ref.RotationDeg * math.Pi / 180))
	}
	if mag != 1 {
		t = t.Compose(geometry.Scaling(mag))
	}
	return t
}
