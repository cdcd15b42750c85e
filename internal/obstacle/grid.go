package obstacle

import (
	"fmt"
	"math"

	"mea-router/pkg/geometry"
)

// Connectivity selects the neighbor model of a uniform grid.
type Connectivity int

const (
	Connect4 Connectivity = iota // orthogonal moves only
	Connect8                     // orthogonal and diagonal moves
)

func (c Connectivity) String() string {
	switch c {
	case Connect4:
		return "4-connected"
	case Connect8:
		return "8-connected"
	default:
		return "unknown"
	}
}

// Move is one admissible neighbor transition on the grid.
type Move struct {
	DX, DY int
	Cost   float64 // unit cost, multiplied by the grid step
	Dir    int     // direction index, stable across calls
}

// All 8 neighbor offsets with unit costs. Direction indices are fixed so
// search results are reproducible.
var moves8 = [8]Move{
	{DX: -1, DY: -1, Cost: math.Sqrt2, Dir: 0},
	{DX: 0, DY: -1, Cost: 1, Dir: 1},
	{DX: 1, DY: -1, Cost: math.Sqrt2, Dir: 2},
	{DX: -1, DY: 0, Cost: 1, Dir: 3},
	{DX: 1, DY: 0, Cost: 1, Dir: 4},
	{DX: -1, DY: 1, Cost: math.Sqrt2, Dir: 5},
	{DX: 0, DY: 1, Cost: 1, Dir: 6},
	{DX: 1, DY: 1, Cost: math.Sqrt2, Dir: 7},
}

var moves4 = [4]Move{moves8[1], moves8[3], moves8[4], moves8[6]}

// Grid is a discretized traversal space. A cell is traversable iff its
// center keeps every obstacle's clearance. Built once per routing batch
// and rebuilt after every committed path.
type Grid struct {
	Origin geometry.Point2D // center of cell (0, 0)
	Step   float64
	Cols   int
	Rows   int
	Conn   Connectivity

	obstacles Set
	blocked   []bool
	distSteps []int32 // steps to the nearest blocked cell
}

// BuildGrid rasterizes the obstacle set onto a uniform grid covering
// bounds with the given step size.
func BuildGrid(obstacles Set, bounds geometry.Rect, step float64, conn Connectivity) (*Grid, error) {
	if step <= 0 {
		return nil, fmt.Errorf("grid step must be positive, got %g", step)
	}
	cols := int(math.Ceil(bounds.Width/step)) + 1
	rows := int(math.Ceil(bounds.Height/step)) + 1
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("bounds %gx%g too small for step %g", bounds.Width, bounds.Height, step)
	}

	g := &Grid{
		Origin:    geometry.Point2D{X: bounds.X, Y: bounds.Y},
		Step:      step,
		Cols:      cols,
		Rows:      rows,
		Conn:      conn,
		obstacles: obstacles,
		blocked:   make([]bool, cols*rows),
	}

	// Rasterize each obstacle over the cells its expanded bounds cover
	for i := range obstacles {
		ob := &obstacles[i]
		b := ob.Bounds()
		c0, r0 := g.cellFloor(b.X, b.Y)
		c1, r1 := g.cellCeil(b.X+b.Width, b.Y+b.Height)
		for r := r0; r <= r1; r++ {
			if r < 0 || r >= rows {
				continue
			}
			for c := c0; c <= c1; c++ {
				if c < 0 || c >= cols {
					continue
				}
				idx := r*cols + c
				if g.blocked[idx] {
					continue
				}
				if ob.BlocksPoint(g.CellCenter(idx)) {
					g.blocked[idx] = true
				}
			}
		}
	}

	g.computeDistanceField()
	return g, nil
}

// computeDistanceField runs a multi-source BFS from all blocked cells,
// producing per-cell distance in steps to the nearest obstacle. Feeds
// the clearance-proximity cost penalty.
func (g *Grid) computeDistanceField() {
	n := g.Cols * g.Rows
	g.distSteps = make([]int32, n)
	const far = int32(1 << 30)

	queue := make([]int, 0, n/4)
	for i := 0; i < n; i++ {
		if g.blocked[i] {
			g.distSteps[i] = 0
			queue = append(queue, i)
		} else {
			g.distSteps[i] = far
		}
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		c, r := idx%g.Cols, idx/g.Cols
		d := g.distSteps[idx]
		for _, m := range moves4 {
			nc, nr := c+m.DX, r+m.DY
			if nc < 0 || nc >= g.Cols || nr < 0 || nr >= g.Rows {
				continue
			}
			nidx := nr*g.Cols + nc
			if g.distSteps[nidx] > d+1 {
				g.distSteps[nidx] = d + 1
				queue = append(queue, nidx)
			}
		}
	}
}

// Moves returns the admissible neighbor transitions for this grid's
// connectivity.
func (g *Grid) Moves() []Move {
	if g.Conn == Connect4 {
		return moves4[:]
	}
	return moves8[:]
}

// NumCells returns the total cell count.
func (g *Grid) NumCells() int {
	return g.Cols * g.Rows
}

// Index converts column/row coordinates to a cell index.
func (g *Grid) Index(col, row int) int {
	return row*g.Cols + col
}

// Coords converts a cell index to column/row coordinates.
func (g *Grid) Coords(idx int) (col, row int) {
	return idx % g.Cols, idx / g.Cols
}

// InBounds reports whether the column/row pair lies on the grid.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
}

// CellCenter returns the world position of a cell's center.
func (g *Grid) CellCenter(idx int) geometry.Point2D {
	col, row := g.Coords(idx)
	return geometry.Point2D{
		X: g.Origin.X + float64(col)*g.Step,
		Y: g.Origin.Y + float64(row)*g.Step,
	}
}

// CellAt returns the index of the cell nearest to p, or false if p is
// outside the grid.
func (g *Grid) CellAt(p geometry.Point2D) (int, bool) {
	col := int(math.Round((p.X - g.Origin.X) / g.Step))
	row := int(math.Round((p.Y - g.Origin.Y) / g.Step))
	if !g.InBounds(col, row) {
		return 0, false
	}
	return g.Index(col, row), true
}

// Free reports whether the cell is traversable.
func (g *Grid) Free(idx int) bool {
	return !g.blocked[idx]
}

// ClearanceSteps returns the distance-field value for a cell: the number
// of grid steps to the nearest blocked cell (0 for blocked cells).
func (g *Grid) ClearanceSteps(idx int) int32 {
	return g.distSteps[idx]
}

// CanStep reports whether a move between two free cells is admissible.
// Diagonal moves additionally require both adjacent orthogonal cells to
// be free, so paths never cut obstacle corners.
func (g *Grid) CanStep(fromCol, fromRow int, m Move) bool {
	toCol, toRow := fromCol+m.DX, fromRow+m.DY
	if !g.InBounds(toCol, toRow) {
		return false
	}
	if g.blocked[g.Index(toCol, toRow)] {
		return false
	}
	if m.DX != 0 && m.DY != 0 {
		if g.blocked[g.Index(fromCol+m.DX, fromRow)] || g.blocked[g.Index(fromCol, fromRow+m.DY)] {
			return false
		}
	}
	return true
}

// cellFloor returns the cell coordinates at or below the world position.
func (g *Grid) cellFloor(x, y float64) (int, int) {
	return int(math.Floor((x - g.Origin.X) / g.Step)), int(math.Floor((y - g.Origin.Y) / g.Step))
}

// cellCeil returns the cell coordinates at or above the world position.
func (g *Grid) cellCeil(x, y float64) (int, int) {
	return int(math.Ceil((x - g.Origin.X) / g.Step)), int(math.Ceil((y - g.Origin.Y) / g.Step))
}
