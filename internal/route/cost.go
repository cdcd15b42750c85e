// Package route implements the routing core: an A* pathfinder over the
// obstacle grid with a routing-specific cost model, net definitions,
// and the batch manager that sequences nets and validates results.
package route

import (
	"math"

	"mea-router/internal/obstacle"
)

// CostModel weights the routing-specific cost terms on top of the base
// step distance. Weight defaults are a tuning choice and live in the
// engine configuration, not here.
type CostModel struct {
	// BendPenalty is added whenever a step changes direction, biasing
	// toward low-bend, manufacturable traces.
	BendPenalty float64

	// ClearanceWeight scales the proximity penalty weight/(1+d) where d
	// is the distance in grid steps to the nearest obstacle. Pushes
	// paths away from tight squeezes even when technically traversable.
	ClearanceWeight float64
}

// stepCost computes the cost of moving onto cell toIdx via move m.
// Trunk cells of the same net traverse for free.
func (cm CostModel) stepCost(g *obstacle.Grid, m obstacle.Move, toIdx int, prevDir int, free map[int]bool) float64 {
	var cost float64
	if !free[toIdx] {
		cost = m.Cost * g.Step
	}
	if prevDir != dirNone && prevDir != m.Dir {
		cost += cm.BendPenalty
	}
	if cm.ClearanceWeight > 0 {
		cost += cm.ClearanceWeight / (1 + float64(g.ClearanceSteps(toIdx)))
	}
	return cost
}

// heuristic returns an admissible estimate of the remaining distance to
// the nearest of the unreached destination cells, matching the grid's
// connectivity metric.
func heuristic(g *obstacle.Grid, idx int, dests []int, reached []bool) float64 {
	col, row := g.Coords(idx)
	best := math.Inf(1)
	for i, d := range dests {
		if reached[i] {
			continue
		}
		dc, dr := g.Coords(d)
		dx := math.Abs(float64(dc - col))
		dy := math.Abs(float64(dr - row))
		var h float64
		if g.Conn == obstacle.Connect8 {
			// Octile distance
			lo := math.Min(dx, dy)
			h = (dx + dy + (math.Sqrt2-2)*lo) * g.Step
		} else {
			h = (dx + dy) * g.Step
		}
		if h < best {
			best = h
		}
	}
	return best
}
