package route

import (
	"container/heap"

	"mea-router/internal/obstacle"
	"mea-router/pkg/geometry"
)

// dirNone marks a search state with no incoming direction (start states
// and trunk seeds). The first step out of such a state costs no bend.
const dirNone = -1

// numDirs is the number of direction slots in a state key (8 moves plus
// dirNone).
const numDirs = 9

// FindPath runs the A* search for one net on the grid: source to every
// destination, honoring ordered waypoints first. Completed sub-paths
// become zero-cost trunk for later sub-paths of the same net, which
// biases multi-destination nets toward trunk/branch topology. The free
// trunk makes the heuristic slightly pessimistic for branch legs, so a
// branch may come out marginally longer than optimal.
//
// Returns the path, the total number of expanded nodes, and an error of
// type *NoPathError on failure. Failure at any segment fails the whole
// net.
func FindPath(g *obstacle.Grid, cm CostModel, source geometry.Point2D, dests, waypoints []geometry.Point2D, budget int) (*Path, int, error) {
	return findPath(g, cm, source, dests, waypoints, budget, false)
}

// FindPathToAny routes from source to the nearest reachable candidate
// destination. Used by escape routing, where any free point on the
// target boundary is an acceptable exit.
func FindPathToAny(g *obstacle.Grid, cm CostModel, source geometry.Point2D, candidates, waypoints []geometry.Point2D, budget int) (*Path, int, error) {
	return findPath(g, cm, source, candidates, waypoints, budget, true)
}

func findPath(g *obstacle.Grid, cm CostModel, source geometry.Point2D, dests, waypoints []geometry.Point2D, budget int, anyOf bool) (*Path, int, error) {
	srcIdx, ok := g.CellAt(source)
	if !ok || !g.Free(srcIdx) {
		return nil, 0, &NoPathError{Reason: ReasonUnreachable}
	}
	var destIdxs []int
	for _, d := range dests {
		idx, ok := g.CellAt(d)
		if !ok || !g.Free(idx) {
			if anyOf {
				continue // other candidates may still be reachable
			}
			return nil, 0, &NoPathError{Reason: ReasonUnreachable}
		}
		destIdxs = append(destIdxs, idx)
	}
	if len(destIdxs) == 0 {
		return nil, 0, &NoPathError{Reason: ReasonUnreachable}
	}
	wpIdxs := make([]int, len(waypoints))
	for i, w := range waypoints {
		idx, ok := g.CellAt(w)
		if !ok || !g.Free(idx) {
			return nil, 0, &NoPathError{Reason: ReasonUnreachable}
		}
		wpIdxs[i] = idx
	}

	path := &Path{}
	free := make(map[int]bool)
	var trunk []int // trunk cells in discovery order, for deterministic seeding
	expanded := 0

	claim := func(nodes []int) {
		for _, n := range nodes {
			if !free[n] {
				free[n] = true
				trunk = append(trunk, n)
			}
		}
	}

	// Waypoint legs are strictly sequential
	cur := srcIdx
	for _, wp := range wpIdxs {
		leg, cost, exp, _, perr := searchLeg(g, cm, []int{cur}, free, []int{wp}, budget-expanded)
		expanded += exp
		if perr != nil {
			return nil, expanded, perr
		}
		path.appendLeg(g, leg, cost)
		claim(leg)
		cur = wp
	}

	// Any-of nets want a single exit: one search against every
	// candidate, and the first one reached completes the net.
	if anyOf {
		starts := make([]int, 0, len(trunk)+1)
		starts = append(starts, cur)
		for _, t := range trunk {
			if t != cur {
				starts = append(starts, t)
			}
		}
		leg, cost, exp, _, perr := searchLeg(g, cm, starts, free, destIdxs, budget-expanded)
		expanded += exp
		if perr != nil {
			return nil, expanded, perr
		}
		path.appendLeg(g, leg, cost)
		return path, expanded, nil
	}

	// Destination legs: nearest unreached destination first
	reached := make([]bool, len(destIdxs))
	for range destIdxs {
		starts := make([]int, 0, len(trunk)+1)
		starts = append(starts, cur)
		for _, t := range trunk {
			if t != cur {
				starts = append(starts, t)
			}
		}
		var unreached []int
		var unreachedPos []int
		for i, d := range destIdxs {
			if !reached[i] {
				unreached = append(unreached, d)
				unreachedPos = append(unreachedPos, i)
			}
		}
		leg, cost, exp, hit, perr := searchLeg(g, cm, starts, free, unreached, budget-expanded)
		expanded += exp
		if perr != nil {
			return nil, expanded, perr
		}
		reached[unreachedPos[hit]] = true
		path.appendLeg(g, leg, cost)
		claim(leg)
	}

	return path, expanded, nil
}

// searchLeg runs one A* search from the start set to the nearest of the
// destination cells. Returns the cell path, its cost, the expanded-node
// count, and the index (into dests) of the destination reached.
func searchLeg(g *obstacle.Grid, cm CostModel, starts []int, free map[int]bool, dests []int, budget int) ([]int, float64, int, int, *NoPathError) {
	destPos := make(map[int]int, len(dests))
	for i, d := range dests {
		if _, dup := destPos[d]; !dup {
			destPos[d] = i
		}
	}
	noneReached := make([]bool, len(dests))

	gScore := make(map[int]float64)
	cameFrom := make(map[int]int)
	visited := make(map[int]bool)

	pq := &searchQueue{}
	heap.Init(pq)
	seq := 0
	for _, s := range starts {
		key := stateKey(s, dirNone)
		if _, ok := gScore[key]; ok {
			continue
		}
		gScore[key] = 0
		h := heuristic(g, s, dests, noneReached)
		heap.Push(pq, &searchItem{idx: s, dir: dirNone, g: 0, h: h, f: h, seq: seq})
		seq++
	}

	expanded := 0
	moves := g.Moves()

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*searchItem)
		key := stateKey(item.idx, item.dir)
		if visited[key] {
			continue
		}
		visited[key] = true

		if expanded >= budget {
			return nil, 0, expanded, 0, &NoPathError{Reason: ReasonBudgetExceeded}
		}
		expanded++

		if pos, ok := destPos[item.idx]; ok {
			return reconstruct(cameFrom, key), item.g, expanded, pos, nil
		}

		col, row := g.Coords(item.idx)
		for _, m := range moves {
			if !g.CanStep(col, row, m) {
				continue
			}
			toIdx := g.Index(col+m.DX, row+m.DY)
			toKey := stateKey(toIdx, m.Dir)
			if visited[toKey] {
				continue
			}
			tentative := item.g + cm.stepCost(g, m, toIdx, item.dir, free)
			if prev, ok := gScore[toKey]; ok && tentative >= prev {
				continue
			}
			gScore[toKey] = tentative
			cameFrom[toKey] = key
			h := heuristic(g, toIdx, dests, noneReached)
			heap.Push(pq, &searchItem{
				idx: toIdx, dir: m.Dir,
				g: tentative, h: h, f: tentative + h,
				seq: seq,
			})
			seq++
		}
	}

	// Open set drained before the budget: provably disconnected
	return nil, 0, expanded, 0, &NoPathError{Reason: ReasonUnreachable}
}

// stateKey packs a cell index and incoming direction into one map key.
// The direction is part of search state so the bend penalty stays
// consistent.
func stateKey(idx, dir int) int {
	return idx*numDirs + dir + 1
}

// reconstruct walks parent pointers back to a start state and returns
// the cell path in forward order.
func reconstruct(cameFrom map[int]int, key int) []int {
	var cells []int
	for {
		cells = append(cells, key/numDirs)
		prev, ok := cameFrom[key]
		if !ok {
			break
		}
		key = prev
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}

// searchItem is a node in the A* priority queue.
type searchItem struct {
	idx   int
	dir   int
	g     float64
	h     float64
	f     float64
	seq   int
	index int
}

// searchQueue implements heap.Interface. Ties on f prefer the lower
// heuristic (closer to goal), then earlier discovery, so identical
// inputs always produce identical paths.
type searchQueue []*searchItem

func (pq searchQueue) Len() int { return len(pq) }

func (pq searchQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	return pq[i].seq < pq[j].seq
}

func (pq searchQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *searchQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*searchItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *searchQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
