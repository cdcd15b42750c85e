package obstacle

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"mea-router/pkg/geometry"
)

// cornerMarginFactor pushes visibility nodes slightly past the exact
// clearance ring so edges between them don't graze the limit.
const cornerMarginFactor = 1.05

// Visibility is a graph-based traversal space over clearance-offset
// obstacle corners. It scales better than a uniform grid on sparse,
// irregular layouts.
type Visibility struct {
	obstacles Set
	g         *simple.WeightedUndirectedGraph
	points    []geometry.Point2D // node id -> world position
}

// BuildVisibility constructs the visibility graph for an obstacle set.
// The given terminals are added as graph nodes; their ids are returned
// in input order. A terminal inside blocked space still gets a node,
// it just ends up with no edges.
func BuildVisibility(obstacles Set, terminals []geometry.Point2D) (*Visibility, []int64) {
	v := &Visibility{
		obstacles: obstacles,
		g:         simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
	}

	addNode := func(p geometry.Point2D) int64 {
		id := int64(len(v.points))
		v.points = append(v.points, p)
		v.g.AddNode(simple.Node(id))
		return id
	}

	// Offset corners of every obstacle become candidate waypoints
	for i := range obstacles {
		ob := &obstacles[i]
		corners := geometry.OffsetVertices(ob.Polygon, ob.Clearance*cornerMarginFactor)
		for _, c := range corners {
			if obstacles.Blocked(c) {
				continue
			}
			addNode(c)
		}
	}

	termIDs := make([]int64, len(terminals))
	for i, t := range terminals {
		termIDs[i] = addNode(t)
	}

	// Connect every mutually visible node pair
	n := len(v.points)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := v.points[i], v.points[j]
			if obstacles.SegmentBlocked(a, b) {
				continue
			}
			w := a.Distance(b)
			if w < 1e-12 {
				continue
			}
			v.g.SetWeightedEdge(v.g.NewWeightedEdge(simple.Node(int64(i)), simple.Node(int64(j)), w))
		}
	}

	return v, termIDs
}

// NumNodes returns the node count of the graph.
func (v *Visibility) NumNodes() int {
	return len(v.points)
}

// Point returns the world position of a graph node.
func (v *Visibility) Point(id int64) geometry.Point2D {
	return v.points[id]
}

// ShortestPath runs A* between two graph nodes using the Euclidean
// heuristic. Returns the waypoint path, its length, the number of
// expanded nodes, and whether a path exists.
func (v *Visibility) ShortestPath(from, to int64) ([]geometry.Point2D, float64, int, bool) {
	if from < 0 || to < 0 || int(from) >= len(v.points) || int(to) >= len(v.points) {
		return nil, 0, 0, false
	}
	heuristic := func(x, y graph.Node) float64 {
		return v.points[x.ID()].Distance(v.points[y.ID()])
	}
	shortest, expanded := path.AStar(simple.Node(from), simple.Node(to), v.g, heuristic)
	nodes, weight := shortest.To(to)
	if math.IsInf(weight, 1) || len(nodes) == 0 {
		return nil, 0, expanded, false
	}
	pts := make([]geometry.Point2D, len(nodes))
	for i, nd := range nodes {
		pts[i] = v.points[nd.ID()]
	}
	return pts, weight, expanded, true
}
