package route

import (
	"fmt"

	"mea-router/internal/obstacle"
	"mea-router/pkg/geometry"
)

// FailReason classifies why a net could not be routed.
type FailReason int

const (
	ReasonUnreachable    FailReason = iota // goal provably disconnected from source
	ReasonBudgetExceeded                   // expanded-node budget ran out
	ReasonRuleViolation                    // design rule violated at commit time
)

func (r FailReason) String() string {
	switch r {
	case ReasonUnreachable:
		return "unreachable"
	case ReasonBudgetExceeded:
		return "search budget exceeded"
	case ReasonRuleViolation:
		return "design rule violation"
	default:
		return "unknown"
	}
}

// NoPathError is returned when a net cannot be completed, either
// because the search produced no path or because the result was
// rejected at commit time.
type NoPathError struct {
	Net    string
	Reason FailReason
	Err    error // underlying cause for commit-time failures
}

func (e *NoPathError) Error() string {
	msg := fmt.Sprintf("no path found: %s", e.Reason)
	if e.Net != "" {
		msg = fmt.Sprintf("no path found for net %q: %s", e.Net, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NoPathError) Unwrap() error { return e.Err }

// ClearanceViolation is a non-fatal post-commit validation warning: a
// committed segment sits closer to other geometry than the clearance
// rule allows.
type ClearanceViolation struct {
	Net          string  `json:"net"`
	SegmentIndex int     `json:"segment_index"`
	Distance     float64 `json:"distance"`
	Required     float64 `json:"required"`
}

func (v ClearanceViolation) String() string {
	return fmt.Sprintf("net %q segment %d: clearance %.3g < required %.3g",
		v.Net, v.SegmentIndex, v.Distance, v.Required)
}

// Leg is one continuous polyline of a routed net. Consecutive nodes of
// a leg are always adjacent in the traversal space.
type Leg struct {
	Nodes  []int              // grid cell indices, empty for graph routes
	Points []geometry.Point2D // world coordinates, one per node
}

// Path is a routed connection. Single-destination nets produce one leg;
// multi-destination nets produce one leg per branch off the trunk.
type Path struct {
	Legs []Leg
	Cost float64
}

// appendLeg adds a searched cell path to the route, merging with the
// previous leg when they chain end to start (waypoint legs).
func (p *Path) appendLeg(g *obstacle.Grid, nodes []int, cost float64) {
	p.Cost += cost
	points := make([]geometry.Point2D, len(nodes))
	for i, n := range nodes {
		points[i] = g.CellCenter(n)
	}
	if len(p.Legs) > 0 {
		last := &p.Legs[len(p.Legs)-1]
		if len(last.Nodes) > 0 && len(nodes) > 0 && last.Nodes[len(last.Nodes)-1] == nodes[0] {
			last.Nodes = append(last.Nodes, nodes[1:]...)
			last.Points = append(last.Points, points[1:]...)
			return
		}
	}
	p.Legs = append(p.Legs, Leg{Nodes: nodes, Points: points})
}

// Polylines returns the world-coordinate polyline of every leg.
func (p *Path) Polylines() [][]geometry.Point2D {
	out := make([][]geometry.Point2D, len(p.Legs))
	for i := range p.Legs {
		out[i] = p.Legs[i].Points
	}
	return out
}

// Result is the outcome of routing one net. Either Path is set (Err is
// nil) or Err carries the failure; a failed net contributes no geometry.
type Result struct {
	Net      string
	Path     *Path
	Expanded int // nodes expanded during search
	Err      error

	// TraceIDs are the ids of the committed trace polygons, one per
	// leg, set on commit.
	TraceIDs []string
	// Warnings collects post-commit validation findings.
	Warnings []ClearanceViolation
}

// OK reports whether the net routed successfully.
func (r *Result) OK() bool {
	return r.Err == nil && r.Path != nil
}

// SimplifyCollinear reduces a node path to its endpoints and bend
// points, dropping interior nodes of straight runs. Used when turning
// a path into trace geometry.
func SimplifyCollinear(points []geometry.Point2D) []geometry.Point2D {
	if len(points) <= 2 {
		return points
	}
	out := []geometry.Point2D{points[0]}
	for i := 1; i < len(points)-1; i++ {
		prev := out[len(out)-1]
		cur := points[i]
		next := points[i+1]
		cross := (cur.X-prev.X)*(next.Y-prev.Y) - (cur.Y-prev.Y)*(next.X-prev.X)
		if cross > 1e-9 || cross < -1e-9 {
			out = append(out, cur)
		}
	}
	out = append(out, points[len(points)-1])
	return out
}
