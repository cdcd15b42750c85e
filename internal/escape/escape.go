// Package escape routes every pin of a regular pad array outward to a
// boundary without crossings. Outer rings route before interior pins so
// interior paths thread around already-committed traces; each pin runs
// a small bounded state machine over alternate side assignments.
package escape

import (
	"fmt"
	"math"
	"sort"

	"mea-router/internal/route"
	"mea-router/pkg/geometry"
)

// Side is an escape direction off the array, matching port
// orientations of 0, 90, 180 and 270 degrees.
type Side int

const (
	SideRight Side = iota
	SideTop
	SideLeft
	SideBottom
)

func (s Side) String() string {
	switch s {
	case SideRight:
		return "right"
	case SideTop:
		return "top"
	case SideLeft:
		return "left"
	case SideBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// PinState tracks a pin through the escape attempt state machine:
// Unassigned -> Attempting(side) -> Escaped | Failed.
type PinState int

const (
	StateUnassigned PinState = iota
	StateAttempting
	StateEscaped
	StateFailed
)

func (s PinState) String() string {
	switch s {
	case StateUnassigned:
		return "unassigned"
	case StateAttempting:
		return "attempting"
	case StateEscaped:
		return "escaped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PinEscapeError reports a pin that exhausted its side assignments.
// The group continues without it.
type PinEscapeError struct {
	Pin      string
	Attempts int
	LastErr  error
}

func (e *PinEscapeError) Error() string {
	return fmt.Sprintf("pin %q failed to escape after %d attempts: %v", e.Pin, e.Attempts, e.LastErr)
}

func (e *PinEscapeError) Unwrap() error {
	return e.LastErr
}

// Pin is one terminal of the escape group.
type Pin struct {
	Name     string
	Position geometry.Point2D
	Row, Col int

	State        PinState
	AssignedSide Side
	Attempts     int
}

// Ring returns the pin's ring index: 0 for the outermost ring.
func (p *Pin) Ring(rows, cols int) int {
	r := p.Row
	if v := rows - 1 - p.Row; v < r {
		r = v
	}
	if v := p.Col; v < r {
		r = v
	}
	if v := cols - 1 - p.Col; v < r {
		r = v
	}
	return r
}

// Group is a set of nets whose terminals form a regular rectangular
// array and which must be routed together.
type Group struct {
	Name       string
	Layer      string
	TraceWidth float64

	Rows, Cols     int
	PitchX, PitchY float64
	Center         geometry.Point2D
	EscapeExtent   float64 // how far past the array bounds a pin must reach
	Pins           []*Pin
}

// NewGroup lays out the pin grid centered on center, one pin per array
// position.
func NewGroup(name, layer string, rows, cols int, pitchX, pitchY float64, center geometry.Point2D, traceWidth, escapeExtent float64) (*Group, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("escape group needs at least a 1x1 array, got %dx%d", rows, cols)
	}
	if pitchX <= 0 || pitchY <= 0 {
		return nil, fmt.Errorf("array pitch must be positive")
	}
	g := &Group{
		Name:         name,
		Layer:        layer,
		TraceWidth:   traceWidth,
		Rows:         rows,
		Cols:         cols,
		PitchX:       pitchX,
		PitchY:       pitchY,
		Center:       center,
		EscapeExtent: escapeExtent,
	}
	startX := center.X - pitchX*float64(cols-1)/2
	startY := center.Y - pitchY*float64(rows-1)/2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Pins = append(g.Pins, &Pin{
				Name: fmt.Sprintf("%s-r%d-c%d", name, r, c),
				Position: geometry.Point2D{
					X: startX + float64(c)*pitchX,
					Y: startY + float64(r)*pitchY,
				},
				Row: r,
				Col: c,
			})
		}
	}
	return g, nil
}

// Bounds returns the bounding box of the pin positions.
func (g *Group) Bounds() geometry.Rect {
	pts := make([]geometry.Point2D, len(g.Pins))
	for i, p := range g.Pins {
		pts[i] = p.Position
	}
	return geometry.BoundingBox(pts)
}

// routingOrder returns pins sorted outer rings first, then by row and
// column for determinism. Interior pins route last so everything they
// must avoid is already committed.
func (g *Group) routingOrder() []*Pin {
	order := make([]*Pin, len(g.Pins))
	copy(order, g.Pins)
	sort.SliceStable(order, func(i, j int) bool {
		ri := order[i].Ring(g.Rows, g.Cols)
		rj := order[j].Ring(g.Rows, g.Cols)
		if ri != rj {
			return ri < rj
		}
		if order[i].Row != order[j].Row {
			return order[i].Row < order[j].Row
		}
		return order[i].Col < order[j].Col
	})
	return order
}

// sidesByDistance orders the four sides by the pin's Manhattan distance
// to each boundary, nearest first. Edge and corner pins therefore
// default to their adjacent side.
func (g *Group) sidesByDistance(p *Pin) []Side {
	b := g.Bounds()
	dist := map[Side]float64{
		SideRight:  b.X + b.Width - p.Position.X,
		SideTop:    b.Y + b.Height - p.Position.Y,
		SideLeft:   p.Position.X - b.X,
		SideBottom: p.Position.Y - b.Y,
	}
	sides := []Side{SideRight, SideTop, SideLeft, SideBottom}
	sort.SliceStable(sides, func(i, j int) bool {
		return dist[sides[i]] < dist[sides[j]]
	})
	return sides
}

// escapeTargets returns candidate exit points for a pin leaving on the
// given side: the straight-out point first, then the rest of the
// boundary line at half-pitch spacing. Reaching any of them escapes the
// pin, so a pin blocked straight ahead can exit anywhere along its
// side.
func (g *Group) escapeTargets(p *Pin, side Side) []geometry.Point2D {
	b := g.Bounds()
	spacing := math.Min(g.PitchX, g.PitchY) / 2
	var pts []geometry.Point2D
	switch side {
	case SideRight, SideLeft:
		x := b.X + b.Width + g.EscapeExtent
		if side == SideLeft {
			x = b.X - g.EscapeExtent
		}
		pts = append(pts, geometry.Point2D{X: x, Y: p.Position.Y})
		for y := b.Y - g.EscapeExtent; y <= b.Y+b.Height+g.EscapeExtent; y += spacing {
			pts = append(pts, geometry.Point2D{X: x, Y: y})
		}
	default:
		y := b.Y + b.Height + g.EscapeExtent
		if side == SideBottom {
			y = b.Y - g.EscapeExtent
		}
		pts = append(pts, geometry.Point2D{X: p.Position.X, Y: y})
		for x := b.X - g.EscapeExtent; x <= b.X+b.Width+g.EscapeExtent; x += spacing {
			pts = append(pts, geometry.Point2D{X: x, Y: y})
		}
	}
	return pts
}

// Router escapes groups through a batch manager, committing each pin's
// path before the next pin routes.
type Router struct {
	mgr *route.Manager
}

// NewRouter wraps a batch manager.
func NewRouter(mgr *route.Manager) *Router {
	return &Router{mgr: mgr}
}

// EscapeGroup routes every pin of the group. Results are returned in
// processing (commit) order, one per pin; a failed pin carries a
// *PinEscapeError and contributes no geometry. The escape of one pin
// never aborts the rest of the group.
func (r *Router) EscapeGroup(g *Group) []*route.Result {
	cfg := r.mgr.Config()
	maxAttempts := cfg.EscapeRetryLimit + 1
	if maxAttempts > 4 {
		maxAttempts = 4
	}

	var results []*route.Result
	var routedNets []*route.Net

	for _, pin := range g.routingOrder() {
		sides := g.sidesByDistance(pin)
		var lastErr error
		escaped := false

		for attempt := 0; attempt < maxAttempts; attempt++ {
			pin.State = StateAttempting
			pin.AssignedSide = sides[attempt]
			pin.Attempts = attempt + 1

			net := &route.Net{
				Name:           pin.Name,
				Layer:          g.Layer,
				Source:         pin.Position,
				Destinations:   g.escapeTargets(pin, sides[attempt]),
				TraceWidth:     g.TraceWidth,
				AnyDestination: true,
			}
			res := r.mgr.RouteNet(net)
			if res.OK() {
				if err := r.mgr.Commit(net, res); err != nil {
					lastErr = err
					continue
				}
				pin.State = StateEscaped
				results = append(results, res)
				routedNets = append(routedNets, net)
				escaped = true
				break
			}
			lastErr = res.Err
		}

		if !escaped {
			pin.State = StateFailed
			results = append(results, &route.Result{
				Net: pin.Name,
				Err: &PinEscapeError{Pin: pin.Name, Attempts: pin.Attempts, LastErr: lastErr},
			})
		}
	}

	r.mgr.Validate(routedNets, results)
	return results
}

// RouteBatch routes escape groups first, then the remaining nets in
// priority order, all against one shared manager.
func RouteBatch(mgr *route.Manager, groups []*Group, nets []*route.Net) []*route.Result {
	router := NewRouter(mgr)
	var results []*route.Result
	for _, g := range groups {
		results = append(results, router.EscapeGroup(g)...)
	}
	if len(nets) > 0 {
		results = append(results, mgr.RouteAll(nets)...)
	}
	return results
}

// FailureRate returns the fraction of pins that did not escape.
func FailureRate(g *Group) float64 {
	if len(g.Pins) == 0 {
		return 0
	}
	failed := 0
	for _, p := range g.Pins {
		if p.State == StateFailed {
			failed++
		}
	}
	return float64(failed) / float64(len(g.Pins))
}
