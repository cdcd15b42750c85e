package route

import (
	"fmt"
	"sort"

	"mea-router/internal/config"
	"mea-router/internal/design"
	"mea-router/internal/obstacle"
	"mea-router/pkg/geometry"
)

// Net is a single routing request: one source terminal, one or more
// destinations, optional ordered waypoints.
type Net struct {
	Name         string
	Layer        string
	Source       geometry.Point2D
	Destinations []geometry.Point2D
	Waypoints    []geometry.Point2D
	TraceWidth   float64

	// AnyDestination treats Destinations as interchangeable candidates:
	// reaching the nearest one completes the net. Escape routing uses
	// this to accept any free point on the target boundary.
	AnyDestination bool

	// Priority orders nets within a batch; higher routes first. Equal
	// priorities keep submission order.
	Priority int
}

// Terminals returns every terminal point of the net.
func (n *Net) Terminals() []geometry.Point2D {
	out := make([]geometry.Point2D, 0, 1+len(n.Waypoints)+len(n.Destinations))
	out = append(out, n.Source)
	out = append(out, n.Waypoints...)
	out = append(out, n.Destinations...)
	return out
}

// Manager owns a routing batch: the design snapshot taken at batch
// start, the obstacle set derived from it, and every path committed so
// far. Nets route strictly one at a time because each commit becomes an
// obstacle for the nets after it.
type Manager struct {
	cfg      config.Config
	design   *design.Design
	snapshot *design.Snapshot
	cellName string

	base        obstacle.Set
	committed   obstacle.Set
	committedBy []string // net name per committed obstacle

	region geometry.Rect
}

// NewManager snapshots the design and derives the batch obstacle set.
// Committed traces are written into cellName. A zero region is derived
// from the obstacle bounds plus the configured margin.
func NewManager(d *design.Design, cellName string, region geometry.Rect, cfg config.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	snap, err := d.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot design: %w", err)
	}
	base, err := snap.Obstacles(design.ClearanceRules{
		Default:  cfg.Clearance,
		PerLayer: cfg.LayerClearance,
		Epsilon:  cfg.GeometryEpsilon,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:      cfg,
		design:   d,
		snapshot: snap,
		cellName: cellName,
		base:     base,
		region:   region,
	}, nil
}

// Config returns the batch configuration.
func (m *Manager) Config() config.Config {
	return m.cfg
}

// Obstacles returns the current traversal obstacles: the design
// snapshot's geometry plus every path committed so far in this batch.
func (m *Manager) Obstacles() obstacle.Set {
	out := make(obstacle.Set, 0, len(m.base)+len(m.committed))
	out = append(out, m.base...)
	out = append(out, m.committed...)
	return out
}

// obstaclesFor returns the obstacle set a net routes against: the
// design geometry minus polygons containing one of the net's own
// terminals (a pad must not obstruct its own escape), plus every
// committed trace. Committed traces are never excluded, so nets cannot
// cut through earlier paths that happen to end near their terminals.
// Clearances are inflated by half the trace width so the centerline
// keeps the trace edge clear.
func (m *Manager) obstaclesFor(net *Net) obstacle.Set {
	terminals := net.Terminals()
	out := make(obstacle.Set, 0, len(m.base)+len(m.committed))
	for _, ob := range m.base {
		ownPad := false
		for _, t := range terminals {
			if ob.Contains(t) {
				ownPad = true
				break
			}
		}
		if !ownPad {
			out = append(out, ob)
		}
	}
	out = append(out, m.committed...)
	return out.WithExtraClearance(net.TraceWidth / 2)
}

// regionFor returns the routing region for a net: the configured region
// if set, else the obstacle bounds united with the net terminals,
// expanded by the region margin.
func (m *Manager) regionFor(net *Net) geometry.Rect {
	if m.region.Width > 0 && m.region.Height > 0 {
		return m.region
	}
	r := geometry.BoundingBox(net.Terminals())
	if all := m.Obstacles(); len(all) > 0 {
		r = r.Union(all.Bounds())
	}
	return r.Expand(m.cfg.RegionMargin)
}

// RouteNet computes a path for one net against the current obstacle
// state. Does not commit; the caller decides.
func (m *Manager) RouteNet(net *Net) *Result {
	res := &Result{Net: net.Name}
	if len(net.Destinations) == 0 {
		res.Err = fmt.Errorf("net %q has no destinations", net.Name)
		return res
	}

	set := m.obstaclesFor(net)

	if m.cfg.Strategy == config.StrategyGraph {
		m.routeOnGraph(net, set, res)
		return res
	}

	conn := obstacle.Connect4
	if m.cfg.Diagonals {
		conn = obstacle.Connect8
	}
	grid, err := obstacle.BuildGrid(set, m.regionFor(net), m.cfg.GridStep, conn)
	if err != nil {
		res.Err = fmt.Errorf("build grid for net %q: %w", net.Name, err)
		return res
	}

	cm := CostModel{BendPenalty: m.cfg.BendPenalty, ClearanceWeight: m.cfg.ClearanceWeight}
	find := FindPath
	if net.AnyDestination {
		find = FindPathToAny
	}
	path, expanded, ferr := find(grid, cm, net.Source, net.Destinations, net.Waypoints, m.cfg.SearchBudget)
	res.Expanded = expanded
	if ferr != nil {
		if np, ok := ferr.(*NoPathError); ok {
			np.Net = net.Name
		}
		res.Err = ferr
		return res
	}
	res.Path = path
	return res
}

// routeOnGraph routes a net over the visibility-graph traversal space.
// Legs run source through waypoints, then to each destination in
// nearest-first order.
func (m *Manager) routeOnGraph(net *Net, set obstacle.Set, res *Result) {
	terminals := net.Terminals()
	vis, ids := obstacle.BuildVisibility(set, terminals)

	srcID := ids[0]
	wpIDs := ids[1 : 1+len(net.Waypoints)]
	destIDs := ids[1+len(net.Waypoints):]

	path := &Path{}
	cur := srcID
	curPt := net.Source
	appendGraphLeg := func(pts []geometry.Point2D, cost float64) {
		path.Cost += cost
		if len(path.Legs) > 0 {
			last := &path.Legs[len(path.Legs)-1]
			if len(last.Points) > 0 && len(pts) > 0 && last.Points[len(last.Points)-1] == pts[0] {
				last.Points = append(last.Points, pts[1:]...)
				return
			}
		}
		path.Legs = append(path.Legs, Leg{Points: pts})
	}

	for i, wp := range wpIDs {
		pts, cost, exp, ok := vis.ShortestPath(cur, wp)
		res.Expanded += exp
		if !ok {
			res.Err = &NoPathError{Net: net.Name, Reason: ReasonUnreachable}
			return
		}
		appendGraphLeg(pts, cost)
		cur = wp
		curPt = net.Waypoints[i]
	}

	remaining := make([]int64, len(destIDs))
	copy(remaining, destIDs)
	remainingPts := make([]geometry.Point2D, len(net.Destinations))
	copy(remainingPts, net.Destinations)

	if net.AnyDestination {
		// Candidates tried nearest-first; the first reachable one wins.
		order := make([]int, len(remaining))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return curPt.Distance(remainingPts[order[i]]) < curPt.Distance(remainingPts[order[j]])
		})
		for _, i := range order {
			pts, cost, exp, ok := vis.ShortestPath(cur, remaining[i])
			res.Expanded += exp
			if ok {
				appendGraphLeg(pts, cost)
				if res.Expanded > m.cfg.SearchBudget {
					res.Err = &NoPathError{Net: net.Name, Reason: ReasonBudgetExceeded}
					return
				}
				res.Path = path
				return
			}
		}
		res.Err = &NoPathError{Net: net.Name, Reason: ReasonUnreachable}
		return
	}

	for len(remaining) > 0 {
		// Nearest destination by straight-line distance
		best := 0
		for i := 1; i < len(remaining); i++ {
			if curPt.Distance(remainingPts[i]) < curPt.Distance(remainingPts[best]) {
				best = i
			}
		}
		pts, cost, exp, ok := vis.ShortestPath(cur, remaining[best])
		res.Expanded += exp
		if !ok {
			res.Err = &NoPathError{Net: net.Name, Reason: ReasonUnreachable}
			return
		}
		appendGraphLeg(pts, cost)
		cur = remaining[best]
		curPt = remainingPts[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		remainingPts = append(remainingPts[:best], remainingPts[best+1:]...)
	}

	if res.Expanded > m.cfg.SearchBudget {
		res.Err = &NoPathError{Net: net.Name, Reason: ReasonBudgetExceeded}
		res.Path = nil
		return
	}
	res.Path = path
}

// Commit writes a successful result's trace geometry into the design
// and registers it as an obstacle for every net routed after it. The
// traversal space is rebuilt from the updated set on the next route.
func (m *Manager) Commit(net *Net, res *Result) error {
	if !res.OK() {
		return fmt.Errorf("cannot commit failed result for net %q", net.Name)
	}
	polylines := make([][]geometry.Point2D, 0, len(res.Path.Legs))
	for _, leg := range res.Path.Legs {
		polylines = append(polylines, SimplifyCollinear(leg.Points))
	}
	polys, err := m.design.CommitTrace(m.cellName, net.Layer, polylines, net.TraceWidth)
	if err != nil {
		res.Err = &NoPathError{Net: net.Name, Reason: ReasonRuleViolation, Err: err}
		res.Path = nil
		return res.Err
	}
	clearance := m.cfg.ClearanceFor(net.Layer)
	for _, p := range polys {
		res.TraceIDs = append(res.TraceIDs, p.ID)
		m.committed = append(m.committed, obstacle.New(p.Points, clearance, net.Layer))
		m.committedBy = append(m.committedBy, net.Name)
	}
	return nil
}

// RouteAll routes a batch of nets in priority order (stable within
// equal priority), committing each success before the next net routes.
// Failures stay local to their net. Finishes with the post-routing
// clearance validation pass.
func (m *Manager) RouteAll(nets []*Net) []*Result {
	order := make([]*Net, len(nets))
	copy(order, nets)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Priority > order[j].Priority
	})

	results := make([]*Result, 0, len(order))
	for _, net := range order {
		res := m.RouteNet(net)
		if res.OK() {
			// Commit failure is recorded on the result, batch continues
			_ = m.Commit(net, res)
		}
		results = append(results, res)
	}

	m.Validate(order, results)
	return results
}

// Validate re-checks every committed path against the full obstacle
// set, including other nets' final traces. Violations are attached as
// warnings, never rolled back. A half-step tolerance absorbs grid
// discretization.
func (m *Manager) Validate(nets []*Net, results []*Result) {
	byName := make(map[string]*Net, len(nets))
	for _, n := range nets {
		byName[n.Name] = n
	}
	tol := m.cfg.GridStep / 2

	for _, res := range results {
		if !res.OK() {
			continue
		}
		net := byName[res.Net]
		if net == nil {
			continue
		}
		required := m.cfg.ClearanceFor(net.Layer) + net.TraceWidth/2
		terminals := net.Terminals()

		check := func(obs obstacle.Set, names []string) {
			for oi, ob := range obs {
				if names != nil && names[oi] == res.Net {
					continue // the net's own trace
				}
				if names == nil {
					ownPad := false
					for _, t := range terminals {
						if ob.Contains(t) {
							ownPad = true
							break
						}
					}
					if ownPad {
						continue // own pad, excluded during routing too
					}
				}
				segIdx := 0
				for _, leg := range res.Path.Legs {
					pts := SimplifyCollinear(leg.Points)
					for i := 0; i+1 < len(pts); i++ {
						d := geometry.DistanceSegmentPolygon(pts[i], pts[i+1], ob.Polygon)
						if d < required-tol {
							res.Warnings = append(res.Warnings, ClearanceViolation{
								Net:          res.Net,
								SegmentIndex: segIdx,
								Distance:     d,
								Required:     required,
							})
						}
						segIdx++
					}
				}
			}
		}
		check(m.base, nil)
		check(m.committed, m.committedBy)
	}
}
