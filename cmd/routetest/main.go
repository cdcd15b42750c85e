// Command routetest routes a few demo nets between pads around a
// blocking obstacle and prints the outcome of each. With -job it
// routes the nets and escape groups of a .routejob file instead.
package main

import (
	"flag"
	"fmt"
	"os"

	"mea-router/internal/config"
	"mea-router/internal/design"
	"mea-router/internal/escape"
	"mea-router/internal/project"
	"mea-router/internal/route"
	"mea-router/internal/version"
	"mea-router/pkg/geometry"
)

func main() {
	strategy := flag.String("strategy", "grid", "Traversal strategy: grid or graph")
	step := flag.Float64("step", 1, "Grid step size")
	clearance := flag.Float64("clearance", 1, "Clearance margin")
	budget := flag.Int("budget", 200000, "Search budget (max expanded nodes)")
	jobPath := flag.String("job", "", "Route a .routejob file instead of the built-in demo")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *jobPath != "" {
		if err := runJob(*jobPath); err != nil {
			fmt.Fprintf(os.Stderr, "Job failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Default()
	cfg.Strategy = config.Strategy(*strategy)
	cfg.GridStep = *step
	cfg.Clearance = *clearance
	cfg.SearchBudget = *budget
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		os.Exit(1)
	}

	// A blocking bar between pads on the left and right
	d := design.New("route-test", "TopCell")
	d.DefineLayer(design.Layer{Name: "Metal", Number: 1})
	mustAdd := func(p *design.Polygon, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build design: %v\n", err)
			os.Exit(1)
		}
	}
	mustAdd(d.AddRectangle("TopCell", "Metal", geometry.Point2D{X: 0, Y: 0}, 4, 60))
	mustAdd(d.AddCircleAsPolygon("TopCell", "Metal", geometry.Point2D{X: -20, Y: 0}, 2, 32))
	mustAdd(d.AddCircleAsPolygon("TopCell", "Metal", geometry.Point2D{X: 20, Y: 0}, 2, 32))
	mustAdd(d.AddCircleAsPolygon("TopCell", "Metal", geometry.Point2D{X: 20, Y: 20}, 2, 32))
	mustAdd(d.AddCircleAsPolygon("TopCell", "Metal", geometry.Point2D{X: 20, Y: -20}, 2, 32))

	mgr, err := route.NewManager(d, "TopCell", geometry.Rect{}, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start batch: %v\n", err)
		os.Exit(1)
	}

	nets := []*route.Net{
		{
			Name:         "around-the-bar",
			Layer:        "Metal",
			Source:       geometry.Point2D{X: -20, Y: 0},
			Destinations: []geometry.Point2D{{X: 20, Y: 0}},
			TraceWidth:   0.8,
			Priority:     1,
		},
		{
			Name:   "fanout",
			Layer:  "Metal",
			Source: geometry.Point2D{X: -20, Y: 0},
			Destinations: []geometry.Point2D{
				{X: 20, Y: 20},
				{X: 20, Y: -20},
			},
			TraceWidth: 0.8,
		},
	}

	fmt.Printf("Routing %d nets with %s strategy\n", len(nets), cfg.Strategy)
	report(mgr.RouteAll(nets))
}

// runJob loads a .routejob file and routes its escape groups and nets.
func runJob(path string) error {
	job, err := project.Load(path)
	if err != nil {
		return err
	}

	d := design.New(job.Name, job.Cell)
	layerNum := 1
	seen := map[string]bool{}
	defineLayer := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		d.DefineLayer(design.Layer{Name: name, Number: layerNum})
		layerNum++
	}
	for _, n := range job.Nets {
		defineLayer(n.Layer)
	}
	for _, g := range job.Groups {
		defineLayer(g.Layer)
		if g.PadRadius <= 0 {
			continue
		}
		cellName := g.Name + "-pad"
		d.AddCell(cellName)
		if _, err := d.AddCircleAsPolygon(cellName, g.Layer, geometry.Point2D{}, g.PadRadius, 32); err != nil {
			return fmt.Errorf("group %q pad: %w", g.Name, err)
		}
		if err := d.AddCellArray(job.Cell, cellName, g.Cols, g.Rows, g.PitchX, g.PitchY, g.Center); err != nil {
			return fmt.Errorf("group %q array: %w", g.Name, err)
		}
	}

	mgr, err := route.NewManager(d, job.Cell, job.Region, job.Config)
	if err != nil {
		return err
	}
	groups, err := job.BuildGroups()
	if err != nil {
		return err
	}

	fmt.Printf("Routing job %q: %d groups, %d nets\n", job.Name, len(groups), len(job.Nets))
	report(escape.RouteBatch(mgr, groups, job.BuildNets()))
	return nil
}

func report(results []*route.Result) {
	for _, res := range results {
		if !res.OK() {
			fmt.Printf("  %-16s FAILED: %v\n", res.Net, res.Err)
			continue
		}
		fmt.Printf("  %-16s cost=%8.2f legs=%d expanded=%d\n",
			res.Net, res.Path.Cost, len(res.Path.Legs), res.Expanded)
		for _, w := range res.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}
}
