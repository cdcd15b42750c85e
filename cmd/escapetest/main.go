// Command escapetest builds a demo electrode array, escape-routes every
// pin to the array perimeter, and optionally renders the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"mea-router/internal/config"
	"mea-router/internal/design"
	"mea-router/internal/escape"
	"mea-router/internal/render"
	"mea-router/internal/route"
	"mea-router/internal/version"
	"mea-router/pkg/geometry"
)

func main() {
	rows := flag.Int("rows", 4, "Array rows")
	cols := flag.Int("cols", 4, "Array columns")
	pitch := flag.Float64("pitch", 10, "Pin pitch in design units")
	padDiam := flag.Float64("pad", 2, "Pad diameter")
	traceWidth := flag.Float64("trace", 0.5, "Trace width")
	clearance := flag.Float64("clearance", 0.5, "Clearance margin")
	step := flag.Float64("step", 0.5, "Grid step size")
	extent := flag.Float64("extent", 8, "Escape extent past the array bounds")
	retries := flag.Int("retries", 3, "Alternate side attempts per pin")
	configPath := flag.String("config", "", "Optional JSON config file (overrides other flags)")
	outPath := flag.String("out", "", "Write a PNG of the routed layout")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg.GridStep = *step
		cfg.Clearance = *clearance
		cfg.EscapeRetryLimit = *retries
	}

	// Build the electrode array: one circular pad cell, arrayed
	center := geometry.Point2D{X: 0, Y: 0}
	d := design.New("escape-test", "TopCell")
	d.DefineLayer(design.Layer{Name: "Metal", Number: 1, MinSpacing: cfg.Clearance})
	d.AddCell("Pad")
	if _, err := d.AddCircleAsPolygon("Pad", "Metal", geometry.Point2D{}, *padDiam/2, 32); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pad cell: %v\n", err)
		os.Exit(1)
	}
	if err := d.AddCellArray("TopCell", "Pad", *cols, *rows, *pitch, *pitch, center); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to place array: %v\n", err)
		os.Exit(1)
	}

	mgr, err := route.NewManager(d, "TopCell", geometry.Rect{}, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start batch: %v\n", err)
		os.Exit(1)
	}
	group, err := escape.NewGroup("pin", "Metal", *rows, *cols, *pitch, *pitch, center, *traceWidth, *extent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build group: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Escape routing %dx%d array, pitch %.2f, clearance %.2f, step %.2f\n",
		*rows, *cols, *pitch, cfg.Clearance, cfg.GridStep)

	results := escape.RouteBatch(mgr, []*escape.Group{group}, nil)

	escaped := 0
	traceIDs := make(map[string]bool)
	for _, res := range results {
		if res.OK() {
			escaped++
			for _, id := range res.TraceIDs {
				traceIDs[id] = true
			}
			fmt.Printf("  %-14s cost=%8.2f expanded=%6d", res.Net, res.Path.Cost, res.Expanded)
			if len(res.Warnings) > 0 {
				fmt.Printf(" warnings=%d", len(res.Warnings))
			}
			fmt.Println()
			continue
		}
		fmt.Printf("  %-14s FAILED: %v\n", res.Net, res.Err)
	}
	fmt.Printf("Escaped %d/%d pins (failure rate %.1f%%)\n",
		escaped, len(results), 100*escape.FailureRate(group))

	snap, err := d.Snapshot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to snapshot routed design: %v\n", err)
		os.Exit(1)
	}
	if viols := snap.RunDRC(); len(viols) > 0 {
		fmt.Printf("DRC found %d violations:\n", len(viols))
		for _, v := range viols {
			fmt.Printf("  %s\n", v)
		}
	}

	if *outPath != "" {
		img, err := render.Layout(snap, traceIDs, render.DefaultOptions())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render: %v\n", err)
			os.Exit(1)
		}
		if err := render.SavePNG(*outPath, img); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write PNG: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *outPath)
	}
}
