// Package render rasterizes a design snapshot into an RGBA image for
// visual inspection of routing results.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/vector"

	"mea-router/internal/design"
	"mea-router/pkg/geometry"
)

// Options configures how a snapshot is rendered.
type Options struct {
	Scale  float64 // pixels per design unit
	Margin float64 // design units of padding around the content

	Background color.RGBA
	Obstacle   color.RGBA
	Trace      color.RGBA
}

// DefaultOptions returns rendering defaults: dark background, copper
// pads, bright traces.
func DefaultOptions() Options {
	return Options{
		Scale:      4,
		Margin:     5,
		Background: color.RGBA{18, 18, 24, 255},
		Obstacle:   color.RGBA{184, 115, 51, 255},
		Trace:      color.RGBA{0, 220, 130, 255},
	}
}

// Layout renders every polygon of the snapshot. Polygons whose id is in
// traceIDs are drawn in the trace color, everything else as obstacles.
func Layout(s *design.Snapshot, traceIDs map[string]bool, opts Options) (*image.RGBA, error) {
	if opts.Scale <= 0 {
		return nil, fmt.Errorf("render scale must be positive, got %g", opts.Scale)
	}
	var all []geometry.Point2D
	for _, p := range s.Polygons {
		all = append(all, p.Points...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("snapshot %q has no geometry to render", s.Name)
	}
	bounds := geometry.BoundingBox(all).Expand(opts.Margin)

	w := int(bounds.Width*opts.Scale) + 1
	h := int(bounds.Height*opts.Scale) + 1
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	// Design Y grows upward, image Y grows downward
	toPx := func(p geometry.Point2D) (float32, float32) {
		return float32((p.X - bounds.X) * opts.Scale),
			float32(float64(h) - (p.Y-bounds.Y)*opts.Scale)
	}

	// Obstacles first, traces on top
	for _, p := range s.Polygons {
		if !traceIDs[p.ID] {
			fillPolygon(img, p.Points, toPx, opts.Obstacle)
		}
	}
	for _, p := range s.Polygons {
		if traceIDs[p.ID] {
			fillPolygon(img, p.Points, toPx, opts.Trace)
		}
	}
	return img, nil
}

// fillPolygon rasterizes one filled polygon with the vector rasterizer.
func fillPolygon(img *image.RGBA, pts []geometry.Point2D, toPx func(geometry.Point2D) (float32, float32), col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	r := vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy())
	r.DrawOp = draw.Over
	x0, y0 := toPx(pts[0])
	r.MoveTo(x0, y0)
	for _, p := range pts[1:] {
		x, y := toPx(p)
		r.LineTo(x, y)
	}
	r.ClosePath()
	r.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{})
}

// SavePNG writes the image to a PNG file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
