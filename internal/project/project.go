// Package project provides routing job file handling and persistence.
// A job file bundles everything one batch needs: the target cell, the
// routing region, the engine configuration, and the nets and escape
// groups to route.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mea-router/internal/config"
	"mea-router/internal/escape"
	"mea-router/internal/route"
	"mea-router/pkg/geometry"
)

// NetDef is the serialized form of a routing request.
type NetDef struct {
	Name         string             `json:"name"`
	Layer        string             `json:"layer"`
	Source       geometry.Point2D   `json:"source"`
	Destinations []geometry.Point2D `json:"destinations"`
	Waypoints    []geometry.Point2D `json:"waypoints,omitempty"`
	TraceWidth   float64            `json:"trace_width"`
	Priority     int                `json:"priority,omitempty"`
}

// GroupDef is the serialized form of an escape group: a regular pin
// array plus its routing parameters.
type GroupDef struct {
	Name         string           `json:"name"`
	Layer        string           `json:"layer"`
	Rows         int              `json:"rows"`
	Cols         int              `json:"cols"`
	PitchX       float64          `json:"pitch_x"`
	PitchY       float64          `json:"pitch_y"`
	Center       geometry.Point2D `json:"center"`
	PadRadius    float64          `json:"pad_radius,omitempty"`
	TraceWidth   float64          `json:"trace_width"`
	EscapeExtent float64          `json:"escape_extent"`
}

// File represents a routing job file (.routejob).
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Cell receives the committed trace geometry.
	Cell string `json:"cell"`
	// Region bounds the traversal space; zero means derive it from the
	// design and the net terminals.
	Region geometry.Rect `json:"region,omitempty"`

	Config config.Config `json:"config"`
	Nets   []NetDef      `json:"nets,omitempty"`
	Groups []GroupDef    `json:"groups,omitempty"`
}

// New creates a job file with default settings.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		Cell:     "TopCell",
		Config:   config.Default(),
	}
}

// Load loads a job from a .routejob file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	f := New("")
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	if err := f.Config.Validate(); err != nil {
		return nil, fmt.Errorf("job config: %w", err)
	}
	return f, nil
}

// Save saves the job to a file.
func (f *File) Save(path string) error {
	f.Modified = time.Now()
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize job: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// BuildNets converts the net definitions into routing requests.
func (f *File) BuildNets() []*route.Net {
	nets := make([]*route.Net, 0, len(f.Nets))
	for _, n := range f.Nets {
		nets = append(nets, &route.Net{
			Name:         n.Name,
			Layer:        n.Layer,
			Source:       n.Source,
			Destinations: n.Destinations,
			Waypoints:    n.Waypoints,
			TraceWidth:   n.TraceWidth,
			Priority:     n.Priority,
		})
	}
	return nets
}

// BuildGroups converts the group definitions into escape groups.
func (f *File) BuildGroups() ([]*escape.Group, error) {
	groups := make([]*escape.Group, 0, len(f.Groups))
	for _, g := range f.Groups {
		built, err := escape.NewGroup(g.Name, g.Layer, g.Rows, g.Cols,
			g.PitchX, g.PitchY, g.Center, g.TraceWidth, g.EscapeExtent)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Name, err)
		}
		groups = append(groups, built)
	}
	return groups, nil
}
