// Package config defines the routing engine configuration: grid
// resolution, clearance rules, cost-model weights, search limits, and
// the traversal-space strategy.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Strategy selects the traversal-space construction.
type Strategy string

const (
	// StrategyGrid uses a uniform grid. Simpler; used for escape
	// routing where the geometry is regular.
	StrategyGrid Strategy = "grid"
	// StrategyGraph uses a visibility graph over obstacle corners.
	// Scales better for sparse, irregular layouts.
	StrategyGraph Strategy = "graph"
)

// Config holds all recognized routing options. Cost-model weight
// defaults are a tuning choice; adjust per process.
type Config struct {
	// GridStep is the grid resolution in design units.
	GridStep float64 `json:"grid_step"`

	// Clearance is the global minimum separation between a trace and
	// any obstacle. LayerClearance overrides it per layer.
	Clearance      float64            `json:"clearance"`
	LayerClearance map[string]float64 `json:"layer_clearance,omitempty"`

	// BendPenalty is added per direction change along a path.
	BendPenalty float64 `json:"bend_penalty"`

	// ClearanceWeight scales the proximity penalty near obstacles.
	ClearanceWeight float64 `json:"clearance_weight"`

	// SearchBudget caps expanded nodes per net.
	SearchBudget int `json:"search_budget"`

	// EscapeRetryLimit bounds alternate side assignments per pin.
	EscapeRetryLimit int `json:"escape_retry_limit"`

	// Strategy picks grid or visibility-graph traversal.
	Strategy Strategy `json:"strategy"`

	// Diagonals enables 8-connected grid moves.
	Diagonals bool `json:"diagonals"`

	// GeometryEpsilon is the degenerate-polygon area threshold.
	GeometryEpsilon float64 `json:"geometry_epsilon"`

	// RegionMargin extends the routing region beyond the obstacle
	// bounds so paths can detour around outer geometry.
	RegionMargin float64 `json:"region_margin"`
}

// Default returns a workable starting configuration.
func Default() Config {
	return Config{
		GridStep:         1,
		Clearance:        1,
		BendPenalty:      0.5,
		ClearanceWeight:  0.5,
		SearchBudget:     200000,
		EscapeRetryLimit: 3,
		Strategy:         StrategyGrid,
		Diagonals:        true,
		GeometryEpsilon:  1e-9,
		RegionMargin:     10,
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.GridStep <= 0 {
		return fmt.Errorf("grid step must be positive")
	}
	if c.Clearance < 0 {
		return fmt.Errorf("clearance must not be negative")
	}
	for layer, cl := range c.LayerClearance {
		if cl < 0 {
			return fmt.Errorf("clearance for layer %q must not be negative", layer)
		}
	}
	if c.BendPenalty < 0 || c.ClearanceWeight < 0 {
		return fmt.Errorf("cost weights must not be negative")
	}
	if c.SearchBudget <= 0 {
		return fmt.Errorf("search budget must be positive")
	}
	if c.EscapeRetryLimit < 0 {
		return fmt.Errorf("escape retry limit must not be negative")
	}
	if c.Strategy != StrategyGrid && c.Strategy != StrategyGraph {
		return fmt.Errorf("unknown traversal strategy %q", c.Strategy)
	}
	if c.GeometryEpsilon < 0 {
		return fmt.Errorf("geometry epsilon must not be negative")
	}
	if c.RegionMargin < 0 {
		return fmt.Errorf("region margin must not be negative")
	}
	return nil
}

// ClearanceFor returns the clearance for a layer, falling back to the
// global default.
func (c *Config) ClearanceFor(layer string) float64 {
	if cl, ok := c.LayerClearance[layer]; ok {
		return cl
	}
	return c.Clearance
}

// Load reads a configuration from a JSON file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
