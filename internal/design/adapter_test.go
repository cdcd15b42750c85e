package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mea-router/pkg/geometry"
)

func snapshotOf(t *testing.T, d *Design) *Snapshot {
	t.Helper()
	snap, err := d.Snapshot()
	require.NoError(t, err)
	return snap
}

func TestObstaclesFromSnapshot(t *testing.T) {
	t.Parallel()
	rules := ClearanceRules{Default: 1, PerLayer: map[string]float64{"Fine": 0.2}, Epsilon: 1e-9}

	t.Run("applies per-layer clearance", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		d.DefineLayer(Layer{Name: "Fine", Number: 2})
		_, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 2, 2)
		require.NoError(t, err)
		_, err = d.AddRectangle("TopCell", "Fine", geometry.Point2D{X: 10, Y: 0}, 2, 2)
		require.NoError(t, err)

		set, err := snapshotOf(t, d).Obstacles(rules)
		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.InDelta(t, 1, set[0].Clearance, 1e-12)
		assert.InDelta(t, 0.2, set[1].Clearance, 1e-12)
	})

	t.Run("rejects underdefined polygon", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		_, err := d.AddPolygon("TopCell", "Metal", []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}})
		require.NoError(t, err)

		_, err = snapshotOf(t, d).Obstacles(rules)
		var gerr *GeometryError
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, "Metal", gerr.Layer)
	})

	t.Run("rejects zero-area polygon", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		_, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 0, 5)
		require.NoError(t, err)

		_, err = snapshotOf(t, d).Obstacles(rules)
		var gerr *GeometryError
		require.ErrorAs(t, err, &gerr)
		assert.Contains(t, gerr.Reason, "zero-area")
	})

	t.Run("rejects self-intersecting polygon", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		bowtie := []geometry.Point2D{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}}
		_, err := d.AddPolygon("TopCell", "Metal", bowtie)
		require.NoError(t, err)

		_, err = snapshotOf(t, d).Obstacles(rules)
		var gerr *GeometryError
		require.ErrorAs(t, err, &gerr)
		assert.Contains(t, gerr.Reason, "self-intersecting")
	})
}

func TestCommitTrace(t *testing.T) {
	t.Parallel()

	t.Run("is strictly additive", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		pad, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 2, 2)
		require.NoError(t, err)

		polys, err := d.CommitTrace("TopCell", "Metal", [][]geometry.Point2D{
			{{X: 0, Y: 0}, {X: 10, Y: 0}},
			{{X: 10, Y: 0}, {X: 10, Y: 10}},
		}, 0.5)
		require.NoError(t, err)
		require.Len(t, polys, 2)

		cell, err := d.Cell("TopCell")
		require.NoError(t, err)
		require.Len(t, cell.Polygons, 3)
		assert.Same(t, pad, cell.Polygons[0], "existing geometry untouched")
		for _, p := range polys {
			assert.Len(t, p.Points, 4, "straight traces extrude to quads")
		}
	})

	t.Run("rejects non-positive width", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		_, err := d.CommitTrace("TopCell", "Metal", [][]geometry.Point2D{
			{{X: 0, Y: 0}, {X: 1, Y: 0}},
		}, 0)
		assert.Error(t, err)
	})

	t.Run("rejects degenerate polyline", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		_, err := d.CommitTrace("TopCell", "Metal", [][]geometry.Point2D{
			{{X: 1, Y: 1}, {X: 1, Y: 1}},
		}, 0.5)
		var gerr *GeometryError
		require.ErrorAs(t, err, &gerr)
	})

	t.Run("rejects unknown layer", func(t *testing.T) {
		t.Parallel()
		d := metalDesign(t)
		_, err := d.CommitTrace("TopCell", "Poly", [][]geometry.Point2D{
			{{X: 0, Y: 0}, {X: 1, Y: 0}},
		}, 0.5)
		assert.Error(t, err)
	})
}

func TestRunDRC(t *testing.T) {
	t.Parallel()

	t.Run("minimum feature size", func(t *testing.T) {
		t.Parallel()
		d := New("drc", "TopCell")
		d.DefineLayer(Layer{Name: "Metal", Number: 1, MinFeatureSize: 1})
		_, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 0.5, 5)
		require.NoError(t, err)
		_, err = d.AddRectangle("TopCell", "Metal", geometry.Point2D{X: 20, Y: 0}, 3, 3)
		require.NoError(t, err)

		viols := snapshotOf(t, d).RunDRC()
		require.Len(t, viols, 1)
		assert.Equal(t, "minimum feature size", viols[0].Rule)
		assert.InDelta(t, 0.5, viols[0].Value, 1e-12)
	})

	t.Run("minimum spacing", func(t *testing.T) {
		t.Parallel()
		d := New("drc", "TopCell")
		d.DefineLayer(Layer{Name: "Metal", Number: 1, MinSpacing: 0.5})
		_, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 2, 2)
		require.NoError(t, err)
		_, err = d.AddRectangle("TopCell", "Metal", geometry.Point2D{X: 2.2, Y: 0}, 2, 2)
		require.NoError(t, err)

		viols := snapshotOf(t, d).RunDRC()
		require.Len(t, viols, 1)
		assert.Equal(t, "minimum spacing", viols[0].Rule)
		assert.InDelta(t, 0.2, viols[0].Value, 1e-9)
	})

	t.Run("touching shapes are one feature", func(t *testing.T) {
		t.Parallel()
		d := New("drc", "TopCell")
		d.DefineLayer(Layer{Name: "Metal", Number: 1, MinSpacing: 0.5})
		_, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 2, 2)
		require.NoError(t, err)
		_, err = d.AddRectangle("TopCell", "Metal", geometry.Point2D{X: 1, Y: 0}, 2, 2)
		require.NoError(t, err)

		assert.Empty(t, snapshotOf(t, d).RunDRC())
	})

	t.Run("no rules, no findings", func(t *testing.T) {
		t.Parallel()
		d := New("drc", "TopCell")
		d.DefineLayer(Layer{Name: "Metal", Number: 1})
		_, err := d.AddRectangle("TopCell", "Metal", geometry.Point2D{}, 0.01, 0.01)
		require.NoError(t, err)

		assert.Empty(t, snapshotOf(t, d).RunDRC())
	})
}
