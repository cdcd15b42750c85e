package route

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mea-router/internal/obstacle"
	"mea-router/pkg/geometry"
)

func rectPoly(x, y, w, h float64) []geometry.Point2D {
	return []geometry.Point2D{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func emptyGrid(t *testing.T, conn obstacle.Connectivity) *obstacle.Grid {
	t.Helper()
	g, err := obstacle.BuildGrid(nil, geometry.NewRect(0, 0, 10, 10), 1, conn)
	require.NoError(t, err)
	return g
}

func TestFindPathStraight(t *testing.T) {
	t.Parallel()
	g := emptyGrid(t, obstacle.Connect4)
	cm := CostModel{BendPenalty: 0.5}

	path, expanded, err := FindPath(g, cm,
		geometry.Point2D{X: 0, Y: 5},
		[]geometry.Point2D{{X: 10, Y: 5}}, nil, 100000)
	require.NoError(t, err)
	require.Len(t, path.Legs, 1)
	assert.Len(t, path.Legs[0].Points, 11)
	assert.InDelta(t, 10, path.Cost, 1e-9)
	assert.Positive(t, expanded)

	simplified := SimplifyCollinear(path.Legs[0].Points)
	assert.Len(t, simplified, 2, "straight run should simplify to its endpoints")
}

func TestFindPathDetour(t *testing.T) {
	t.Parallel()
	// Vertical bar partway up the region leaves room to go around above
	set := obstacle.Set{obstacle.New(rectPoly(4.6, 0, 0.8, 7), 0.4, "Metal")}
	g, err := obstacle.BuildGrid(set, geometry.NewRect(0, 0, 10, 10), 1, obstacle.Connect4)
	require.NoError(t, err)

	src := geometry.Point2D{X: 0, Y: 2}
	dst := geometry.Point2D{X: 10, Y: 2}
	path, _, err := FindPath(g, CostModel{BendPenalty: 0.5}, src, []geometry.Point2D{dst}, nil, 100000)
	require.NoError(t, err)

	assert.Greater(t, path.Cost, src.ManhattanDistance(dst))
	for _, n := range path.Legs[0].Nodes {
		assert.True(t, g.Free(n))
	}
	// The detour has to clear the top of the bar
	top := 0.0
	for _, p := range path.Legs[0].Points {
		if p.Y > top {
			top = p.Y
		}
	}
	assert.GreaterOrEqual(t, top, 8.0)
}

func TestFindPathUnreachable(t *testing.T) {
	t.Parallel()
	// Bar spans the full region height: no way around
	set := obstacle.Set{obstacle.New(rectPoly(4.6, -20, 0.8, 50), 0.4, "Metal")}
	g, err := obstacle.BuildGrid(set, geometry.NewRect(0, 0, 10, 10), 1, obstacle.Connect4)
	require.NoError(t, err)

	_, _, err = FindPath(g, CostModel{},
		geometry.Point2D{X: 0, Y: 5},
		[]geometry.Point2D{{X: 10, Y: 5}}, nil, 100000)
	var npe *NoPathError
	require.ErrorAs(t, err, &npe)
	assert.Equal(t, ReasonUnreachable, npe.Reason)
}

func TestFindPathBudgetExceeded(t *testing.T) {
	t.Parallel()
	g := emptyGrid(t, obstacle.Connect4)

	_, expanded, err := FindPath(g, CostModel{},
		geometry.Point2D{X: 0, Y: 0},
		[]geometry.Point2D{{X: 10, Y: 10}}, nil, 3)
	var npe *NoPathError
	require.ErrorAs(t, err, &npe)
	assert.Equal(t, ReasonBudgetExceeded, npe.Reason)
	assert.LessOrEqual(t, expanded, 3)
}

func TestFindPathDeterministic(t *testing.T) {
	t.Parallel()
	set := obstacle.Set{obstacle.New(rectPoly(4.6, 2, 0.8, 6), 0.4, "Metal")}
	run := func() *Path {
		g, err := obstacle.BuildGrid(set, geometry.NewRect(0, 0, 10, 10), 1, obstacle.Connect8)
		require.NoError(t, err)
		p, _, err := FindPath(g, CostModel{BendPenalty: 0.3, ClearanceWeight: 0.5},
			geometry.Point2D{X: 0, Y: 5},
			[]geometry.Point2D{{X: 10, Y: 5}, {X: 10, Y: 0}}, nil, 100000)
		require.NoError(t, err)
		return p
	}

	a, b := run(), run()
	assert.Empty(t, cmp.Diff(a, b), "identical inputs must produce identical paths")
}

func TestFindPathBendPenalty(t *testing.T) {
	t.Parallel()
	g := emptyGrid(t, obstacle.Connect4)

	// A steep bend penalty forces a single L-shaped bend
	path, _, err := FindPath(g, CostModel{BendPenalty: 5},
		geometry.Point2D{X: 0, Y: 0},
		[]geometry.Point2D{{X: 5, Y: 5}}, nil, 100000)
	require.NoError(t, err)
	simplified := SimplifyCollinear(path.Legs[0].Points)
	assert.Len(t, simplified, 3, "expected exactly one bend, got path %v", simplified)
	assert.InDelta(t, 15, path.Cost, 1e-9)
}

func TestFindPathWaypoints(t *testing.T) {
	t.Parallel()
	g := emptyGrid(t, obstacle.Connect4)
	wp := geometry.Point2D{X: 5, Y: 5}

	path, _, err := FindPath(g, CostModel{},
		geometry.Point2D{X: 0, Y: 5},
		[]geometry.Point2D{{X: 10, Y: 5}},
		[]geometry.Point2D{wp}, 100000)
	require.NoError(t, err)

	require.Len(t, path.Legs, 1, "chained legs merge into one polyline")
	found := false
	for _, p := range path.Legs[0].Points {
		if p == wp {
			found = true
			break
		}
	}
	assert.True(t, found, "path must pass through the waypoint")
	assert.InDelta(t, 10, path.Cost, 1e-9)
}

func TestFindPathMultiDestinationTrunk(t *testing.T) {
	t.Parallel()
	g := emptyGrid(t, obstacle.Connect4)

	path, _, err := FindPath(g, CostModel{BendPenalty: 0.5},
		geometry.Point2D{X: 0, Y: 5},
		[]geometry.Point2D{{X: 10, Y: 5}, {X: 5, Y: 9}}, nil, 100000)
	require.NoError(t, err)

	// Nearest destination first, then a branch off the trunk
	require.Len(t, path.Legs, 2)
	assert.Equal(t, geometry.Point2D{X: 5, Y: 9}, path.Legs[0].Points[len(path.Legs[0].Points)-1])
	assert.Equal(t, geometry.Point2D{X: 5, Y: 5}, path.Legs[1].Points[0], "branch starts on the trunk")
	assert.Equal(t, geometry.Point2D{X: 10, Y: 5}, path.Legs[1].Points[len(path.Legs[1].Points)-1])
	assert.InDelta(t, 14.5, path.Cost, 1e-9, "trunk cells traverse for free")
}

func TestFindPathToAny(t *testing.T) {
	t.Parallel()
	set := obstacle.Set{obstacle.New(rectPoly(9, 9, 1, 1), 0.4, "Metal")}
	g, err := obstacle.BuildGrid(set, geometry.NewRect(0, 0, 10, 10), 1, obstacle.Connect4)
	require.NoError(t, err)

	t.Run("stops at the nearest candidate", func(t *testing.T) {
		t.Parallel()
		path, _, err := FindPathToAny(g, CostModel{},
			geometry.Point2D{X: 0, Y: 0},
			[]geometry.Point2D{{X: 2, Y: 0}, {X: 0, Y: 9}, {X: 8, Y: 0}}, nil, 100000)
		require.NoError(t, err)
		require.Len(t, path.Legs, 1, "one exit, not one leg per candidate")
		assert.InDelta(t, 2, path.Cost, 1e-9)
		last := path.Legs[0].Points[len(path.Legs[0].Points)-1]
		assert.Equal(t, geometry.Point2D{X: 2, Y: 0}, last)
	})

	t.Run("skips blocked candidates", func(t *testing.T) {
		t.Parallel()
		path, _, err := FindPathToAny(g, CostModel{},
			geometry.Point2D{X: 0, Y: 0},
			[]geometry.Point2D{{X: 9.5, Y: 9.5}, {X: 3, Y: 0}}, nil, 100000)
		require.NoError(t, err)
		require.Len(t, path.Legs, 1)
		last := path.Legs[0].Points[len(path.Legs[0].Points)-1]
		assert.Equal(t, geometry.Point2D{X: 3, Y: 0}, last)
	})

	t.Run("all candidates blocked", func(t *testing.T) {
		t.Parallel()
		_, _, err := FindPathToAny(g, CostModel{},
			geometry.Point2D{X: 0, Y: 0},
			[]geometry.Point2D{{X: 9.5, Y: 9.5}}, nil, 100000)
		var npe *NoPathError
		require.ErrorAs(t, err, &npe)
		assert.Equal(t, ReasonUnreachable, npe.Reason)
	})
}

func TestSimplifyCollinear(t *testing.T) {
	t.Parallel()

	t.Run("keeps bends", func(t *testing.T) {
		t.Parallel()
		pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}}
		want := []geometry.Point2D{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}}
		assert.Equal(t, want, SimplifyCollinear(pts))
	})

	t.Run("short input unchanged", func(t *testing.T) {
		t.Parallel()
		pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}
		assert.Equal(t, pts, SimplifyCollinear(pts))
	})
}

func TestNoPathErrorMessage(t *testing.T) {
	t.Parallel()
	err := error(&NoPathError{Net: "n1", Reason: ReasonBudgetExceeded})
	assert.Contains(t, err.Error(), "n1")
	assert.Contains(t, err.Error(), "budget")

	var npe *NoPathError
	assert.True(t, errors.As(err, &npe))
}
