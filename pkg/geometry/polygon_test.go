package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, size float64) []Point2D {
	return []Point2D{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
	}
}

func TestPointInPolygon(t *testing.T) {
	t.Parallel()
	sq := square(0, 0, 2)

	t.Run("inside", func(t *testing.T) {
		t.Parallel()
		assert.True(t, PointInPolygon(Point2D{X: 1, Y: 1}, sq))
	})

	t.Run("outside", func(t *testing.T) {
		t.Parallel()
		assert.False(t, PointInPolygon(Point2D{X: 3, Y: 1}, sq))
		assert.False(t, PointInPolygon(Point2D{X: 1, Y: -1}, sq))
	})

	t.Run("degenerate polygon", func(t *testing.T) {
		t.Parallel()
		assert.False(t, PointInPolygon(Point2D{}, sq[:2]))
	})
}

func TestSegmentsIntersect(t *testing.T) {
	t.Parallel()

	t.Run("crossing", func(t *testing.T) {
		t.Parallel()
		assert.True(t, SegmentsIntersect(
			Point2D{X: 0, Y: 0}, Point2D{X: 2, Y: 2},
			Point2D{X: 0, Y: 2}, Point2D{X: 2, Y: 0}))
	})

	t.Run("parallel disjoint", func(t *testing.T) {
		t.Parallel()
		assert.False(t, SegmentsIntersect(
			Point2D{X: 0, Y: 0}, Point2D{X: 2, Y: 0},
			Point2D{X: 0, Y: 1}, Point2D{X: 2, Y: 1}))
	})

	t.Run("touching endpoint", func(t *testing.T) {
		t.Parallel()
		assert.True(t, SegmentsIntersect(
			Point2D{X: 0, Y: 0}, Point2D{X: 2, Y: 0},
			Point2D{X: 2, Y: 0}, Point2D{X: 2, Y: 2}))
	})

	t.Run("collinear overlap", func(t *testing.T) {
		t.Parallel()
		assert.True(t, SegmentsIntersect(
			Point2D{X: 0, Y: 0}, Point2D{X: 3, Y: 0},
			Point2D{X: 2, Y: 0}, Point2D{X: 5, Y: 0}))
	})

	t.Run("collinear disjoint", func(t *testing.T) {
		t.Parallel()
		assert.False(t, SegmentsIntersect(
			Point2D{X: 0, Y: 0}, Point2D{X: 1, Y: 0},
			Point2D{X: 2, Y: 0}, Point2D{X: 3, Y: 0}))
	})
}

func TestSegmentIntersectsPolygon(t *testing.T) {
	t.Parallel()
	sq := square(0, 0, 2)

	t.Run("crossing edge", func(t *testing.T) {
		t.Parallel()
		assert.True(t, SegmentIntersectsPolygon(Point2D{X: -1, Y: 1}, Point2D{X: 3, Y: 1}, sq))
	})

	t.Run("entirely inside", func(t *testing.T) {
		t.Parallel()
		assert.True(t, SegmentIntersectsPolygon(Point2D{X: 0.5, Y: 1}, Point2D{X: 1.5, Y: 1}, sq))
	})

	t.Run("entirely outside", func(t *testing.T) {
		t.Parallel()
		assert.False(t, SegmentIntersectsPolygon(Point2D{X: 3, Y: 0}, Point2D{X: 3, Y: 2}, sq))
	})
}

func TestDistances(t *testing.T) {
	t.Parallel()
	sq := square(0, 0, 2)

	t.Run("point to segment, projection inside", func(t *testing.T) {
		t.Parallel()
		d := DistancePointSegment(Point2D{X: 0, Y: 1}, Point2D{X: -1, Y: 0}, Point2D{X: 1, Y: 0})
		assert.InDelta(t, 1, d, 1e-12)
	})

	t.Run("point to segment, past endpoint", func(t *testing.T) {
		t.Parallel()
		d := DistancePointSegment(Point2D{X: 2, Y: 0}, Point2D{X: -1, Y: 0}, Point2D{X: 1, Y: 0})
		assert.InDelta(t, 1, d, 1e-12)
	})

	t.Run("point to polygon", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, DistancePointPolygon(Point2D{X: 1, Y: 1}, sq))
		assert.InDelta(t, 1, DistancePointPolygon(Point2D{X: 3, Y: 1}, sq), 1e-12)
	})

	t.Run("segment to segment", func(t *testing.T) {
		t.Parallel()
		d := DistanceSegmentSegment(
			Point2D{X: 0, Y: 0}, Point2D{X: 2, Y: 0},
			Point2D{X: 0, Y: 3}, Point2D{X: 2, Y: 3})
		assert.InDelta(t, 3, d, 1e-12)
		assert.Zero(t, DistanceSegmentSegment(
			Point2D{X: 0, Y: 0}, Point2D{X: 2, Y: 2},
			Point2D{X: 0, Y: 2}, Point2D{X: 2, Y: 0}))
	})

	t.Run("segment to polygon", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, DistanceSegmentPolygon(Point2D{X: -1, Y: 1}, Point2D{X: 3, Y: 1}, sq))
		d := DistanceSegmentPolygon(Point2D{X: 3, Y: -2}, Point2D{X: 3, Y: 4}, sq)
		assert.InDelta(t, 1, d, 1e-12)
	})
}

func TestArea(t *testing.T) {
	t.Parallel()
	sq := square(0, 0, 2)
	assert.InDelta(t, 4, Area(sq), 1e-12)

	cw := []Point2D{sq[0], sq[3], sq[2], sq[1]}
	assert.InDelta(t, -4, Area(cw), 1e-12)

	assert.Zero(t, Area(sq[:2]))
}

func TestIsSimple(t *testing.T) {
	t.Parallel()

	t.Run("square", func(t *testing.T) {
		t.Parallel()
		assert.True(t, IsSimple(square(0, 0, 2)))
	})

	t.Run("bowtie", func(t *testing.T) {
		t.Parallel()
		bowtie := []Point2D{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}}
		assert.False(t, IsSimple(bowtie))
	})

	t.Run("too few vertices", func(t *testing.T) {
		t.Parallel()
		assert.False(t, IsSimple([]Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}))
	})
}

func TestOffsetVertices(t *testing.T) {
	t.Parallel()

	t.Run("ccw square grows outward", func(t *testing.T) {
		t.Parallel()
		got := OffsetVertices(square(0, 0, 2), 1)
		want := []Point2D{{X: -1, Y: -1}, {X: 3, Y: -1}, {X: 3, Y: 3}, {X: -1, Y: 3}}
		require.Len(t, got, 4)
		for i := range want {
			assert.InDelta(t, want[i].X, got[i].X, 1e-9)
			assert.InDelta(t, want[i].Y, got[i].Y, 1e-9)
		}
	})

	t.Run("cw square grows outward too", func(t *testing.T) {
		t.Parallel()
		sq := square(0, 0, 2)
		cw := []Point2D{sq[0], sq[3], sq[2], sq[1]}
		got := OffsetVertices(cw, 1)
		for _, p := range got {
			assert.False(t, PointInPolygon(p, sq), "offset corner %v should be outside the original", p)
		}
	})

	t.Run("zero margin copies input", func(t *testing.T) {
		t.Parallel()
		sq := square(0, 0, 2)
		assert.Equal(t, sq, OffsetVertices(sq, 0))
	})
}

func TestExtrudePolyline(t *testing.T) {
	t.Parallel()

	t.Run("straight trace", func(t *testing.T) {
		t.Parallel()
		got := ExtrudePolyline([]Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}}, 2)
		want := []Point2D{{X: 0, Y: 1}, {X: 10, Y: 1}, {X: 10, Y: -1}, {X: 0, Y: -1}}
		require.Len(t, got, 4)
		for i := range want {
			assert.InDelta(t, want[i].X, got[i].X, 1e-9)
			assert.InDelta(t, want[i].Y, got[i].Y, 1e-9)
		}
		assert.InDelta(t, 20, math.Abs(Area(got)), 1e-9)
	})

	t.Run("right angle bend", func(t *testing.T) {
		t.Parallel()
		got := ExtrudePolyline([]Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, 2)
		require.Len(t, got, 6)
		assert.True(t, IsSimple(got))
		assert.True(t, PointInPolygon(Point2D{X: 5, Y: 0}, got))
		assert.True(t, PointInPolygon(Point2D{X: 10, Y: 5}, got))
		assert.False(t, PointInPolygon(Point2D{X: 5, Y: 5}, got))
	})

	t.Run("duplicate points dropped", func(t *testing.T) {
		t.Parallel()
		a := ExtrudePolyline([]Point2D{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 0}}, 2)
		b := ExtrudePolyline([]Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}}, 2)
		assert.Equal(t, b, a)
	})

	t.Run("too few distinct points", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, ExtrudePolyline([]Point2D{{X: 1, Y: 1}}, 2))
		assert.Nil(t, ExtrudePolyline([]Point2D{{X: 1, Y: 1}, {X: 1, Y: 1}}, 2))
	})
}
