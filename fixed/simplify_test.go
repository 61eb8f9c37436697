package fixed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimplifyIdentityAtReferenceZoom(t *testing.T) {
	g := Polyline{Lines: [][]XY{{{0, 0}, {1, 1}, {2, 0}, {3, 1}, {4, 0}}}}
	require.Equal(t, Geometry(g), Simplify(g, ZRef))
}

func TestSimplifyPointPassthrough(t *testing.T) {
	g := Point{123, 456}
	require.Equal(t, Geometry(g), Simplify(g, 3))
}

func TestSimplifyReducesVertices(t *testing.T) {
	// a long straight-ish line with small wiggles
	line := make([]XY, 0, 100)
	for i := 0; i < 100; i++ {
		wiggle := Coord(i % 2)
		line = append(line, XY{Coord(i) << 12, wiggle})
	}
	g := Polyline{Lines: [][]XY{line}}

	prevCount := len(line)
	for z := uint32(ZRef); z > 0; z-- {
		got := Simplify(g, z)
		if IsNull(got) {
			break
		}
		count := len(got.(Polyline).Lines[0])
		require.LessOrEqual(t, count, prevCount, "vertex count must not grow at z=%d", z)
		prevCount = count
	}
	require.Less(t, prevCount, len(line))
}

func TestSimplifyDropsCollapsedPolygon(t *testing.T) {
	// a sliver far below the tolerance of coarse zooms
	g := Polygon{Rings: [][]XY{{{0, 0}, {4, 0}, {4, 2}, {0, 0}}}}
	require.Equal(t, Geometry(Null{}), Simplify(g, 0))
}

func TestSimplifyKeepsInnerRingDrops(t *testing.T) {
	outer := []XY{{0, 0}, {1 << 20, 0}, {1 << 20, 1 << 20}, {0, 1 << 20}, {0, 0}}
	tiny := []XY{{5, 5}, {6, 5}, {6, 6}, {5, 5}}
	g := Polygon{Rings: [][]XY{outer, tiny}}
	got := Simplify(g, 10)
	pg, ok := got.(Polygon)
	require.True(t, ok)
	require.Len(t, pg.Rings, 1)
}
