package fixed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var clipBox = Box{10, 10, 20, 20}

func TestClipPoint(t *testing.T) {
	tests := []struct {
		name string
		in   Point
		want Geometry
	}{
		{name: "outside", in: Point{42, 23}, want: Null{}},
		{name: "inside", in: Point{15, 15}, want: Point{15, 15}},
		{name: "corner", in: Point{10, 10}, want: Point{10, 10}},
		{name: "edge", in: Point{20, 12}, want: Point{20, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Clip(tt.in, clipBox))
		})
	}
}

func TestClipPolyline(t *testing.T) {
	t.Run("entirely outside", func(t *testing.T) {
		in := Polyline{Lines: [][]XY{{{0, 0}, {0, 30}}}}
		require.Equal(t, Geometry(Null{}), Clip(in, clipBox))
	})

	t.Run("entirely inside", func(t *testing.T) {
		in := Polyline{Lines: [][]XY{{{12, 12}, {18, 18}}}}
		require.Equal(t, Geometry(in), Clip(in, clipBox))
	})

	t.Run("crossing the boundary", func(t *testing.T) {
		in := Polyline{Lines: [][]XY{{{12, 8}, {12, 12}}}}
		want := Polyline{Lines: [][]XY{{{12, 10}, {12, 12}}}}
		require.Equal(t, Geometry(want), Clip(in, clipBox))
	})

	t.Run("crossing out and back in splits the line", func(t *testing.T) {
		in := Polyline{Lines: [][]XY{{{12, 12}, {25, 12}, {25, 18}, {12, 18}}}}
		got := Clip(in, clipBox)
		pl, ok := got.(Polyline)
		require.True(t, ok)
		require.Len(t, pl.Lines, 2)
		require.Equal(t, []XY{{12, 12}, {20, 12}}, pl.Lines[0])
		require.Equal(t, []XY{{20, 18}, {12, 18}}, pl.Lines[1])
	})

	t.Run("idempotent", func(t *testing.T) {
		in := Polyline{Lines: [][]XY{{{5, 15}, {25, 15}, {25, 5}}}}
		once := Clip(in, clipBox)
		twice := Clip(once, clipBox)
		require.Equal(t, once, twice)
	})
}

func TestClipPolygon(t *testing.T) {
	t.Run("fully inside survives", func(t *testing.T) {
		in := Polygon{Rings: [][]XY{{{12, 12}, {18, 12}, {18, 18}, {12, 18}, {12, 12}}}}
		require.Equal(t, Geometry(in), Clip(in, clipBox))
	})

	t.Run("fully outside becomes null", func(t *testing.T) {
		in := Polygon{Rings: [][]XY{{{30, 30}, {40, 30}, {40, 40}, {30, 40}, {30, 30}}}}
		require.Equal(t, Geometry(Null{}), Clip(in, clipBox))
	})

	t.Run("overlapping is cut to the box", func(t *testing.T) {
		in := Polygon{Rings: [][]XY{{{15, 15}, {25, 15}, {25, 25}, {15, 25}, {15, 15}}}}
		got := Clip(in, clipBox)
		pg, ok := got.(Polygon)
		require.True(t, ok)
		require.Len(t, pg.Rings, 1)
		ring := pg.Rings[0]
		require.Equal(t, ring[0], ring[len(ring)-1])
		for _, pt := range ring {
			require.True(t, clipBox.ContainsXY(pt), "point %v escaped the clip box", pt)
		}
	})

	t.Run("inner ring outside is dropped, outer kept", func(t *testing.T) {
		in := Polygon{Rings: [][]XY{
			{{11, 11}, {19, 11}, {19, 19}, {11, 19}, {11, 11}},
			{{30, 30}, {32, 30}, {32, 32}, {30, 32}, {30, 30}},
		}}
		got := Clip(in, clipBox)
		pg, ok := got.(Polygon)
		require.True(t, ok)
		require.Len(t, pg.Rings, 1)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := Polygon{Rings: [][]XY{{{5, 5}, {25, 8}, {22, 25}, {8, 23}, {5, 5}}}}
		once := Clip(in, clipBox)
		require.Equal(t, once, Clip(once, clipBox))
	})
}
