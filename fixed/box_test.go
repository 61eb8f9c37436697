package fixed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundingBox(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		want Box
	}{
		{name: "point", g: Point{5, 7}, want: Box{5, 7, 5, 7}},
		{name: "polyline", g: Polyline{Lines: [][]XY{{{1, 8}, {4, 2}}, {{-3, 5}, {9, 9}}}}, want: Box{-3, 2, 9, 9}},
		{name: "polygon", g: Polygon{Rings: [][]XY{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}}, want: Box{0, 0, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoundingBox(tt.g)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBoundingBoxOfNullFails(t *testing.T) {
	_, err := BoundingBox(Null{})
	require.ErrorIs(t, err, ErrEmptyGeometry)
}

func TestBoxRelations(t *testing.T) {
	b := Box{0, 0, 100, 100}
	require.True(t, b.Contains(Box{10, 10, 90, 90}))
	require.False(t, b.Contains(Box{10, 10, 110, 90}))
	require.True(t, b.Intersects(Box{90, 90, 200, 200}))
	require.True(t, b.Intersects(Box{100, 100, 200, 200})) // touching counts
	require.False(t, b.Intersects(Box{101, 0, 200, 100}))
	require.Equal(t, XY{50, 50}, b.Center())
}

func TestShiftMapsTileIntoExtent(t *testing.T) {
	// the pixel bounds of tile (z, x, y) must land in
	// [x*TileExtent, (x+1)*TileExtent] after shifting to z
	for _, tc := range []struct{ z, x, y uint32 }{{0, 0, 0}, {5, 3, 17}, {10, 1023, 512}, {20, 1 << 19, 1 << 18}} {
		span := Coord(1) << (Bits - tc.z)
		minX := Coord(tc.x) * span
		minY := Coord(tc.y) * span
		g := Polyline{Lines: [][]XY{{{minX, minY}, {minX + span - 1, minY + span - 1}}}}
		shifted := Shift(g, tc.z).(Polyline)
		for _, pt := range shifted.Lines[0] {
			require.GreaterOrEqual(t, pt.X, Coord(tc.x)*TileExtent)
			require.Less(t, pt.X, Coord(tc.x+1)*TileExtent)
			require.GreaterOrEqual(t, pt.Y, Coord(tc.y)*TileExtent)
			require.Less(t, pt.Y, Coord(tc.y+1)*TileExtent)
		}
	}
}
