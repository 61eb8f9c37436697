package tile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vesavlad/tiles/fixed"
)

func TestQuadRelations(t *testing.T) {
	root := Tile{0, 0, 0}
	children := root.Children()
	require.Equal(t, [4]Tile{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 1}}, children)
	for i, child := range children {
		require.Equal(t, uint8(i), child.QuadPos())
		require.Equal(t, root, child.Parent())
		require.True(t, root.IsAncestorOf(child))
	}
	require.False(t, children[1].IsAncestorOf(children[2]))

	deep := Tile{5, 17, 9}
	require.Equal(t, Tile{2, 2, 1}, deep.AncestorAt(2))
	require.True(t, deep.IsAncestorOf(deep))
}

func TestPixelBoxNesting(t *testing.T) {
	parent := Tile{3, 2, 5}
	for _, child := range parent.Children() {
		require.True(t, parent.PixelBox().Contains(child.PixelBox()))
	}
	require.True(t, parent.DrawBox().Contains(parent.PixelBox()))
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []Tile{
		{0, 0, 0},
		{1, 1, 0},
		{10, 512, 1023},
		{20, 1<<20 - 1, 1<<20 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.String(), func(t *testing.T) {
			require.Equal(t, tt, FromKey(ToKey(tt)))
		})
	}
}

func TestKeyOrderFollowsMortonOrder(t *testing.T) {
	// keys at one zoom level must be unique and strictly monotone along the
	// z-curve
	z := uint32(4)
	seen := map[Key]bool{}
	for y := uint32(0); y < 1<<z; y++ {
		for x := uint32(0); x < 1<<z; x++ {
			k := ToKey(Tile{z, x, y})
			require.False(t, seen[k])
			seen[k] = true
		}
	}

	prev := ToKey(Tile{z, 0, 0})
	for i := uint32(1); i < 1<<(2*z); i++ {
		x, y := deinterleave(i)
		k := ToKey(Tile{z, x, y})
		require.Greater(t, k, prev, "key must grow along the z-curve at %d", i)
		prev = k
	}
}

func deinterleave(i uint32) (x, y uint32) {
	for b := uint32(0); b < 16; b++ {
		x |= (i >> (2 * b) & 1) << b
		y |= (i >> (2*b + 1) & 1) << b
	}
	return
}

func TestFeatureKeyIsAtIndexZoom(t *testing.T) {
	leaf := Tile{15, 1000, 2000}
	require.Equal(t, ToKey(Tile{IndexZ, 1000 >> 5, 2000 >> 5}), FeatureKey(leaf))
}

func TestCoverage(t *testing.T) {
	c := EmptyCoverage(IndexZ)
	require.True(t, c.Empty())
	c = c.Extend(Tile{IndexZ, 5, 7})
	c = c.Extend(Tile{IndexZ, 9, 3})
	require.Equal(t, Coverage{IndexZ, 5, 3, 9, 7}, c)
	require.Equal(t, uint64(25), c.Count())
	require.Equal(t, Tile{IndexZ, 5, 3}, c.At(0))
	require.Equal(t, Tile{IndexZ, 9, 3}, c.At(4))
	require.Equal(t, Tile{IndexZ, 5, 4}, c.At(5))

	up := c.OnZoom(8)
	require.Equal(t, Coverage{8, 1, 0, 2, 1}, up)
	down := c.OnZoom(11)
	require.Equal(t, Coverage{11, 10, 6, 19, 15}, down)

	t.Run("zoom zero always collapses to the root", func(t *testing.T) {
		require.Equal(t, Coverage{0, 0, 0, 0, 0}, c.OnZoom(0))
	})
}

func TestDrawBoxBuffer(t *testing.T) {
	for _, z := range []uint32{0, 5, 10, 20} {
		tl := Tile{z, 0, 0}
		span := fixed.Coord(1) << (fixed.Bits - z)
		want := span / (fixed.TileExtent / BufferPixels)
		box := tl.DrawBox()
		require.Equal(t, tl.PixelBox().MinX-want, box.MinX, fmt.Sprintf("buffer at z=%d", z))
	}
}
