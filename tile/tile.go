// Package tile models the Web Mercator tile pyramid and the 64-bit keys the
// database sorts by.
package tile

import (
	"fmt"

	"github.com/vesavlad/tiles/fixed"
)

const (
	// MaxZ is the deepest zoom level of the pyramid.
	MaxZ = 20
	// IndexZ is the zoom level at which feature storage is bucketed.
	IndexZ = 10
	// InvalidZ marks an unbounded max zoom on a feature.
	InvalidZ = 63
	// BufferPixels is the draw-bounds buffer in tile-local pixels.
	BufferPixels = 64
)

// Tile is one tile of the pyramid.
type Tile struct {
	Z, X, Y uint32
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Valid reports whether the coordinates lie within the zoom level.
func (t Tile) Valid() bool {
	return t.Z <= MaxZ && t.X < 1<<t.Z && t.Y < 1<<t.Z
}

// Parent returns the tile one zoom level up.
func (t Tile) Parent() Tile {
	return Tile{t.Z - 1, t.X / 2, t.Y / 2}
}

// Children returns the four direct children in quad order.
func (t Tile) Children() [4]Tile {
	x, y, z := t.X*2, t.Y*2, t.Z+1
	return [4]Tile{{z, x, y}, {z, x + 1, y}, {z, x, y + 1}, {z, x + 1, y + 1}}
}

// QuadPos is the tile's position under its parent: bit 0 is x, bit 1 is y.
func (t Tile) QuadPos() uint8 {
	return uint8(t.X&1 | (t.Y&1)<<1)
}

// AncestorAt returns the tile's ancestor at zoom z <= t.Z.
func (t Tile) AncestorAt(z uint32) Tile {
	d := t.Z - z
	return Tile{z, t.X >> d, t.Y >> d}
}

// IsAncestorOf reports whether t is o or one of o's ancestors.
func (t Tile) IsAncestorOf(o Tile) bool {
	return t.Z <= o.Z && o.AncestorAt(t.Z) == t
}

// span is the tile's width on the fixed grid.
func (t Tile) span() fixed.Coord {
	return 1 << (fixed.Bits - t.Z)
}

// PixelBox is the tile's extent on the fixed grid, boundary inclusive on all
// sides so that features on shared edges belong to both neighbors.
func (t Tile) PixelBox() fixed.Box {
	s := t.span()
	return fixed.Box{
		MinX: fixed.Coord(t.X) * s,
		MinY: fixed.Coord(t.Y) * s,
		MaxX: fixed.Coord(t.X+1) * s,
		MaxY: fixed.Coord(t.Y+1) * s,
	}
}

// InsertBox is the containment test box for the packer. Not buffered.
func (t Tile) InsertBox() fixed.Box {
	return t.PixelBox()
}

// DrawBox is the clip box for rendering: the pixel box expanded by
// BufferPixels tile-local pixels so neighboring tiles render seam-free.
func (t Tile) DrawBox() fixed.Box {
	return t.PixelBox().Expand(t.span() >> 6)
}
