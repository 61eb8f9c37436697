package tile

import (
	"github.com/vesavlad/tiles/morton"
)

// Key is the database key of a tile: the zoom level in the top 6 bits, the
// interleaved coordinates below. Numeric order equals quad-tree scanline
// order within a zoom level.
type Key = uint64

const keyZoomShift = 58

// ToKey packs a tile into its database key.
func ToKey(t Tile) Key {
	return uint64(t.Z)<<keyZoomShift | morton.ToZ(t.X, t.Y)
}

// FromKey unpacks a database key.
func FromKey(k Key) Tile {
	x, y := morton.FromZ(k & (1<<keyZoomShift - 1))
	return Tile{Z: uint32(k >> keyZoomShift), X: x, Y: y}
}

// FeatureKey is the key under which a tile's features are stored; feature
// buckets always live at the index zoom.
func FeatureKey(t Tile) Key {
	return ToKey(t.AncestorAt(IndexZ))
}
