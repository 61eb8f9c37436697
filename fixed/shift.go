package fixed

// Shift scales a geometry from the reference grid to the grid of zoom z by
// an arithmetic right shift. No translation happens here: tile (z, x, y)
// afterwards starts at (x*TileExtent, y*TileExtent) and the encoder deltas
// against that origin.
func Shift(g Geometry, z uint32) Geometry {
	delta := uint(ZRef - z)
	switch v := g.(type) {
	case Point:
		return Point{v.X >> delta, v.Y >> delta}
	case Polyline:
		return Polyline{Lines: shiftRings(v.Lines, delta)}
	case Polygon:
		return Polygon{Rings: shiftRings(v.Rings, delta)}
	default:
		return g
	}
}

func shiftRings(rings [][]XY, delta uint) [][]XY {
	out := make([][]XY, len(rings))
	for i, ring := range rings {
		line := make([]XY, len(ring))
		for j, pt := range ring {
			line[j] = XY{pt.X >> delta, pt.Y >> delta}
		}
		out[i] = line
	}
	return out
}
