package tile

// Coverage is an inclusive rectangle of tile coordinates at a zoom level,
// usually the axis-aligned hull of all populated index tiles.
type Coverage struct {
	Z                      uint32
	MinX, MinY, MaxX, MaxY uint32
}

// Empty reports whether the coverage holds no tiles.
func (c Coverage) Empty() bool {
	return c.MaxX < c.MinX || c.MaxY < c.MinY
}

// Extend grows the coverage to include t (same zoom).
func (c Coverage) Extend(t Tile) Coverage {
	if c.Empty() {
		return Coverage{Z: c.Z, MinX: t.X, MinY: t.Y, MaxX: t.X, MaxY: t.Y}
	}
	return Coverage{
		Z:    c.Z,
		MinX: min(c.MinX, t.X),
		MinY: min(c.MinY, t.Y),
		MaxX: max(c.MaxX, t.X),
		MaxY: max(c.MaxY, t.Y),
	}
}

// EmptyCoverage is the neutral element for Extend at zoom z.
func EmptyCoverage(z uint32) Coverage {
	return Coverage{Z: z, MinX: 1, MaxX: 0, MinY: 1, MaxY: 0}
}

// OnZoom projects the coverage onto another zoom level. Shrinking uses the
// covering ancestors, growing uses all descendants.
func (c Coverage) OnZoom(z uint32) Coverage {
	if c.Empty() {
		return EmptyCoverage(z)
	}
	if z <= c.Z {
		d := c.Z - z
		return Coverage{Z: z, MinX: c.MinX >> d, MinY: c.MinY >> d, MaxX: c.MaxX >> d, MaxY: c.MaxY >> d}
	}
	d := z - c.Z
	return Coverage{
		Z:    z,
		MinX: c.MinX << d,
		MinY: c.MinY << d,
		MaxX: c.MaxX<<d | (1<<d - 1),
		MaxY: c.MaxY<<d | (1<<d - 1),
	}
}

// Count is the number of tiles in the coverage.
func (c Coverage) Count() uint64 {
	if c.Empty() {
		return 0
	}
	return uint64(c.MaxX-c.MinX+1) * uint64(c.MaxY-c.MinY+1)
}

// At returns the i-th tile of the coverage in scanline order (x fastest).
func (c Coverage) At(i uint64) Tile {
	w := uint64(c.MaxX - c.MinX + 1)
	return Tile{
		Z: c.Z,
		X: c.MinX + uint32(i%w),
		Y: c.MinY + uint32(i/w),
	}
}
