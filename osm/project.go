package osm

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/vesavlad/tiles/fixed"
)

// Web Mercator covers latitudes up to this bound.
const maxLatitude = 85.05112878

// project maps a WGS84 point onto the fixed grid.
func project(pt geom.Point) fixed.XY {
	lon := pt.X()
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, pt.Y()))

	worldSize := math.Exp2(fixed.Bits)
	x := (lon + 180) / 360 * worldSize
	sin := math.Sin(lat * math.Pi / 180)
	y := (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * worldSize

	limit := worldSize - 1
	return fixed.XY{
		X: fixed.Coord(math.Max(0, math.Min(limit, x))),
		Y: fixed.Coord(math.Max(0, math.Min(limit, y))),
	}
}
