package mvt

import (
	"github.com/paulmach/orb/encoding/mvt/vectortile"

	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/tile"
)

// Command identifiers of the MVT geometry stream.
const (
	cmdMoveTo    = 1
	cmdLineTo    = 2
	cmdClosePath = 7
)

func command(cmd, count uint32) uint32 {
	return count<<3 | cmd
}

func zigzag(v int64) uint32 {
	return uint32((v << 1) ^ (v >> 63))
}

// encodeGeometry turns a shifted geometry into the command-integer stream.
// The cursor starts at the tile origin and runs across rings.
func encodeGeometry(g fixed.Geometry, spec tile.Tile) (vectortile.Tile_GeomType, []uint32) {
	origin := fixed.XY{
		X: fixed.Coord(spec.X) * fixed.TileExtent,
		Y: fixed.Coord(spec.Y) * fixed.TileExtent,
	}

	switch v := g.(type) {
	case fixed.Point:
		cur := origin
		commands := []uint32{command(cmdMoveTo, 1)}
		commands = appendPoint(commands, &cur, fixed.XY(v))
		return vectortile.Tile_POINT, commands
	case fixed.Polyline:
		cur := origin
		var commands []uint32
		for _, line := range v.Lines {
			if len(line) < 2 {
				continue
			}
			commands = append(commands, command(cmdMoveTo, 1))
			commands = appendPoint(commands, &cur, line[0])
			commands = append(commands, command(cmdLineTo, uint32(len(line)-1)))
			for _, pt := range line[1:] {
				commands = appendPoint(commands, &cur, pt)
			}
		}
		return vectortile.Tile_LINESTRING, commands
	case fixed.Polygon:
		cur := origin
		var commands []uint32
		for _, ring := range v.Rings {
			open := ring
			if len(open) > 1 && open[0] == open[len(open)-1] {
				open = open[:len(open)-1]
			}
			if len(open) < 3 {
				continue
			}
			commands = append(commands, command(cmdMoveTo, 1))
			commands = appendPoint(commands, &cur, open[0])
			commands = append(commands, command(cmdLineTo, uint32(len(open)-1)))
			for _, pt := range open[1:] {
				commands = appendPoint(commands, &cur, pt)
			}
			commands = append(commands, command(cmdClosePath, 1))
		}
		return vectortile.Tile_POLYGON, commands
	default:
		return vectortile.Tile_UNKNOWN, nil
	}
}

func appendPoint(commands []uint32, cur *fixed.XY, pt fixed.XY) []uint32 {
	commands = append(commands, zigzag(pt.X-cur.X), zigzag(pt.Y-cur.Y))
	*cur = pt
	return commands
}
