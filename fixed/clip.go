package fixed

import "math"

// Clip intersects g with the box b. Boundaries are inclusive for every
// variant. Points outside become Null, polyline segments are cut with
// Liang-Barsky and consecutive kept segments sharing an endpoint coalesce
// into one line, polygon rings are cut with Sutherland-Hodgman against the
// four half-planes. A polygon losing its outer ring becomes Null, as does a
// polyline losing all lines.
func Clip(g Geometry, b Box) Geometry {
	switch v := g.(type) {
	case Point:
		if b.ContainsXY(XY(v)) {
			return v
		}
		return Null{}
	case Polyline:
		lines := make([][]XY, 0, len(v.Lines))
		for _, line := range v.Lines {
			lines = append(lines, clipLine(line, b)...)
		}
		if len(lines) == 0 {
			return Null{}
		}
		return Polyline{Lines: lines}
	case Polygon:
		rings := make([][]XY, 0, len(v.Rings))
		for i, ring := range v.Rings {
			clipped := clipRing(ring, b)
			if clipped == nil {
				if i == 0 {
					return Null{}
				}
				continue
			}
			rings = append(rings, clipped)
		}
		return Polygon{Rings: rings}
	default:
		return Null{}
	}
}

// clipLine cuts one line against b, splitting it where segments leave the
// box. Segments clipped down to a single point are dropped.
func clipLine(line []XY, b Box) [][]XY {
	var out [][]XY
	var current []XY

	for i := 0; i+1 < len(line); i++ {
		p0, p1, ok := clipSegment(line[i], line[i+1], b)
		if !ok || p0 == p1 {
			if len(current) >= 2 {
				out = append(out, current)
			}
			current = nil
			continue
		}
		if len(current) > 0 && current[len(current)-1] == p0 {
			current = append(current, p1)
		} else {
			if len(current) >= 2 {
				out = append(out, current)
			}
			current = []XY{p0, p1}
		}
	}
	if len(current) >= 2 {
		out = append(out, current)
	}
	return out
}

// clipSegment is Liang-Barsky on one segment; both box edges are inclusive.
func clipSegment(p0, p1 XY, b Box) (XY, XY, bool) {
	dx := float64(p1.X - p0.X)
	dy := float64(p1.Y - p0.Y)

	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, float64(p0.X - b.MinX)},
		{dx, float64(b.MaxX - p0.X)},
		{-dy, float64(p0.Y - b.MinY)},
		{dy, float64(b.MaxY - p0.Y)},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return XY{}, XY{}, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return XY{}, XY{}, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return XY{}, XY{}, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}

	c0 := p0
	c1 := p1
	if t0 > 0 {
		c0 = XY{p0.X + roundCoord(t0*dx), p0.Y + roundCoord(t0*dy)}
	}
	if t1 < 1 {
		c1 = XY{p0.X + roundCoord(t1*dx), p0.Y + roundCoord(t1*dy)}
	}
	return c0, c1, true
}

// clipRing is Sutherland-Hodgman against the four half-planes of b. Returns
// nil when fewer than 3 distinct points survive. The result is closed.
func clipRing(ring []XY, b Box) []XY {
	// drop the duplicated closing point while clipping
	open := ring
	if len(open) > 1 && open[0] == open[len(open)-1] {
		open = open[:len(open)-1]
	}

	for _, plane := range []halfPlane{
		{inside: func(p XY) bool { return p.X >= b.MinX }, cut: cutX(b.MinX)},
		{inside: func(p XY) bool { return p.X <= b.MaxX }, cut: cutX(b.MaxX)},
		{inside: func(p XY) bool { return p.Y >= b.MinY }, cut: cutY(b.MinY)},
		{inside: func(p XY) bool { return p.Y <= b.MaxY }, cut: cutY(b.MaxY)},
	} {
		open = clipRingPlane(open, plane)
		if len(open) == 0 {
			return nil
		}
	}

	if countDistinct(open) < 3 {
		return nil
	}
	return append(open, open[0])
}

type halfPlane struct {
	inside func(XY) bool
	cut    func(a, z XY) XY
}

func cutX(x Coord) func(a, z XY) XY {
	return func(a, z XY) XY {
		t := float64(x-a.X) / float64(z.X-a.X)
		return XY{x, a.Y + roundCoord(t*float64(z.Y-a.Y))}
	}
}

func cutY(y Coord) func(a, z XY) XY {
	return func(a, z XY) XY {
		t := float64(y-a.Y) / float64(z.Y-a.Y)
		return XY{a.X + roundCoord(t*float64(z.X-a.X)), y}
	}
}

func clipRingPlane(ring []XY, plane halfPlane) []XY {
	out := make([]XY, 0, len(ring)+4)
	for i, cur := range ring {
		prev := ring[(i+len(ring)-1)%len(ring)]
		curIn := plane.inside(cur)
		prevIn := plane.inside(prev)
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, plane.cut(prev, cur), cur)
		case !curIn && prevIn:
			out = append(out, plane.cut(prev, cur))
		}
	}
	return out
}

func countDistinct(pts []XY) int {
	seen := make(map[XY]struct{}, len(pts))
	for _, pt := range pts {
		seen[pt] = struct{}{}
	}
	return len(seen)
}

func roundCoord(f float64) Coord {
	return Coord(math.Round(f))
}
