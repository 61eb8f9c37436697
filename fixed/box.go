package fixed

import "errors"

// ErrEmptyGeometry is returned when an operation needs a bounding box but the
// geometry has none.
var ErrEmptyGeometry = errors.New("fixed: empty geometry has no bounding box")

// Box is an axis-aligned bounding box; both corners are inclusive.
type Box struct {
	MinX, MinY, MaxX, MaxY Coord
}

// Expand grows the box by d on every side.
func (b Box) Expand(d Coord) Box {
	return Box{b.MinX - d, b.MinY - d, b.MaxX + d, b.MaxY + d}
}

// Contains reports whether o lies fully within b.
func (b Box) Contains(o Box) bool {
	return b.MinX <= o.MinX && o.MaxX <= b.MaxX &&
		b.MinY <= o.MinY && o.MaxY <= b.MaxY
}

// Intersects reports whether b and o share at least one point.
func (b Box) Intersects(o Box) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// ContainsXY reports whether the point lies within b, boundary inclusive.
func (b Box) ContainsXY(pt XY) bool {
	return b.MinX <= pt.X && pt.X <= b.MaxX &&
		b.MinY <= pt.Y && pt.Y <= b.MaxY
}

// Center returns the midpoint of the box.
func (b Box) Center() XY {
	return XY{b.MinX + (b.MaxX-b.MinX)/2, b.MinY + (b.MaxY-b.MinY)/2}
}

// BoundingBox computes the bounding box of a non-null geometry.
func BoundingBox(g Geometry) (Box, error) {
	switch v := g.(type) {
	case Point:
		return Box{v.X, v.Y, v.X, v.Y}, nil
	case Polyline:
		return boxOfRings(v.Lines)
	case Polygon:
		return boxOfRings(v.Rings)
	default:
		return Box{}, ErrEmptyGeometry
	}
}

func boxOfRings(rings [][]XY) (Box, error) {
	found := false
	var b Box
	for _, ring := range rings {
		for _, pt := range ring {
			if !found {
				b = Box{pt.X, pt.Y, pt.X, pt.Y}
				found = true
				continue
			}
			b.MinX = min(b.MinX, pt.X)
			b.MinY = min(b.MinY, pt.Y)
			b.MaxX = max(b.MaxX, pt.X)
			b.MaxY = max(b.MaxY, pt.Y)
		}
	}
	if !found {
		return Box{}, ErrEmptyGeometry
	}
	return b, nil
}
