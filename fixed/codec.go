package fixed

import (
	"encoding/binary"
	"fmt"
)

// Geometry tag bytes. They match the MVT geometry type numbers for the
// non-null variants.
const (
	tagNull     = 0
	tagPoint    = 1
	tagPolyline = 2
	tagPolygon  = 3
)

// ErrUnknownTag is wrapped by DecodeGeometry for unrecognized tag bytes.
var ErrUnknownTag = fmt.Errorf("fixed: unknown geometry tag")

// AppendGeometry serializes g to buf: a tag byte followed by varint counts
// and zigzag deltas between consecutive points. The delta chain runs across
// rings, one chain per geometry.
func AppendGeometry(buf []byte, g Geometry) []byte {
	switch v := g.(type) {
	case Point:
		buf = append(buf, tagPoint)
		buf = binary.AppendVarint(buf, v.X)
		buf = binary.AppendVarint(buf, v.Y)
		return buf
	case Polyline:
		buf = append(buf, tagPolyline)
		return appendRings(buf, v.Lines)
	case Polygon:
		buf = append(buf, tagPolygon)
		return appendRings(buf, v.Rings)
	default:
		return append(buf, tagNull)
	}
}

func appendRings(buf []byte, rings [][]XY) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(rings)))
	prev := XY{}
	for _, ring := range rings {
		buf = binary.AppendUvarint(buf, uint64(len(ring)))
		for _, pt := range ring {
			buf = binary.AppendVarint(buf, pt.X-prev.X)
			buf = binary.AppendVarint(buf, pt.Y-prev.Y)
			prev = pt
		}
	}
	return buf
}

// DecodeGeometry reads one geometry from buf and returns it together with
// the number of bytes consumed.
func DecodeGeometry(buf []byte) (Geometry, int, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("fixed: empty geometry buffer")
	}
	tag := buf[0]
	pos := 1

	switch tag {
	case tagNull:
		return Null{}, pos, nil
	case tagPoint:
		x, n := binary.Varint(buf[pos:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("fixed: truncated point")
		}
		pos += n
		y, n := binary.Varint(buf[pos:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("fixed: truncated point")
		}
		pos += n
		return Point{x, y}, pos, nil
	case tagPolyline, tagPolygon:
		rings, n, err := decodeRings(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += n
		if tag == tagPolyline {
			return Polyline{Lines: rings}, pos, nil
		}
		return Polygon{Rings: rings}, pos, nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

func decodeRings(buf []byte) ([][]XY, int, error) {
	pos := 0
	count, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return nil, 0, fmt.Errorf("fixed: truncated ring count")
	}
	pos += n

	rings := make([][]XY, 0, count)
	prev := XY{}
	for r := uint64(0); r < count; r++ {
		points, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("fixed: truncated point count")
		}
		pos += n

		ring := make([]XY, 0, points)
		for p := uint64(0); p < points; p++ {
			dx, n := binary.Varint(buf[pos:])
			if n <= 0 {
				return nil, 0, fmt.Errorf("fixed: truncated coordinate")
			}
			pos += n
			dy, n := binary.Varint(buf[pos:])
			if n <= 0 {
				return nil, 0, fmt.Errorf("fixed: truncated coordinate")
			}
			pos += n
			prev = XY{prev.X + dx, prev.Y + dy}
			ring = append(ring, prev)
		}
		rings = append(rings, ring)
	}
	return rings, pos, nil
}
