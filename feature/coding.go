package feature

import (
	"encoding/binary"
	"fmt"
)

// CodingVec is the append-only shared string table: index to string.
type CodingVec []string

// CodingMap is the inverse lookup of a CodingVec.
type CodingMap map[string]uint32

// Map builds the inverse lookup.
func (v CodingVec) Map() CodingMap {
	m := make(CodingMap, len(v))
	for i, s := range v {
		m[s] = uint32(i)
	}
	return m
}

// Add interns s, appending to the vec on first sight.
func (m CodingMap) Add(v *CodingVec, s string) uint32 {
	if idx, ok := m[s]; ok {
		return idx
	}
	idx := uint32(len(*v))
	*v = append(*v, s)
	m[s] = idx
	return idx
}

// AppendCodingVec serializes the string table: a count followed by
// length-prefixed strings.
func AppendCodingVec(buf []byte, v CodingVec) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(v)))
	for _, s := range v {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

// DecodeCodingVec reads a string table written by AppendCodingVec.
func DecodeCodingVec(buf []byte) (CodingVec, error) {
	count, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, fmt.Errorf("feature: truncated string table")
	}
	pos := n
	vec := make(CodingVec, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n := binary.Uvarint(buf[pos:])
		if n <= 0 || pos+n+int(l) > len(buf) {
			return nil, fmt.Errorf("feature: truncated string table entry %d", i)
		}
		pos += n
		vec = append(vec, string(buf[pos:pos+int(l)]))
		pos += int(l)
	}
	return vec, nil
}
