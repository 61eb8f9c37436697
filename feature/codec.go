package feature

import (
	"encoding/binary"
	"fmt"

	"github.com/vesavlad/tiles/fixed"
)

// MinPayloadSize is the minimum serialized size of a feature. Short records
// are zero padded so pack span offsets stay cheap to validate.
const MinPayloadSize = 32

const (
	modeRaw   = 0
	modeCoded = 1
)

// ErrBadPayload is wrapped by Deserialize for structurally broken records.
var ErrBadPayload = fmt.Errorf("feature: bad payload")

// Serialize encodes f. With a nil coding map the meta strings are embedded
// verbatim (the ingest form); with a coding map they are interned and stored
// as dictionary indices (the packed form). New strings are appended to vec.
func Serialize(f *Feature, coding CodingMap, vec *CodingVec) []byte {
	buf := make([]byte, 0, 64)
	if coding == nil {
		buf = append(buf, modeRaw)
	} else {
		buf = append(buf, modeCoded)
	}
	buf = binary.AppendUvarint(buf, f.ID)
	buf = binary.AppendUvarint(buf, uint64(f.Layer))
	buf = append(buf, byte(f.MinZ), byte(f.MaxZ))

	metaLen := 0
	if f.Meta != nil {
		metaLen = f.Meta.Len()
	}
	buf = binary.AppendUvarint(buf, uint64(metaLen))
	if f.Meta != nil {
		for pair := f.Meta.Oldest(); pair != nil; pair = pair.Next() {
			if coding == nil {
				buf = binary.AppendUvarint(buf, uint64(len(pair.Key)))
				buf = append(buf, pair.Key...)
				buf = binary.AppendUvarint(buf, uint64(len(pair.Value)))
				buf = append(buf, pair.Value...)
			} else {
				buf = binary.AppendUvarint(buf, uint64(coding.Add(vec, pair.Key)))
				buf = binary.AppendUvarint(buf, uint64(coding.Add(vec, pair.Value)))
			}
		}
	}

	buf = fixed.AppendGeometry(buf, f.Geometry)
	for len(buf) < MinPayloadSize {
		buf = append(buf, 0)
	}
	return buf
}

// Deserialize decodes a payload written by Serialize. vec is only consulted
// for the packed form.
func Deserialize(buf []byte, vec CodingVec) (*Feature, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadPayload)
	}
	mode := buf[0]
	if mode != modeRaw && mode != modeCoded {
		return nil, fmt.Errorf("%w: mode %d", ErrBadPayload, mode)
	}
	pos := 1

	id, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: id", ErrBadPayload)
	}
	pos += n
	layer, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: layer", ErrBadPayload)
	}
	pos += n
	if pos+2 > len(buf) {
		return nil, fmt.Errorf("%w: zoom range", ErrBadPayload)
	}
	minZ := uint32(buf[pos])
	maxZ := uint32(buf[pos+1])
	pos += 2

	metaLen, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: meta count", ErrBadPayload)
	}
	pos += n

	meta := NewMeta()
	for i := uint64(0); i < metaLen; i++ {
		var key, value string
		var err error
		if mode == modeRaw {
			key, n, err = readString(buf[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			value, n, err = readString(buf[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
		} else {
			key, n, err = readCoded(buf[pos:], vec)
			if err != nil {
				return nil, err
			}
			pos += n
			value, n, err = readCoded(buf[pos:], vec)
			if err != nil {
				return nil, err
			}
			pos += n
		}
		meta.Set(key, value)
	}

	geometry, n, err := fixed.DecodeGeometry(buf[pos:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	_ = n // trailing bytes are padding

	return &Feature{
		ID:       id,
		Layer:    uint32(layer),
		MinZ:     minZ,
		MaxZ:     maxZ,
		Meta:     meta,
		Geometry: geometry,
	}, nil
}

func readString(buf []byte) (string, int, error) {
	l, n := binary.Uvarint(buf)
	if n <= 0 || n+int(l) > len(buf) {
		return "", 0, fmt.Errorf("%w: meta string", ErrBadPayload)
	}
	return string(buf[n : n+int(l)]), n + int(l), nil
}

func readCoded(buf []byte, vec CodingVec) (string, int, error) {
	idx, n := binary.Uvarint(buf)
	if n <= 0 {
		return "", 0, fmt.Errorf("%w: meta index", ErrBadPayload)
	}
	if idx >= uint64(len(vec)) {
		return "", 0, fmt.Errorf("%w: meta index %d outside table of %d", ErrBadPayload, idx, len(vec))
	}
	return vec[idx], n, nil
}
