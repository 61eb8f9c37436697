// Package pack rewrites the raw per-index-tile feature lists into compact
// feature packs: coded payloads grouped into spans, a span table per minimum
// zoom and one quad-tree directory per table for sub-tile lookups.
package pack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/vesavlad/tiles/feature"
	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/tile"
)

// ErrCorrupt marks an invariant violation inside a feature pack. It is
// fatal for the running phase.
var ErrCorrupt = errors.New("pack: corrupt feature pack")

const headerSize = 8

type packable struct {
	quadKey  []uint8
	bestTile tile.Key
	payload  []byte
}

// BestTile descends from root while exactly one child's insert bounds
// contains the feature box. Two matching children stop the descent and keep
// the parent, which is conservative but never loses a feature.
func BestTile(root tile.Tile, box fixed.Box) tile.Tile {
	best := root
	for best.Z < tile.MaxZ {
		var next *tile.Tile
		twoMatch := false
		for _, child := range best.Children() {
			if !child.InsertBox().Intersects(box) {
				continue
			}
			if next != nil {
				twoMatch = true
				break
			}
			c := child
			next = &c
		}
		if twoMatch || next == nil {
			break
		}
		best = *next
	}
	return best
}

// quadKey is the sequence of quad positions along the path from root to t.
func quadKey(root, t tile.Tile) []uint8 {
	if t == root {
		return nil
	}
	key := make([]uint8, t.Z-root.Z)
	for i := len(key) - 1; i >= 0; i-- {
		key[i] = t.QuadPos()
		t = t.Parent()
	}
	return key
}

// Build packs the raw feature records of index tile t. Meta strings are
// re-coded through the shared dictionary; new strings are appended to vec.
func Build(t tile.Tile, raw [][]byte, coding feature.CodingMap, vec *feature.CodingVec) ([]byte, error) {
	buckets := make([][]packable, tile.MaxZ+1-t.Z)
	for _, payload := range raw {
		f, err := feature.Deserialize(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("pack: tile %v: %w", t, err)
		}
		box, err := fixed.BoundingBox(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("pack: tile %v feature %d: %w", t, f.ID, err)
		}

		best := BestTile(t, box)
		coded := feature.Serialize(f, coding, vec)
		b := min(max(t.Z, f.MinZ)-t.Z, uint32(len(buckets)-1))
		buckets[b] = append(buckets[b], packable{
			quadKey:  quadKey(t, best),
			bestTile: tile.ToKey(best),
			payload:  coded,
		})
	}

	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(raw)))
	buf = binary.LittleEndian.AppendUint32(buf, 0) // index offset backpatched below

	quadTrees := make([][]byte, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			quadTrees = append(quadTrees, nil)
			continue
		}
		sort.SliceStable(bucket, func(i, j int) bool {
			if c := bytes.Compare(bucket[i].quadKey, bucket[j].quadKey); c != 0 {
				return c < 0
			}
			if bucket[i].bestTile != bucket[j].bestTile {
				return bucket[i].bestTile < bucket[j].bestTile
			}
			return bytes.Compare(bucket[i].payload, bucket[j].payload) < 0
		})

		var entries []quadEntry
		for start := 0; start < len(bucket); {
			end := start
			for end < len(bucket) && bytes.Equal(bucket[end].quadKey, bucket[start].quadKey) {
				end++
			}
			offset := uint32(len(buf))
			for _, p := range bucket[start:end] {
				if len(p.payload) < feature.MinPayloadSize {
					return nil, fmt.Errorf("%w: undersized payload in tile %v", ErrCorrupt, t)
				}
				buf = binary.AppendUvarint(buf, uint64(len(p.payload)))
				buf = append(buf, p.payload...)
			}
			buf = binary.AppendUvarint(buf, 0)
			entries = append(entries, quadEntry{quadKey: bucket[start].quadKey, span: offset})
			start = end
		}
		quadTrees = append(quadTrees, makeQuadTree(entries))
	}

	blobOffsets := make([]uint32, len(quadTrees))
	for i, qt := range quadTrees {
		if len(qt) == 0 {
			continue
		}
		blobOffsets[i] = uint32(len(buf))
		buf = append(buf, qt...)
	}

	indexOffset := uint32(len(buf))
	for _, off := range blobOffsets {
		buf = binary.AppendUvarint(buf, uint64(off))
	}
	binary.LittleEndian.PutUint32(buf[4:8], indexOffset)
	return buf, nil
}

// Pack is a read view over pack bytes.
type Pack struct {
	root tile.Tile
	buf  []byte
}

// Open validates the pack header for index tile root.
func Open(root tile.Tile, buf []byte) (*Pack, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: short header for %v", ErrCorrupt, root)
	}
	indexOffset := binary.LittleEndian.Uint32(buf[4:8])
	if int(indexOffset) < headerSize || int(indexOffset) > len(buf) {
		return nil, fmt.Errorf("%w: index offset %d outside pack of %d bytes for %v",
			ErrCorrupt, indexOffset, len(buf), root)
	}
	return &Pack{root: root, buf: buf}, nil
}

// FeatureCount is the total number of features in the pack.
func (p *Pack) FeatureCount() uint32 {
	return binary.LittleEndian.Uint32(p.buf[0:4])
}

// blobOffset reads the directory offset of one min-zoom bucket, 0 when the
// bucket is empty.
func (p *Pack) blobOffset(bucket uint32) (uint32, error) {
	pos := int(binary.LittleEndian.Uint32(p.buf[4:8]))
	for i := uint32(0); ; i++ {
		off, n := binary.Uvarint(p.buf[pos:])
		if n <= 0 {
			return 0, fmt.Errorf("%w: truncated bucket index of %v", ErrCorrupt, p.root)
		}
		if i == bucket {
			return uint32(off), nil
		}
		pos += n
	}
}

// Query emits every feature payload relevant for rendering the lookup tile.
// For lookups at or above the index zoom the whole bucket-0 content is
// emitted; deeper lookups consult the per-bucket quad trees along the path
// from the pack root to the lookup tile.
func (p *Pack) Query(lookup tile.Tile, fn func(payload []byte) error) error {
	maxBucket := uint32(0)
	path := []uint8(nil)
	if lookup.Z > p.root.Z {
		maxBucket = min(lookup.Z-p.root.Z, tile.MaxZ-p.root.Z)
		path = quadKey(p.root, lookup)
	}
	indexOffset := binary.LittleEndian.Uint32(p.buf[4:8])

	for b := uint32(0); b <= maxBucket; b++ {
		blob, err := p.blobOffset(b)
		if err != nil {
			return err
		}
		if blob == 0 {
			continue
		}
		if blob < headerSize || blob >= indexOffset {
			return fmt.Errorf("%w: directory offset %d in %v", ErrCorrupt, blob, p.root)
		}
		err = queryQuadTree(p.buf[blob:indexOffset], path,
			func(offset uint32) error {
				_, err := p.eachSpanPayload(offset, fn)
				return err
			},
			func(first uint32, count uint64) error {
				offset := first
				for i := uint64(0); i < count; i++ {
					next, err := p.eachSpanPayload(offset, fn)
					if err != nil {
						return err
					}
					offset = next
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// EachFeature emits every payload of every min-zoom bucket once.
func (p *Pack) EachFeature(fn func(payload []byte) error) error {
	indexOffset := binary.LittleEndian.Uint32(p.buf[4:8])
	for b := uint32(0); b <= tile.MaxZ-p.root.Z; b++ {
		blob, err := p.blobOffset(b)
		if err != nil {
			return err
		}
		if blob == 0 {
			continue
		}
		err = queryQuadTree(p.buf[blob:indexOffset], nil,
			func(offset uint32) error {
				_, err := p.eachSpanPayload(offset, fn)
				return err
			},
			func(first uint32, count uint64) error {
				offset := first
				for i := uint64(0); i < count; i++ {
					next, err := p.eachSpanPayload(offset, fn)
					if err != nil {
						return err
					}
					offset = next
				}
				return nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// eachSpanPayload iterates the payloads of the span at offset and returns
// the offset right behind the span's terminator.
func (p *Pack) eachSpanPayload(offset uint32, fn func(payload []byte) error) (uint32, error) {
	pos := int(offset)
	for {
		l, n := binary.Uvarint(p.buf[pos:])
		if n <= 0 {
			return 0, fmt.Errorf("%w: truncated span in %v", ErrCorrupt, p.root)
		}
		pos += n
		if l == 0 {
			return uint32(pos), nil
		}
		if l < feature.MinPayloadSize || pos+int(l) > len(p.buf) {
			return 0, fmt.Errorf("%w: span payload of %d bytes in %v", ErrCorrupt, l, p.root)
		}
		if err := fn(p.buf[pos : pos+int(l)]); err != nil {
			return 0, err
		}
		pos += int(l)
	}
}
