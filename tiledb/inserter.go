package tiledb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/vesavlad/tiles/feature"
	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/tile"
)

// flushThreshold bounds the bytes buffered by an Inserter before it writes.
const flushThreshold = 16 * 1024 * 1024

// Inserter buffers raw feature records during ingestion and writes them in
// batched transactions under their index-tile spatial key.
type Inserter struct {
	handle *Handle

	pending map[tile.Key][][]byte
	size    int
	seq     uint64
	count   uint64
}

// NewInserter creates an inserter over the handle.
func NewInserter(h *Handle) *Inserter {
	return &Inserter{handle: h, pending: make(map[tile.Key][][]byte)}
}

// Insert serializes f (ingest form) and buffers it under the index tile that
// owns its bounding box: the tile containing the bbox centroid, or the tile
// of the bbox min corner when the box crosses an index-tile boundary.
func (in *Inserter) Insert(f *feature.Feature) error {
	box, err := fixed.BoundingBox(f.Geometry)
	if err != nil {
		return fmt.Errorf("tiledb: insert feature %d: %w", f.ID, err)
	}

	owner := tileAt(box.Center(), tile.IndexZ)
	if !owner.InsertBox().Contains(box) {
		owner = tileAt(fixed.XY{X: box.MinX, Y: box.MinY}, tile.IndexZ)
	}

	key := tile.ToKey(owner)
	payload := feature.Serialize(f, nil, nil)
	in.pending[key] = append(in.pending[key], payload)
	in.size += len(payload)
	in.count++

	if in.size >= flushThreshold {
		return in.Flush()
	}
	return nil
}

// Flush writes all buffered records in one transaction.
func (in *Inserter) Flush() error {
	if in.size == 0 {
		return nil
	}
	err := in.handle.Update(func(tx *leveldb.Transaction) error {
		for key, payloads := range in.pending {
			for _, payload := range payloads {
				if err := tx.Put(RawFeatureKey(key, in.seq), payload, nil); err != nil {
					return err
				}
				in.seq++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	in.handle.Log.Debug("flushed feature batch",
		zap.Int("bytes", in.size), zap.Int("tiles", len(in.pending)))
	in.pending = make(map[tile.Key][][]byte)
	in.size = 0
	return nil
}

// Count is the number of features inserted so far.
func (in *Inserter) Count() uint64 {
	return in.count
}

// tileAt returns the tile of zoom z containing a fixed-grid point.
func tileAt(pt fixed.XY, z uint32) tile.Tile {
	shift := uint(fixed.Bits - z)
	limit := fixed.Coord(1)<<z - 1
	x := min(max(pt.X>>shift, 0), limit)
	y := min(max(pt.Y>>shift, 0), limit)
	return tile.Tile{Z: z, X: uint32(x), Y: uint32(y)}
}
