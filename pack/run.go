package pack

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/vesavlad/tiles/tile"
	"github.com/vesavlad/tiles/tiledb"
)

// BatchBytes bounds the pack output produced per batch.
const BatchBytes = 64 * 1024 * 1024

// Run converts every raw feature list in the database into a feature pack.
// Each batch reads the source records, builds their packs and deletes the
// records in one transaction, syncs, then writes the packs back in a second
// transaction. The spatial key of the first unconverted tile carries the
// loop from one batch to the next, which seeks to it. The key is held in
// memory only: a restarted run scans from the start and skips the tiles
// that are already packed.
func Run(h *tiledb.Handle) error {
	vec, err := tiledb.LoadCodingVec(h.DB)
	if err != nil {
		return err
	}
	coding := vec.Map()

	var resumeKey *tile.Key
	batches := 0
	for {
		type packed struct {
			key tile.Key
			buf []byte
		}
		var out []packed
		outSize := 0

		err := h.UpdateSync(func(tx *leveldb.Transaction) error {
			rng := tiledb.FeaturesRange()
			if resumeKey != nil {
				rng = tiledb.FeaturesRangeFrom(*resumeKey)
			}
			resumeKey = nil

			it := tx.NewIterator(rng, nil)
			defer it.Release()

			current := tile.Key(0)
			haveCurrent := false
			var raw [][]byte
			var doomed [][]byte

			flush := func() error {
				if !haveCurrent || len(raw) == 0 {
					return nil
				}
				t := tile.FromKey(current)
				buf, err := Build(t, raw, coding, &vec)
				if err != nil {
					return err
				}
				out = append(out, packed{key: current, buf: buf})
				outSize += len(buf)
				raw = nil
				return nil
			}

			for it.Next() {
				if !tiledb.IsRawFeatureKey(it.Key()) {
					continue // already packed
				}
				key := tiledb.SpatialKey(it.Key())
				if haveCurrent && key != current && outSize >= BatchBytes {
					k := key
					resumeKey = &k
					break
				}
				if !haveCurrent || key != current {
					if err := flush(); err != nil {
						return err
					}
					current = key
					haveCurrent = true
				}
				raw = append(raw, append([]byte(nil), it.Value()...))
				doomed = append(doomed, append([]byte(nil), it.Key()...))
			}
			if err := it.Error(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return err
			}

			for _, key := range doomed {
				if err := tx.Delete(key, nil); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("pack: collect batch: %w", err)
		}

		if len(out) == 0 && resumeKey == nil {
			break
		}

		err = tiledb.WithRetry(h.Log, "pack writeback", func() error {
			return h.Update(func(tx *leveldb.Transaction) error {
				for _, p := range out {
					if err := tx.Put(tiledb.PackKey(p.key), p.buf, nil); err != nil {
						return err
					}
				}
				return tiledb.SaveCodingVec(tx, vec)
			})
		})
		if err != nil {
			return fmt.Errorf("pack: write batch: %w", err)
		}

		batches++
		h.Log.Info("packed batch",
			zap.Int("batch", batches),
			zap.Int("tiles", len(out)),
			zap.Int("bytes", outSize))

		if resumeKey == nil {
			break
		}
	}

	h.Log.Info("packing done", zap.Int("batches", batches), zap.Int("dictionary", len(vec)))
	return nil
}

