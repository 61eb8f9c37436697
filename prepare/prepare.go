// Package prepare renders all tiles of a zoom range in parallel and stores
// them in the tiles table. Workers pull batches from a shared cursor that
// walks the populated coverage zoom by zoom.
package prepare

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/vesavlad/tiles/render"
	"github.com/vesavlad/tiles/tile"
	"github.com/vesavlad/tiles/tiledb"
)

const batchSize = 1 << 8

type zoomStats struct {
	total    uint64
	finished uint64
	empty    uint64
	sumSize  uint64
	sumDur   time.Duration
}

type task struct {
	tile   tile.Tile
	packs  []render.PackRef
	result []byte
}

// failure keeps the first error any worker hit.
type failure struct {
	mu  sync.Mutex
	err error
}

func (f *failure) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *failure) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// manager hands out tile batches and aggregates per-zoom statistics. One
// mutex guards everything; workers only ever block here or on the store.
type manager struct {
	mu sync.Mutex

	maxZ, curZ uint32
	base       tile.Coverage
	cur        tile.Coverage
	pos        uint64

	stats []zoomStats
	bar   *pb.ProgressBar
	log   *zap.Logger
}

func newManager(base tile.Coverage, maxZ uint32, bar *pb.ProgressBar, log *zap.Logger) *manager {
	return &manager{
		maxZ:  maxZ,
		base:  base,
		cur:   base.OnZoom(0),
		stats: make([]zoomStats, maxZ+1),
		bar:   bar,
		log:   log,
	}
}

// getBatch draws up to 256 tiles. Every tile drawn at a zoom z below 8 uses
// up 2^(8-z) of the 256 slots, so low zoom batches hold few tiles. The tiles
// of a batch are consecutive in the coverage's scanline order; a batch is
// not spread out across the zoom's range.
func (m *manager) getBatch() []task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var batch []task
	for i := uint32(0); i < batchSize; i += uint32(1) << uint(max(8-int(m.curZ), 0)) {
		if m.curZ > m.maxZ {
			break
		}
		m.stats[m.curZ].total++
		batch = append(batch, task{tile: m.cur.At(m.pos)})
		m.pos++

		if m.pos >= m.cur.Count() {
			m.curZ++
			if m.curZ <= m.maxZ {
				m.cur = m.base.OnZoom(m.curZ)
			}
			m.pos = 0
		}
	}
	return batch
}

func (m *manager) finish(t tile.Tile, size int, dur time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.stats[t.Z]
	s.finished++
	s.sumSize += uint64(size)
	s.sumDur += dur
	if size == 0 {
		s.empty++
	}
	m.bar.Increment()

	if t.Z == m.curZ || s.finished < s.total {
		return
	}
	avg := uint64(0)
	if s.total > s.empty {
		avg = s.sumSize / (s.total - s.empty)
	}
	m.log.Info("zoom level prepared",
		zap.Uint32("z", t.Z),
		zap.Uint64("total", s.total),
		zap.Uint64("empty", s.empty),
		zap.Uint64("avg_bytes", avg),
		zap.Duration("dur", s.sumDur))
}

// coverage finds the axis-aligned hull of all populated index tiles.
func coverage(h *tiledb.Handle) (tile.Coverage, error) {
	cov := tile.EmptyCoverage(tile.IndexZ)
	it := h.DB.NewIterator(tiledb.FeaturesRange(), nil)
	defer it.Release()
	for it.Next() {
		cov = cov.Extend(tile.FromKey(tiledb.SpatialKey(it.Key())))
	}
	if err := it.Error(); err != nil {
		return cov, fmt.Errorf("prepare: scan coverage: %w", err)
	}
	return cov, nil
}

// Run prepares every tile with z in [0, maxZ] over the populated coverage
// and records the watermark afterwards.
func Run(h *tiledb.Handle, maxZ uint32) error {
	base, err := coverage(h)
	if err != nil {
		return err
	}
	if base.Empty() {
		return fmt.Errorf("prepare: no features in database")
	}

	ctx, err := render.NewContext(h.DB, h.Log)
	if err != nil {
		return err
	}

	total := int64(0)
	for z := uint32(0); z <= maxZ; z++ {
		total += int64(base.OnZoom(z).Count())
	}
	bar := pb.New64(total).Prefix("prepare ")
	bar.SetRefreshRate(time.Second)
	bar.Start()

	m := newManager(base, maxZ, bar, h.Log)

	var failed failure
	var wg sync.WaitGroup
	for i := 0; i < runtime.GOMAXPROCS(0); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for failed.get() == nil {
				batch := m.getBatch()
				if len(batch) == 0 {
					return
				}
				if err := runBatch(h, ctx, m, batch); err != nil {
					failed.set(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	bar.Finish()

	if err := failed.get(); err != nil {
		return err
	}

	err = h.Update(func(tx *leveldb.Transaction) error {
		return tiledb.SetMaxPreparedZ(tx, maxZ)
	})
	if err != nil {
		return err
	}
	h.Log.Info("prepared tiles", zap.Uint32("max_z", maxZ), zap.Int64("count", total))
	return nil
}

func runBatch(h *tiledb.Handle, ctx *render.Context, m *manager, batch []task) error {
	snap, err := h.DB.GetSnapshot()
	if err != nil {
		return fmt.Errorf("prepare: snapshot: %w", err)
	}
	for i := range batch {
		batch[i].packs, err = render.CollectPacks(snap, batch[i].tile)
		if err != nil {
			snap.Release()
			return err
		}
	}
	snap.Release()

	for i := range batch {
		start := time.Now()
		batch[i].result, err = render.RenderTile(ctx, batch[i].tile, batch[i].packs)
		if err != nil {
			return err
		}
		m.finish(batch[i].tile, len(batch[i].result), time.Since(start))
	}

	return tiledb.WithRetry(h.Log, "prepare writeback", func() error {
		return h.Update(func(tx *leveldb.Transaction) error {
			for i := range batch {
				if len(batch[i].result) == 0 {
					continue
				}
				key := tiledb.TileKey(tile.ToKey(batch[i].tile))
				if err := tx.Put(key, batch[i].result, nil); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
