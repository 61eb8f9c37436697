// Package render turns stored feature packs into encoded tiles. A Context
// caches the shared dictionaries so repeated renders only touch the packs
// they need.
package render

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/vesavlad/tiles/feature"
	"github.com/vesavlad/tiles/mvt"
	"github.com/vesavlad/tiles/pack"
	"github.com/vesavlad/tiles/tile"
	"github.com/vesavlad/tiles/tiledb"
)

// Reader is the read surface of the database needed for rendering: the DB
// itself, a snapshot or a transaction.
type Reader interface {
	tiledb.Getter
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// Context carries the data shared between renders: the meta coding table,
// the layer names and the prepared-zoom watermark.
type Context struct {
	Coding      feature.CodingVec
	LayerNames  feature.CodingVec
	MaxPrepared uint32
	HasPrepared bool
	Log         *zap.Logger
}

// NewContext loads the shared dictionaries.
func NewContext(r Reader, log *zap.Logger) (*Context, error) {
	coding, err := tiledb.LoadCodingVec(r)
	if err != nil {
		return nil, err
	}
	layers, err := tiledb.LoadLayerNames(r)
	if err != nil {
		return nil, err
	}
	maxPrep, ok, err := tiledb.MaxPreparedZ(r)
	if err != nil {
		return nil, err
	}
	return &Context{
		Coding:      coding,
		LayerNames:  layers,
		MaxPrepared: maxPrep,
		HasPrepared: ok,
		Log:         log,
	}, nil
}

// PackRef is one feature pack a render will visit.
type PackRef struct {
	Tile tile.Tile
	Data []byte
}

// CollectPacks gathers the packs relevant for rendering t: the single
// ancestor pack for deep tiles, every intersecting index tile otherwise.
func CollectPacks(r Reader, t tile.Tile) ([]PackRef, error) {
	if t.Z >= tile.IndexZ {
		idx := t.AncestorAt(tile.IndexZ)
		value, err := r.Get(tiledb.PackKey(tile.ToKey(idx)), nil)
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("render: pack %v: %w", idx, err)
		}
		return []PackRef{{Tile: idx, Data: value}}, nil
	}

	// low zoom: walk the index-tile rows under t in key order
	cov := tile.Coverage{Z: t.Z, MinX: t.X, MinY: t.Y, MaxX: t.X, MaxY: t.Y}.OnZoom(tile.IndexZ)
	var refs []PackRef
	for y := cov.MinY; y <= cov.MaxY; y++ {
		from := tile.ToKey(tile.Tile{Z: tile.IndexZ, X: cov.MinX, Y: y})
		to := tile.ToKey(tile.Tile{Z: tile.IndexZ, X: cov.MaxX, Y: y})
		it := r.NewIterator(tiledb.FeatureRowRange(from, to), nil)
		for it.Next() {
			if tiledb.IsRawFeatureKey(it.Key()) {
				continue
			}
			idx := tile.FromKey(tiledb.SpatialKey(it.Key()))
			// morton ranges within a row include detours through other rows
			if idx.Y != y || idx.X < cov.MinX || idx.X > cov.MaxX {
				continue
			}
			refs = append(refs, PackRef{Tile: idx, Data: append([]byte(nil), it.Value()...)})
		}
		it.Release()
		if err := it.Error(); err != nil {
			return nil, fmt.Errorf("render: scan row %d: %w", y, err)
		}
	}
	return refs, nil
}

// RenderTile renders t from the given packs. A nil result is an empty tile.
func RenderTile(ctx *Context, t tile.Tile, refs []PackRef) ([]byte, error) {
	builder := mvt.NewBuilder(t)

	for _, ref := range refs {
		p, err := pack.Open(ref.Tile, ref.Data)
		if err != nil {
			return nil, err
		}
		err = p.Query(t, func(payload []byte) error {
			f, err := feature.Deserialize(payload, ctx.Coding)
			if err != nil {
				ctx.Log.Warn("skipping malformed feature", zap.Stringer("tile", t), zap.Error(err))
				return nil
			}
			builder.AddFeature(f)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if n := builder.Skipped(); n > 0 {
		ctx.Log.Warn("skipped features without layer meta", zap.Stringer("tile", t), zap.Int("count", n))
	}
	return builder.Finish()
}

// Fetch serves the bytes for t: prepared tiles straight from the tiles
// table, anything above the prepared watermark rendered live.
func Fetch(h *tiledb.Handle, ctx *Context, t tile.Tile) ([]byte, error) {
	if ctx.HasPrepared && t.Z <= ctx.MaxPrepared {
		value, err := h.DB.Get(tiledb.TileKey(tile.ToKey(t)), nil)
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("render: fetch %v: %w", t, err)
		}
		return value, nil
	}

	snap, err := h.DB.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("render: snapshot: %w", err)
	}
	defer snap.Release()

	refs, err := CollectPacks(snap, t)
	if err != nil {
		return nil, err
	}
	return RenderTile(ctx, t, refs)
}
