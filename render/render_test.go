package render_test

import (
	"testing"

	orbmvt "github.com/paulmach/orb/encoding/mvt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vesavlad/tiles/feature"
	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/pack"
	"github.com/vesavlad/tiles/prepare"
	"github.com/vesavlad/tiles/render"
	"github.com/vesavlad/tiles/tile"
	"github.com/vesavlad/tiles/tiledb"
)

func openTestDB(t *testing.T) *tiledb.Handle {
	t.Helper()
	h, err := tiledb.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func insertTestFeatures(t *testing.T, h *tiledb.Handle) (near, far tile.Tile) {
	t.Helper()
	near = tile.Tile{Z: tile.IndexZ, X: 300, Y: 400}
	far = tile.Tile{Z: tile.IndexZ, X: 600, Y: 200}

	ins := tiledb.NewInserter(h)
	nb := near.PixelBox()
	require.NoError(t, ins.Insert(&feature.Feature{
		ID: 1, MinZ: 0, MaxZ: tile.InvalidZ,
		Meta:     feature.NewMeta("layer", "poi", "name", "near point"),
		Geometry: fixed.Point{X: nb.MinX + 1000, Y: nb.MinY + 1000},
	}))
	require.NoError(t, ins.Insert(&feature.Feature{
		ID: 2, MinZ: 0, MaxZ: tile.InvalidZ,
		Meta: feature.NewMeta("layer", "road", "highway", "service"),
		Geometry: fixed.Polyline{Lines: [][]fixed.XY{{
			{X: nb.MinX + 500, Y: nb.MinY + 500},
			{X: nb.MinX + 200000, Y: nb.MinY + 300000},
		}}},
	}))
	fb := far.PixelBox()
	require.NoError(t, ins.Insert(&feature.Feature{
		ID: 3, MinZ: 0, MaxZ: tile.InvalidZ,
		Meta:     feature.NewMeta("layer", "poi", "name", "far point"),
		Geometry: fixed.Point{X: fb.MinX + 1000, Y: fb.MinY + 1000},
	}))
	require.NoError(t, ins.Flush())
	return near, far
}

func layerNames(t *testing.T, data []byte) map[string]int {
	t.Helper()
	if len(data) == 0 {
		return map[string]int{}
	}
	layers, err := orbmvt.Unmarshal(data)
	require.NoError(t, err)
	out := map[string]int{}
	for _, l := range layers {
		out[l.Name] = len(l.Features)
	}
	return out
}

func TestPackRenderPrepareCycle(t *testing.T) {
	h := openTestDB(t)
	near, _ := insertTestFeatures(t, h)

	require.NoError(t, pack.Run(h))

	// every raw record must have been replaced by a pack
	it := h.DB.NewIterator(tiledb.FeaturesRange(), nil)
	packs := 0
	for it.Next() {
		require.False(t, tiledb.IsRawFeatureKey(it.Key()), "raw record survived packing")
		packs++
	}
	it.Release()
	require.NoError(t, it.Error())
	require.Equal(t, 2, packs)

	ctx, err := render.NewContext(h.DB, zap.NewNop())
	require.NoError(t, err)
	require.False(t, ctx.HasPrepared)
	require.NotEmpty(t, ctx.Coding, "packing must have filled the dictionary")

	t.Run("deep tile renders the near features only", func(t *testing.T) {
		deep := tile.Tile{Z: 12, X: near.X << 2, Y: near.Y << 2}
		data, err := render.Fetch(h, ctx, deep)
		require.NoError(t, err)
		got := layerNames(t, data)
		require.Equal(t, 1, got["poi"])
		require.Equal(t, 1, got["road"])
	})

	t.Run("low zoom tile consults intersecting packs", func(t *testing.T) {
		low := tile.Tile{Z: 4, X: near.X >> 6, Y: near.Y >> 6}
		data, err := render.Fetch(h, ctx, low)
		require.NoError(t, err)
		got := layerNames(t, data)
		require.Equal(t, 1, got["poi"], "near poi expected")
		require.Equal(t, 1, got["road"])
	})

	t.Run("unrelated tile is empty", func(t *testing.T) {
		empty := tile.Tile{Z: 12, X: 0, Y: 0}
		data, err := render.Fetch(h, ctx, empty)
		require.NoError(t, err)
		require.Empty(t, data)
	})

	require.NoError(t, prepare.Run(h, 4))

	ctx, err = render.NewContext(h.DB, zap.NewNop())
	require.NoError(t, err)
	require.True(t, ctx.HasPrepared)
	require.Equal(t, uint32(4), ctx.MaxPrepared)

	t.Run("prepared tiles come from the tiles table", func(t *testing.T) {
		low := tile.Tile{Z: 4, X: near.X >> 6, Y: near.Y >> 6}
		stored, err := h.DB.Get(tiledb.TileKey(tile.ToKey(low)), nil)
		require.NoError(t, err)
		fetched, err := render.Fetch(h, ctx, low)
		require.NoError(t, err)
		require.Equal(t, stored, fetched)
		require.NotEmpty(t, layerNames(t, fetched))
	})

	t.Run("tiles above the watermark render live", func(t *testing.T) {
		deep := tile.Tile{Z: 12, X: near.X << 2, Y: near.Y << 2}
		data, err := render.Fetch(h, ctx, deep)
		require.NoError(t, err)
		require.NotEmpty(t, data)
	})
}

func TestPackRunIsIdempotent(t *testing.T) {
	h := openTestDB(t)
	insertTestFeatures(t, h)
	require.NoError(t, pack.Run(h))
	require.NoError(t, pack.Run(h))

	ctx, err := render.NewContext(h.DB, zap.NewNop())
	require.NoError(t, err)
	data, err := render.Fetch(h, ctx, tile.Tile{Z: 12, X: 300 << 2, Y: 400 << 2})
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
