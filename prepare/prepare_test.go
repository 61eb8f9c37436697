package prepare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/vesavlad/tiles/tile"
)

func testManager(t *testing.T, base tile.Coverage, maxZ uint32) *manager {
	t.Helper()
	bar := pb.New64(1 << 30)
	return newManager(base, maxZ, bar, zap.NewNop())
}

func TestGetBatchWalksEveryTileOnce(t *testing.T) {
	base := tile.Coverage{Z: tile.IndexZ, MinX: 16, MinY: 16, MaxX: 19, MaxY: 17}
	maxZ := uint32(6)
	m := testManager(t, base, maxZ)

	want := uint64(0)
	for z := uint32(0); z <= maxZ; z++ {
		want += base.OnZoom(z).Count()
	}

	seen := map[tile.Tile]bool{}
	for {
		batch := m.getBatch()
		if len(batch) == 0 {
			break
		}
		for _, task := range batch {
			require.False(t, seen[task.tile], "tile %v issued twice", task.tile)
			require.LessOrEqual(t, task.tile.Z, maxZ)
			seen[task.tile] = true
		}
	}
	require.Equal(t, want, uint64(len(seen)))
}

func TestGetBatchSpreadsLowZoomDraws(t *testing.T) {
	// at zoom 0 the stride is 256, so one batch draws a single tile
	base := tile.Coverage{Z: tile.IndexZ, MinX: 0, MinY: 0, MaxX: 1023, MaxY: 1023}
	m := testManager(t, base, 0)
	batch := m.getBatch()
	require.Len(t, batch, 1)
	require.Equal(t, tile.Tile{Z: 0, X: 0, Y: 0}, batch[0].tile)
}

func TestFinishTracksStats(t *testing.T) {
	base := tile.Coverage{Z: tile.IndexZ, MinX: 0, MinY: 0, MaxX: 0, MaxY: 0}
	m := testManager(t, base, 2)
	for {
		batch := m.getBatch()
		if len(batch) == 0 {
			break
		}
		for _, task := range batch {
			size := 0
			if task.tile.Z == 2 {
				size = 100
			}
			m.finish(task.tile, size, time.Millisecond)
		}
	}
	require.Equal(t, m.stats[0].total, m.stats[0].finished)
	require.Equal(t, uint64(1), m.stats[0].empty)
	require.Equal(t, uint64(0), m.stats[2].empty)
	require.Equal(t, uint64(100), m.stats[2].sumSize)
}
