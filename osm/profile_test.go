package osm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vesavlad/tiles/tile"
)

func TestDefaultProfileClassify(t *testing.T) {
	p := DefaultProfile()

	cls, ok := p.Classify(map[string]string{"highway": "primary", "name": "A1"}, KindWay)
	require.True(t, ok)
	require.Equal(t, "road", cls.Layer)
	require.Equal(t, uint32(tile.InvalidZ), cls.MaxZ)

	_, ok = p.Classify(map[string]string{"highway": "primary"}, KindNode)
	require.False(t, ok, "way rules must not match nodes")

	cls, ok = p.Classify(map[string]string{"natural": "water"}, KindArea)
	require.True(t, ok)
	require.Equal(t, "water", cls.Layer)
	require.Equal(t, uint32(4), cls.MinZ)

	_, ok = p.Classify(map[string]string{"natural": "cliff"}, KindArea)
	require.False(t, ok, "wildcard must not leak across values")
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	content := `{
		"comment": "unknown fields are fine",
		"rules": [
			{"layer": "piste", "match": {"piste:type": "*"}, "kinds": ["way"], "min_zoom": 11, "max_zoom": 18, "keep_tags": ["name"]}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	require.Len(t, p.Rules, 1)

	cls, ok := p.Classify(map[string]string{"piste:type": "downhill"}, KindWay)
	require.True(t, ok)
	require.Equal(t, "piste", cls.Layer)
	require.Equal(t, uint32(11), cls.MinZ)
	require.Equal(t, uint32(18), cls.MaxZ)
}

func TestLoadProfileRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	_, err := LoadProfile(path)
	require.Error(t, err)
}

func TestProject(t *testing.T) {
	worldMid := int64(1) << (32 - 1)

	// null island lands at the center of the grid
	pt := project([2]float64{0, 0})
	require.InDelta(t, float64(worldMid), float64(pt.X), 2)
	require.InDelta(t, float64(worldMid), float64(pt.Y), 2)

	// west is left of east, north is above south (y grows southward)
	west := project([2]float64{-10, 0})
	east := project([2]float64{10, 0})
	require.Less(t, west.X, east.X)

	north := project([2]float64{0, 10})
	south := project([2]float64{0, -10})
	require.Less(t, north.Y, south.Y)

	// out-of-range latitudes clamp instead of overflowing
	top := project([2]float64{0, 89.9})
	require.GreaterOrEqual(t, top.Y, int64(0))
}
