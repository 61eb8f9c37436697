// Package feature defines the classified map feature record and its binary
// codec. Records travel through the database twice: raw (meta as strings)
// right after ingestion and coded (meta as dictionary indices) inside
// feature packs.
package feature

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/tile"
)

// Feature is one classified OSM feature.
type Feature struct {
	ID    uint64
	Layer uint32
	// MinZ and MaxZ bound the zoom range the feature renders in.
	// MaxZ == tile.InvalidZ means unbounded.
	MinZ, MaxZ uint32
	Meta       *orderedmap.OrderedMap[string, string]
	Geometry   fixed.Geometry
}

// NewMeta builds an ordered meta map from alternating key/value pairs.
func NewMeta(pairs ...string) *orderedmap.OrderedMap[string, string] {
	m := orderedmap.New[string, string]()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// MetaValue looks up a meta key, tolerating a nil map.
func (f *Feature) MetaValue(key string) (string, bool) {
	if f.Meta == nil {
		return "", false
	}
	return f.Meta.Get(key)
}

// VisibleAt reports whether the feature participates at zoom z.
func (f *Feature) VisibleAt(z uint32) bool {
	if z < f.MinZ {
		return false
	}
	return f.MaxZ == tile.InvalidZ || z <= f.MaxZ
}
