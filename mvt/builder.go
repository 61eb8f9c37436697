// Package mvt encodes rendered features as Mapbox Vector Tiles, version 2,
// extent 4096. Geometry arrives on the fixed grid; simplification, clipping
// against the draw bounds, shifting and command-integer encoding happen
// here.
package mvt

import (
	"strings"

	"github.com/gogo/protobuf/proto"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
	"github.com/umpc/go-sortedmap"

	"github.com/vesavlad/tiles/feature"
	"github.com/vesavlad/tiles/fixed"
	"github.com/vesavlad/tiles/tile"
)

const layerVersion = 2

// Builder accumulates the features of one tile, binned by layer name.
type Builder struct {
	spec    tile.Tile
	draw    fixed.Box
	layers  *sortedmap.SortedMap
	skipped int
}

// NewBuilder starts a tile for t.
func NewBuilder(t tile.Tile) *Builder {
	return &Builder{
		spec: t,
		draw: t.DrawBox(),
		layers: sortedmap.New(4, func(x, y interface{}) bool {
			return x.(*layerBuilder).name < y.(*layerBuilder).name
		}),
	}
}

// AddFeature runs the geometry pipeline on f and encodes it into its layer.
// Features without a layer meta entry or outside their zoom range are
// dropped; the former counts as skipped for the caller's log line.
func (b *Builder) AddFeature(f *feature.Feature) {
	name, ok := f.MetaValue("layer")
	if !ok {
		b.skipped++
		return
	}
	if !f.VisibleAt(b.spec.Z) {
		return
	}

	geometry := fixed.Simplify(f.Geometry, b.spec.Z)
	geometry = fixed.Clip(geometry, b.draw)
	if fixed.IsNull(geometry) {
		return
	}
	geometry = fixed.Shift(geometry, b.spec.Z)

	lb := b.layerBuilder(name)
	lb.addFeature(f, geometry)
}

// Skipped is the number of features rejected for missing layer meta.
func (b *Builder) Skipped() int {
	return b.skipped
}

// Finish emits the encoded tile; nil means no layer kept any geometry.
func (b *Builder) Finish() ([]byte, error) {
	t := &vectortile.Tile{}
	for _, key := range b.layers.Keys() {
		lb := b.layers.Map()[key].(*layerBuilder)
		if !lb.hasGeometry {
			continue
		}
		t.Layers = append(t.Layers, lb.finish())
	}
	if len(t.Layers) == 0 {
		return nil, nil
	}
	return proto.Marshal(t)
}

func (b *Builder) layerBuilder(name string) *layerBuilder {
	if v, ok := b.layers.Get(name); ok {
		return v.(*layerBuilder)
	}
	lb := newLayerBuilder(name, b.spec)
	b.layers.Insert(name, lb)
	return lb
}

type layerBuilder struct {
	name string
	spec tile.Tile

	hasGeometry bool
	features    []*vectortile.Tile_Feature

	keys     []string
	keyIdx   map[string]uint32
	values   []string
	valueIdx map[string]uint32
}

func newLayerBuilder(name string, spec tile.Tile) *layerBuilder {
	return &layerBuilder{
		name:     name,
		spec:     spec,
		keyIdx:   map[string]uint32{},
		valueIdx: map[string]uint32{},
	}
}

func (lb *layerBuilder) addFeature(f *feature.Feature, g fixed.Geometry) {
	geomType, commands := encodeGeometry(g, lb.spec)
	if len(commands) == 0 {
		return
	}
	lb.hasGeometry = true

	pf := &vectortile.Tile_Feature{
		Id:       proto.Uint64(f.ID),
		Type:     geomType.Enum(),
		Geometry: commands,
	}
	if f.Meta != nil {
		for pair := f.Meta.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == "layer" || strings.HasPrefix(pair.Key, "__") {
				continue
			}
			pf.Tags = append(pf.Tags, lb.internKey(pair.Key), lb.internValue(pair.Value))
		}
	}
	lb.features = append(lb.features, pf)
}

func (lb *layerBuilder) internKey(k string) uint32 {
	if idx, ok := lb.keyIdx[k]; ok {
		return idx
	}
	idx := uint32(len(lb.keys))
	lb.keys = append(lb.keys, k)
	lb.keyIdx[k] = idx
	return idx
}

func (lb *layerBuilder) internValue(v string) uint32 {
	if idx, ok := lb.valueIdx[v]; ok {
		return idx
	}
	idx := uint32(len(lb.values))
	lb.values = append(lb.values, v)
	lb.valueIdx[v] = idx
	return idx
}

func (lb *layerBuilder) finish() *vectortile.Tile_Layer {
	layer := &vectortile.Tile_Layer{
		Version:  proto.Uint32(layerVersion),
		Name:     proto.String(lb.name),
		Extent:   proto.Uint32(uint32(fixed.TileExtent)),
		Features: lb.features,
		Keys:     lb.keys,
	}
	layer.Values = make([]*vectortile.Tile_Value, len(lb.values))
	for i, v := range lb.values {
		layer.Values[i] = &vectortile.Tile_Value{StringValue: proto.String(v)}
	}
	return layer
}
