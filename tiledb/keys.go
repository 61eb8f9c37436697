package tiledb

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vesavlad/tiles/tile"
)

// Table prefix bytes.
const (
	prefixFeatures = 'f'
	prefixTiles    = 't'
	prefixMeta     = 'm'
)

// Meta value names.
const (
	MetaMaxPreparedZ = "max_prepared_z"
	MetaCodingVec    = "coding_vec"
	MetaLayerNames   = "layer_names"
)

// PackKey addresses the feature pack of an index tile: prefix plus 8 bytes.
func PackKey(k tile.Key) []byte {
	buf := make([]byte, 9)
	buf[0] = prefixFeatures
	binary.BigEndian.PutUint64(buf[1:], k)
	return buf
}

// RawFeatureKey addresses one raw (unpacked) feature record: the pack key
// plus an 8-byte insertion sequence number. Raw records of a tile therefore
// sort directly behind the tile's pack.
func RawFeatureKey(k tile.Key, seq uint64) []byte {
	buf := make([]byte, 17)
	buf[0] = prefixFeatures
	binary.BigEndian.PutUint64(buf[1:], k)
	binary.BigEndian.PutUint64(buf[9:], seq)
	return buf
}

// IsRawFeatureKey distinguishes raw records from packs by key length.
func IsRawFeatureKey(key []byte) bool {
	return len(key) == 17
}

// SpatialKey extracts the tile key from a features-table key of either form.
func SpatialKey(key []byte) tile.Key {
	return binary.BigEndian.Uint64(key[1:9])
}

// TileKey addresses a prepared tile in the tiles table.
func TileKey(k tile.Key) []byte {
	buf := make([]byte, 9)
	buf[0] = prefixTiles
	binary.BigEndian.PutUint64(buf[1:], k)
	return buf
}

// MetaKey addresses a named meta value.
func MetaKey(name string) []byte {
	return append([]byte{prefixMeta}, name...)
}

// FeaturesRange spans the whole features table.
func FeaturesRange() *util.Range {
	return util.BytesPrefix([]byte{prefixFeatures})
}

// FeaturesRangeFrom spans the features table starting at spatial key k.
func FeaturesRangeFrom(k tile.Key) *util.Range {
	r := FeaturesRange()
	r.Start = PackKey(k)
	return r
}

// TilesRange spans the whole tiles table.
func TilesRange() *util.Range {
	return util.BytesPrefix([]byte{prefixTiles})
}

// FeatureRowRange spans the features-table keys of one index-tile row
// segment [from, to] at the index zoom (same y, inclusive x range).
func FeatureRowRange(from, to tile.Key) *util.Range {
	r := FeaturesRange()
	r.Start = PackKey(from)
	r.Limit = PackKey(to + 1)
	return r
}
