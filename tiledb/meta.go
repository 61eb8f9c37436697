package tiledb

import (
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/vesavlad/tiles/feature"
)

// LoadCodingVec reads the shared meta string table; a missing entry yields
// an empty table.
func LoadCodingVec(g Getter) (feature.CodingVec, error) {
	return loadStringTable(g, MetaCodingVec)
}

// LoadLayerNames reads the layer name table.
func LoadLayerNames(g Getter) (feature.CodingVec, error) {
	return loadStringTable(g, MetaLayerNames)
}

func loadStringTable(g Getter, name string) (feature.CodingVec, error) {
	buf, err := g.Get(MetaKey(name), nil)
	if err == leveldb.ErrNotFound {
		return feature.CodingVec{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tiledb: load %s: %w", name, err)
	}
	vec, err := feature.DecodeCodingVec(buf)
	if err != nil {
		return nil, fmt.Errorf("tiledb: load %s: %w", name, err)
	}
	return vec, nil
}

// SaveCodingVec persists the shared meta string table.
func SaveCodingVec(tx *leveldb.Transaction, vec feature.CodingVec) error {
	return tx.Put(MetaKey(MetaCodingVec), feature.AppendCodingVec(nil, vec), nil)
}

// SaveLayerNames persists the layer name table.
func SaveLayerNames(tx *leveldb.Transaction, vec feature.CodingVec) error {
	return tx.Put(MetaKey(MetaLayerNames), feature.AppendCodingVec(nil, vec), nil)
}

// MaxPreparedZ reads the highest prepared zoom level; ok is false when no
// prepare run has finished yet.
func MaxPreparedZ(g Getter) (uint32, bool, error) {
	buf, err := g.Get(MetaKey(MetaMaxPreparedZ), nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("tiledb: load %s: %w", MetaMaxPreparedZ, err)
	}
	z, err := strconv.ParseUint(string(buf), 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("tiledb: bad %s value %q: %w", MetaMaxPreparedZ, buf, err)
	}
	return uint32(z), true, nil
}

// SetMaxPreparedZ records the highest prepared zoom level as ascii.
func SetMaxPreparedZ(tx *leveldb.Transaction, z uint32) error {
	return tx.Put(MetaKey(MetaMaxPreparedZ), []byte(strconv.FormatUint(uint64(z), 10)), nil)
}
