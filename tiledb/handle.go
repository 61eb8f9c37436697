// Package tiledb wraps the embedded key-value store behind the three logical
// tables of the pipeline: features (spatial key to raw records or packs),
// tiles (tile key to MVT bytes) and meta (named values). Keys are one table
// prefix byte plus big-endian integers so lexicographic order equals numeric
// order and range cursors walk tiles in key order.
package tiledb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"
)

// Handle is the open database plus the logger every phase shares.
type Handle struct {
	DB  *leveldb.DB
	Log *zap.Logger
}

// Open opens (or creates) the database at path.
func Open(path string, log *zap.Logger) (*Handle, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		Filter: filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, fmt.Errorf("tiledb: open %s: %w", path, err)
	}
	return &Handle{DB: db, Log: log}, nil
}

// Close closes the underlying store.
func (h *Handle) Close() error {
	return h.DB.Close()
}

// Getter is the read surface shared by the DB, snapshots and transactions.
type Getter interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
}

// Update runs fn inside a write transaction and commits it. The transaction
// is discarded when fn fails.
func (h *Handle) Update(fn func(tx *leveldb.Transaction) error) error {
	tx, err := h.DB.OpenTransaction()
	if err != nil {
		return fmt.Errorf("tiledb: open transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tiledb: commit: %w", err)
	}
	return nil
}

// UpdateSync is Update followed by a synced write barrier, used between the
// read-delete and write-back halves of a pack batch.
func (h *Handle) UpdateSync(fn func(tx *leveldb.Transaction) error) error {
	if err := h.Update(fn); err != nil {
		return err
	}
	// an empty synced batch flushes the journal
	return h.DB.Write(new(leveldb.Batch), &opt.WriteOptions{Sync: true})
}
