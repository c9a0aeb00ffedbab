package spanstate

import (
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// WALIndex is an optional on-disk side index mapping (span_id, instance_id)
// to the byte offset one past the last successfully written row for that
// instance. It exists purely so a crash-recovery test can answer "how far
// did the file-manager get" without re-parsing every CSV file; the live
// span state in State remains in-memory only, per spec.md §3. Grounded on
// dittofs's pkg/store/metadata/badger package for the
// db.Update(func(txn) {...txn.Set...}) transaction shape.
type WALIndex struct {
	db *badger.DB
}

// OpenWALIndex opens (or creates) a badger database at dir.
func OpenWALIndex(dir string) (*WALIndex, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("spanstate: open wal index: %w", err)
	}
	return &WALIndex{db: db}, nil
}

// Close releases the underlying database handle.
func (w *WALIndex) Close() error {
	if w == nil {
		return nil
	}
	return w.db.Close()
}

// Record stores the offset one past the last byte written for
// (spanID, instanceID).
func (w *WALIndex) Record(spanID, instanceID uint32, offset int64) error {
	if w == nil {
		return nil
	}
	key := walKey(spanID, instanceID)
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], uint64(offset))
	return w.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val[:])
	})
}

// Offset returns the last recorded offset for (spanID, instanceID), if
// any.
func (w *WALIndex) Offset(spanID, instanceID uint32) (int64, bool, error) {
	if w == nil {
		return 0, false, nil
	}
	key := walKey(spanID, instanceID)
	var offset int64
	found := false
	err := w.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			offset = int64(binary.LittleEndian.Uint64(val))
			found = true
			return nil
		})
	})
	if err != nil {
		return 0, false, fmt.Errorf("spanstate: wal index lookup: %w", err)
	}
	return offset, found, nil
}

func walKey(spanID, instanceID uint32) []byte {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint32(key[0:4], spanID)
	binary.LittleEndian.PutUint32(key[4:8], instanceID)
	return key
}
