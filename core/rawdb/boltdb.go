package rawdb

import (
	"bytes"
	"fmt"

	"go.etcd.io/bbolt"
)

var stateBucket = []byte("evmcore")

// BoltDB is a KeyValueStore kept in a single bbolt bucket.
type BoltDB struct {
	bolt *bbolt.DB
}

// NewBoltDB opens (or creates) the bbolt file at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{})
	if err != nil {
		return nil, fmt.Errorf("rawdb: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("rawdb: create bucket: %w", err)
	}
	return &BoltDB{bolt: db}, nil
}

func (db *BoltDB) Has(key []byte) (bool, error) {
	var ok bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(stateBucket).Get(key) != nil
		return nil
	})
	return ok, err
}

// Get returns a copy of the value: bbolt slices are only valid inside the
// transaction.
func (db *BoltDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(stateBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		val = bytes.Clone(v)
		return nil
	})
	return val, err
}

func (db *BoltDB) Put(key, value []byte) error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put(key, value)
	})
}

func (db *BoltDB) Delete(key []byte) error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Delete(key)
	})
}

// NewBatch returns a batch applied in a single bbolt transaction.
func (db *BoltDB) NewBatch() Batch {
	return &opBatch{write: db.apply}
}

func (db *BoltDB) apply(ops []batchOp) error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		for _, op := range ops {
			var err error
			if op.delete {
				err = b.Delete(op.key)
			} else {
				err = b.Put(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// NewIterator copies the prefix range out of a read transaction.
func (db *BoltDB) NewIterator(prefix []byte) Iterator {
	var items []kv
	db.bolt.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(stateBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			items = append(items, kv{key: bytes.Clone(k), value: bytes.Clone(v)})
		}
		return nil
	})
	return newSliceIterator(items)
}

func (db *BoltDB) Close() error { return db.bolt.Close() }

// Path returns the file backing the store.
func (db *BoltDB) Path() string { return db.bolt.Path() }
