package rawdb

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryDB is an in-memory KeyValueStore. It is safe for concurrent use.
type MemoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryDB creates a new in-memory database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{data: make(map[string][]byte)}
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	val, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(val), nil
}

func (db *MemoryDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = bytes.Clone(value)
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemoryDB) Close() error { return nil }

// NewBatch creates a new batch writer.
func (db *MemoryDB) NewBatch() Batch {
	return &opBatch{write: db.apply}
}

func (db *MemoryDB) apply(ops []batchOp) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, op := range ops {
		if op.delete {
			delete(db.data, string(op.key))
		} else {
			db.data[string(op.key)] = op.value
		}
	}
	return nil
}

// NewIterator returns an iterator over all keys with the given prefix.
func (db *MemoryDB) NewIterator(prefix []byte) Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var keys []string
	for k := range db.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	items := make([]kv, len(keys))
	for i, k := range keys {
		items[i] = kv{key: []byte(k), value: bytes.Clone(db.data[k])}
	}
	return newSliceIterator(items)
}

// Len returns the number of entries in the database.
func (db *MemoryDB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.data)
}
