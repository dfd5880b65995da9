// Package rawdb provides the key-value stores backing persistent state and
// the key schema laid over them.
//
// Each data type uses a distinct single-byte key prefix to avoid
// collisions, following go-ethereum's prefix-based schema.
package rawdb

import "errors"

var (
	ErrNotFound = errors.New("not found")
)

// KeyValueReader wraps the Has and Get methods of a backing data store.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete methods of a backing data store.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterator iterates over key/value pairs in ascending key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Batch is a write-only set of changes applied atomically by Write.
type Batch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// KeyValueStore is everything the state backend needs from a store.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	NewBatch() Batch
	// NewIterator iterates over the keys starting with prefix. The
	// iterator works on a point-in-time copy.
	NewIterator(prefix []byte) Iterator
	Close() error
}

type kv struct {
	key, value []byte
}

// sliceIterator walks a sorted, materialized key range.
type sliceIterator struct {
	items []kv
	pos   int
}

func newSliceIterator(items []kv) *sliceIterator {
	return &sliceIterator{items: items, pos: -1}
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *sliceIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].key
}

func (it *sliceIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].value
}

func (it *sliceIterator) Release() { it.items = nil }

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// opBatch collects operations for stores that apply them in one go.
type opBatch struct {
	ops   []batchOp
	size  int
	write func(ops []batchOp) error
}

func (b *opBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, batchOp{key: append([]byte{}, key...), value: append([]byte{}, value...)})
	b.size += len(key) + len(value)
	return nil
}

func (b *opBatch) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: append([]byte{}, key...), delete: true})
	b.size += len(key)
	return nil
}

func (b *opBatch) ValueSize() int { return b.size }

func (b *opBatch) Write() error { return b.write(b.ops) }

func (b *opBatch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}
