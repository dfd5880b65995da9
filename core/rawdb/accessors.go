package rawdb

import "errors"

// ReadCode returns the code stored under hash, or nil.
func ReadCode(db KeyValueReader, hash [32]byte) ([]byte, error) {
	data, err := db.Get(CodeKey(hash))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// WriteCode stores code under its hash.
func WriteCode(db KeyValueWriter, hash [32]byte, code []byte) error {
	return db.Put(CodeKey(hash), code)
}

// ReadBlockHash returns the hash recorded for a block number. The zero
// hash means unknown.
func ReadBlockHash(db KeyValueReader, number uint64) ([32]byte, error) {
	var h [32]byte
	data, err := db.Get(BlockHashKey(number))
	if errors.Is(err, ErrNotFound) {
		return h, nil
	}
	if err != nil {
		return h, err
	}
	copy(h[:], data)
	return h, nil
}

// WriteBlockHash records the hash of a block number.
func WriteBlockHash(db KeyValueWriter, number uint64, hash [32]byte) error {
	return db.Put(BlockHashKey(number), hash[:])
}

// ReadStorage returns a slot value; missing slots are zero.
func ReadStorage(db KeyValueReader, addr [20]byte, slot [32]byte) ([32]byte, error) {
	var v [32]byte
	data, err := db.Get(StorageKey(addr, slot))
	if errors.Is(err, ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	copy(v[32-len(data):], data)
	return v, nil
}

// DeleteStorage removes every slot of addr.
func DeleteStorage(db KeyValueStore, w KeyValueWriter, addr [20]byte) error {
	it := db.NewIterator(StoragePrefix(addr))
	defer it.Release()
	for it.Next() {
		if err := w.Delete(it.Key()); err != nil {
			return err
		}
	}
	return nil
}
