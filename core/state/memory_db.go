package state

import (
	"maps"
	"sync"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
	"github.com/holiman/uint256"
)

// MemoryDB is an in-memory Database and DatabaseCommit. It is safe for
// concurrent use.
type MemoryDB struct {
	mu          sync.RWMutex
	accounts    map[types.Address]AccountInfo
	storage     map[types.Address]map[types.Hash]types.Hash
	code        map[types.Hash][]byte
	blockHashes map[uint64]types.Hash
}

// NewMemoryDB returns an empty in-memory backend.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts:    make(map[types.Address]AccountInfo),
		storage:     make(map[types.Address]map[types.Hash]types.Hash),
		code:        make(map[types.Hash][]byte),
		blockHashes: make(map[uint64]types.Hash),
	}
}

// InsertAccount stores info at addr, indexing its code by hash.
func (db *MemoryDB) InsertAccount(addr types.Address, info AccountInfo) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.insertAccount(addr, info)
}

func (db *MemoryDB) insertAccount(addr types.Address, info AccountInfo) {
	cp := info.Copy()
	if cp.Code != nil {
		cp.CodeHash = crypto.CodeHash(cp.Code)
		db.code[cp.CodeHash] = cp.Code
	} else if cp.CodeHash == (types.Hash{}) {
		cp.CodeHash = types.EmptyCodeHash
	}
	cp.Code = nil
	db.accounts[addr] = cp
}

// SetAccount is a shortcut for inserting an account with balance, nonce
// and code.
func (db *MemoryDB) SetAccount(addr types.Address, balance *uint256.Int, nonce uint64, code []byte) {
	info := NewAccountInfo()
	if balance != nil {
		info.Balance.Set(balance)
	}
	info.Nonce = nonce
	info.Code = code
	db.InsertAccount(addr, info)
}

// SetStorage writes a slot directly.
func (db *MemoryDB) SetStorage(addr types.Address, key, value types.Hash) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.setStorage(addr, key, value)
}

func (db *MemoryDB) setStorage(addr types.Address, key, value types.Hash) {
	if value == (types.Hash{}) {
		delete(db.storage[addr], key)
		return
	}
	if db.storage[addr] == nil {
		db.storage[addr] = make(map[types.Hash]types.Hash)
	}
	db.storage[addr][key] = value
}

// SetBlockHash records the hash of a block number for BLOCKHASH.
func (db *MemoryDB) SetBlockHash(number uint64, hash types.Hash) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.blockHashes[number] = hash
}

func (db *MemoryDB) Basic(addr types.Address) (*AccountInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	info, ok := db.accounts[addr]
	if !ok {
		return nil, nil
	}
	cp := info.Copy()
	return &cp, nil
}

func (db *MemoryDB) CodeByHash(hash types.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash {
		return nil, nil
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	code, ok := db.code[hash]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return code, nil
}

func (db *MemoryDB) Storage(addr types.Address, key types.Hash) (types.Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.storage[addr][key], nil
}

func (db *MemoryDB) BlockHash(number uint64) (types.Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.blockHashes[number], nil
}

// StorageOf returns a copy of all non-zero slots of addr.
func (db *MemoryDB) StorageOf(addr types.Address) map[types.Hash]types.Hash {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return maps.Clone(db.storage[addr])
}

// Commit applies a finalized State. Self-destructed and touched-empty
// accounts are removed; created accounts have their old storage wiped.
func (db *MemoryDB) Commit(changes State) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for addr, acct := range changes {
		if acct.ShouldDelete() {
			delete(db.accounts, addr)
			delete(db.storage, addr)
			continue
		}
		if !acct.IsTouched() {
			continue
		}
		db.insertAccount(addr, acct.Info)
		if acct.IsCreated() {
			delete(db.storage, addr)
			for k, v := range acct.Storage {
				db.setStorage(addr, k, v.Present)
			}
			continue
		}
		for k, v := range acct.ChangedStorage() {
			db.setStorage(addr, k, v)
		}
	}
	return nil
}
