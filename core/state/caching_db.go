package state

import (
	"errors"

	"github.com/eth2030/evmcore/core/types"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	cacheHitMeter  = metrics.NewRegisteredMeter("evmcore/state/cache/hit", nil)
	cacheMissMeter = metrics.NewRegisteredMeter("evmcore/state/cache/miss", nil)
)

// ErrCommitUnsupported is returned by CachingDB.Commit when the wrapped
// backend is read-only.
var ErrCommitUnsupported = errors.New("state: backend does not support commit")

// DefaultCacheSize is the entry limit of each CachingDB cache.
const DefaultCacheSize = 4096

type slotKey struct {
	addr types.Address
	key  types.Hash
}

// CachingDB puts LRU caches for accounts, code and slots in front of a
// Database. Commit forwards to the wrapped backend and purges the caches.
type CachingDB struct {
	inner    Database
	accounts *lru.Cache[types.Address, *AccountInfo]
	code     *lru.Cache[types.Hash, []byte]
	slots    *lru.Cache[slotKey, types.Hash]
}

// NewCachingDB wraps inner with caches of size entries each. A size of
// zero or less uses DefaultCacheSize.
func NewCachingDB(inner Database, size int) *CachingDB {
	if size <= 0 {
		size = DefaultCacheSize
	}
	accounts, _ := lru.New[types.Address, *AccountInfo](size)
	code, _ := lru.New[types.Hash, []byte](size)
	slots, _ := lru.New[slotKey, types.Hash](size)
	return &CachingDB{inner: inner, accounts: accounts, code: code, slots: slots}
}

// Basic caches misses too. The returned info is a copy.
func (c *CachingDB) Basic(addr types.Address) (*AccountInfo, error) {
	if info, ok := c.accounts.Get(addr); ok {
		cacheHitMeter.Mark(1)
		if info == nil {
			return nil, nil
		}
		cp := info.Copy()
		return &cp, nil
	}
	cacheMissMeter.Mark(1)
	info, err := c.inner.Basic(addr)
	if err != nil {
		return nil, err
	}
	if info == nil {
		c.accounts.Add(addr, nil)
		return nil, nil
	}
	cp := info.Copy()
	c.accounts.Add(addr, &cp)
	return info, nil
}

func (c *CachingDB) CodeByHash(hash types.Hash) ([]byte, error) {
	if code, ok := c.code.Get(hash); ok {
		cacheHitMeter.Mark(1)
		return code, nil
	}
	cacheMissMeter.Mark(1)
	code, err := c.inner.CodeByHash(hash)
	if err != nil {
		return nil, err
	}
	c.code.Add(hash, code)
	return code, nil
}

func (c *CachingDB) Storage(addr types.Address, key types.Hash) (types.Hash, error) {
	k := slotKey{addr, key}
	if v, ok := c.slots.Get(k); ok {
		cacheHitMeter.Mark(1)
		return v, nil
	}
	cacheMissMeter.Mark(1)
	v, err := c.inner.Storage(addr, key)
	if err != nil {
		return types.Hash{}, err
	}
	c.slots.Add(k, v)
	return v, nil
}

func (c *CachingDB) BlockHash(number uint64) (types.Hash, error) {
	return c.inner.BlockHash(number)
}

// Commit forwards to the wrapped backend and purges the account and slot
// caches. Code is content-addressed and stays cached.
func (c *CachingDB) Commit(changes State) error {
	dc, ok := c.inner.(DatabaseCommit)
	if !ok {
		return ErrCommitUnsupported
	}
	defer func() {
		c.accounts.Purge()
		c.slots.Purge()
	}()
	return dc.Commit(changes)
}

// Len returns the number of cached accounts, code entries and slots.
func (c *CachingDB) Len() (accounts, code, slots int) {
	return c.accounts.Len(), c.code.Len(), c.slots.Len()
}
