package state

import (
	"errors"
	"fmt"

	"github.com/eth2030/evmcore/core/rawdb"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// storedAccount is the RLP layout of an account in a key-value store.
type storedAccount struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash types.Hash
}

// KVDatabase persists state in a rawdb.KeyValueStore: accounts as RLP,
// slots as 32-byte values and code by hash.
type KVDatabase struct {
	db rawdb.KeyValueStore
}

// NewKVDatabase wraps a key-value store.
func NewKVDatabase(db rawdb.KeyValueStore) *KVDatabase {
	return &KVDatabase{db: db}
}

// Store returns the underlying key-value store.
func (d *KVDatabase) Store() rawdb.KeyValueStore { return d.db }

func (d *KVDatabase) Basic(addr types.Address) (*AccountInfo, error) {
	data, err := d.db.Get(rawdb.AccountKey(addr))
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: read account %s: %w", addr, err)
	}
	var acc storedAccount
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", addr, err)
	}
	info := AccountInfo{Balance: acc.Balance, Nonce: acc.Nonce, CodeHash: acc.CodeHash}
	if info.Balance == nil {
		info.Balance = new(uint256.Int)
	}
	return &info, nil
}

func (d *KVDatabase) CodeByHash(hash types.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash {
		return nil, nil
	}
	code, err := rawdb.ReadCode(d.db, hash)
	if err != nil {
		return nil, fmt.Errorf("state: read code %s: %w", hash, err)
	}
	if code == nil {
		return nil, fmt.Errorf("%w: %s", ErrCodeNotFound, hash)
	}
	return code, nil
}

func (d *KVDatabase) Storage(addr types.Address, key types.Hash) (types.Hash, error) {
	v, err := rawdb.ReadStorage(d.db, addr, key)
	if err != nil {
		return types.Hash{}, fmt.Errorf("state: read slot %s/%s: %w", addr, key, err)
	}
	return v, nil
}

func (d *KVDatabase) BlockHash(number uint64) (types.Hash, error) {
	h, err := rawdb.ReadBlockHash(d.db, number)
	if err != nil {
		return types.Hash{}, fmt.Errorf("state: read block hash %d: %w", number, err)
	}
	return h, nil
}

// WriteAccount stores an account outside of a commit, for genesis-style
// setup.
func (d *KVDatabase) WriteAccount(addr types.Address, info AccountInfo) error {
	b := d.db.NewBatch()
	if err := writeAccount(b, addr, info); err != nil {
		return err
	}
	return b.Write()
}

func writeAccount(w rawdb.KeyValueWriter, addr types.Address, info AccountInfo) error {
	hash := info.CodeHash
	if len(info.Code) > 0 {
		hash = crypto.CodeHash(info.Code)
		if err := rawdb.WriteCode(w, hash, info.Code); err != nil {
			return err
		}
	}
	if hash == (types.Hash{}) {
		hash = types.EmptyCodeHash
	}
	balance := info.Balance
	if balance == nil {
		balance = new(uint256.Int)
	}
	data, err := rlp.EncodeToBytes(&storedAccount{Nonce: info.Nonce, Balance: balance, CodeHash: hash})
	if err != nil {
		return fmt.Errorf("state: encode account %s: %w", addr, err)
	}
	return w.Put(rawdb.AccountKey(addr), data)
}

func writeSlot(w rawdb.KeyValueWriter, addr types.Address, key, value types.Hash) error {
	if value == (types.Hash{}) {
		return w.Delete(rawdb.StorageKey(addr, key))
	}
	return w.Put(rawdb.StorageKey(addr, key), value[:])
}

// Commit writes a finalized State in one batch.
func (d *KVDatabase) Commit(changes State) error {
	b := d.db.NewBatch()
	for addr, acct := range changes {
		if acct.ShouldDelete() || acct.IsCreated() {
			if err := rawdb.DeleteStorage(d.db, b, addr); err != nil {
				return fmt.Errorf("state: wipe storage %s: %w", addr, err)
			}
		}
		if acct.ShouldDelete() {
			if err := b.Delete(rawdb.AccountKey(addr)); err != nil {
				return err
			}
			continue
		}
		if !acct.IsTouched() {
			continue
		}
		if err := writeAccount(b, addr, acct.Info); err != nil {
			return err
		}
		for k, slot := range acct.Storage {
			if !slot.IsChanged() && !acct.IsCreated() {
				continue
			}
			if err := writeSlot(b, addr, k, slot.Present); err != nil {
				return err
			}
		}
	}
	if err := b.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}
