package state

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// AccountInfo is the account data a backend stores: balance, nonce and
// code. Code may be nil when only the hash is known.
type AccountInfo struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash types.Hash
	Code     []byte
}

// NewAccountInfo returns an info with zero balance and no code.
func NewAccountInfo() AccountInfo {
	return AccountInfo{Balance: new(uint256.Int), CodeHash: types.EmptyCodeHash}
}

// IsEmpty reports EIP-161 emptiness: zero nonce, zero balance, no code.
func (a *AccountInfo) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) &&
		(a.CodeHash == types.EmptyCodeHash || a.CodeHash == (types.Hash{}))
}

// Copy returns a deep copy.
func (a *AccountInfo) Copy() AccountInfo {
	cp := *a
	cp.Balance = new(uint256.Int)
	if a.Balance != nil {
		cp.Balance.Set(a.Balance)
	}
	return cp
}

// StorageSlot holds the value a slot had when it was loaded from the
// backend and its present value.
type StorageSlot struct {
	Original types.Hash
	Present  types.Hash

	// txOriginal is the value at the start of the running transaction,
	// used by SSTORE gas metering.
	txOriginal types.Hash
}

// IsChanged reports whether the slot differs from the backend.
func (s *StorageSlot) IsChanged() bool { return s.Original != s.Present }

// AccountStatus flags describe what happened to an account since the last
// finalize.
type AccountStatus uint8

const (
	// AccountTouched is set by any state access that counts as a touch
	// under EIP-161.
	AccountTouched AccountStatus = 1 << iota
	// AccountCreated is set when a contract was deployed at the address.
	// Backend storage for it must be wiped on commit.
	AccountCreated
	// AccountSelfDestructed removes the account on commit.
	AccountSelfDestructed
	// AccountNotExisting marks an address the backend did not know.
	AccountNotExisting
)

// Has reports whether all flags in f are set.
func (s AccountStatus) Has(f AccountStatus) bool { return s&f == f }

// Account is an account as seen by the journal.
type Account struct {
	Info    AccountInfo
	Storage map[types.Hash]*StorageSlot
	Status  AccountStatus
}

func newAccount(info AccountInfo, status AccountStatus) *Account {
	return &Account{Info: info, Storage: make(map[types.Hash]*StorageSlot), Status: status}
}

// copy returns a deep copy of the account and its slots.
func (a *Account) copy() *Account {
	cp := newAccount(a.Info.Copy(), a.Status)
	for k, v := range a.Storage {
		slot := *v
		cp.Storage[k] = &slot
	}
	return cp
}

// IsTouched reports whether the account was touched.
func (a *Account) IsTouched() bool { return a.Status.Has(AccountTouched) }

// IsSelfDestructed reports whether the account was destroyed.
func (a *Account) IsSelfDestructed() bool { return a.Status.Has(AccountSelfDestructed) }

// IsCreated reports whether code was deployed at the account.
func (a *Account) IsCreated() bool { return a.Status.Has(AccountCreated) }

// IsEmpty reports EIP-161 emptiness of the account info.
func (a *Account) IsEmpty() bool { return a.Info.IsEmpty() }

// ChangedStorage returns the slots whose present value differs from the
// backend.
func (a *Account) ChangedStorage() map[types.Hash]types.Hash {
	out := make(map[types.Hash]types.Hash)
	for k, v := range a.Storage {
		if v.IsChanged() {
			out[k] = v.Present
		}
	}
	return out
}

// State is the set of accounts changed since the last finalize, keyed by
// address.
type State map[types.Address]*Account

// ShouldDelete reports whether committing the account removes it from the
// backend: it self-destructed, or it was touched and is empty.
func (a *Account) ShouldDelete() bool {
	return a.IsSelfDestructed() || (a.IsTouched() && a.IsEmpty())
}
