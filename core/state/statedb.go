package state

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
	"github.com/holiman/uint256"
)

// Journal is the checkpointable world-state view a transaction executes
// against. Accounts and slots are loaded lazily from a Database, changes
// accumulate across transactions until Finalize drains them.
//
// Reads never fail: the first backend error is memorized and reported by
// Error, and reads that hit it return zero values.
type Journal struct {
	db       Database
	accounts map[types.Address]*Account

	changes    *changeLog
	accessList *accessList
	transient  map[types.Address]map[types.Hash]types.Hash
	created    map[types.Address]struct{}
	logs       []*types.Log
	refund     uint64

	txSnapshot int
	dbErr      error
}

// NewJournal returns an empty journal reading from db.
func NewJournal(db Database) *Journal {
	return &Journal{
		db:         db,
		accounts:   make(map[types.Address]*Account),
		changes:    newChangeLog(),
		accessList: newAccessList(),
		transient:  make(map[types.Address]map[types.Hash]types.Hash),
		created:    make(map[types.Address]struct{}),
	}
}

// Database returns the backend the journal reads from.
func (j *Journal) Database() Database { return j.db }

// Error returns the first backend error seen since the last DiscardTx or
// Finalize.
func (j *Journal) Error() error { return j.dbErr }

func (j *Journal) setError(err error) {
	if j.dbErr == nil {
		j.dbErr = err
	}
}

// loadAccount returns the account at addr, fetching it on first access.
// Missing accounts are cached with AccountNotExisting.
func (j *Journal) loadAccount(addr types.Address) *Account {
	if acct := j.accounts[addr]; acct != nil {
		return acct
	}
	info, err := j.db.Basic(addr)
	if err != nil {
		j.setError(err)
		return newAccount(NewAccountInfo(), AccountNotExisting)
	}
	var acct *Account
	if info == nil {
		acct = newAccount(NewAccountInfo(), AccountNotExisting)
	} else {
		cp := info.Copy()
		if cp.CodeHash == (types.Hash{}) {
			cp.CodeHash = types.EmptyCodeHash
		}
		acct = newAccount(cp, 0)
	}
	j.accounts[addr] = acct
	return acct
}

// markChanged flags the account as touched and existing.
func (j *Journal) markChanged(addr types.Address, acct *Account) {
	next := (acct.Status | AccountTouched) &^ AccountNotExisting
	if next != acct.Status {
		j.changes.append(statusChange{addr: addr, prev: acct.Status})
		acct.Status = next
	}
}

// Account returns the journaled account at addr, loading it if needed.
// The result must not be modified.
func (j *Journal) Account(addr types.Address) *Account {
	return j.loadAccount(addr)
}

// Touch marks addr as accessed for EIP-161 empty-account removal.
func (j *Journal) Touch(addr types.Address) {
	j.markChanged(addr, j.loadAccount(addr))
}

// CreateAccount resets addr to a fresh account that keeps its balance.
func (j *Journal) CreateAccount(addr types.Address) {
	prev := j.loadAccount(addr)
	info := NewAccountInfo()
	info.Balance.Set(prev.Info.Balance)
	acct := newAccount(info, (prev.Status|AccountCreated|AccountTouched)&^AccountNotExisting)
	j.changes.append(createAccountChange{addr: addr, prev: prev})
	j.accounts[addr] = acct
	if _, ok := j.created[addr]; !ok {
		j.changes.append(createdInTxChange{addr: addr})
		j.created[addr] = struct{}{}
	}
}

// CreatedInTx reports whether addr was created by the running transaction.
func (j *Journal) CreatedInTx(addr types.Address) bool {
	_, ok := j.created[addr]
	return ok
}

func (j *Journal) GetBalance(addr types.Address) *uint256.Int {
	return j.loadAccount(addr).Info.Balance
}

func (j *Journal) setBalance(addr types.Address, acct *Account, v *uint256.Int) {
	j.changes.append(balanceChange{addr: addr, prev: acct.Info.Balance})
	acct.Info.Balance = v
	j.markChanged(addr, acct)
}

func (j *Journal) AddBalance(addr types.Address, amount *uint256.Int) {
	acct := j.loadAccount(addr)
	j.setBalance(addr, acct, new(uint256.Int).Add(acct.Info.Balance, amount))
}

// SubBalance subtracts amount. Callers check the balance first.
func (j *Journal) SubBalance(addr types.Address, amount *uint256.Int) {
	acct := j.loadAccount(addr)
	j.setBalance(addr, acct, new(uint256.Int).Sub(acct.Info.Balance, amount))
}

// SetBalance overwrites the balance of addr.
func (j *Journal) SetBalance(addr types.Address, amount *uint256.Int) {
	j.setBalance(addr, j.loadAccount(addr), new(uint256.Int).Set(amount))
}

func (j *Journal) GetNonce(addr types.Address) uint64 {
	return j.loadAccount(addr).Info.Nonce
}

func (j *Journal) SetNonce(addr types.Address, nonce uint64) {
	acct := j.loadAccount(addr)
	j.changes.append(nonceChange{addr: addr, prev: acct.Info.Nonce})
	acct.Info.Nonce = nonce
	j.markChanged(addr, acct)
}

func (j *Journal) GetCode(addr types.Address) []byte {
	acct := j.loadAccount(addr)
	if acct.Info.Code != nil || acct.Info.CodeHash == types.EmptyCodeHash {
		return acct.Info.Code
	}
	code, err := j.db.CodeByHash(acct.Info.CodeHash)
	if err != nil {
		j.setError(err)
		return nil
	}
	acct.Info.Code = code
	return code
}

// GetCodeHash returns the code hash, or the zero hash for an account that
// does not exist.
func (j *Journal) GetCodeHash(addr types.Address) types.Hash {
	acct := j.loadAccount(addr)
	if acct.Status.Has(AccountNotExisting) {
		return types.Hash{}
	}
	return acct.Info.CodeHash
}

func (j *Journal) SetCode(addr types.Address, code []byte) {
	acct := j.loadAccount(addr)
	j.changes.append(codeChange{addr: addr, prevCode: acct.Info.Code, prevHash: acct.Info.CodeHash})
	acct.Info.Code = code
	acct.Info.CodeHash = crypto.CodeHash(code)
	j.markChanged(addr, acct)
}

func (j *Journal) slot(addr types.Address, acct *Account, key types.Hash) *StorageSlot {
	if s := acct.Storage[key]; s != nil {
		return s
	}
	// Storage of a created account starts empty. Anything else, including an
	// address the backend has no account for, reads through to the backend.
	var value types.Hash
	if !acct.IsCreated() {
		v, err := j.db.Storage(addr, key)
		if err != nil {
			j.setError(err)
			return &StorageSlot{}
		}
		value = v
	}
	s := &StorageSlot{Original: value, Present: value, txOriginal: value}
	acct.Storage[key] = s
	return s
}

func (j *Journal) GetState(addr types.Address, key types.Hash) types.Hash {
	acct := j.loadAccount(addr)
	return j.slot(addr, acct, key).Present
}

// GetCommittedState returns the value the slot had when the running
// transaction started.
func (j *Journal) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	acct := j.loadAccount(addr)
	return j.slot(addr, acct, key).txOriginal
}

func (j *Journal) SetState(addr types.Address, key, value types.Hash) {
	acct := j.loadAccount(addr)
	s := j.slot(addr, acct, key)
	j.markChanged(addr, acct)
	if s.Present == value {
		return
	}
	j.changes.append(storageChange{addr: addr, key: key, prev: s.Present})
	s.Present = value
}

func (j *Journal) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	return j.transient[addr][key]
}

func (j *Journal) SetTransientState(addr types.Address, key, value types.Hash) {
	prev := j.GetTransientState(addr, key)
	if prev == value {
		return
	}
	j.changes.append(transientStorageChange{addr: addr, key: key, prev: prev})
	j.setTransient(addr, key, value)
}

func (j *Journal) setTransient(addr types.Address, key, value types.Hash) {
	if value == (types.Hash{}) {
		delete(j.transient[addr], key)
		if len(j.transient[addr]) == 0 {
			delete(j.transient, addr)
		}
		return
	}
	if j.transient[addr] == nil {
		j.transient[addr] = make(map[types.Hash]types.Hash)
	}
	j.transient[addr][key] = value
}

// SelfDestruct zeroes the balance of addr and schedules it for removal.
func (j *Journal) SelfDestruct(addr types.Address) {
	acct := j.loadAccount(addr)
	if acct.Status.Has(AccountNotExisting) {
		return
	}
	j.setBalance(addr, acct, new(uint256.Int))
	if !acct.IsSelfDestructed() {
		j.changes.append(statusChange{addr: addr, prev: acct.Status})
		acct.Status |= AccountSelfDestructed
	}
}

func (j *Journal) HasSelfDestructed(addr types.Address) bool {
	return j.loadAccount(addr).IsSelfDestructed()
}

func (j *Journal) Exist(addr types.Address) bool {
	return !j.loadAccount(addr).Status.Has(AccountNotExisting)
}

func (j *Journal) Empty(addr types.Address) bool {
	acct := j.loadAccount(addr)
	return acct.Status.Has(AccountNotExisting) || acct.IsEmpty()
}

func (j *Journal) Snapshot() int { return j.changes.snapshot() }

func (j *Journal) RevertToSnapshot(id int) { j.changes.revertToSnapshot(id, j) }

func (j *Journal) AddLog(log *types.Log) {
	j.changes.append(logChange{prevLen: len(j.logs)})
	j.logs = append(j.logs, log)
}

// Logs returns the logs emitted by the running transaction.
func (j *Journal) Logs() []*types.Log { return j.logs }

func (j *Journal) AddRefund(gas uint64) {
	j.changes.append(refundChange{prev: j.refund})
	j.refund += gas
}

func (j *Journal) SubRefund(gas uint64) {
	j.changes.append(refundChange{prev: j.refund})
	if gas > j.refund {
		panic("state: refund counter below zero")
	}
	j.refund -= gas
}

func (j *Journal) GetRefund() uint64 { return j.refund }

func (j *Journal) AddAddressToAccessList(addr types.Address) {
	if !j.accessList.addAddress(addr) {
		j.changes.append(accessListAddAccountChange{addr: addr})
	}
}

func (j *Journal) AddSlotToAccessList(addr types.Address, slot types.Hash) {
	addrPresent, slotPresent := j.accessList.addSlot(addr, slot)
	if !addrPresent {
		j.changes.append(accessListAddAccountChange{addr: addr})
	}
	if !slotPresent {
		j.changes.append(accessListAddSlotChange{addr: addr, slot: slot})
	}
}

func (j *Journal) AddressInAccessList(addr types.Address) bool {
	return j.accessList.containsAddress(addr)
}

func (j *Journal) SlotInAccessList(addr types.Address, slot types.Hash) (addressOk, slotOk bool) {
	return j.accessList.containsSlot(addr, slot)
}

// BlockHash returns the hash of block number from the backend.
func (j *Journal) BlockHash(number uint64) types.Hash {
	h, err := j.db.BlockHash(number)
	if err != nil {
		j.setError(err)
		return types.Hash{}
	}
	return h
}

// BeginTx opens a transaction: the point DiscardTx rolls back to.
func (j *Journal) BeginTx() {
	j.resetTx()
	j.txSnapshot = j.changes.snapshot()
}

// CommitTx closes the running transaction. Its changes can no longer be
// reverted; the logs it emitted are returned.
func (j *Journal) CommitTx() []*types.Log {
	for _, e := range j.changes.entries {
		if ch, ok := e.(storageChange); ok {
			if acct := j.accounts[ch.addr]; acct != nil && acct.Storage[ch.key] != nil {
				acct.Storage[ch.key].txOriginal = acct.Storage[ch.key].Present
			}
		}
	}
	logs := j.logs
	j.changes.reset()
	j.resetTx()
	return logs
}

// DiscardTx rolls back everything since BeginTx, including a memorized
// backend error.
func (j *Journal) DiscardTx() {
	j.changes.revertToSnapshot(j.txSnapshot, j)
	j.changes.reset()
	j.resetTx()
	j.dbErr = nil
}

func (j *Journal) resetTx() {
	j.accessList.reset()
	clear(j.transient)
	clear(j.created)
	j.logs = nil
	j.refund = 0
}

// Finalize drains the accounts touched, created or destroyed since the
// last call and resets the journal. A second call returns an empty State.
func (j *Journal) Finalize() State {
	out := make(State)
	for addr, acct := range j.accounts {
		if acct.Status&(AccountTouched|AccountCreated|AccountSelfDestructed) != 0 {
			out[addr] = acct
		}
	}
	j.accounts = make(map[types.Address]*Account)
	j.changes.reset()
	j.resetTx()
	j.dbErr = nil
	return out
}
