package state

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// journalEntry is a revertible state change.
type journalEntry interface {
	revert(j *Journal)
}

// changeLog records entries and the revision ids that index into it.
type changeLog struct {
	entries   []journalEntry
	snapshots map[int]int // snapshot id -> entry index
	nextID    int
}

func newChangeLog() *changeLog {
	return &changeLog{snapshots: make(map[int]int)}
}

func (c *changeLog) append(entry journalEntry) {
	c.entries = append(c.entries, entry)
}

func (c *changeLog) length() int { return len(c.entries) }

func (c *changeLog) snapshot() int {
	id := c.nextID
	c.nextID++
	c.snapshots[id] = len(c.entries)
	return id
}

// revertToSnapshot undoes entries newer than id in reverse order and
// invalidates id and every later snapshot. Unknown ids are ignored.
func (c *changeLog) revertToSnapshot(id int, j *Journal) {
	idx, ok := c.snapshots[id]
	if !ok {
		return
	}
	for i := len(c.entries) - 1; i >= idx; i-- {
		c.entries[i].revert(j)
	}
	c.entries = c.entries[:idx]
	for sid := range c.snapshots {
		if sid >= id {
			delete(c.snapshots, sid)
		}
	}
}

func (c *changeLog) reset() {
	c.entries = c.entries[:0]
	clear(c.snapshots)
}

type createAccountChange struct {
	addr types.Address
	prev *Account
}

func (ch createAccountChange) revert(j *Journal) {
	j.accounts[ch.addr] = ch.prev
}

type createdInTxChange struct {
	addr types.Address
}

func (ch createdInTxChange) revert(j *Journal) {
	delete(j.created, ch.addr)
}

type statusChange struct {
	addr types.Address
	prev AccountStatus
}

func (ch statusChange) revert(j *Journal) {
	if acct := j.accounts[ch.addr]; acct != nil {
		acct.Status = ch.prev
	}
}

type balanceChange struct {
	addr types.Address
	prev *uint256.Int
}

func (ch balanceChange) revert(j *Journal) {
	if acct := j.accounts[ch.addr]; acct != nil {
		acct.Info.Balance = ch.prev
	}
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (ch nonceChange) revert(j *Journal) {
	if acct := j.accounts[ch.addr]; acct != nil {
		acct.Info.Nonce = ch.prev
	}
}

type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash types.Hash
}

func (ch codeChange) revert(j *Journal) {
	if acct := j.accounts[ch.addr]; acct != nil {
		acct.Info.Code = ch.prevCode
		acct.Info.CodeHash = ch.prevHash
	}
}

type storageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (ch storageChange) revert(j *Journal) {
	if acct := j.accounts[ch.addr]; acct != nil {
		if slot := acct.Storage[ch.key]; slot != nil {
			slot.Present = ch.prev
		}
	}
}

type transientStorageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (ch transientStorageChange) revert(j *Journal) {
	j.setTransient(ch.addr, ch.key, ch.prev)
}

type accessListAddAccountChange struct {
	addr types.Address
}

func (ch accessListAddAccountChange) revert(j *Journal) {
	j.accessList.deleteAddress(ch.addr)
}

type accessListAddSlotChange struct {
	addr types.Address
	slot types.Hash
}

func (ch accessListAddSlotChange) revert(j *Journal) {
	j.accessList.deleteSlot(ch.addr, ch.slot)
}

type logChange struct {
	prevLen int
}

func (ch logChange) revert(j *Journal) {
	j.logs = j.logs[:ch.prevLen]
}

type refundChange struct {
	prev uint64
}

func (ch refundChange) revert(j *Journal) {
	j.refund = ch.prev
}
