package vm

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// GetHashFunc returns the hash of the block with the given number.
type GetHashFunc func(uint64) types.Hash

// BlockContext provides the EVM with block-level information.
type BlockContext struct {
	GetHash     GetHashFunc
	Number      uint64
	Time        uint64
	Coinbase    types.Address
	GasLimit    uint64
	BaseFee     *uint256.Int
	PrevRandao  types.Hash
	BlobBaseFee *uint256.Int
}

// TxContext provides the EVM with transaction-level information.
type TxContext struct {
	Origin     types.Address
	GasPrice   *uint256.Int
	BlobHashes []types.Hash
}

// StateDB is the journaled world-state view a frame executes against.
// It is defined here to avoid importing core/state; *state.Journal
// implements it.
//
// Reads never return errors. A backend failure is memorized and reported
// by Error; the EVM checks it after every instruction and aborts the
// transaction on the error channel.
type StateDB interface {
	CreateAccount(addr types.Address)
	GetBalance(addr types.Address) *uint256.Int
	AddBalance(addr types.Address, amount *uint256.Int)
	SubBalance(addr types.Address, amount *uint256.Int)
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetCode(addr types.Address) []byte
	GetCodeHash(addr types.Address) types.Hash
	SetCode(addr types.Address, code []byte)

	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key, value types.Hash)
	// GetCommittedState returns the slot value at the start of the transaction.
	GetCommittedState(addr types.Address, key types.Hash) types.Hash

	GetTransientState(addr types.Address, key types.Hash) types.Hash
	SetTransientState(addr types.Address, key, value types.Hash)

	SelfDestruct(addr types.Address)
	HasSelfDestructed(addr types.Address) bool
	// CreatedInTx reports whether addr was created by the running transaction.
	CreatedInTx(addr types.Address) bool

	Exist(addr types.Address) bool
	Empty(addr types.Address) bool

	Snapshot() int
	RevertToSnapshot(id int)

	AddLog(log *types.Log)

	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	AddAddressToAccessList(addr types.Address)
	AddSlotToAccessList(addr types.Address, slot types.Hash)
	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool)

	// BlockHash returns the hash of a recent block from the backend.
	BlockHash(number uint64) types.Hash

	Error() error
}
