package rollup

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// DepositTxType is the EIP-2718 type of L1-initiated deposit transactions.
const DepositTxType types.TxType = 0x7E

// DepositInfo holds the fields only deposits carry.
type DepositInfo struct {
	SourceHash types.Hash
	// Mint is credited to the caller before execution. It survives a
	// failed deposit.
	Mint *uint256.Int
	// IsSystemTx marks pre-Regolith system deposits, which use no gas.
	IsSystemTx bool
}

// Transaction is a rollup transaction: the shared fields, the enveloped
// encoding the L1 data fee is charged on, and the deposit fields.
type Transaction struct {
	types.Transaction

	// EnvelopedTx is the EIP-2718 encoding. Required for non-deposits.
	EnvelopedTx []byte
	Deposit     DepositInfo
}

// IsDeposit reports whether tx is a deposit.
func (tx *Transaction) IsDeposit() bool { return tx.Type == DepositTxType }

// MintOrZero returns the minted value, never nil.
func (tx *Transaction) MintOrZero() *uint256.Int {
	if tx.Deposit.Mint == nil {
		return new(uint256.Int)
	}
	return tx.Deposit.Mint
}

// NewDepositTx builds a deposit from caller. The gas price is zero.
func NewDepositTx(source types.Hash, caller types.Address, to *types.Address, mint, value *uint256.Int, gas uint64, data []byte) *Transaction {
	return &Transaction{
		Transaction: types.Transaction{
			Type:     DepositTxType,
			Caller:   caller,
			To:       to,
			GasLimit: gas,
			GasPrice: new(uint256.Int),
			Value:    value,
			Data:     data,
		},
		Deposit: DepositInfo{SourceHash: source, Mint: mint},
	}
}
