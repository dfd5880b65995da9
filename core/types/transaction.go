package types

import "github.com/holiman/uint256"

// TxType is the EIP-2718 transaction type.
type TxType uint8

const (
	LegacyTxType     TxType = 0x00
	AccessListTxType TxType = 0x01
	DynamicFeeTxType TxType = 0x02
	BlobTxType       TxType = 0x03
	SetCodeTxType    TxType = 0x04
)

// GasPerBlob is the blob gas consumed by a single blob (EIP-4844).
const GasPerBlob uint64 = 1 << 17

// AccessTuple is an element of an EIP-2930 access list.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// Transaction is the decoded transaction environment the execution core
// consumes. Signature checks happen upstream: Caller is the recovered sender.
type Transaction struct {
	Type     TxType
	Caller   Address
	Nonce    uint64
	GasLimit uint64

	// GasPrice is the legacy gas price, or the max fee per gas for
	// dynamic fee transactions.
	GasPrice *uint256.Int
	// GasTipCap is the max priority fee. Nil for legacy pricing.
	GasTipCap *uint256.Int

	// To is nil for contract creation.
	To    *Address
	Value *uint256.Int
	Data  []byte

	// ChainID is nil when the transaction is not replay protected.
	ChainID *uint64

	AccessList        []AccessTuple
	BlobHashes        []Hash
	MaxFeePerBlobGas  *uint256.Int
	AuthorizationList []Authorization
}

// IsCreate reports whether the transaction deploys a contract.
func (tx *Transaction) IsCreate() bool { return tx.To == nil }

// ValueOrZero returns the transferred value, never nil.
func (tx *Transaction) ValueOrZero() *uint256.Int {
	if tx.Value == nil {
		return new(uint256.Int)
	}
	return tx.Value
}

// MaxFee returns the gas price cap, never nil.
func (tx *Transaction) MaxFee() *uint256.Int {
	if tx.GasPrice == nil {
		return new(uint256.Int)
	}
	return tx.GasPrice
}

// EffectiveGasPrice returns min(maxFee, baseFee + tip). Legacy pricing
// always pays GasPrice.
func (tx *Transaction) EffectiveGasPrice(baseFee *uint256.Int) *uint256.Int {
	maxFee := tx.MaxFee()
	if tx.GasTipCap == nil || baseFee == nil {
		return new(uint256.Int).Set(maxFee)
	}
	price := new(uint256.Int).Add(baseFee, tx.GasTipCap)
	if price.Cmp(maxFee) > 0 {
		price.Set(maxFee)
	}
	return price
}

// BlobGas returns the blob gas the transaction consumes.
func (tx *Transaction) BlobGas() uint64 {
	return uint64(len(tx.BlobHashes)) * GasPerBlob
}

// AccessListSize returns the number of addresses and storage keys.
func (tx *Transaction) AccessListSize() (addrs, keys int) {
	for _, t := range tx.AccessList {
		addrs++
		keys += len(t.StorageKeys)
	}
	return addrs, keys
}

// TxEnv returns tx itself. Chain variants embed Transaction and inherit it.
func (tx *Transaction) TxEnv() *Transaction { return tx }
