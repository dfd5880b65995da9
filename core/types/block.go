package types

import "github.com/holiman/uint256"

// BlockEnv is the block-level environment a transaction executes in.
type BlockEnv struct {
	Number     uint64
	Coinbase   Address
	Timestamp  uint64
	GasLimit   uint64
	BaseFee    *uint256.Int
	PrevRandao Hash
	Difficulty *uint256.Int
	// BlobBaseFee is nil on chains without blob support.
	BlobBaseFee *uint256.Int
}

// DefaultBlockGasLimit is used by NewBlockEnv.
const DefaultBlockGasLimit uint64 = 30_000_000

// NewBlockEnv returns a block at height zero with a zero base fee.
func NewBlockEnv() *BlockEnv {
	return &BlockEnv{
		GasLimit:   DefaultBlockGasLimit,
		BaseFee:    new(uint256.Int),
		Difficulty: new(uint256.Int),
	}
}

// BaseFeeOrZero returns the base fee, never nil.
func (b *BlockEnv) BaseFeeOrZero() *uint256.Int {
	if b.BaseFee == nil {
		return new(uint256.Int)
	}
	return b.BaseFee
}

// Copy returns a deep copy of the block environment.
func (b *BlockEnv) Copy() *BlockEnv {
	cpy := *b
	if b.BaseFee != nil {
		cpy.BaseFee = new(uint256.Int).Set(b.BaseFee)
	}
	if b.Difficulty != nil {
		cpy.Difficulty = new(uint256.Int).Set(b.Difficulty)
	}
	if b.BlobBaseFee != nil {
		cpy.BlobBaseFee = new(uint256.Int).Set(b.BlobBaseFee)
	}
	return &cpy
}
