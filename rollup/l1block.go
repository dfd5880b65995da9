package rollup

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// Predeploy addresses.
var (
	L1BlockAddress      = types.HexToAddress("0x4200000000000000000000000000000000000015")
	BaseFeeVaultAddress = types.HexToAddress("0x4200000000000000000000000000000000000019")
	L1FeeVaultAddress   = types.HexToAddress("0x420000000000000000000000000000000000001a")
)

// Storage slots of the L1Block predeploy.
var (
	l1BaseFeeSlot     = types.BytesToHash([]byte{1})
	ecotoneScalarSlot = types.BytesToHash([]byte{3})
	l1OverheadSlot    = types.BytesToHash([]byte{5})
	l1ScalarSlot      = types.BytesToHash([]byte{6})
	l1BlobBaseFeeSlot = types.BytesToHash([]byte{7})
)

const (
	// Byte offsets of the packed scalars in the Ecotone scalar slot.
	baseFeeScalarOffset     = 16
	blobBaseFeeScalarOffset = 20

	zeroByteCost    = 4
	nonZeroByteCost = 16
	// Pre-Regolith data gas includes a 68 byte signature allowance.
	signatureBytes = 68
)

var (
	scalarDivisor        = uint256.NewInt(1_000_000)
	ecotoneScalarDivisor = uint256.NewInt(1_000_000 * nonZeroByteCost)
)

// StateReader reads contract storage.
type StateReader interface {
	GetState(addr types.Address, key types.Hash) types.Hash
}

// L1BlockInfo holds the L1 fee parameters stored in the L1Block
// predeploy for one L2 block.
type L1BlockInfo struct {
	// L2Block is the block number the values were read at.
	L2Block   uint64
	L1BaseFee *uint256.Int
	// L1FeeOverhead is only used by the Bedrock formula.
	L1FeeOverhead   *uint256.Int
	L1BaseFeeScalar *uint256.Int

	L1BlobBaseFee       *uint256.Int
	L1BlobBaseFeeScalar *uint256.Int

	// EmptyEcotoneScalars is set after Ecotone while the predeploy still
	// holds Bedrock values. The Bedrock formula applies then.
	EmptyEcotoneScalars bool
}

// FetchL1BlockInfo reads the L1 fee parameters from the L1Block predeploy.
func FetchL1BlockInfo(db StateReader, spec SpecID, l2Block uint64) *L1BlockInfo {
	read := func(slot types.Hash) *uint256.Int {
		v := db.GetState(L1BlockAddress, slot)
		return new(uint256.Int).SetBytes32(v[:])
	}
	info := &L1BlockInfo{
		L2Block:   l2Block,
		L1BaseFee: read(l1BaseFeeSlot),
	}
	if !spec.Enabled(Ecotone) {
		info.L1FeeOverhead = read(l1OverheadSlot)
		info.L1BaseFeeScalar = read(l1ScalarSlot)
		return info
	}

	info.L1BlobBaseFee = read(l1BlobBaseFeeSlot)
	scalars := db.GetState(L1BlockAddress, ecotoneScalarSlot)
	info.L1BaseFeeScalar = new(uint256.Int).SetBytes(scalars[baseFeeScalarOffset:blobBaseFeeScalarOffset])
	info.L1BlobBaseFeeScalar = new(uint256.Int).SetBytes(scalars[blobBaseFeeScalarOffset : blobBaseFeeScalarOffset+4])

	info.EmptyEcotoneScalars = info.L1BlobBaseFee.IsZero() && allZero(scalars[baseFeeScalarOffset:blobBaseFeeScalarOffset+4])
	if info.EmptyEcotoneScalars {
		info.L1FeeOverhead = read(l1OverheadSlot)
		info.L1BaseFeeScalar = read(l1ScalarSlot)
	}
	return info
}

// DataGas returns the L1 gas charged for posting input.
func (info *L1BlockInfo) DataGas(input []byte, spec SpecID) *uint256.Int {
	var gas uint64
	for _, b := range input {
		if b == 0 {
			gas += zeroByteCost
		} else {
			gas += nonZeroByteCost
		}
	}
	if !spec.Enabled(Regolith) {
		gas += signatureBytes * nonZeroByteCost
	}
	return uint256.NewInt(gas)
}

// L1Cost returns the L1 data fee of an enveloped transaction. Deposits
// and empty input cost nothing.
func (info *L1BlockInfo) L1Cost(input []byte, spec SpecID) *uint256.Int {
	if len(input) == 0 || input[0] == byte(DepositTxType) {
		return new(uint256.Int)
	}
	if spec.Enabled(Ecotone) && !info.EmptyEcotoneScalars {
		return info.ecotoneCost(input, spec)
	}
	return info.bedrockCost(input, spec)
}

// bedrockCost is (dataGas + overhead) * l1BaseFee * scalar / 1e6.
func (info *L1BlockInfo) bedrockCost(input []byte, spec SpecID) *uint256.Int {
	cost := info.DataGas(input, spec)
	cost.Add(cost, orZero(info.L1FeeOverhead))
	cost.Mul(cost, orZero(info.L1BaseFee))
	cost.Mul(cost, orZero(info.L1BaseFeeScalar))
	return cost.Div(cost, scalarDivisor)
}

// ecotoneCost is dataGas * (16 * l1BaseFee * baseFeeScalar +
// blobBaseFee * blobBaseFeeScalar) / 16e6.
func (info *L1BlockInfo) ecotoneCost(input []byte, spec SpecID) *uint256.Int {
	fee := new(uint256.Int).Mul(orZero(info.L1BaseFee), orZero(info.L1BaseFeeScalar))
	fee.Mul(fee, uint256.NewInt(nonZeroByteCost))
	blob := new(uint256.Int).Mul(orZero(info.L1BlobBaseFee), orZero(info.L1BlobBaseFeeScalar))
	fee.Add(fee, blob)

	cost := info.DataGas(input, spec)
	cost.Mul(cost, fee)
	return cost.Div(cost, ecotoneScalarDivisor)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
