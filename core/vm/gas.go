package vm

// Gas schedule, Berlin onward.
const (
	GasZero         uint64 = 0
	GasBase         uint64 = 2
	GasVeryLow      uint64 = 3
	GasLow          uint64 = 5
	GasMid          uint64 = 8
	GasHigh         uint64 = 10
	GasJumpDest     uint64 = 1
	GasKeccak256    uint64 = 30
	GasKeccakWord   uint64 = 6
	GasCopyWord     uint64 = 3
	GasExpByte      uint64 = 50
	GasMemory       uint64 = 3
	GasQuadCoeffDiv uint64 = 512

	GasLog      uint64 = 375
	GasLogTopic uint64 = 375
	GasLogData  uint64 = 8

	GasCreate       uint64 = 32000
	GasCreateData   uint64 = 200
	GasInitCodeWord uint64 = 2
	GasSelfDestruct uint64 = 5000
	GasCallValue    uint64 = 9000
	GasCallStipend  uint64 = 2300
	GasNewAccount   uint64 = 25000
	CallGasFraction uint64 = 64
	GasBlockHash    uint64 = 20

	ColdAccountAccessCost uint64 = 2600
	ColdSloadCost         uint64 = 2100
	WarmStorageReadCost   uint64 = 100

	SstoreSetGas       uint64 = 20000
	SstoreResetGas     uint64 = 5000
	SstoreSentryGas    uint64 = 2300
	SstoreClearsRefund uint64 = 4800

	// Transaction-level costs.
	TxGas                     uint64 = 21000
	TxGasContractCreation     uint64 = 53000
	TxDataZeroGas             uint64 = 4
	TxDataNonZeroGas          uint64 = 16
	TxAccessListAddressGas    uint64 = 2400
	TxAccessListStorageKeyGas uint64 = 1900

	// RefundQuotient caps refunds to gasUsed/5 (EIP-3529).
	RefundQuotient uint64 = 5

	MaxCodeSize     = 24576
	MaxInitCodeSize = 2 * MaxCodeSize
	CallDepthLimit  = 1024
)

// toWordSize returns the number of 32-byte words needed for size bytes.
func toWordSize(size uint64) uint64 {
	if size > ^uint64(0)-31 {
		return ^uint64(0)/32 + 1
	}
	return (size + 31) / 32
}

// memoryGasCost returns the incremental cost of growing mem to newSize
// bytes. The quadratic total is cached on the memory.
func memoryGasCost(mem *Memory, newSize uint64) (uint64, error) {
	if newSize == 0 {
		return 0, nil
	}
	// Beyond this size the square overflows; no block holds that much gas.
	if newSize > 0x1FFFFFFFE0 {
		return 0, HaltOutOfGas
	}
	words := toWordSize(newSize)
	newSize = words * 32
	if newSize <= uint64(mem.Len()) {
		return 0, nil
	}
	total := words*GasMemory + words*words/GasQuadCoeffDiv
	fee := total - mem.lastGasCost
	mem.lastGasCost = total
	return fee, nil
}

// callGas applies the 63/64 rule (EIP-150) to the requested call gas.
func callGas(available, base uint64, requested uint64, requestedOverflow bool) (uint64, error) {
	if available < base {
		return 0, HaltOutOfGas
	}
	available -= base
	capped := available - available/CallGasFraction
	if requestedOverflow || requested > capped {
		return capped, nil
	}
	return requested, nil
}
