package vm

type (
	executionFunc func(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error)
	// dynamicGasFunc returns the gas charged on top of constantGas,
	// including memory expansion to memorySize.
	dynamicGasFunc func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error)
	// memorySizeFunc returns the memory an operation touches. The bool
	// reports overflow, which the interpreter treats as out of gas.
	memorySizeFunc func(stack *Stack) (uint64, bool)
)

// operation is a single opcode's execution metadata.
type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  dynamicGasFunc
	minStack    int
	maxStack    int
	memorySize  memorySizeFunc
	// halts ends the frame after execute (STOP, RETURN, SELFDESTRUCT).
	halts bool
}

// JumpTable maps every opcode to its operation; nil entries are undefined.
type JumpTable [256]*operation

func minStack(pops, _ int) int { return pops }

func maxStack(pops, push int) int { return stackLimit + pops - push }

var (
	berlinTable   = newBerlinTable()
	londonTable   = newLondonTable()
	shanghaiTable = newShanghaiTable()
	cancunTable   = newCancunTable()
)

// jumpTableFor selects the instruction set. Specs before Berlin run with
// Berlin metering.
func jumpTableFor(spec SpecID) *JumpTable {
	switch {
	case spec.Enabled(Cancun):
		return &cancunTable
	case spec.Enabled(Shanghai):
		return &shanghaiTable
	case spec.Enabled(London):
		return &londonTable
	default:
		return &berlinTable
	}
}

func newCancunTable() JumpTable {
	t := newShanghaiTable()
	t[TLOAD] = &operation{execute: opTload, constantGas: WarmStorageReadCost, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	t[TSTORE] = &operation{execute: opTstore, constantGas: WarmStorageReadCost, minStack: minStack(2, 0), maxStack: maxStack(2, 0)}
	t[MCOPY] = &operation{execute: opMcopy, constantGas: GasVeryLow, dynamicGas: gasMcopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryMcopy}
	t[BLOBHASH] = &operation{execute: opBlobHash, constantGas: GasVeryLow, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	t[BLOBBASEFEE] = &operation{execute: opBlobBaseFee, constantGas: GasBase, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	return t
}

func newShanghaiTable() JumpTable {
	t := newLondonTable()
	t[PUSH0] = &operation{execute: opPush0, constantGas: GasBase, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	return t
}

func newLondonTable() JumpTable {
	t := newBerlinTable()
	t[BASEFEE] = &operation{execute: opBaseFee, constantGas: GasBase, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	return t
}

func newBerlinTable() JumpTable {
	var t JumpTable
	simple := func(op OpCode, fn executionFunc, gas uint64, pops, push int) {
		t[op] = &operation{execute: fn, constantGas: gas, minStack: minStack(pops, push), maxStack: maxStack(pops, push)}
	}

	t[STOP] = &operation{execute: opStop, minStack: minStack(0, 0), maxStack: maxStack(0, 0), halts: true}
	simple(ADD, opAdd, GasVeryLow, 2, 1)
	simple(MUL, opMul, GasLow, 2, 1)
	simple(SUB, opSub, GasVeryLow, 2, 1)
	simple(DIV, opDiv, GasLow, 2, 1)
	simple(SDIV, opSdiv, GasLow, 2, 1)
	simple(MOD, opMod, GasLow, 2, 1)
	simple(SMOD, opSmod, GasLow, 2, 1)
	simple(ADDMOD, opAddmod, GasMid, 3, 1)
	simple(MULMOD, opMulmod, GasMid, 3, 1)
	t[EXP] = &operation{execute: opExp, constantGas: GasHigh, dynamicGas: gasExp, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	simple(SIGNEXTEND, opSignExtend, GasLow, 2, 1)

	simple(LT, opLt, GasVeryLow, 2, 1)
	simple(GT, opGt, GasVeryLow, 2, 1)
	simple(SLT, opSlt, GasVeryLow, 2, 1)
	simple(SGT, opSgt, GasVeryLow, 2, 1)
	simple(EQ, opEq, GasVeryLow, 2, 1)
	simple(ISZERO, opIszero, GasVeryLow, 1, 1)
	simple(AND, opAnd, GasVeryLow, 2, 1)
	simple(OR, opOr, GasVeryLow, 2, 1)
	simple(XOR, opXor, GasVeryLow, 2, 1)
	simple(NOT, opNot, GasVeryLow, 1, 1)
	simple(BYTE, opByte, GasVeryLow, 2, 1)
	simple(SHL, opSHL, GasVeryLow, 2, 1)
	simple(SHR, opSHR, GasVeryLow, 2, 1)
	simple(SAR, opSAR, GasVeryLow, 2, 1)
	t[KECCAK256] = &operation{execute: opKeccak256, constantGas: GasKeccak256, dynamicGas: gasKeccak256, minStack: minStack(2, 1), maxStack: maxStack(2, 1), memorySize: memoryKeccak256}

	simple(ADDRESS, opAddress, GasBase, 0, 1)
	t[BALANCE] = &operation{execute: opBalance, constantGas: WarmStorageReadCost, dynamicGas: gasAccountAccess, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	simple(ORIGIN, opOrigin, GasBase, 0, 1)
	simple(CALLER, opCaller, GasBase, 0, 1)
	simple(CALLVALUE, opCallValue, GasBase, 0, 1)
	simple(CALLDATALOAD, opCallDataLoad, GasVeryLow, 1, 1)
	simple(CALLDATASIZE, opCallDataSize, GasBase, 0, 1)
	t[CALLDATACOPY] = &operation{execute: opCallDataCopy, constantGas: GasVeryLow, dynamicGas: gasCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCopy}
	simple(CODESIZE, opCodeSize, GasBase, 0, 1)
	t[CODECOPY] = &operation{execute: opCodeCopy, constantGas: GasVeryLow, dynamicGas: gasCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCopy}
	simple(GASPRICE, opGasprice, GasBase, 0, 1)
	t[EXTCODESIZE] = &operation{execute: opExtCodeSize, constantGas: WarmStorageReadCost, dynamicGas: gasAccountAccess, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	t[EXTCODECOPY] = &operation{execute: opExtCodeCopy, constantGas: WarmStorageReadCost, dynamicGas: gasExtCodeCopy, minStack: minStack(4, 0), maxStack: maxStack(4, 0), memorySize: memoryExtCodeCopy}
	simple(RETURNDATASIZE, opReturnDataSize, GasBase, 0, 1)
	t[RETURNDATACOPY] = &operation{execute: opReturnDataCopy, constantGas: GasVeryLow, dynamicGas: gasCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCopy}
	t[EXTCODEHASH] = &operation{execute: opExtCodeHash, constantGas: WarmStorageReadCost, dynamicGas: gasAccountAccess, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}

	simple(BLOCKHASH, opBlockhash, GasBlockHash, 1, 1)
	simple(COINBASE, opCoinbase, GasBase, 0, 1)
	simple(TIMESTAMP, opTimestamp, GasBase, 0, 1)
	simple(NUMBER, opNumber, GasBase, 0, 1)
	simple(PREVRANDAO, opPrevRandao, GasBase, 0, 1)
	simple(GASLIMIT, opGasLimit, GasBase, 0, 1)
	simple(CHAINID, opChainID, GasBase, 0, 1)
	simple(SELFBALANCE, opSelfBalance, GasLow, 0, 1)

	simple(POP, opPop, GasBase, 1, 0)
	t[MLOAD] = &operation{execute: opMload, constantGas: GasVeryLow, dynamicGas: gasMemoryOnly, minStack: minStack(1, 1), maxStack: maxStack(1, 1), memorySize: memoryMload}
	t[MSTORE] = &operation{execute: opMstore, constantGas: GasVeryLow, dynamicGas: gasMemoryOnly, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMstore}
	t[MSTORE8] = &operation{execute: opMstore8, constantGas: GasVeryLow, dynamicGas: gasMemoryOnly, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMstore8}
	t[SLOAD] = &operation{execute: opSload, dynamicGas: gasSLoad, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	t[SSTORE] = &operation{execute: opSstore, dynamicGas: gasSStore, minStack: minStack(2, 0), maxStack: maxStack(2, 0)}
	simple(JUMP, opJump, GasMid, 1, 0)
	simple(JUMPI, opJumpi, GasHigh, 2, 0)
	simple(PC, opPc, GasBase, 0, 1)
	simple(MSIZE, opMsize, GasBase, 0, 1)
	simple(GAS, opGas, GasBase, 0, 1)
	simple(JUMPDEST, opJumpdest, GasJumpDest, 0, 0)

	for i := 0; i < 32; i++ {
		simple(PUSH1+OpCode(i), makePush(uint64(i+1)), GasVeryLow, 0, 1)
	}
	for i := 1; i <= 16; i++ {
		simple(DUP1+OpCode(i-1), makeDup(i), GasVeryLow, i, i+1)
		simple(SWAP1+OpCode(i-1), makeSwap(i), GasVeryLow, i+1, i+1)
	}
	for i := 0; i <= 4; i++ {
		t[LOG0+OpCode(i)] = &operation{execute: makeLog(i), dynamicGas: makeGasLog(uint64(i)), minStack: minStack(2+i, 0), maxStack: maxStack(2+i, 0), memorySize: memoryLog}
	}

	t[CREATE] = &operation{execute: opCreate, constantGas: GasCreate, dynamicGas: gasCreate, minStack: minStack(3, 1), maxStack: maxStack(3, 1), memorySize: memoryCreate}
	t[CALL] = &operation{execute: opCall, constantGas: WarmStorageReadCost, dynamicGas: makeGasCall(CallKindCall), minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall}
	t[CALLCODE] = &operation{execute: opCallCode, constantGas: WarmStorageReadCost, dynamicGas: makeGasCall(CallKindCallCode), minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall}
	t[RETURN] = &operation{execute: opReturn, dynamicGas: gasMemoryOnly, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryReturn, halts: true}
	t[DELEGATECALL] = &operation{execute: opDelegateCall, constantGas: WarmStorageReadCost, dynamicGas: makeGasCall(CallKindDelegateCall), minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryDelegateCall}
	t[CREATE2] = &operation{execute: opCreate2, constantGas: GasCreate, dynamicGas: gasCreate2, minStack: minStack(4, 1), maxStack: maxStack(4, 1), memorySize: memoryCreate}
	t[STATICCALL] = &operation{execute: opStaticCall, constantGas: WarmStorageReadCost, dynamicGas: makeGasCall(CallKindStaticCall), minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryDelegateCall}
	t[REVERT] = &operation{execute: opRevert, dynamicGas: gasMemoryOnly, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryReturn}
	t[INVALID] = &operation{execute: opInvalid, minStack: minStack(0, 0), maxStack: maxStack(0, 0)}
	t[SELFDESTRUCT] = &operation{execute: opSelfdestruct, constantGas: GasSelfDestruct, dynamicGas: gasSelfdestruct, minStack: minStack(1, 0), maxStack: maxStack(1, 0), halts: true}
	return t
}
