package vm

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// calcMemSize64 returns offset+length, reporting overflow. A zero length
// touches no memory regardless of offset.
func calcMemSize64(off, length *uint256.Int) (uint64, bool) {
	if !length.IsUint64() {
		return 0, true
	}
	return calcMemSize64WithUint(off, length.Uint64())
}

func calcMemSize64WithUint(off *uint256.Int, length uint64) (uint64, bool) {
	if length == 0 {
		return 0, false
	}
	offset, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	val := offset + length
	return val, val < offset
}

func memoryKeccak256(stack *Stack) (uint64, bool) { return calcMemSize64(stack.Back(0), stack.Back(1)) }
func memoryCopy(stack *Stack) (uint64, bool)      { return calcMemSize64(stack.Back(0), stack.Back(2)) }
func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(3))
}
func memoryMload(stack *Stack) (uint64, bool)   { return calcMemSize64WithUint(stack.Back(0), 32) }
func memoryMstore(stack *Stack) (uint64, bool)  { return calcMemSize64WithUint(stack.Back(0), 32) }
func memoryMstore8(stack *Stack) (uint64, bool) { return calcMemSize64WithUint(stack.Back(0), 1) }
func memoryLog(stack *Stack) (uint64, bool)     { return calcMemSize64(stack.Back(0), stack.Back(1)) }
func memoryCreate(stack *Stack) (uint64, bool)  { return calcMemSize64(stack.Back(1), stack.Back(2)) }
func memoryReturn(stack *Stack) (uint64, bool)  { return calcMemSize64(stack.Back(0), stack.Back(1)) }

func memoryMcopy(stack *Stack) (uint64, bool) {
	dst, overflow := calcMemSize64(stack.Back(0), stack.Back(2))
	if overflow {
		return 0, true
	}
	src, overflow := calcMemSize64(stack.Back(1), stack.Back(2))
	if overflow {
		return 0, true
	}
	return max(dst, src), false
}

func memoryCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize64(stack.Back(5), stack.Back(6))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(stack.Back(3), stack.Back(4))
	if overflow {
		return 0, true
	}
	return max(x, y), false
}

func memoryDelegateCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize64(stack.Back(4), stack.Back(5))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(stack.Back(2), stack.Back(3))
	if overflow {
		return 0, true
	}
	return max(x, y), false
}

func gasMemoryOnly(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

// wordGas returns memory expansion plus perWord for each 32-byte word of size.
func wordGas(mem *Memory, memorySize uint64, size *uint256.Int, perWord uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	words, overflow := size.Uint64WithOverflow()
	if overflow {
		return 0, HaltOutOfGas
	}
	wordCost, overflow := math.SafeMul(toWordSize(words), perWord)
	if overflow {
		return 0, HaltOutOfGas
	}
	gas, overflow = math.SafeAdd(gas, wordCost)
	if overflow {
		return 0, HaltOutOfGas
	}
	return gas, nil
}

func gasKeccak256(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return wordGas(mem, memorySize, stack.Back(1), GasKeccakWord)
}

func gasCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return wordGas(mem, memorySize, stack.Back(2), GasCopyWord)
}

func gasMcopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return wordGas(mem, memorySize, stack.Back(2), GasCopyWord)
}

func gasExp(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	expByteLen := uint64((stack.Back(1).BitLen() + 7) / 8)
	return expByteLen * GasExpByte, nil
}

// accessAccount warms addr and returns the cold surcharge over the warm
// cost already charged as constant gas.
func accessAccount(evm *EVM, addr types.Address) uint64 {
	if evm.StateDB.AddressInAccessList(addr) {
		return 0
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return ColdAccountAccessCost - WarmStorageReadCost
}

func gasAccountAccess(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return accessAccount(evm, types.Address(stack.Back(0).Bytes20())), nil
}

func gasExtCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := wordGas(mem, memorySize, stack.Back(3), GasCopyWord)
	if err != nil {
		return 0, err
	}
	return gas + accessAccount(evm, types.Address(stack.Back(0).Bytes20())), nil
}

func gasSLoad(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	slot := types.Hash(stack.Back(0).Bytes32())
	if _, warm := evm.StateDB.SlotInAccessList(contract.Address, slot); warm {
		return WarmStorageReadCost, nil
	}
	evm.StateDB.AddSlotToAccessList(contract.Address, slot)
	return ColdSloadCost, nil
}

// gasSStore implements EIP-2200 net metering with EIP-2929 access costs
// and EIP-3529 refunds.
func gasSStore(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	if contract.Gas <= SstoreSentryGas {
		return 0, HaltOutOfGas
	}
	var (
		db    = evm.StateDB
		addr  = contract.Address
		slot  = types.Hash(stack.Back(0).Bytes32())
		value = types.Hash(stack.Back(1).Bytes32())
		cost  uint64
	)
	if _, warm := db.SlotInAccessList(addr, slot); !warm {
		cost = ColdSloadCost
		db.AddSlotToAccessList(addr, slot)
	}
	current := db.GetState(addr, slot)
	if current == value {
		return cost + WarmStorageReadCost, nil
	}
	original := db.GetCommittedState(addr, slot)
	if original == current {
		if original.IsZero() {
			return cost + SstoreSetGas, nil
		}
		if value.IsZero() {
			db.AddRefund(SstoreClearsRefund)
		}
		return cost + (SstoreResetGas - ColdSloadCost), nil
	}
	if !original.IsZero() {
		if current.IsZero() {
			db.SubRefund(SstoreClearsRefund)
		} else if value.IsZero() {
			db.AddRefund(SstoreClearsRefund)
		}
	}
	if original == value {
		if original.IsZero() {
			db.AddRefund(SstoreSetGas - WarmStorageReadCost)
		} else {
			db.AddRefund((SstoreResetGas - ColdSloadCost) - WarmStorageReadCost)
		}
	}
	return cost + WarmStorageReadCost, nil
}

func makeGasLog(topics uint64) dynamicGasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		size, overflow := stack.Back(1).Uint64WithOverflow()
		if overflow {
			return 0, HaltOutOfGas
		}
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		gas += GasLog + topics*GasLogTopic
		dataGas, overflow := math.SafeMul(size, GasLogData)
		if overflow {
			return 0, HaltOutOfGas
		}
		if gas, overflow = math.SafeAdd(gas, dataGas); overflow {
			return 0, HaltOutOfGas
		}
		return gas, nil
	}
}

func gasCreateCommon(evm *EVM, stack *Stack, mem *Memory, memorySize uint64, hashWords bool) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := stack.Back(2).Uint64WithOverflow()
	if overflow {
		return 0, HaltOutOfGas
	}
	words := toWordSize(size)
	if evm.Config.Spec.Enabled(Shanghai) {
		if size > MaxInitCodeSize {
			return 0, HaltInitCodeSizeLimit
		}
		gas += words * GasInitCodeWord
	}
	if hashWords {
		gas += words * GasKeccakWord
	}
	return gas, nil
}

func gasCreate(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasCreateCommon(evm, stack, mem, memorySize, false)
}

func gasCreate2(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasCreateCommon(evm, stack, mem, memorySize, true)
}

// makeGasCall charges memory, account access, the EIP-7702 delegate access,
// value transfer and account creation, then reserves the callee allowance
// in evm.callGasTemp.
func makeGasCall(kind CallKind) dynamicGasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		addr := types.Address(stack.Back(1).Bytes20())
		gas += accessAccount(evm, addr)

		if evm.Config.Spec.Enabled(Prague) {
			if target, ok := types.ResolveDelegation(evm.StateDB.GetCode(addr)); ok {
				if evm.StateDB.AddressInAccessList(target) {
					gas += WarmStorageReadCost
				} else {
					evm.StateDB.AddAddressToAccessList(target)
					gas += ColdAccountAccessCost
				}
			}
		}

		if kind == CallKindCall || kind == CallKindCallCode {
			if !stack.Back(2).IsZero() {
				gas += GasCallValue
				if kind == CallKindCall && evm.StateDB.Empty(addr) {
					gas += GasNewAccount
				}
			}
		}

		requested, overflow := stack.Back(0).Uint64WithOverflow()
		evm.callGasTemp, err = callGas(contract.Gas, gas, requested, overflow)
		if err != nil {
			return 0, err
		}
		total, overflow := math.SafeAdd(gas, evm.callGasTemp)
		if overflow {
			return 0, HaltOutOfGas
		}
		return total, nil
	}
}

func gasSelfdestruct(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	beneficiary := types.Address(stack.Back(0).Bytes20())
	var gas uint64
	if !evm.StateDB.AddressInAccessList(beneficiary) {
		evm.StateDB.AddAddressToAccessList(beneficiary)
		gas = ColdAccountAccessCost
	}
	if evm.StateDB.Empty(beneficiary) && !evm.StateDB.GetBalance(contract.Address).IsZero() {
		gas += GasNewAccount
	}
	return gas, nil
}
