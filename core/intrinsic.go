package core

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
)

const (
	// txDataNonZeroGasFrontier is the pre-Istanbul cost of a non-zero byte.
	txDataNonZeroGasFrontier uint64 = 68

	// totalCostFloorPerToken prices calldata tokens for the EIP-7623 floor.
	totalCostFloorPerToken uint64 = 10
	// standardTokenCost is the token weight of a zero byte; a non-zero
	// byte counts four tokens.
	standardTokenCost uint64 = 4
)

// IntrinsicGas is what a transaction costs before any code runs.
type IntrinsicGas struct {
	// Initial is charged up front.
	Initial uint64
	// Floor is the minimum gas used after refunds (EIP-7623), zero before
	// Prague.
	Floor uint64
}

// CalcIntrinsicGas computes the intrinsic cost of tx under spec.
func CalcIntrinsicGas(tx *types.Transaction, spec vm.SpecID) IntrinsicGas {
	gas := vm.TxGas
	if tx.IsCreate() && spec.Enabled(vm.Homestead) {
		gas = vm.TxGasContractCreation
	}

	nonZeroCost := vm.TxDataNonZeroGas
	if !spec.Enabled(vm.Istanbul) {
		nonZeroCost = txDataNonZeroGasFrontier
	}
	var zeros, nonZeros uint64
	for _, b := range tx.Data {
		if b == 0 {
			zeros++
		} else {
			nonZeros++
		}
	}
	gas += zeros*vm.TxDataZeroGas + nonZeros*nonZeroCost

	if tx.IsCreate() && spec.Enabled(vm.Shanghai) {
		words := (uint64(len(tx.Data)) + 31) / 32
		gas += words * vm.GasInitCodeWord
	}
	addrs, keys := tx.AccessListSize()
	gas += uint64(addrs)*vm.TxAccessListAddressGas + uint64(keys)*vm.TxAccessListStorageKeyGas
	gas += uint64(len(tx.AuthorizationList)) * types.PerEmptyAccountCost

	var floor uint64
	if spec.Enabled(vm.Prague) {
		tokens := zeros + nonZeros*standardTokenCost
		floor = vm.TxGas + tokens*totalCostFloorPerToken
	}
	return IntrinsicGas{Initial: gas, Floor: floor}
}
