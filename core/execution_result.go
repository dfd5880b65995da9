package core

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
)

// ExecutionResult is the outcome of one transaction. Reverts and halts
// are results, not errors. It is not modified after it is returned.
type ExecutionResult struct {
	Status  vm.Status
	Halt    vm.HaltReason
	Success vm.SuccessReason

	// GasUsed is the gas charged to the sender after refunds.
	GasUsed     uint64
	GasRefunded uint64
	Output      []byte
	Logs        []*types.Log
	// CreatedAddress is set for a successful contract creation.
	CreatedAddress *types.Address
}

// Succeeded reports whether the transaction completed without revert or halt.
func (r *ExecutionResult) Succeeded() bool { return r.Status == vm.StatusSuccess }

// Failed reports whether the transaction reverted or halted.
func (r *ExecutionResult) Failed() bool { return !r.Succeeded() }

// Return returns the output of a successful execution.
func (r *ExecutionResult) Return() []byte {
	if r.Failed() {
		return nil
	}
	return r.Output
}

// Revert returns the revert reason of a reverted execution.
func (r *ExecutionResult) Revert() []byte {
	if r.Status != vm.StatusRevert {
		return nil
	}
	return r.Output
}

// Err returns the halt reason as an error, vm.ErrExecutionReverted for a
// revert and nil on success.
func (r *ExecutionResult) Err() error {
	switch r.Status {
	case vm.StatusRevert:
		return vm.ErrExecutionReverted
	case vm.StatusHalt:
		return r.Halt
	}
	return nil
}
