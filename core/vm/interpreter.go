package vm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
)

// Config selects the rules an EVM executes under.
type Config struct {
	ChainID uint64
	Spec    SpecID
	// Precompiles overrides the set registered for Spec.
	Precompiles *PrecompileSet
	// Inspector, when set, observes every frame and step.
	Inspector Inspector
}

// ScopeContext holds the per-frame interpreter state handed to
// instructions.
type ScopeContext struct {
	Memory     *Memory
	Stack      *Stack
	Contract   *Contract
	ReturnData []byte

	reason SuccessReason
}

// StateError wraps a backend failure reported by StateDB.Error. It aborts
// the whole transaction instead of halting the frame.
type StateError struct {
	Err error
}

func (e *StateError) Error() string { return fmt.Sprintf("state: %v", e.Err) }

func (e *StateError) Unwrap() error { return e.Err }

// EVM drives frames for one transaction at a time. It is not safe for
// concurrent use.
type EVM struct {
	Block   BlockContext
	Tx      TxContext
	StateDB StateDB
	Config  Config

	precompiles *PrecompileSet
	table       *JumpTable
	depth       int

	// callGasTemp carries the callee allowance from a CALL-family
	// dynamic gas function to its execute function.
	callGasTemp uint64
}

// NewEVM returns an EVM bound to a block, a transaction and a state view.
func NewEVM(block BlockContext, tx TxContext, statedb StateDB, cfg Config) *EVM {
	evm := &EVM{
		Block:   block,
		Tx:      tx,
		StateDB: statedb,
		Config:  cfg,
		table:   jumpTableFor(cfg.Spec),
	}
	evm.precompiles = cfg.Precompiles
	if evm.precompiles == nil {
		evm.precompiles = PrecompilesFor(cfg.Spec)
	}
	return evm
}

// SetTxContext installs the context of the next transaction.
func (evm *EVM) SetTxContext(tx TxContext) { evm.Tx = tx }

// Precompiles returns the active precompile set.
func (evm *EVM) Precompiles() *PrecompileSet { return evm.precompiles }

// Depth returns the number of frames currently executing.
func (evm *EVM) Depth() int { return evm.depth }

// run executes contract's code until it stops, reverts or halts. Halts and
// ErrExecutionReverted are returned as errors; a backend failure comes
// back as *StateError.
func (evm *EVM) run(contract *Contract) ([]byte, SuccessReason, error) {
	if len(contract.Code) == 0 {
		return nil, SuccessStop, nil
	}
	var (
		mem   = NewMemory()
		stack = newStack()
		scope = &ScopeContext{Memory: mem, Stack: stack, Contract: contract}
		insp  = evm.Config.Inspector
		pc    uint64
		step  *StepContext
	)
	defer returnStack(stack)

	if insp != nil {
		step = &StepContext{Depth: evm.depth, Stack: stack, Memory: mem, Contract: contract}
	}
	for {
		op := contract.GetOp(pc)
		gasBefore := contract.Gas
		if step != nil {
			step.PC, step.Op, step.Gas = pc, op, gasBefore
			step.Cost, step.Err = 0, nil
			step.ReturnData = scope.ReturnData
			insp.Step(step)
		}
		operation := evm.table[op]
		ret, err := evm.execute(&pc, operation, scope)
		if dbErr := evm.StateDB.Error(); dbErr != nil {
			err = &StateError{Err: dbErr}
		}
		if step != nil {
			step.Cost = gasBefore - contract.Gas
			if contract.Gas > gasBefore {
				step.Cost = 0
			}
			step.Err = err
			insp.StepEnd(step)
		}
		if err != nil {
			if errors.Is(err, ErrExecutionReverted) {
				return ret, 0, err
			}
			return nil, 0, err
		}
		if operation.halts {
			return ret, scope.reason, nil
		}
		pc++
	}
}

// execute validates the stack, charges gas, grows memory and runs one
// instruction.
func (evm *EVM) execute(pc *uint64, operation *operation, scope *ScopeContext) ([]byte, error) {
	if operation == nil {
		return nil, HaltInvalidOpcode
	}
	var (
		contract = scope.Contract
		stack    = scope.Stack
		mem      = scope.Memory
	)
	if sLen := stack.Len(); sLen < operation.minStack {
		return nil, HaltStackUnderflow
	} else if sLen > operation.maxStack {
		return nil, HaltStackOverflow
	}
	if !contract.UseGas(operation.constantGas) {
		return nil, HaltOutOfGas
	}

	var memorySize uint64
	if operation.memorySize != nil {
		size, overflow := operation.memorySize(stack)
		if overflow {
			return nil, HaltOutOfGas
		}
		if memorySize, overflow = math.SafeMul(toWordSize(size), 32); overflow {
			return nil, HaltOutOfGas
		}
	}
	if operation.dynamicGas != nil {
		cost, err := operation.dynamicGas(evm, contract, stack, mem, memorySize)
		if err != nil {
			return nil, err
		}
		if !contract.UseGas(cost) {
			return nil, HaltOutOfGas
		}
	}
	if memorySize > 0 {
		mem.Resize(memorySize)
	}
	return operation.execute(pc, evm, scope)
}
