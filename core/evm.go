package core

import (
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/holiman/uint256"
)

var _ vm.StateDB = (*state.Journal)(nil)

const (
	// SystemCallGasLimit is the gas of a system call.
	SystemCallGasLimit uint64 = 30_000_000
)

// SystemAddress is the default caller of system calls.
var SystemAddress = types.HexToAddress("0xfffffffffffffffffffffffffffffffffffffffe")

// Evm executes transactions against a Context. State changes accumulate
// in the journal across transactions until Finalize.
type Evm struct {
	ctx     *Context
	handler *Handler
}

// NewEvm returns a mainnet Evm over db.
func NewEvm(db state.Database, cfg *Config) *Evm {
	return NewEvmWithHooks(NewContext(db, cfg), MainnetHooks{})
}

// NewEvmWithHooks returns an Evm running ctx through hooks.
func NewEvmWithHooks(ctx *Context, hooks Hooks) *Evm {
	return &Evm{ctx: ctx, handler: NewHandler(hooks)}
}

// Context returns the execution context.
func (e *Evm) Context() *Context { return e.ctx }

// SetBlock installs the block environment for following transactions.
func (e *Evm) SetBlock(block *types.BlockEnv) { e.ctx.Block = block }

// SetTx installs tx without running it.
func (e *Evm) SetTx(tx Tx) {
	e.ctx.Tx = tx
	e.ctx.system = false
}

// TransactOne runs tx without finalizing. The inspector is not called.
func (e *Evm) TransactOne(tx Tx) (*ExecutionResult, error) {
	e.SetTx(tx)
	return e.run(false)
}

// Finalize drains the state changed since the last call. A second call
// returns an empty State.
func (e *Evm) Finalize() state.State { return e.ctx.Journal.Finalize() }

// Replay runs the installed transaction and finalizes. On error nothing is
// finalized.
func (e *Evm) Replay() (*ExecutionResult, state.State, error) {
	res, err := e.run(false)
	if err != nil {
		return nil, nil, err
	}
	return res, e.Finalize(), nil
}

// Commit writes st to the backend. st must come from Finalize of this Evm,
// and diffs must be committed in the order they were finalized.
func (e *Evm) Commit(st state.State) error {
	db, ok := e.ctx.Journal.Database().(state.DatabaseCommit)
	if !ok {
		return CustomError(ErrCommitUnsupported)
	}
	if err := db.Commit(st); err != nil {
		return DatabaseError(err)
	}
	return nil
}

// TransactCommit runs tx, finalizes and commits.
func (e *Evm) TransactCommit(tx Tx) (*ExecutionResult, error) {
	res, err := e.TransactOne(tx)
	if err != nil {
		return nil, err
	}
	return res, e.Commit(e.Finalize())
}

// DiscardTx rolls the journal back to the start of the last transaction.
// Call it after an error before running another transaction.
func (e *Evm) DiscardTx() { e.ctx.Journal.DiscardTx() }

// SetInspector installs the inspector used by the Inspect methods.
func (e *Evm) SetInspector(insp vm.Inspector) { e.ctx.Inspector = insp }

// InspectOneTx runs tx with the installed inspector. Without one it is
// TransactOne.
func (e *Evm) InspectOneTx(tx Tx) (*ExecutionResult, error) {
	e.SetTx(tx)
	return e.run(e.ctx.Inspector != nil)
}

// InspectCommit runs tx with the inspector, finalizes and commits.
func (e *Evm) InspectCommit(tx Tx) (*ExecutionResult, error) {
	res, err := e.InspectOneTx(tx)
	if err != nil {
		return nil, err
	}
	return res, e.Commit(e.Finalize())
}

// SystemCallOne runs a privileged call from caller to target. It skips
// nonce, balance and fee validation, pays no fees and leaves the caller's
// nonce unchanged. Execution is still metered and journaled.
func (e *Evm) SystemCallOne(caller, target types.Address, data []byte) (*ExecutionResult, error) {
	e.ctx.Tx = NewSystemTx(caller, target, data)
	e.ctx.system = true
	return e.run(false)
}

// SystemCall is SystemCallOne from SystemAddress.
func (e *Evm) SystemCall(target types.Address, data []byte) (*ExecutionResult, error) {
	return e.SystemCallOne(SystemAddress, target, data)
}

// NewSystemTx builds the transaction of a system call.
func NewSystemTx(caller, target types.Address, data []byte) *types.Transaction {
	return &types.Transaction{
		Type:     types.LegacyTxType,
		Caller:   caller,
		To:       &target,
		GasLimit: SystemCallGasLimit,
		GasPrice: new(uint256.Int),
		Value:    new(uint256.Int),
		Data:     data,
	}
}

func (e *Evm) run(inspect bool) (*ExecutionResult, error) {
	e.ctx.inspect = inspect
	defer func() { e.ctx.inspect = false }()
	return e.handler.Run(e.ctx)
}
