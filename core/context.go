package core

import (
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
)

// Tx is a transaction the handler can execute. Chain variants wrap
// types.Transaction and expose the shared fields through TxEnv.
type Tx interface {
	TxEnv() *types.Transaction
}

// Context is the execution context of an Evm: the journaled state, the
// installed transaction and block, chain data and configuration. It runs
// one transaction at a time and must not be shared between goroutines.
type Context struct {
	Journal *state.Journal
	Tx      Tx
	Block   *types.BlockEnv
	// Chain holds chain-specific data, for example the rollup L1 block info.
	Chain     any
	Config    *Config
	Inspector vm.Inspector
	// Precompiles overrides the set selected by Spec when non-nil.
	Precompiles *vm.PrecompileSet

	system  bool
	inspect bool
}

// NewContext returns a context over db with an empty block at height zero.
func NewContext(db state.Database, cfg *Config) *Context {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Context{
		Journal: state.NewJournal(db),
		Block:   types.NewBlockEnv(),
		Config:  cfg,
	}
}

// TxEnv returns the installed transaction's shared fields, or nil.
func (c *Context) TxEnv() *types.Transaction {
	if c.Tx == nil {
		return nil
	}
	return c.Tx.TxEnv()
}

// Spec returns the active ruleset.
func (c *Context) Spec() vm.SpecID { return c.Config.Spec }

// PrecompileSet returns the precompiles active for the running transaction.
func (c *Context) PrecompileSet() *vm.PrecompileSet {
	if c.Precompiles != nil {
		return c.Precompiles
	}
	return vm.PrecompilesFor(c.Config.Spec)
}

// IsSystemCall reports whether the running transaction is a system call.
func (c *Context) IsSystemCall() bool { return c.system }

// ActiveInspector returns the inspector for the running transaction: the
// installed one on the inspect path, nil otherwise.
func (c *Context) ActiveInspector() vm.Inspector {
	if !c.inspect {
		return nil
	}
	return c.Inspector
}

// BlockContext converts the block environment for the frame driver.
func (c *Context) BlockContext() vm.BlockContext {
	b := c.Block
	return vm.BlockContext{
		Number:      b.Number,
		Time:        b.Timestamp,
		Coinbase:    b.Coinbase,
		GasLimit:    b.GasLimit,
		BaseFee:     b.BaseFeeOrZero(),
		PrevRandao:  b.PrevRandao,
		BlobBaseFee: b.BlobBaseFee,
	}
}
