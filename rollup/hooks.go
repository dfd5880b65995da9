package rollup

import (
	"errors"
	"fmt"

	"github.com/eth2030/evmcore/core"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/log"
	"github.com/holiman/uint256"
)

var (
	// ErrDepositSystemTxPostRegolith is returned for a system deposit
	// after Regolith removed them.
	ErrDepositSystemTxPostRegolith = errors.New("deposit system transactions post regolith are not supported")
	// ErrHaltedDepositPostRegolith marks a deposit that halted. It is
	// turned into a failed deposit result.
	ErrHaltedDepositPostRegolith = errors.New("deposit transaction halted post regolith")
	// ErrMissingEnvelopedTx is returned for a non-deposit without its
	// enveloped encoding, which the L1 data fee is charged on.
	ErrMissingEnvelopedTx = errors.New("missing enveloped transaction bytes")
)

var rollupLog = log.Module("rollup")

// Hooks is the rollup pipeline. It charges the L1 data fee, pays the fee
// vaults and executes deposits.
type Hooks struct {
	core.MainnetHooks
	Spec SpecID
}

var _ core.Hooks = Hooks{}

// txOf returns the rollup view of the installed transaction. System calls
// install a plain transaction.
func txOf(ctx *core.Context) *Transaction {
	if tx, ok := ctx.Tx.(*Transaction); ok {
		return tx
	}
	return &Transaction{Transaction: *ctx.TxEnv()}
}

// L1Info returns the L1 block info loaded for the current block, or nil
// before the first transaction of the block.
func L1Info(ctx *core.Context) *L1BlockInfo {
	info, _ := ctx.Chain.(*L1BlockInfo)
	return info
}

func (h Hooks) l1Cost(ctx *core.Context, tx *Transaction) *uint256.Int {
	info := L1Info(ctx)
	if info == nil || ctx.IsSystemCall() || tx.IsDeposit() {
		return new(uint256.Int)
	}
	return info.L1Cost(tx.EnvelopedTx, h.Spec)
}

func (h Hooks) ValidateEnv(ctx *core.Context) error {
	tx := txOf(ctx)
	if tx.IsDeposit() {
		if tx.Deposit.IsSystemTx && h.Spec.Enabled(Regolith) {
			return core.TransactionError(ErrDepositSystemTxPostRegolith)
		}
		return nil
	}
	if err := h.MainnetHooks.ValidateEnv(ctx); err != nil {
		return err
	}
	if !ctx.IsSystemCall() && len(tx.EnvelopedTx) == 0 {
		return core.TransactionError(ErrMissingEnvelopedTx)
	}
	return nil
}

func (h Hooks) LoadAccounts(ctx *core.Context) error {
	if err := h.MainnetHooks.LoadAccounts(ctx); err != nil {
		return err
	}
	number := ctx.Block.Number
	if info := L1Info(ctx); info == nil || info.L2Block != number {
		ctx.Chain = FetchL1BlockInfo(ctx.Journal, h.Spec, number)
		rollupLog.Trace("Loaded L1 block info", "block", number)
	}
	return stateError(ctx)
}

func (h Hooks) ValidateAgainstState(ctx *core.Context) error {
	tx := txOf(ctx)
	if tx.IsDeposit() {
		return nil
	}
	if err := h.MainnetHooks.ValidateAgainstState(ctx); err != nil {
		return err
	}
	if ctx.IsSystemCall() || ctx.Config.DisableBalanceCheck {
		return nil
	}
	cost, overflow := core.MaxTxCost(tx.TxEnv())
	_, o := cost.AddOverflow(cost, h.l1Cost(ctx, tx))
	if balance := ctx.Journal.GetBalance(tx.Caller); overflow || o || balance.Lt(cost) {
		return core.TransactionError(fmt.Errorf("%w: address %s have %s want %s",
			core.ErrInsufficientFunds, tx.Caller, balance, cost))
	}
	return stateError(ctx)
}

func (h Hooks) DeductCaller(ctx *core.Context) error {
	var (
		j  = ctx.Journal
		tx = txOf(ctx)
	)
	if tx.IsDeposit() {
		if mint := tx.MintOrZero(); !mint.IsZero() {
			j.AddBalance(tx.Caller, mint)
		}
		j.Touch(tx.Caller)
		if !tx.IsCreate() {
			j.SetNonce(tx.Caller, j.GetNonce(tx.Caller)+1)
		}
		return stateError(ctx)
	}
	if cost := h.l1Cost(ctx, tx); !cost.IsZero() {
		balance := j.GetBalance(tx.Caller)
		if balance.Lt(cost) {
			cost.Set(balance)
		}
		j.SubBalance(tx.Caller, cost)
	}
	return h.MainnetHooks.DeductCaller(ctx)
}

// Refund keeps the mainnet rules except for deposits before Regolith,
// which report their gas limit and get no refund.
func (h Hooks) Refund(ctx *core.Context, gas *core.Gas, frame *vm.FrameResult) {
	tx := txOf(ctx)
	if !tx.IsDeposit() || h.Spec.Enabled(Regolith) {
		h.MainnetHooks.Refund(ctx, gas, frame)
		return
	}
	gas.Refunded = 0
	gas.Remaining = 0
	if frame.Succeeded() && tx.Deposit.IsSystemTx {
		gas.Remaining = gas.Limit
	}
}

func (h Hooks) ReimburseCaller(ctx *core.Context, gas *core.Gas) error {
	if txOf(ctx).IsDeposit() {
		return nil
	}
	return h.MainnetHooks.ReimburseCaller(ctx, gas)
}

// RewardBeneficiary pays the priority fee to the beneficiary, the L1 data
// fee to the L1 fee vault and the base fee to the base fee vault.
func (h Hooks) RewardBeneficiary(ctx *core.Context, gas *core.Gas) error {
	tx := txOf(ctx)
	if tx.IsDeposit() {
		return nil
	}
	if err := h.MainnetHooks.RewardBeneficiary(ctx, gas); err != nil {
		return err
	}
	if ctx.IsSystemCall() {
		return nil
	}
	j := ctx.Journal
	j.AddBalance(L1FeeVaultAddress, h.l1Cost(ctx, tx))
	baseFee := new(uint256.Int).Mul(uint256.NewInt(gas.Used()), ctx.Block.BaseFeeOrZero())
	j.AddBalance(BaseFeeVaultAddress, baseFee)
	return stateError(ctx)
}

func (h Hooks) Output(ctx *core.Context, frame *vm.FrameResult, gas *core.Gas) (*core.ExecutionResult, error) {
	if frame.Status == vm.StatusHalt && h.Spec.Enabled(Regolith) && txOf(ctx).IsDeposit() {
		return nil, core.TransactionError(ErrHaltedDepositPostRegolith)
	}
	return h.MainnetHooks.Output(ctx, frame, gas)
}

// CatchError turns a failed deposit into a halted result. The mint and
// the nonce bump survive; everything else is rolled back.
func (h Hooks) CatchError(ctx *core.Context, err error) (*core.ExecutionResult, error) {
	tx := txOf(ctx)
	if kind, _ := core.KindOf(err); kind != core.KindTransaction || !tx.IsDeposit() {
		return nil, err
	}
	j := ctx.Journal
	j.DiscardTx()
	j.BeginTx()
	if mint := tx.MintOrZero(); !mint.IsZero() {
		j.AddBalance(tx.Caller, mint)
	}
	j.SetNonce(tx.Caller, j.GetNonce(tx.Caller)+1)
	j.Touch(tx.Caller)
	if err := stateError(ctx); err != nil {
		return nil, err
	}

	gasUsed := tx.GasLimit
	if tx.Deposit.IsSystemTx && !h.Spec.Enabled(Regolith) {
		gasUsed = 0
	}
	rollupLog.Debug("Deposit failed", "source", tx.Deposit.SourceHash, "gas", gasUsed, "err", err)
	return &core.ExecutionResult{
		Status:  vm.StatusHalt,
		Halt:    vm.HaltFailedDeposit,
		GasUsed: gasUsed,
		Logs:    j.CommitTx(),
	}, nil
}

func stateError(ctx *core.Context) error {
	if err := ctx.Journal.Error(); err != nil {
		return core.DatabaseError(err)
	}
	return nil
}
