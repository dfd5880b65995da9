package core

import (
	"fmt"
	"time"

	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/log"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	txExecTimer     = metrics.NewRegisteredTimer("evmcore/tx/exec", nil)
	txSuccessMeter  = metrics.NewRegisteredMeter("evmcore/tx/success", nil)
	txRevertMeter   = metrics.NewRegisteredMeter("evmcore/tx/revert", nil)
	txHaltMeter     = metrics.NewRegisteredMeter("evmcore/tx/halt", nil)
	txErrorMeter    = metrics.NewRegisteredMeter("evmcore/tx/error", nil)
	txGasMeter      = metrics.NewRegisteredMeter("evmcore/tx/gas", nil)
	systemCallMeter = metrics.NewRegisteredMeter("evmcore/tx/system", nil)

	handlerLog = log.Module("handler")
)

// Handler drives one transaction through the pipeline: validation,
// account loading, fee deduction, authorizations, frame execution,
// refunds and rewards. The stages come from Hooks.
type Handler struct {
	Hooks Hooks
}

// NewHandler returns a handler over hooks, MainnetHooks when nil.
func NewHandler(hooks Hooks) *Handler {
	if hooks == nil {
		hooks = MainnetHooks{}
	}
	return &Handler{Hooks: hooks}
}

// Run executes the transaction installed in ctx. On error the journal
// keeps the partial attempt; the caller discards it before reuse.
func (h *Handler) Run(ctx *Context) (*ExecutionResult, error) {
	start := time.Now()
	res, err := h.run(ctx)
	if err != nil {
		res, err = h.Hooks.CatchError(ctx, err)
	}
	txExecTimer.UpdateSince(start)

	if err != nil {
		txErrorMeter.Mark(1)
		handlerLog.Debug("Transaction failed", "err", err)
		return nil, err
	}
	if ctx.IsSystemCall() {
		systemCallMeter.Mark(1)
	}
	switch res.Status {
	case vm.StatusSuccess:
		txSuccessMeter.Mark(1)
	case vm.StatusRevert:
		txRevertMeter.Mark(1)
	case vm.StatusHalt:
		txHaltMeter.Mark(1)
	}
	txGasMeter.Mark(int64(res.GasUsed))
	handlerLog.Trace("Transaction executed", "status", res.Status, "gas", res.GasUsed,
		"refund", res.GasRefunded, "logs", len(res.Logs), "elapsed", time.Since(start))
	return res, nil
}

func (h *Handler) run(ctx *Context) (*ExecutionResult, error) {
	tx := ctx.TxEnv()
	if tx == nil {
		return nil, CustomError(ErrNoTransaction)
	}
	hooks := h.Hooks
	ctx.Journal.BeginTx()

	if err := hooks.ValidateEnv(ctx); err != nil {
		return nil, err
	}
	ig, err := hooks.InitialGas(ctx)
	if err != nil {
		return nil, err
	}
	if err := hooks.LoadAccounts(ctx); err != nil {
		return nil, err
	}
	if err := hooks.ValidateAgainstState(ctx); err != nil {
		return nil, err
	}
	if err := hooks.DeductCaller(ctx); err != nil {
		return nil, err
	}
	if err := hooks.ApplyAuthorizations(ctx); err != nil {
		return nil, err
	}

	gas := &Gas{Limit: tx.GasLimit, Remaining: tx.GasLimit - ig.Initial, Floor: ig.Floor}
	frame, err := hooks.Execute(ctx, gas.Remaining)
	if err != nil {
		return nil, err
	}
	if frame.GasLeft > gas.Remaining {
		return nil, CustomError(fmt.Errorf("frame returned %d gas, had %d", frame.GasLeft, gas.Remaining))
	}
	gas.Remaining = frame.GasLeft

	hooks.Refund(ctx, gas, frame)
	if err := hooks.ReimburseCaller(ctx, gas); err != nil {
		return nil, err
	}
	if err := hooks.RewardBeneficiary(ctx, gas); err != nil {
		return nil, err
	}
	return hooks.Output(ctx, frame, gas)
}
