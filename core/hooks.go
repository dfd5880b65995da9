package core

import (
	"fmt"
	"math"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/holiman/uint256"
)

// Hooks are the chain-specific stages of the transaction pipeline. The
// handler calls them in declaration order. Variants embed MainnetHooks and
// override the stages they change.
type Hooks interface {
	// ValidateEnv checks the transaction against the block and config
	// without touching state.
	ValidateEnv(ctx *Context) error
	// InitialGas computes and checks the intrinsic gas.
	InitialGas(ctx *Context) (IntrinsicGas, error)
	// LoadAccounts warms the accounts every transaction accesses.
	LoadAccounts(ctx *Context) error
	// ValidateAgainstState checks nonce, balance and sender code.
	ValidateAgainstState(ctx *Context) error
	// DeductCaller charges the up-front gas cost and bumps the nonce.
	DeductCaller(ctx *Context) error
	// ApplyAuthorizations installs EIP-7702 delegations.
	ApplyAuthorizations(ctx *Context) error
	// Execute runs the top-level frame with the given gas.
	Execute(ctx *Context, gas uint64) (*vm.FrameResult, error)
	// Refund computes the capped refund into gas.
	Refund(ctx *Context, gas *Gas, frame *vm.FrameResult)
	// ReimburseCaller returns unused and refunded gas to the sender.
	ReimburseCaller(ctx *Context, gas *Gas) error
	// RewardBeneficiary pays the block beneficiary.
	RewardBeneficiary(ctx *Context, gas *Gas) error
	// Output closes the transaction in the journal and builds the result.
	Output(ctx *Context, frame *vm.FrameResult, gas *Gas) (*ExecutionResult, error)
	// CatchError sees every error the stages return. It may turn it into
	// a result.
	CatchError(ctx *Context, err error) (*ExecutionResult, error)
}

// MainnetHooks implements the Ethereum mainnet pipeline.
type MainnetHooks struct{}

var _ Hooks = MainnetHooks{}

func txTypeSpec(t types.TxType) (vm.SpecID, bool) {
	switch t {
	case types.LegacyTxType:
		return vm.Frontier, true
	case types.AccessListTxType:
		return vm.Berlin, true
	case types.DynamicFeeTxType:
		return vm.London, true
	case types.BlobTxType:
		return vm.Cancun, true
	case types.SetCodeTxType:
		return vm.Prague, true
	}
	return 0, false
}

// blobCommitmentVersionKZG is the version byte of EIP-4844 blob hashes.
const blobCommitmentVersionKZG = 0x01

func (MainnetHooks) ValidateEnv(ctx *Context) error {
	var (
		cfg   = ctx.Config
		spec  = cfg.Spec
		tx    = ctx.TxEnv()
		block = ctx.Block
	)
	if spec.Enabled(vm.London) && block.BaseFee == nil && !cfg.DisableBaseFee {
		return HeaderError(ErrMissingBaseFee)
	}
	if spec.Enabled(vm.Cancun) && len(tx.BlobHashes) > 0 && block.BlobBaseFee == nil {
		return HeaderError(ErrMissingBlobBaseFee)
	}
	if ctx.IsSystemCall() {
		return nil
	}

	if since, ok := txTypeSpec(tx.Type); !ok || !spec.Enabled(since) {
		return TransactionError(fmt.Errorf("%w: type %d", ErrTxTypeNotSupported, tx.Type))
	}
	if tx.ChainID != nil && *tx.ChainID != cfg.ChainID {
		return TransactionError(fmt.Errorf("%w: have %d, want %d", ErrInvalidChainID, *tx.ChainID, cfg.ChainID))
	}
	if !cfg.DisableBlockGasLimit && tx.GasLimit > block.GasLimit {
		return TransactionError(fmt.Errorf("%w: tx %d, block %d", ErrGasLimitExceeded, tx.GasLimit, block.GasLimit))
	}
	if tx.GasTipCap != nil && tx.GasTipCap.Gt(tx.MaxFee()) {
		return TransactionError(ErrTipAboveFeeCap)
	}
	if spec.Enabled(vm.London) && !cfg.DisableBaseFee && tx.MaxFee().Lt(block.BaseFee) {
		return TransactionError(fmt.Errorf("%w: max fee %s, base fee %s", ErrFeeCapTooLow, tx.MaxFee(), block.BaseFee))
	}
	if tx.IsCreate() && spec.Enabled(vm.Shanghai) && len(tx.Data) > vm.MaxInitCodeSize {
		return TransactionError(fmt.Errorf("%w: %d bytes", ErrInitCodeSizeLimit, len(tx.Data)))
	}

	switch tx.Type {
	case types.BlobTxType:
		if tx.IsCreate() {
			return TransactionError(ErrBlobTxCreate)
		}
		if len(tx.BlobHashes) == 0 {
			return TransactionError(ErrMissingBlobHashes)
		}
		for _, h := range tx.BlobHashes {
			if h[0] != blobCommitmentVersionKZG {
				return TransactionError(fmt.Errorf("%w: %#x", ErrBlobHashVersion, h[0]))
			}
		}
		if tx.MaxFeePerBlobGas == nil || tx.MaxFeePerBlobGas.Lt(block.BlobBaseFee) {
			return TransactionError(ErrBlobFeeCapTooLow)
		}
	case types.SetCodeTxType:
		if tx.IsCreate() {
			return TransactionError(ErrSetCodeTxCreate)
		}
		if len(tx.AuthorizationList) == 0 {
			return TransactionError(ErrEmptyAuthorizationList)
		}
	}
	return nil
}

func (MainnetHooks) InitialGas(ctx *Context) (IntrinsicGas, error) {
	if ctx.IsSystemCall() {
		return IntrinsicGas{}, nil
	}
	tx := ctx.TxEnv()
	ig := CalcIntrinsicGas(tx, ctx.Spec())
	if tx.GasLimit < ig.Initial {
		return ig, TransactionError(fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGasTooLow, tx.GasLimit, ig.Initial))
	}
	if tx.GasLimit < ig.Floor {
		return ig, TransactionError(fmt.Errorf("%w: have %d, want %d", ErrFloorDataGas, tx.GasLimit, ig.Floor))
	}
	return ig, nil
}

func (MainnetHooks) LoadAccounts(ctx *Context) error {
	var (
		j    = ctx.Journal
		tx   = ctx.TxEnv()
		spec = ctx.Spec()
	)
	j.AddAddressToAccessList(tx.Caller)
	if tx.To != nil {
		j.AddAddressToAccessList(*tx.To)
	}
	if spec.Enabled(vm.Shanghai) {
		j.AddAddressToAccessList(ctx.Block.Coinbase)
	}
	for _, addr := range ctx.PrecompileSet().Addresses() {
		j.AddAddressToAccessList(addr)
	}
	for _, t := range tx.AccessList {
		j.AddAddressToAccessList(t.Address)
		for _, key := range t.StorageKeys {
			j.AddSlotToAccessList(t.Address, key)
		}
	}
	j.Account(tx.Caller)
	return journalError(ctx)
}

func (MainnetHooks) ValidateAgainstState(ctx *Context) error {
	if ctx.IsSystemCall() {
		return nil
	}
	var (
		cfg = ctx.Config
		j   = ctx.Journal
		tx  = ctx.TxEnv()
	)
	// EIP-3607: only EOAs, or delegated EOAs from Prague, may send.
	if code := j.GetCode(tx.Caller); len(code) > 0 && !cfg.DisableEIP3607 {
		if !(cfg.Spec.Enabled(vm.Prague) && types.IsDelegation(code)) {
			return TransactionError(ErrSenderNoEOA)
		}
	}
	if !cfg.DisableNonceCheck {
		nonce := j.GetNonce(tx.Caller)
		switch {
		case nonce == math.MaxUint64:
			return TransactionError(ErrNonceMax)
		case tx.Nonce < nonce:
			return TransactionError(fmt.Errorf("%w: tx %d, state %d", ErrNonceTooLow, tx.Nonce, nonce))
		case tx.Nonce > nonce:
			return TransactionError(fmt.Errorf("%w: tx %d, state %d", ErrNonceTooHigh, tx.Nonce, nonce))
		}
	}
	if !cfg.DisableBalanceCheck {
		cost, overflow := MaxTxCost(tx)
		if balance := j.GetBalance(tx.Caller); overflow || balance.Lt(cost) {
			return TransactionError(fmt.Errorf("%w: address %s have %s want %s",
				ErrInsufficientFunds, tx.Caller, balance, cost))
		}
	}
	return journalError(ctx)
}

// MaxTxCost is gasLimit * maxFee + value + blobGas * maxFeePerBlobGas.
func MaxTxCost(tx *types.Transaction) (*uint256.Int, bool) {
	cost, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(tx.GasLimit), tx.MaxFee())
	if tx.MaxFeePerBlobGas != nil {
		blob, o := new(uint256.Int).MulOverflow(uint256.NewInt(tx.BlobGas()), tx.MaxFeePerBlobGas)
		overflow = overflow || o
		_, o = cost.AddOverflow(cost, blob)
		overflow = overflow || o
	}
	_, o := cost.AddOverflow(cost, tx.ValueOrZero())
	return cost, overflow || o
}

func (MainnetHooks) DeductCaller(ctx *Context) error {
	if ctx.IsSystemCall() {
		return nil
	}
	var (
		j      = ctx.Journal
		tx     = ctx.TxEnv()
		price  = tx.EffectiveGasPrice(ctx.Block.BaseFeeOrZero())
		cost   = new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), price)
		caller = tx.Caller
	)
	if blobs := tx.BlobGas(); blobs > 0 && ctx.Block.BlobBaseFee != nil {
		cost.Add(cost, new(uint256.Int).Mul(uint256.NewInt(blobs), ctx.Block.BlobBaseFee))
	}
	balance := j.GetBalance(caller)
	if balance.Lt(cost) {
		// Only reachable with the balance check disabled.
		cost.Set(balance)
	}
	j.SubBalance(caller, cost)
	j.Touch(caller)
	// CREATE bumps the nonce when it derives the contract address.
	if !tx.IsCreate() {
		j.SetNonce(caller, j.GetNonce(caller)+1)
	}
	return journalError(ctx)
}

func (MainnetHooks) ApplyAuthorizations(ctx *Context) error {
	tx := ctx.TxEnv()
	if tx.Type != types.SetCodeTxType || !ctx.Spec().Enabled(vm.Prague) {
		return nil
	}
	applyAuthorizations(ctx.Journal, tx.AuthorizationList, ctx.Config.ChainID)
	return journalError(ctx)
}

func (MainnetHooks) Execute(ctx *Context, gas uint64) (*vm.FrameResult, error) {
	var (
		j     = ctx.Journal
		tx    = ctx.TxEnv()
		spec  = ctx.Spec()
		value = tx.ValueOrZero()
	)
	evm := vm.NewEVM(ctx.BlockContext(), vm.TxContext{
		Origin:     tx.Caller,
		GasPrice:   tx.EffectiveGasPrice(ctx.Block.BaseFeeOrZero()),
		BlobHashes: tx.BlobHashes,
	}, j, vm.Config{
		ChainID:     ctx.Config.ChainID,
		Spec:        spec,
		Precompiles: ctx.PrecompileSet(),
		Inspector:   ctx.ActiveInspector(),
	})

	var (
		res *vm.FrameResult
		err error
	)
	if tx.IsCreate() {
		res, err = evm.Create(tx.Caller, tx.Data, gas, value)
	} else {
		// The delegate of a delegated target is warm for the top frame.
		if spec.Enabled(vm.Prague) {
			if delegate, ok := types.ResolveDelegation(j.GetCode(*tx.To)); ok {
				j.AddAddressToAccessList(delegate)
			}
		}
		res, err = evm.Call(tx.Caller, *tx.To, tx.Data, gas, value)
	}
	if err != nil {
		return nil, DatabaseError(err)
	}
	return res, journalError(ctx)
}

func (MainnetHooks) Refund(ctx *Context, gas *Gas, frame *vm.FrameResult) {
	quotient := vm.RefundQuotient
	if !ctx.Spec().Enabled(vm.London) {
		quotient = 2
	}
	refund := ctx.Journal.GetRefund()
	if limit := gas.Spent() / quotient; refund > limit {
		refund = limit
	}
	gas.Refunded = refund
	if gas.Used() < gas.Floor {
		gas.Remaining = gas.Limit - gas.Floor
		gas.Refunded = 0
	}
}

func (MainnetHooks) ReimburseCaller(ctx *Context, gas *Gas) error {
	if ctx.IsSystemCall() {
		return nil
	}
	tx := ctx.TxEnv()
	price := tx.EffectiveGasPrice(ctx.Block.BaseFeeOrZero())
	amount := new(uint256.Int).Mul(uint256.NewInt(gas.Remaining+gas.Refunded), price)
	ctx.Journal.AddBalance(tx.Caller, amount)
	return journalError(ctx)
}

func (MainnetHooks) RewardBeneficiary(ctx *Context, gas *Gas) error {
	if ctx.IsSystemCall() {
		return nil
	}
	var (
		tx      = ctx.TxEnv()
		baseFee = ctx.Block.BaseFeeOrZero()
		tip     = tx.EffectiveGasPrice(baseFee)
	)
	if ctx.Spec().Enabled(vm.London) {
		if tip.Lt(baseFee) {
			tip.Clear()
		} else {
			tip.Sub(tip, baseFee)
		}
	}
	reward := new(uint256.Int).Mul(uint256.NewInt(gas.Used()), tip)
	ctx.Journal.AddBalance(ctx.Block.Coinbase, reward)
	return journalError(ctx)
}

func (MainnetHooks) Output(ctx *Context, frame *vm.FrameResult, gas *Gas) (*ExecutionResult, error) {
	res := &ExecutionResult{
		Status:         frame.Status,
		Halt:           frame.Halt,
		Success:        frame.Success,
		GasUsed:        gas.Used(),
		GasRefunded:    gas.Refunded,
		Output:         frame.Output,
		CreatedAddress: frame.CreatedAddress,
	}
	res.Logs = ctx.Journal.CommitTx()
	return res, nil
}

func (MainnetHooks) CatchError(ctx *Context, err error) (*ExecutionResult, error) {
	return nil, err
}

// journalError reports a backend error memorized by the journal.
func journalError(ctx *Context) error {
	if err := ctx.Journal.Error(); err != nil {
		return DatabaseError(err)
	}
	return nil
}
